package service

import (
	"context"

	"github.com/claimgate/claimgate/internal/domain"
	"go.uber.org/zap"
)

// ConflictDetector checks a proposed claim against edges already
// materialized in the graph. It fails closed: when the graph cannot be
// queried, the claim is treated as conflicting so it falls through to
// human review instead of merging on stale information.
type ConflictDetector struct {
	graph  domain.GraphStore
	logger *zap.Logger
}

func NewConflictDetector(graph domain.GraphStore, logger *zap.Logger) *ConflictDetector {
	return &ConflictDetector{
		graph:  graph,
		logger: logger,
	}
}

// HasConflict reports whether the proposal contradicts an existing edge.
//
// The graph is consulted before the object kind is inspected, so a store
// failure marks even a literal claim as conflicting. A literal object can
// never conflict on its own: literals are claim payloads, not graph edges.
// An entity object conflicts when the subject already points at a
// different object under the same predicate.
func (d *ConflictDetector) HasConflict(ctx context.Context, p *domain.ClaimProposal) bool {
	objects, err := d.graph.DistinctObjects(ctx, p.SubjectID, p.Predicate)
	if err != nil {
		d.logger.Warn("conflict check failed, treating claim as conflicting",
			zap.String("subject_id", p.SubjectID),
			zap.String("predicate", p.Predicate),
			zap.Error(err))
		return true
	}

	if p.ObjectKind != domain.ObjectKindEntity {
		return false
	}

	for _, obj := range objects {
		if obj != p.ObjectValue {
			d.logger.Debug("conflicting edge found",
				zap.String("subject_id", p.SubjectID),
				zap.String("predicate", p.Predicate),
				zap.String("existing", obj),
				zap.String("proposed", p.ObjectValue))
			return true
		}
	}
	return false
}
