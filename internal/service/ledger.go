package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/claimgate/claimgate/internal/domain"
	"github.com/claimgate/claimgate/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrInvalidClaim  = errors.New("invalid claim")
	ErrClaimNotFound = errors.New("claim not found")
	ErrInvalidDepth  = errors.New("depth must be 1 or 2")
	ErrEmptyQuery    = errors.New("query is required")
)

const defaultRecordLimit = 50

// LedgerService owns claim persistence. Every claim lands in the graph;
// evidence additionally lands in the relational audit table so the audit
// trail survives graph rebuilds.
type LedgerService struct {
	graph  domain.GraphStore
	audit  domain.EvidenceAuditStore
	logger *zap.Logger
}

func NewLedgerService(graph domain.GraphStore, audit domain.EvidenceAuditStore, logger *zap.Logger) *LedgerService {
	return &LedgerService{
		graph:  graph,
		audit:  audit,
		logger: logger,
	}
}

// Propose validates the proposal, assigns identifiers, writes the evidence
// audit rows, and creates the claim in the graph. The audit write is
// best-effort: a failed row is logged and skipped, never blocks the claim.
//
// The claim's edge is materialized immediately only when the proposal
// arrives already approved with an entity object.
func (s *LedgerService) Propose(ctx context.Context, p *domain.ClaimProposal) (*domain.Claim, error) {
	if err := validateProposal(p); err != nil {
		return nil, err
	}

	status := p.Status
	if status == "" {
		status = domain.StatusPending
	}

	now := time.Now().UnixMilli()
	claim := &domain.Claim{
		ID:          uuid.New(),
		SubjectID:   p.SubjectID,
		Predicate:   p.Predicate,
		ObjectKind:  p.ObjectKind,
		ObjectValue: p.ObjectValue,
		ModelConf:   p.ModelConf,
		HumanConf:   p.HumanConf,
		ContextHash: p.ContextHash,
		Status:      status,
		Provenance:  p.Provenance,
		CreatedAt:   now,
	}

	evidence := make([]domain.Evidence, len(p.Evidence))
	for i, ev := range p.Evidence {
		ev.ID = uuid.New()
		ev.CreatedAt = now
		evidence[i] = ev
	}

	for i := range evidence {
		if err := s.audit.Insert(ctx, &evidence[i]); err != nil {
			s.logger.Warn("evidence audit insert failed",
				zap.String("evidence_id", evidence[i].ID.String()),
				zap.String("uri", evidence[i].URIOrBlobRef),
				zap.Error(err))
		}
	}

	materialize := status == domain.StatusApproved && claim.ObjectKind == domain.ObjectKindEntity

	created, err := s.graph.CreateClaim(ctx, claim, evidence, materialize)
	if err != nil {
		return nil, err
	}

	s.logger.Info("claim created",
		zap.String("claim_id", created.ID.String()),
		zap.String("subject_id", created.SubjectID),
		zap.String("predicate", created.Predicate),
		zap.String("status", string(created.Status)),
		zap.Bool("materialized", materialize))

	return created, nil
}

// Approve flips a claim to approved and materializes its edge when the
// object is an entity. Approving an already-approved claim is a no-op.
func (s *LedgerService) Approve(ctx context.Context, id uuid.UUID) error {
	if err := s.graph.ApproveClaim(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrClaimNotFound
		}
		return err
	}
	return nil
}

// Reject flips a claim to rejected. Unknown ids are silently ignored:
// rejection is an idempotent cleanup action, not a lookup.
func (s *LedgerService) Reject(ctx context.Context, id uuid.UUID) error {
	return s.graph.RejectClaim(ctx, id)
}

// Neighbors returns serialized paths around an entity. Depth is bounded
// to keep the traversal from walking the whole graph.
func (s *LedgerService) Neighbors(ctx context.Context, id string, depth, limit int) ([]map[string]any, error) {
	if depth < 1 || depth > 2 {
		return nil, ErrInvalidDepth
	}
	if limit <= 0 {
		limit = defaultRecordLimit
	}
	return s.graph.Neighbors(ctx, id, depth, limit)
}

// Gaps returns entities with no relationships at all, the starting point
// for coverage scanning.
func (s *LedgerService) Gaps(ctx context.Context, limit int) ([]map[string]any, error) {
	if limit <= 0 {
		limit = defaultRecordLimit
	}
	return s.graph.Gaps(ctx, limit)
}

// Cypher runs an arbitrary query against the graph. This is the admin
// escape hatch; callers exposing it to untrusted input must filter
// queries themselves.
func (s *LedgerService) Cypher(ctx context.Context, query string, params map[string]any) ([]map[string]any, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	return s.graph.Run(ctx, query, params)
}

func validateProposal(p *domain.ClaimProposal) error {
	if strings.TrimSpace(p.SubjectID) == "" {
		return fmt.Errorf("%w: subject_id is required", ErrInvalidClaim)
	}
	if !domain.ValidPredicate(p.Predicate) {
		return fmt.Errorf("%w: predicate %q must match [A-Z][A-Z0-9_]*", ErrInvalidClaim, p.Predicate)
	}
	if !domain.ValidObjectKind(string(p.ObjectKind)) {
		return fmt.Errorf("%w: object_kind must be entity or literal", ErrInvalidClaim)
	}
	if strings.TrimSpace(p.ObjectValue) == "" {
		return fmt.Errorf("%w: object_value is required", ErrInvalidClaim)
	}
	if p.Status != "" && !domain.ValidClaimStatus(string(p.Status)) {
		return fmt.Errorf("%w: status %q is not a claim status", ErrInvalidClaim, p.Status)
	}
	for _, ev := range p.Evidence {
		if strings.TrimSpace(ev.URIOrBlobRef) == "" {
			return fmt.Errorf("%w: evidence requires uri_or_blob_ref", ErrInvalidClaim)
		}
	}
	return nil
}
