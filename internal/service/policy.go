package service

import (
	"context"

	"github.com/claimgate/claimgate/internal/domain"
	"go.uber.org/zap"
)

// Decision tags returned by the gate. T1 merges without review, T2
// parks the claim as pending for a human.
const (
	DecisionAutoMerge = "T1-auto-merge"
	DecisionReview    = "T2-review"
)

const DefaultAutoTrustThreshold = 0.85

// DefaultAutoMergePredicates are the relation types eligible for
// auto-merge when no override is configured. Everything else always
// goes to review regardless of trust.
var DefaultAutoMergePredicates = []string{"USES", "INGESTS", "PRODUCES"}

// GateResult is the outcome of evaluating one proposal: the decision
// tag, the inputs that produced it, and the claim as stored.
type GateResult struct {
	Decision     string        `json:"decision"`
	Trust        float64       `json:"trust"`
	MinQualityOK bool          `json:"min_quality_ok"`
	NoConflict   bool          `json:"no_conflict"`
	Claim        *domain.Claim `json:"claim"`
}

// PolicyGate decides whether a proposal merges immediately or waits for
// review, then drives the ledger with that decision. A pending outcome
// is a normal result, not an error.
type PolicyGate struct {
	trust    *TrustScorer
	conflict *ConflictDetector
	ledger   *LedgerService
	logger   *zap.Logger

	TrustThreshold float64

	autoMerge map[string]struct{}
}

func NewPolicyGate(trust *TrustScorer, conflict *ConflictDetector, ledger *LedgerService, autoMergePredicates []string, logger *zap.Logger) *PolicyGate {
	if len(autoMergePredicates) == 0 {
		autoMergePredicates = DefaultAutoMergePredicates
	}
	am := make(map[string]struct{}, len(autoMergePredicates))
	for _, p := range autoMergePredicates {
		am[p] = struct{}{}
	}
	return &PolicyGate{
		trust:          trust,
		conflict:       conflict,
		ledger:         ledger,
		logger:         logger,
		TrustThreshold: DefaultAutoTrustThreshold,
		autoMerge:      am,
	}
}

// Evaluate scores the proposal, checks it for conflicts, picks a status,
// and persists it. The proposal's own status field is ignored: the gate
// is the only authority on the stored status for claims routed through it.
//
// Auto-merge requires every condition at once: an allowlisted predicate,
// an entity object, trust at or above the threshold, every evidence item
// over the quality floor, and no conflicting edge.
func (g *PolicyGate) Evaluate(ctx context.Context, p *domain.ClaimProposal) (*GateResult, error) {
	trust := g.trust.Score(p)
	minQualOK := g.trust.MinQualityOK(p.Evidence)
	noConflict := !g.conflict.HasConflict(ctx, p)

	_, allowed := g.autoMerge[p.Predicate]
	auto := allowed &&
		p.ObjectKind == domain.ObjectKindEntity &&
		trust >= g.TrustThreshold &&
		minQualOK &&
		noConflict

	decision := DecisionReview
	p.Status = domain.StatusPending
	if auto {
		decision = DecisionAutoMerge
		p.Status = domain.StatusApproved
	}

	created, err := g.ledger.Propose(ctx, p)
	if err != nil {
		return nil, err
	}

	// The ledger should have stored exactly the status we asked for. If
	// it reports otherwise, reconcile with an explicit approve; failure
	// here leaves a pending claim behind, which review will catch.
	if auto && created.Status != domain.StatusApproved {
		if err := g.ledger.Approve(ctx, created.ID); err != nil {
			g.logger.Warn("auto-merge reconciliation failed",
				zap.String("claim_id", created.ID.String()),
				zap.Error(err))
		} else {
			created.Status = domain.StatusApproved
		}
	}

	g.logger.Info("gate decision",
		zap.String("claim_id", created.ID.String()),
		zap.String("decision", decision),
		zap.Float64("trust", trust),
		zap.Bool("min_quality_ok", minQualOK),
		zap.Bool("no_conflict", noConflict))

	return &GateResult{
		Decision:     decision,
		Trust:        trust,
		MinQualityOK: minQualOK,
		NoConflict:   noConflict,
		Claim:        created,
	}, nil
}
