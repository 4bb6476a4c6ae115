package service

import (
	"github.com/claimgate/claimgate/internal/domain"
	"go.uber.org/zap"
)

// Default weights for the trust blend. Evidence quality dominates,
// model confidence contributes less, and a flat bonus rewards claims
// backed exclusively by first-party sources.
const (
	DefaultQualWeight      = 0.5
	DefaultConfWeight      = 0.4
	DefaultFirstPartyBonus = 0.15

	DefaultMinEvidenceQuality = 0.70
)

// DefaultFirstPartySources are the source types treated as first-party
// when no override is configured.
var DefaultFirstPartySources = []string{
	string(domain.SourceFirstPartyLog),
	string(domain.SourceConfig),
	string(domain.SourceRunArtifact),
}

// TrustScorer computes a deterministic trust score for a claim proposal.
// It holds no connections and performs no I/O; the same proposal always
// produces the same score.
type TrustScorer struct {
	logger *zap.Logger

	// Tunable blend parameters, set from config at startup.
	QualWeight         float64
	ConfWeight         float64
	FirstPartyBonus    float64
	MinEvidenceQuality float64

	firstParty map[string]struct{}
}

func NewTrustScorer(firstPartySources []string, logger *zap.Logger) *TrustScorer {
	if len(firstPartySources) == 0 {
		firstPartySources = DefaultFirstPartySources
	}
	fp := make(map[string]struct{}, len(firstPartySources))
	for _, s := range firstPartySources {
		fp[s] = struct{}{}
	}
	return &TrustScorer{
		logger:             logger,
		QualWeight:         DefaultQualWeight,
		ConfWeight:         DefaultConfWeight,
		FirstPartyBonus:    DefaultFirstPartyBonus,
		MinEvidenceQuality: DefaultMinEvidenceQuality,
		firstParty:         fp,
	}
}

// Score blends evidence quality, model confidence, and source provenance
// into a single value clamped to [0, 1].
//
// Missing quality scores and missing model confidence count as zero, so a
// claim with no evidence and no stated confidence lands at 0.
func (t *TrustScorer) Score(p *domain.ClaimProposal) float64 {
	qual := 0.0
	for _, ev := range p.Evidence {
		q := 0.0
		if ev.QualityScore != nil {
			q = *ev.QualityScore
		}
		if q > qual {
			qual = q
		}
	}

	conf := 0.0
	if p.ModelConf != nil {
		conf = *p.ModelConf
	}

	bonus := 0.0
	if len(p.Evidence) > 0 && t.allFirstParty(p.Evidence) {
		bonus = t.FirstPartyBonus
	}

	raw := t.QualWeight*qual + t.ConfWeight*conf + bonus
	score := clamp01(raw)

	t.logger.Debug("scored claim",
		zap.String("subject_id", p.SubjectID),
		zap.String("predicate", p.Predicate),
		zap.Float64("qual", qual),
		zap.Float64("conf", conf),
		zap.Float64("bonus", bonus),
		zap.Float64("score", score))

	return score
}

// MinQualityOK reports whether every attached evidence item meets the
// minimum quality bar. No evidence at all fails the check; a single item
// with a missing quality score fails it too, since missing counts as zero.
func (t *TrustScorer) MinQualityOK(evidence []domain.Evidence) bool {
	if len(evidence) == 0 {
		return false
	}
	for _, ev := range evidence {
		q := 0.0
		if ev.QualityScore != nil {
			q = *ev.QualityScore
		}
		if q < t.MinEvidenceQuality {
			return false
		}
	}
	return true
}

func (t *TrustScorer) allFirstParty(evidence []domain.Evidence) bool {
	for _, ev := range evidence {
		if _, ok := t.firstParty[string(ev.SourceType)]; !ok {
			return false
		}
	}
	return true
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
