package service

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/claimgate/claimgate/internal/domain"
)

// RoutedIntent is a deterministic reading of a raw question, produced
// without a model round-trip. Summarize means the tool result should be
// handed back to the model for one phrasing turn; otherwise the result
// is returned as-is.
type RoutedIntent struct {
	Action    *domain.Action
	Summarize bool
}

// IntentMatcher inspects a question and either routes it or declines
// with nil. Matchers run in order; the first match wins.
type IntentMatcher func(question string) *RoutedIntent

// DefaultIntentMatchers returns the stock matchers for the two most
// common asks: adding a claim and listing neighbors. The list is a
// value, not a global, so callers can reorder, extend, or drop entries.
func DefaultIntentMatchers() []IntentMatcher {
	return []IntentMatcher{matchAddClaim, matchNeighbors}
}

var (
	addClaimRe  = regexp.MustCompile("(?i)add a claim:\\s*`?([^`\\s]+)`?\\s+([A-Z_]+)\\s+`?([^`\\s]+)`?.*?quality\\s+([0-9.]+)")
	neighborsRe = regexp.MustCompile("(?i)neighbors.*`([^`]+)`.*depth\\s+(\\d+)")
)

// matchAddClaim recognizes "Add a claim: S PRED O ... quality Q" and
// routes it as a first-party-backed proposal. The predicate is
// uppercased so a lowercase ask still lands on a valid relation token.
func matchAddClaim(question string) *RoutedIntent {
	m := addClaimRe.FindStringSubmatch(question)
	if m == nil {
		return nil
	}
	qual, err := strconv.ParseFloat(m[4], 64)
	if err != nil {
		return nil
	}
	conf := 0.9
	when := float64(time.Now().Unix())
	return &RoutedIntent{
		Action: &domain.Action{
			Kind: domain.ActionProposeClaim,
			Propose: &domain.ClaimProposal{
				SubjectID:   m[1],
				Predicate:   strings.ToUpper(m[2]),
				ObjectKind:  domain.ObjectKindEntity,
				ObjectValue: m[3],
				ModelConf:   &conf,
				Evidence: []domain.Evidence{{
					URIOrBlobRef: "log://" + m[1],
					SourceType:   domain.SourceFirstPartyLog,
					QualityScore: &qual,
				}},
				Provenance: &domain.Provenance{Who: "gateway", When: &when},
			},
		},
	}
}

// matchNeighbors recognizes "list neighbors of `X` depth N". Depth is
// clamped to the supported range here rather than rejected: the text
// came from a human, not from code that can fix its request.
func matchNeighbors(question string) *RoutedIntent {
	m := neighborsRe.FindStringSubmatch(question)
	if m == nil {
		return nil
	}
	depth, err := strconv.Atoi(m[2])
	if err != nil {
		return nil
	}
	if depth < 1 {
		depth = 1
	}
	if depth > 2 {
		depth = 2
	}
	return &RoutedIntent{
		Action: &domain.Action{
			Kind:      domain.ActionNeighbors,
			Neighbors: &domain.NeighborsArgs{ID: m[1], Depth: &depth, Limit: 50},
		},
		Summarize: true,
	}
}
