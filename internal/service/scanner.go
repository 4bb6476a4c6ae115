package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/claimgate/claimgate/internal/domain"
	"go.uber.org/zap"
)

const (
	defaultScanInterval = 10 * time.Minute
	gapScanLimit        = 20
)

// GapScanner periodically looks for entities with no relationships and
// files a placeholder claim for each through the policy gate. The
// placeholder is a literal with no evidence, so it always lands in the
// review queue; the point is to surface the gap, not to fill it.
type GapScanner struct {
	ledger *LedgerService
	gate   *PolicyGate
	logger *zap.Logger

	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

func NewGapScanner(ledger *LedgerService, gate *PolicyGate, logger *zap.Logger) *GapScanner {
	return &GapScanner{
		ledger:   ledger,
		gate:     gate,
		logger:   logger,
		interval: defaultScanInterval,
		stopCh:   make(chan struct{}),
	}
}

func (s *GapScanner) SetInterval(d time.Duration) {
	s.interval = d
}

// Start runs the scanner on a periodic schedule in a background goroutine.
func (s *GapScanner) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.logger.Info("gap scanner started", zap.Duration("interval", s.interval))

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				s.run(ctx)
				cancel()
			case <-s.stopCh:
				s.logger.Info("gap scanner stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the scanner.
func (s *GapScanner) Stop() {
	close(s.stopCh)
	s.wg.Wait()
}

// run executes one scan cycle. Every failure is logged and swallowed so
// a transient store outage never kills the loop.
func (s *GapScanner) run(ctx context.Context) {
	records, err := s.ledger.Gaps(ctx, gapScanLimit)
	if err != nil {
		s.logger.Warn("gap scan failed", zap.Error(err))
		return
	}

	noted := 0
	for _, rec := range records {
		entityID := gapEntityID(rec)
		if entityID == "" {
			continue
		}
		if err := s.proposePlaceholder(ctx, entityID); err != nil {
			s.logger.Warn("gap placeholder rejected",
				zap.String("entity_id", entityID),
				zap.Error(err))
			continue
		}
		noted++
	}

	if noted > 0 {
		s.logger.Info("noted coverage gaps", zap.Int("count", noted))
	}
}

func (s *GapScanner) proposePlaceholder(ctx context.Context, entityID string) error {
	conf := 0.0
	when := float64(time.Now().Unix())
	p := &domain.ClaimProposal{
		SubjectID:   entityID,
		Predicate:   "MENTIONS",
		ObjectKind:  domain.ObjectKindLiteral,
		ObjectValue: fmt.Sprintf("gap-noted-%d", time.Now().Unix()),
		ModelConf:   &conf,
		Provenance:  &domain.Provenance{Who: "scheduler", When: &when, ModelVersion: "n/a"},
	}
	_, err := s.gate.Evaluate(ctx, p)
	return err
}

// gapEntityID digs the entity id out of one serialized gap record of the
// form {"e": {"_type": "node", ..., "id": "<entity-id>"}}.
func gapEntityID(rec map[string]any) string {
	node, ok := rec["e"].(map[string]any)
	if !ok {
		return ""
	}
	id, _ := node["id"].(string)
	return id
}
