package store

import (
	"context"
	"fmt"

	"github.com/claimgate/claimgate/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EvidenceAuditStore mirrors evidence rows into Postgres. The table is
// an append-only audit log with no claim linkage; a row can outlive a
// failed graph transaction and that is acceptable.
type EvidenceAuditStore struct {
	db *pgxpool.Pool
}

func NewEvidenceAuditStore(db *pgxpool.Pool) *EvidenceAuditStore {
	return &EvidenceAuditStore{db: db}
}

func (s *EvidenceAuditStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS evidence (
			id UUID PRIMARY KEY,
			uri_or_blob_ref TEXT NOT NULL,
			snippet TEXT,
			hash TEXT,
			source_type TEXT,
			quality_score DOUBLE PRECISION,
			ts_epoch DOUBLE PRECISION,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_evidence_source_type ON evidence(source_type)`,
		`CREATE INDEX IF NOT EXISTS idx_evidence_created_at ON evidence(created_at)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure evidence schema: %w", err)
		}
	}
	return nil
}

func (s *EvidenceAuditStore) Insert(ctx context.Context, ev *domain.Evidence) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO evidence (id, uri_or_blob_ref, snippet, hash, source_type, quality_score, ts_epoch)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		ev.ID, ev.URIOrBlobRef, nullString(ev.Snippet), nullString(ev.Hash),
		nullString(string(ev.SourceType)), ev.QualityScore, ev.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert evidence row: %w", err)
	}
	return nil
}

func (s *EvidenceAuditStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
