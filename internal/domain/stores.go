package domain

import (
	"context"

	"github.com/google/uuid"
)

// GraphStore is the graph backend of the claim ledger. Claim creation
// and approval are single transactions on the store side so that a
// claim, its evidence nodes and any materialized edge land atomically.
type GraphStore interface {
	EnsureSchema(ctx context.Context) error
	Ping(ctx context.Context) error

	// Run executes a raw query and returns serialized records. Callers
	// own query safety; the agent dispatch path filters before calling.
	Run(ctx context.Context, query string, params map[string]any) ([]map[string]any, error)

	CreateClaim(ctx context.Context, claim *Claim, evidence []Evidence, materialize bool) (*Claim, error)
	ApproveClaim(ctx context.Context, id uuid.UUID) error
	RejectClaim(ctx context.Context, id uuid.UUID) error

	// DistinctObjects returns the ids of objects already related to the
	// subject under the given predicate.
	DistinctObjects(ctx context.Context, subjectID, predicate string) ([]string, error)

	Neighbors(ctx context.Context, id string, depth, limit int) ([]map[string]any, error)
	Gaps(ctx context.Context, limit int) ([]map[string]any, error)

	Close(ctx context.Context) error
}

// EvidenceAuditStore is the append-only relational copy of evidence
// rows. Writes are best-effort and never gate claim creation.
type EvidenceAuditStore interface {
	EnsureSchema(ctx context.Context) error
	Ping(ctx context.Context) error
	Insert(ctx context.Context, ev *Evidence) error
}

// ChatClient is one conversation turn against a language model.
type ChatClient interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}
