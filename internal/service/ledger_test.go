package service

import (
	"context"
	"errors"
	"testing"

	"github.com/claimgate/claimgate/internal/domain"
	"github.com/claimgate/claimgate/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// mockGraphStore implements domain.GraphStore for testing.
type mockGraphStore struct {
	claims       map[uuid.UUID]*domain.Claim
	evidence     map[uuid.UUID][]domain.Evidence
	materialized map[uuid.UUID]bool
	objects      map[string][]string // subjectID + "|" + predicate

	neighborRecords []map[string]any
	gapRecords      []map[string]any
	runRecords      []map[string]any

	lastNeighborsDepth int
	lastNeighborsLimit int
	lastGapsLimit      int

	approveCalls int
	runCalls     int

	// reportStatus, when set, is the status CreateClaim reports back to
	// the caller regardless of what was stored.
	reportStatus domain.ClaimStatus

	createErr    error
	approveErr   error
	rejectErr    error
	objectsErr   error
	neighborsErr error
	gapsErr      error
	runErr       error
}

func newMockGraphStore() *mockGraphStore {
	return &mockGraphStore{
		claims:       make(map[uuid.UUID]*domain.Claim),
		evidence:     make(map[uuid.UUID][]domain.Evidence),
		materialized: make(map[uuid.UUID]bool),
		objects:      make(map[string][]string),
	}
}

func objectKey(subjectID, predicate string) string {
	return subjectID + "|" + predicate
}

func (m *mockGraphStore) EnsureSchema(ctx context.Context) error { return nil }
func (m *mockGraphStore) Ping(ctx context.Context) error         { return nil }
func (m *mockGraphStore) Close(ctx context.Context) error        { return nil }

func (m *mockGraphStore) Run(ctx context.Context, query string, params map[string]any) ([]map[string]any, error) {
	m.runCalls++
	if m.runErr != nil {
		return nil, m.runErr
	}
	return m.runRecords, nil
}

func (m *mockGraphStore) CreateClaim(ctx context.Context, claim *domain.Claim, evidence []domain.Evidence, materialize bool) (*domain.Claim, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	stored := *claim
	m.claims[claim.ID] = &stored
	m.evidence[claim.ID] = evidence
	m.materialized[claim.ID] = materialize

	out := stored
	if m.reportStatus != "" {
		out.Status = m.reportStatus
	}
	return &out, nil
}

func (m *mockGraphStore) ApproveClaim(ctx context.Context, id uuid.UUID) error {
	if m.approveErr != nil {
		return m.approveErr
	}
	m.approveCalls++
	claim, ok := m.claims[id]
	if !ok {
		return store.ErrNotFound
	}
	claim.Status = domain.StatusApproved
	if claim.ObjectKind == domain.ObjectKindEntity {
		m.materialized[id] = true
	}
	return nil
}

func (m *mockGraphStore) RejectClaim(ctx context.Context, id uuid.UUID) error {
	if m.rejectErr != nil {
		return m.rejectErr
	}
	if claim, ok := m.claims[id]; ok {
		claim.Status = domain.StatusRejected
	}
	return nil
}

func (m *mockGraphStore) DistinctObjects(ctx context.Context, subjectID, predicate string) ([]string, error) {
	if m.objectsErr != nil {
		return nil, m.objectsErr
	}
	return m.objects[objectKey(subjectID, predicate)], nil
}

func (m *mockGraphStore) Neighbors(ctx context.Context, id string, depth, limit int) ([]map[string]any, error) {
	m.lastNeighborsDepth = depth
	m.lastNeighborsLimit = limit
	if m.neighborsErr != nil {
		return nil, m.neighborsErr
	}
	return m.neighborRecords, nil
}

func (m *mockGraphStore) Gaps(ctx context.Context, limit int) ([]map[string]any, error) {
	m.lastGapsLimit = limit
	if m.gapsErr != nil {
		return nil, m.gapsErr
	}
	return m.gapRecords, nil
}

// mockAuditStore implements domain.EvidenceAuditStore for testing.
type mockAuditStore struct {
	rows      []domain.Evidence
	insertErr error
}

func newMockAuditStore() *mockAuditStore {
	return &mockAuditStore{}
}

func (m *mockAuditStore) EnsureSchema(ctx context.Context) error { return nil }
func (m *mockAuditStore) Ping(ctx context.Context) error         { return nil }

func (m *mockAuditStore) Insert(ctx context.Context, ev *domain.Evidence) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.rows = append(m.rows, *ev)
	return nil
}

func testLogger() *zap.Logger {
	logger, _ := zap.NewDevelopment()
	return logger
}

func f64(v float64) *float64 { return &v }

// testProposal is a baseline valid proposal: allowlisted predicate,
// entity object, one high-quality first-party evidence item.
func testProposal() *domain.ClaimProposal {
	return &domain.ClaimProposal{
		SubjectID:   "svc-checkout",
		Predicate:   "USES",
		ObjectKind:  domain.ObjectKindEntity,
		ObjectValue: "lib-redis",
		ModelConf:   f64(0.9),
		Evidence: []domain.Evidence{{
			URIOrBlobRef: "log://deploy/svc-checkout",
			SourceType:   domain.SourceFirstPartyLog,
			QualityScore: f64(0.95),
		}},
		Provenance: &domain.Provenance{Who: "ci", GitSHA: "abc123"},
	}
}

func setupLedgerTest() (*LedgerService, *mockGraphStore, *mockAuditStore) {
	graph := newMockGraphStore()
	audit := newMockAuditStore()
	svc := NewLedgerService(graph, audit, testLogger())
	return svc, graph, audit
}

func TestLedgerService_Propose_DefaultsPending(t *testing.T) {
	svc, graph, audit := setupLedgerTest()
	ctx := context.Background()

	created, err := svc.Propose(ctx, testProposal())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if created.ID == uuid.Nil {
		t.Fatal("expected claim id to be assigned")
	}
	if created.Status != domain.StatusPending {
		t.Fatalf("expected status pending, got %s", created.Status)
	}
	if created.CreatedAt == 0 {
		t.Fatal("expected created_at to be set")
	}
	if len(graph.claims) != 1 {
		t.Fatalf("expected 1 claim in graph, got %d", len(graph.claims))
	}
	if graph.materialized[created.ID] {
		t.Fatal("pending claim should not materialize an edge")
	}
	if len(audit.rows) != 1 {
		t.Fatalf("expected 1 audit row, got %d", len(audit.rows))
	}
	if audit.rows[0].ID == uuid.Nil {
		t.Fatal("expected evidence id to be assigned")
	}
}

func TestLedgerService_Propose_ExplicitStatus(t *testing.T) {
	svc, graph, _ := setupLedgerTest()
	ctx := context.Background()

	p := testProposal()
	p.Status = domain.StatusScratchpad

	created, err := svc.Propose(ctx, p)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if created.Status != domain.StatusScratchpad {
		t.Fatalf("expected status scratchpad, got %s", created.Status)
	}
	if graph.materialized[created.ID] {
		t.Fatal("scratchpad claim should not materialize an edge")
	}
}

func TestLedgerService_Propose_ApprovedEntityMaterializes(t *testing.T) {
	svc, graph, _ := setupLedgerTest()
	ctx := context.Background()

	p := testProposal()
	p.Status = domain.StatusApproved

	created, err := svc.Propose(ctx, p)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !graph.materialized[created.ID] {
		t.Fatal("approved entity claim should materialize an edge")
	}
}

func TestLedgerService_Propose_ApprovedLiteralDoesNotMaterialize(t *testing.T) {
	svc, graph, _ := setupLedgerTest()
	ctx := context.Background()

	p := testProposal()
	p.Status = domain.StatusApproved
	p.ObjectKind = domain.ObjectKindLiteral
	p.ObjectValue = "2.1.0"

	created, err := svc.Propose(ctx, p)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if graph.materialized[created.ID] {
		t.Fatal("literal claim should never materialize an edge")
	}
}

func TestLedgerService_Propose_AuditFailureDoesNotBlock(t *testing.T) {
	svc, graph, audit := setupLedgerTest()
	ctx := context.Background()

	audit.insertErr = errors.New("postgres down")

	created, err := svc.Propose(ctx, testProposal())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(graph.claims) != 1 {
		t.Fatalf("expected claim to be created despite audit failure, got %d claims", len(graph.claims))
	}
	if len(audit.rows) != 0 {
		t.Fatalf("expected 0 audit rows, got %d", len(audit.rows))
	}
	if created.Status != domain.StatusPending {
		t.Fatalf("expected status pending, got %s", created.Status)
	}
}

func TestLedgerService_Propose_GraphErrorSurfaces(t *testing.T) {
	svc, graph, _ := setupLedgerTest()
	ctx := context.Background()

	graph.createErr = errors.New("neo4j down")

	_, err := svc.Propose(ctx, testProposal())
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestLedgerService_Propose_Validation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(p *domain.ClaimProposal)
	}{
		{"missing subject", func(p *domain.ClaimProposal) { p.SubjectID = "" }},
		{"lowercase predicate", func(p *domain.ClaimProposal) { p.Predicate = "uses" }},
		{"empty predicate", func(p *domain.ClaimProposal) { p.Predicate = "" }},
		{"predicate with dash", func(p *domain.ClaimProposal) { p.Predicate = "USES-X" }},
		{"bad object kind", func(p *domain.ClaimProposal) { p.ObjectKind = "edge" }},
		{"missing object value", func(p *domain.ClaimProposal) { p.ObjectValue = "" }},
		{"unknown status", func(p *domain.ClaimProposal) { p.Status = "merged" }},
		{"evidence without uri", func(p *domain.ClaimProposal) { p.Evidence[0].URIOrBlobRef = "" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, graph, _ := setupLedgerTest()
			p := testProposal()
			tc.mutate(p)

			_, err := svc.Propose(context.Background(), p)
			if !errors.Is(err, ErrInvalidClaim) {
				t.Fatalf("expected ErrInvalidClaim, got %v", err)
			}
			if len(graph.claims) != 0 {
				t.Fatalf("expected no claim stored, got %d", len(graph.claims))
			}
		})
	}
}

func TestLedgerService_Approve(t *testing.T) {
	svc, graph, _ := setupLedgerTest()
	ctx := context.Background()

	created, err := svc.Propose(ctx, testProposal())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if err := svc.Approve(ctx, created.ID); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if graph.claims[created.ID].Status != domain.StatusApproved {
		t.Fatalf("expected status approved, got %s", graph.claims[created.ID].Status)
	}
	if !graph.materialized[created.ID] {
		t.Fatal("approving an entity claim should materialize its edge")
	}
}

func TestLedgerService_Approve_NotFound(t *testing.T) {
	svc, _, _ := setupLedgerTest()
	ctx := context.Background()

	err := svc.Approve(ctx, uuid.New())
	if err != ErrClaimNotFound {
		t.Fatalf("expected ErrClaimNotFound, got %v", err)
	}
}

func TestLedgerService_Reject(t *testing.T) {
	svc, graph, _ := setupLedgerTest()
	ctx := context.Background()

	created, err := svc.Propose(ctx, testProposal())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if err := svc.Reject(ctx, created.ID); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if graph.claims[created.ID].Status != domain.StatusRejected {
		t.Fatalf("expected status rejected, got %s", graph.claims[created.ID].Status)
	}
}

func TestLedgerService_Reject_UnknownID(t *testing.T) {
	svc, _, _ := setupLedgerTest()
	ctx := context.Background()

	if err := svc.Reject(ctx, uuid.New()); err != nil {
		t.Fatalf("expected rejection of unknown id to be a no-op, got %v", err)
	}
}

func TestLedgerService_Neighbors_InvalidDepth(t *testing.T) {
	svc, _, _ := setupLedgerTest()
	ctx := context.Background()

	for _, depth := range []int{0, 3, -1} {
		_, err := svc.Neighbors(ctx, "svc-checkout", depth, 10)
		if err != ErrInvalidDepth {
			t.Fatalf("depth %d: expected ErrInvalidDepth, got %v", depth, err)
		}
	}
}

func TestLedgerService_Neighbors_DefaultLimit(t *testing.T) {
	svc, graph, _ := setupLedgerTest()
	ctx := context.Background()

	if _, err := svc.Neighbors(ctx, "svc-checkout", 1, 0); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if graph.lastNeighborsLimit != 50 {
		t.Fatalf("expected default limit 50, got %d", graph.lastNeighborsLimit)
	}
	if graph.lastNeighborsDepth != 1 {
		t.Fatalf("expected depth 1, got %d", graph.lastNeighborsDepth)
	}
}

func TestLedgerService_Gaps_DefaultLimit(t *testing.T) {
	svc, graph, _ := setupLedgerTest()
	ctx := context.Background()

	if _, err := svc.Gaps(ctx, -1); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if graph.lastGapsLimit != 50 {
		t.Fatalf("expected default limit 50, got %d", graph.lastGapsLimit)
	}
}

func TestLedgerService_Cypher(t *testing.T) {
	svc, graph, _ := setupLedgerTest()
	ctx := context.Background()

	graph.runRecords = []map[string]any{{"n": "svc-checkout"}}

	records, err := svc.Cypher(ctx, "MATCH (n:Entity) RETURN n LIMIT 1", nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if graph.runCalls != 1 {
		t.Fatalf("expected 1 run call, got %d", graph.runCalls)
	}
}

func TestLedgerService_Cypher_EmptyQuery(t *testing.T) {
	svc, graph, _ := setupLedgerTest()
	ctx := context.Background()

	for _, q := range []string{"", "   ", "\n\t"} {
		_, err := svc.Cypher(ctx, q, nil)
		if err != ErrEmptyQuery {
			t.Fatalf("query %q: expected ErrEmptyQuery, got %v", q, err)
		}
	}
	if graph.runCalls != 0 {
		t.Fatalf("expected no run calls, got %d", graph.runCalls)
	}
}
