package store

import (
	"context"
	"fmt"
	"time"

	"github.com/claimgate/claimgate/internal/domain"
	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

// GraphStore persists entities, claims and evidence in neo4j. Each
// method opens its own session; writes run in managed transactions so a
// claim, its evidence nodes and any materialized edge land atomically.
type GraphStore struct {
	driver   neo4j.DriverWithContext
	database string
	logger   *zap.Logger
}

func NewGraphStore(ctx context.Context, uri, username, password, database string, logger *zap.Logger) (*GraphStore, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""), func(cfg *neo4j.Config) {
		cfg.MaxConnectionPoolSize = 10
		cfg.SocketConnectTimeout = 10 * time.Second
	})
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("verify neo4j connectivity: %w", err)
	}
	return &GraphStore{driver: driver, database: database, logger: logger}, nil
}

func (s *GraphStore) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: mode, DatabaseName: s.database})
}

func (s *GraphStore) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

func (s *GraphStore) Ping(ctx context.Context) error {
	return s.driver.VerifyConnectivity(ctx)
}

func (s *GraphStore) EnsureSchema(ctx context.Context) error {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	stmts := []string{
		`CREATE CONSTRAINT entity_id IF NOT EXISTS FOR (e:Entity) REQUIRE e.id IS UNIQUE`,
		`CREATE CONSTRAINT claim_id IF NOT EXISTS FOR (c:Claim) REQUIRE c.id IS UNIQUE`,
		`CREATE CONSTRAINT evidence_id IF NOT EXISTS FOR (ev:Evidence) REQUIRE ev.id IS UNIQUE`,
	}
	for _, stmt := range stmts {
		res, err := session.Run(ctx, stmt, nil)
		if err != nil {
			return fmt.Errorf("ensure graph schema: %w", err)
		}
		if _, err := res.Consume(ctx); err != nil {
			return fmt.Errorf("ensure graph schema: %w", err)
		}
	}
	return nil
}

// Run executes a raw query in an auto-commit session and serializes the
// records. The session is write-capable on purpose: the admin surface is
// permissive, the agent path filters queries before calling.
func (s *GraphStore) Run(ctx context.Context, query string, params map[string]any) ([]map[string]any, error) {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	result, err := session.Run(ctx, query, params)
	if err != nil {
		return nil, fmt.Errorf("run query: %w", err)
	}
	records, err := result.Collect(ctx)
	if err != nil {
		return nil, fmt.Errorf("collect records: %w", err)
	}
	return serializeRecords(records), nil
}

func (s *GraphStore) CreateClaim(ctx context.Context, claim *domain.Claim, evidence []domain.Evidence, materialize bool) (*domain.Claim, error) {
	if !domain.ValidPredicate(claim.Predicate) {
		return nil, fmt.Errorf("invalid predicate %q", claim.Predicate)
	}
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	created, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if err := ensureEntity(ctx, tx, claim.SubjectID); err != nil {
			return nil, err
		}
		if claim.ObjectKind == domain.ObjectKindEntity {
			if err := ensureEntity(ctx, tx, claim.ObjectValue); err != nil {
				return nil, err
			}
		}

		result, err := tx.Run(ctx, `
CREATE (c:Claim {
  id: $id,
  subject_id: $subject_id, predicate: $predicate,
  object_kind: $object_kind, object_value: $object_value,
  status: $status, model_conf: $model_conf, human_conf: $human_conf,
  context_hash: $context_hash,
  who: $who, when: $when, prompt_hash: $prompt_hash, model_version: $model_version,
  git_sha: $git_sha, image_digest: $image_digest, run_id: $run_id,
  dataset_uri: $dataset_uri, sensor_id: $sensor_id, frame_ts: $frame_ts,
  created_at: $created_at
})
RETURN c`, claimParams(claim))
		if err != nil {
			return nil, err
		}
		record, err := result.Single(ctx)
		if err != nil {
			return nil, err
		}
		node, ok := record.Values[0].(neo4j.Node)
		if !ok {
			return nil, fmt.Errorf("unexpected claim record type %T", record.Values[0])
		}

		if len(evidence) > 0 {
			res, err := tx.Run(ctx, `
MATCH (c:Claim {id: $claim_id})
UNWIND $evidence AS row
CREATE (ev:Evidence {
  id: row.id,
  uri_or_blob_ref: row.uri_or_blob_ref, snippet: row.snippet, hash: row.hash,
  source_type: row.source_type, quality_score: row.quality_score,
  timestamp: row.timestamp, created_at: row.created_at
})
CREATE (c)-[:SUPPORTS]->(ev)`, map[string]any{
				"claim_id": claim.ID.String(),
				"evidence": evidenceRows(evidence),
			})
			if err != nil {
				return nil, err
			}
			if _, err := res.Consume(ctx); err != nil {
				return nil, err
			}
		}

		if materialize {
			if err := materializeEdge(ctx, tx, claim.SubjectID, claim.Predicate, claim.ObjectValue); err != nil {
				return nil, err
			}
		}
		return claimFromNode(node), nil
	})
	if err != nil {
		return nil, fmt.Errorf("create claim: %w", err)
	}
	return created.(*domain.Claim), nil
}

// ApproveClaim loads the claim, materializes the edge for entity-kind
// claims and flips the status, all in one transaction. The edge MERGE
// makes a repeated approval a no-op on the graph.
func (s *GraphStore) ApproveClaim(ctx context.Context, id uuid.UUID) error {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, `MATCH (c:Claim {id: $id}) RETURN c`, map[string]any{"id": id.String()})
		if err != nil {
			return nil, err
		}
		records, err := result.Collect(ctx)
		if err != nil {
			return nil, err
		}
		if len(records) == 0 {
			return nil, ErrNotFound
		}
		node, ok := records[0].Values[0].(neo4j.Node)
		if !ok {
			return nil, fmt.Errorf("unexpected claim record type %T", records[0].Values[0])
		}
		claim := claimFromNode(node)

		if claim.ObjectKind == domain.ObjectKindEntity {
			if err := materializeEdge(ctx, tx, claim.SubjectID, claim.Predicate, claim.ObjectValue); err != nil {
				return nil, err
			}
		}
		res, err := tx.Run(ctx, `MATCH (c:Claim {id: $id}) SET c.status = $status`, map[string]any{
			"id":     id.String(),
			"status": string(domain.StatusApproved),
		})
		if err != nil {
			return nil, err
		}
		if _, err := res.Consume(ctx); err != nil {
			return nil, err
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("approve claim: %w", err)
	}
	return nil
}

// RejectClaim sets the status to rejected. A missing claim matches
// nothing and is silently ignored.
func (s *GraphStore) RejectClaim(ctx context.Context, id uuid.UUID) error {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `MATCH (c:Claim {id: $id}) SET c.status = $status`, map[string]any{
			"id":     id.String(),
			"status": string(domain.StatusRejected),
		})
		if err != nil {
			return nil, err
		}
		if _, err := res.Consume(ctx); err != nil {
			return nil, err
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("reject claim: %w", err)
	}
	return nil
}

func (s *GraphStore) DistinctObjects(ctx context.Context, subjectID, predicate string) ([]string, error) {
	session := s.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (s:Entity {id: $sid})-[r]->(o)
WHERE type(r) = $pred
RETURN collect(distinct o.id) AS objs`, map[string]any{
			"sid":  subjectID,
			"pred": predicate,
		})
		if err != nil {
			return nil, err
		}
		record, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		values, _ := record.Values[0].([]any)
		objs := make([]string, 0, len(values))
		for _, v := range values {
			if id, ok := v.(string); ok {
				objs = append(objs, id)
			}
		}
		return objs, nil
	})
	if err != nil {
		return nil, fmt.Errorf("distinct objects: %w", err)
	}
	return result.([]string), nil
}

func (s *GraphStore) Neighbors(ctx context.Context, id string, depth, limit int) ([]map[string]any, error) {
	// Variable-length pattern bounds cannot be parameters. Depth is
	// validated by the ledger before it gets here; this guard keeps the
	// splice safe for any other caller.
	if depth < 1 || depth > 2 {
		return nil, fmt.Errorf("invalid neighbor depth %d", depth)
	}
	query := fmt.Sprintf(`
MATCH (n:Entity {id: $id})
CALL {
  WITH n
  MATCH p=(n)-[*1..%d]-(m)
  RETURN p LIMIT $limit
}
RETURN p`, depth)

	session := s.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, map[string]any{"id": id, "limit": limit})
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("neighbors: %w", err)
	}
	return serializeRecords(result.([]*neo4j.Record)), nil
}

// Gaps returns entities with no relationships at all, the cheapest
// definition of an underspecified spot in the graph.
func (s *GraphStore) Gaps(ctx context.Context, limit int) ([]map[string]any, error) {
	session := s.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (e:Entity)
WHERE NOT (e)--()
RETURN e LIMIT $limit`, map[string]any{"limit": limit})
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("gaps: %w", err)
	}
	return serializeRecords(result.([]*neo4j.Record)), nil
}

func ensureEntity(ctx context.Context, tx neo4j.ManagedTransaction, id string) error {
	res, err := tx.Run(ctx, `MERGE (e:Entity {id: $id}) ON CREATE SET e.created_at = timestamp()`, map[string]any{"id": id})
	if err != nil {
		return err
	}
	_, err = res.Consume(ctx)
	return err
}

func materializeEdge(ctx context.Context, tx neo4j.ManagedTransaction, subjectID, predicate, objectID string) error {
	if !domain.ValidPredicate(predicate) {
		return fmt.Errorf("invalid predicate %q", predicate)
	}
	stmt := fmt.Sprintf(`
MERGE (s:Entity {id: $sid})
ON CREATE SET s.created_at = timestamp()
MERGE (o:Entity {id: $oid})
ON CREATE SET o.created_at = timestamp()
MERGE (s)-[:%s]->(o)`, predicate)
	res, err := tx.Run(ctx, stmt, map[string]any{"sid": subjectID, "oid": objectID})
	if err != nil {
		return err
	}
	_, err = res.Consume(ctx)
	return err
}

func claimParams(c *domain.Claim) map[string]any {
	prov := c.Provenance
	// A claim proposed without provenance still records when it was
	// asserted.
	var when any
	if prov != nil {
		when = nilableFloat(prov.When)
	} else {
		when = float64(time.Now().UnixMilli()) / 1000.0
	}
	params := map[string]any{
		"id":           c.ID.String(),
		"subject_id":   c.SubjectID,
		"predicate":    c.Predicate,
		"object_kind":  string(c.ObjectKind),
		"object_value": c.ObjectValue,
		"status":       string(c.Status),
		"model_conf":   nilableFloat(c.ModelConf),
		"human_conf":   nilableFloat(c.HumanConf),
		"context_hash": nilableString(c.ContextHash),
		"when":         when,
		"created_at":   c.CreatedAt,
	}
	provFields := map[string]any{
		"who": nil, "prompt_hash": nil, "model_version": nil, "git_sha": nil,
		"image_digest": nil, "run_id": nil, "dataset_uri": nil, "sensor_id": nil, "frame_ts": nil,
	}
	if prov != nil {
		provFields["who"] = nilableString(prov.Who)
		provFields["prompt_hash"] = nilableString(prov.PromptHash)
		provFields["model_version"] = nilableString(prov.ModelVersion)
		provFields["git_sha"] = nilableString(prov.GitSHA)
		provFields["image_digest"] = nilableString(prov.ImageDigest)
		provFields["run_id"] = nilableString(prov.RunID)
		provFields["dataset_uri"] = nilableString(prov.DatasetURI)
		provFields["sensor_id"] = nilableString(prov.SensorID)
		provFields["frame_ts"] = nilableFloat(prov.FrameTS)
	}
	for k, v := range provFields {
		params[k] = v
	}
	return params
}

func evidenceRows(evidence []domain.Evidence) []map[string]any {
	rows := make([]map[string]any, 0, len(evidence))
	for _, ev := range evidence {
		rows = append(rows, map[string]any{
			"id":              ev.ID.String(),
			"uri_or_blob_ref": ev.URIOrBlobRef,
			"snippet":         nilableString(ev.Snippet),
			"hash":            nilableString(ev.Hash),
			"source_type":     nilableString(string(ev.SourceType)),
			"quality_score":   nilableFloat(ev.QualityScore),
			"timestamp":       nilableFloat(ev.Timestamp),
			"created_at":      ev.CreatedAt,
		})
	}
	return rows
}

func claimFromNode(node neo4j.Node) *domain.Claim {
	props := node.Props
	c := &domain.Claim{
		SubjectID:   stringProp(props, "subject_id"),
		Predicate:   stringProp(props, "predicate"),
		ObjectKind:  domain.ObjectKind(stringProp(props, "object_kind")),
		ObjectValue: stringProp(props, "object_value"),
		ModelConf:   floatProp(props, "model_conf"),
		HumanConf:   floatProp(props, "human_conf"),
		ContextHash: stringProp(props, "context_hash"),
		Status:      domain.ClaimStatus(stringProp(props, "status")),
		CreatedAt:   intProp(props, "created_at"),
	}
	if id, err := uuid.Parse(stringProp(props, "id")); err == nil {
		c.ID = id
	}
	prov := &domain.Provenance{
		Who:          stringProp(props, "who"),
		When:         floatProp(props, "when"),
		PromptHash:   stringProp(props, "prompt_hash"),
		ModelVersion: stringProp(props, "model_version"),
		GitSHA:       stringProp(props, "git_sha"),
		ImageDigest:  stringProp(props, "image_digest"),
		RunID:        stringProp(props, "run_id"),
		DatasetURI:   stringProp(props, "dataset_uri"),
		SensorID:     stringProp(props, "sensor_id"),
		FrameTS:      floatProp(props, "frame_ts"),
	}
	if prov.Who != "" || prov.When != nil || prov.PromptHash != "" || prov.ModelVersion != "" ||
		prov.GitSHA != "" || prov.ImageDigest != "" || prov.RunID != "" || prov.DatasetURI != "" ||
		prov.SensorID != "" || prov.FrameTS != nil {
		c.Provenance = prov
	}
	return c
}

func serializeRecords(records []*neo4j.Record) []map[string]any {
	out := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		row := make(map[string]any, len(rec.Keys))
		for i, key := range rec.Keys {
			row[key] = serializeValue(rec.Values[i])
		}
		out = append(out, row)
	}
	return out
}

// serializeValue flattens driver types into plain JSON-friendly values.
// Node and relationship properties overwrite the synthetic fields, so a
// node carrying its own id property keeps it.
func serializeValue(v any) any {
	switch t := v.(type) {
	case neo4j.Node:
		m := map[string]any{"_type": "node", "labels": t.Labels, "id": t.ElementId}
		for k, p := range t.Props {
			m[k] = serializeValue(p)
		}
		return m
	case neo4j.Relationship:
		m := map[string]any{"_type": "rel", "type": t.Type, "id": t.ElementId, "start": t.StartElementId, "end": t.EndElementId}
		for k, p := range t.Props {
			m[k] = serializeValue(p)
		}
		return m
	case neo4j.Path:
		nodes := make([]any, 0, len(t.Nodes))
		for _, n := range t.Nodes {
			nodes = append(nodes, serializeValue(n))
		}
		rels := make([]any, 0, len(t.Relationships))
		for _, r := range t.Relationships {
			rels = append(rels, serializeValue(r))
		}
		return map[string]any{"_type": "path", "nodes": nodes, "rels": rels}
	case []any:
		out := make([]any, 0, len(t))
		for _, item := range t {
			out = append(out, serializeValue(item))
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = serializeValue(item)
		}
		return out
	default:
		return v
	}
}

func stringProp(props map[string]any, key string) string {
	v, _ := props[key].(string)
	return v
}

func floatProp(props map[string]any, key string) *float64 {
	if v, ok := props[key].(float64); ok {
		return &v
	}
	return nil
}

func intProp(props map[string]any, key string) int64 {
	switch v := props[key].(type) {
	case int64:
		return v
	case float64:
		return int64(v)
	}
	return 0
}

func nilableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nilableFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}
