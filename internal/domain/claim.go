package domain

import (
	"regexp"

	"github.com/google/uuid"
)

type ObjectKind string

const (
	ObjectKindEntity  ObjectKind = "entity"
	ObjectKindLiteral ObjectKind = "literal"
)

func ValidObjectKind(k string) bool {
	switch ObjectKind(k) {
	case ObjectKindEntity, ObjectKindLiteral:
		return true
	}
	return false
}

type ClaimStatus string

const (
	StatusScratchpad ClaimStatus = "scratchpad"
	StatusPending    ClaimStatus = "pending"
	StatusApproved   ClaimStatus = "approved"
	StatusRejected   ClaimStatus = "rejected"
)

func ValidClaimStatus(s string) bool {
	switch ClaimStatus(s) {
	case StatusScratchpad, StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// SourceType classifies where a piece of evidence came from. The set is
// open; these are the well-known values. Which of them count as
// first-party is configuration, not a property of the type.
type SourceType string

const (
	SourceFirstPartyLog SourceType = "first_party_log"
	SourceConfig        SourceType = "config"
	SourceRunArtifact   SourceType = "run_artifact"
	SourceInternalDoc   SourceType = "internal_doc"
	SourceWeb           SourceType = "web"
	SourceLLMSelf       SourceType = "llm_self"
)

var predicateRe = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)

// ValidPredicate reports whether p is an uppercase relation token.
// Predicates become relationship types in the graph and relationship
// types cannot be query parameters, so the shape is enforced before any
// query is assembled.
func ValidPredicate(p string) bool {
	return predicateRe.MatchString(p)
}

type Evidence struct {
	ID           uuid.UUID  `json:"id"`
	URIOrBlobRef string     `json:"uri_or_blob_ref"`
	Snippet      string     `json:"snippet,omitempty"`
	Hash         string     `json:"hash,omitempty"`
	SourceType   SourceType `json:"source_type,omitempty"`
	QualityScore *float64   `json:"quality_score,omitempty"`
	Timestamp    *float64   `json:"timestamp,omitempty"`
	CreatedAt    int64      `json:"created_at,omitempty"`
}

// Provenance records how a claim came to exist. All fields are optional;
// they are flattened onto the claim node in the graph.
type Provenance struct {
	Who          string   `json:"who,omitempty"`
	When         *float64 `json:"when,omitempty"`
	PromptHash   string   `json:"prompt_hash,omitempty"`
	ModelVersion string   `json:"model_version,omitempty"`
	GitSHA       string   `json:"git_sha,omitempty"`
	ImageDigest  string   `json:"image_digest,omitempty"`
	RunID        string   `json:"run_id,omitempty"`
	DatasetURI   string   `json:"dataset_uri,omitempty"`
	SensorID     string   `json:"sensor_id,omitempty"`
	FrameTS      *float64 `json:"frame_ts,omitempty"`
}

// Claim is one subject-predicate-object assertion in the ledger.
// ObjectValue is an entity id when ObjectKind is entity, otherwise an
// opaque literal. Only approved entity claims materialize graph edges.
type Claim struct {
	ID          uuid.UUID   `json:"id"`
	SubjectID   string      `json:"subject_id"`
	Predicate   string      `json:"predicate"`
	ObjectKind  ObjectKind  `json:"object_kind"`
	ObjectValue string      `json:"object_value"`
	ModelConf   *float64    `json:"model_conf,omitempty"`
	HumanConf   *float64    `json:"human_conf,omitempty"`
	ContextHash string      `json:"context_hash,omitempty"`
	Status      ClaimStatus `json:"status"`
	Provenance  *Provenance `json:"provenance,omitempty"`
	CreatedAt   int64       `json:"created_at"`
}

// ClaimProposal is the inbound shape before the ledger assigns identity.
// Status is honored when set by internal callers; the policy gate
// overrides it with the decision outcome.
type ClaimProposal struct {
	SubjectID   string      `json:"subject_id"`
	Predicate   string      `json:"predicate"`
	ObjectKind  ObjectKind  `json:"object_kind"`
	ObjectValue string      `json:"object_value"`
	ModelConf   *float64    `json:"model_conf,omitempty"`
	HumanConf   *float64    `json:"human_conf,omitempty"`
	ContextHash string      `json:"context_hash,omitempty"`
	Status      ClaimStatus `json:"status,omitempty"`
	Evidence    []Evidence  `json:"evidence,omitempty"`
	Provenance  *Provenance `json:"provenance,omitempty"`
}
