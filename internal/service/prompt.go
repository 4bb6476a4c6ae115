package service

import (
	"fmt"
	"sort"
	"strings"
)

// DefaultAllowedReadRels are the relation types the model's read queries
// may traverse when no override is configured.
var DefaultAllowedReadRels = []string{
	"USES", "INGESTS", "PRODUCES", "VERSION_OF", "MENTIONS", "FIXED_BY", "ORIGINATES_AT",
}

const systemPromptTemplate = `You are a tool-using assistant. Only respond with ONE JSON object per turn.
SCHEMA:
  {"tool":"neighbors","args":{"id":"<entity-id>","depth":1|2,"limit":<int>}}
  {"tool":"cypher","args":{"query":"<READ-ONLY CYPHER>","params":{"id":"<id>","id2":"<id2>"}}}
  {"tool":"propose_claim","args":{
      "subject_id":"<id>","predicate":"<RELATION>",
      "object_kind":"entity|literal","object_value":"<id-or-literal>",
      "model_conf":<0..1>,
      "evidence":[{"uri_or_blob_ref":"<uri>","source_type":"first_party_log|config|run_artifact|internal_doc|web|llm_self","quality_score":<0..1>}],
      "provenance":{"who":"<agent>", "when":<epoch>}
  }}
  OR {"final":{"answer":"<text>","citations":[...]}}
RULES:
- Entities are identified by property **id** (NOT name).
- Prefer **neighbors** for "list neighbors ... depth N".
- If using **cypher**, it must be READ-ONLY and only these rel types: %s
  Use parameters (e.g., MATCH (e:Entity {id:$id}) ...).
- Use **propose_claim** ONLY when the user explicitly asks to add/update knowledge.
- If required fields are missing, return {"final":{"answer":"ask user for <field>"}}.
EXAMPLES:
1) Q: "List neighbors of Entity 'Run:demo' depth 1."
   A: {"tool":"neighbors","args":{"id":"Run:demo","depth":1,"limit":50}}
2) Q: "Find path up to 2 hops between 'A' and 'B'."
   A: {"tool":"cypher","args":{"query":"MATCH p=shortestPath((:Entity {id:$id})-[:USES|INGESTS|PRODUCES*..2]-(:Entity {id:$id2})) RETURN p","params":{"id":"A","id2":"B"}}}
3) Q: "Add claim: Run:demo USES Model:v2 (first-party, qual=0.95)."
   A: {"tool":"propose_claim","args":{
         "subject_id":"Run:demo","predicate":"USES","object_kind":"entity","object_value":"Model:v2",
         "model_conf":0.9,
         "evidence":[{"uri_or_blob_ref":"log://run/demo","source_type":"first_party_log","quality_score":0.95}],
         "provenance":{"who":"gateway","when":1690000000}
      }}`

// BuildSystemPrompt renders the tool contract sent as the first message
// of every agent conversation. Small local models drift without the
// one-object-per-turn framing and the worked examples.
func BuildSystemPrompt(allowedRels []string) string {
	if len(allowedRels) == 0 {
		allowedRels = DefaultAllowedReadRels
	}
	rels := make([]string, len(allowedRels))
	copy(rels, allowedRels)
	sort.Strings(rels)
	return fmt.Sprintf(systemPromptTemplate, strings.Join(rels, ","))
}
