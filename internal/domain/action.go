package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

type ActionKind string

const (
	ActionNeighbors    ActionKind = "neighbors"
	ActionCypher       ActionKind = "cypher"
	ActionProposeClaim ActionKind = "propose_claim"
	ActionFinal        ActionKind = "final"
)

var (
	ErrUnknownAction     = errors.New("unknown action")
	ErrInvalidActionArgs = errors.New("invalid action args")
)

type NeighborsArgs struct {
	ID    string `json:"id"`
	Depth *int   `json:"depth,omitempty"`
	Limit int    `json:"limit,omitempty"`
}

type CypherArgs struct {
	Query  string         `json:"query"`
	Params map[string]any `json:"params,omitempty"`
}

type FinalAnswer struct {
	Answer    string   `json:"answer"`
	Citations []string `json:"citations,omitempty"`
}

// Action is the decoded form of one assistant turn. Exactly one variant
// pointer is non-nil, selected by Kind.
type Action struct {
	Kind      ActionKind
	Neighbors *NeighborsArgs
	Cypher    *CypherArgs
	Propose   *ClaimProposal
	Final     *FinalAnswer
}

var (
	toolResultPrefix = regexp.MustCompile(`^\s*\[TOOL_RESULT\]\s*`)
	toolResultSuffix = regexp.MustCompile(`\s*\[END_TOOL_RESULT\]\s*$`)
)

// ParseAction decodes one assistant turn into an Action. Models wrap
// replies in [TOOL_RESULT] markers or pad the JSON with prose, so the
// first '{' through the last '}' is taken as the candidate object. Text
// with no parseable object becomes a final answer verbatim. A tool tag
// that is not recognized is an error, so it can be rejected before
// anything is dispatched.
func ParseAction(text string) (*Action, error) {
	cleaned := toolResultPrefix.ReplaceAllString(text, "")
	cleaned = toolResultSuffix.ReplaceAllString(cleaned, "")
	cleaned = strings.TrimSpace(cleaned)

	var obj map[string]json.RawMessage
	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start < 0 || end <= start || json.Unmarshal([]byte(cleaned[start:end+1]), &obj) != nil {
		return &Action{Kind: ActionFinal, Final: &FinalAnswer{Answer: cleaned}}, nil
	}

	if raw, ok := obj["final"]; ok {
		return parseFinal(raw), nil
	}

	var tool string
	if raw, ok := obj["tool"]; ok {
		// A non-string tag falls through to the unknown-action error.
		_ = json.Unmarshal(raw, &tool)
	}
	switch tool {
	case "neighbors":
		args := &NeighborsArgs{}
		if err := unmarshalArgs(obj["args"], args); err != nil {
			return nil, err
		}
		return &Action{Kind: ActionNeighbors, Neighbors: args}, nil
	case "cypher":
		args := &CypherArgs{}
		if err := unmarshalArgs(obj["args"], args); err != nil {
			return nil, err
		}
		return &Action{Kind: ActionCypher, Cypher: args}, nil
	case "propose_claim":
		args := &ClaimProposal{}
		if err := unmarshalArgs(obj["args"], args); err != nil {
			return nil, err
		}
		return &Action{Kind: ActionProposeClaim, Propose: args}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownAction, tool)
}

// parseFinal accepts both {"final": {"answer": ...}} and the bare-string
// {"final": "..."} form some models emit. Anything else keeps an empty
// answer rather than failing the turn.
func parseFinal(raw json.RawMessage) *Action {
	var obj FinalAnswer
	if err := json.Unmarshal(raw, &obj); err == nil {
		return &Action{Kind: ActionFinal, Final: &obj}
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return &Action{Kind: ActionFinal, Final: &FinalAnswer{Answer: s}}
	}
	return &Action{Kind: ActionFinal, Final: &FinalAnswer{}}
}

func unmarshalArgs(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidActionArgs, err)
	}
	return nil
}
