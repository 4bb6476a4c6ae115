package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/claimgate/claimgate/internal/domain"
	"go.uber.org/zap"
)

var ErrUnsafeQuery = errors.New("rejected unsafe/unknown cypher")

const (
	// DefaultMaxSteps bounds the conversation when the caller does not.
	DefaultMaxSteps = 4

	// StoppedAnswer is returned when the step budget runs out before the
	// model produces a final. Budget exhaustion is a normal outcome.
	StoppedAnswer = "(stopped: max_steps)"
)

// cypherDenylist blocks write statements and name-based matches from
// model-issued queries. Matching is case-sensitive on purpose: Cypher
// keywords are conventionally uppercase and a lowercase "create" inside
// a string literal or identifier should not reject the query.
var cypherDenylist = []string{"name:", "CREATE ", "MERGE ", "DELETE ", "SET "}

// QueryResult is the outcome of one agent conversation: the final (or
// sentinel) answer, the full trace, and optionally the raw tool result
// when the model declined to summarize it.
type QueryResult struct {
	Answer string
	Trace  []domain.TraceEntry
	Data   any
}

// AgentService runs the bounded tool-dispatch loop. Each question gets a
// fresh conversation; nothing is shared across calls except the injected
// collaborators.
type AgentService struct {
	gate     *PolicyGate
	ledger   *LedgerService
	chat     domain.ChatClient
	matchers []IntentMatcher
	system   string
	logger   *zap.Logger
}

func NewAgentService(gate *PolicyGate, ledger *LedgerService, chat domain.ChatClient, matchers []IntentMatcher, allowedRels []string, logger *zap.Logger) *AgentService {
	if matchers == nil {
		matchers = DefaultIntentMatchers()
	}
	return &AgentService{
		gate:     gate,
		ledger:   ledger,
		chat:     chat,
		matchers: matchers,
		system:   BuildSystemPrompt(allowedRels),
		logger:   logger,
	}
}

// Query drives the model until it produces a final answer or the step
// budget runs out. maxSteps below 1 is treated as 1, not as unlimited.
//
// Tool dispatch is strictly sequential. Dispatch and parse failures
// abort the conversation and surface to the caller; unparseable model
// text does not, it becomes the final answer.
func (s *AgentService) Query(ctx context.Context, question string, maxSteps int) (*QueryResult, error) {
	if maxSteps < 1 {
		maxSteps = 1
	}

	messages := []domain.Message{
		{Role: domain.RoleSystem, Content: s.system},
		{Role: domain.RoleUser, Content: question},
	}
	trace := []domain.TraceEntry{}

	for _, match := range s.matchers {
		if routed := match(question); routed != nil {
			return s.runRouted(ctx, routed, messages, trace)
		}
	}

	for step := 0; step < maxSteps; step++ {
		text, err := s.chat.Complete(ctx, messages)
		if err != nil {
			return nil, err
		}
		trace = append(trace, domain.TraceEntry{Assistant: text})

		action, err := domain.ParseAction(text)
		if err != nil {
			return nil, err
		}
		if action.Kind == domain.ActionFinal {
			s.logger.Debug("agent finished", zap.Int("steps", step+1))
			return &QueryResult{Answer: action.Final.Answer, Trace: trace}, nil
		}

		result, err := s.dispatch(ctx, action)
		if err != nil {
			return nil, err
		}
		trace = append(trace, domain.TraceEntry{ToolResult: result})
		messages = append(messages,
			domain.Message{Role: domain.RoleAssistant, Content: text},
			domain.Message{Role: domain.RoleTool, Content: toJSON(result)},
		)
	}

	s.logger.Debug("agent stopped at step budget", zap.Int("max_steps", maxSteps))
	return &QueryResult{Answer: StoppedAnswer, Trace: trace}, nil
}

// runRouted executes a fast-path intent. An add-claim match returns the
// tool result directly; a read match gives the model one turn to phrase
// the result, then falls back to returning the raw data.
func (s *AgentService) runRouted(ctx context.Context, routed *RoutedIntent, messages []domain.Message, trace []domain.TraceEntry) (*QueryResult, error) {
	actionJSON := toJSON(actionPayload(routed.Action))

	result, err := s.dispatch(ctx, routed.Action)
	if err != nil {
		return nil, err
	}
	trace = append(trace,
		domain.TraceEntry{Assistant: actionJSON},
		domain.TraceEntry{ToolResult: result},
	)

	if !routed.Summarize {
		return &QueryResult{Trace: trace}, nil
	}

	messages = append(messages,
		domain.Message{Role: domain.RoleAssistant, Content: actionJSON},
		domain.Message{Role: domain.RoleTool, Content: toJSON(result)},
	)
	text, err := s.chat.Complete(ctx, messages)
	if err != nil {
		return nil, err
	}
	trace = append(trace, domain.TraceEntry{Assistant: text})

	if action, err := domain.ParseAction(text); err == nil && action.Kind == domain.ActionFinal {
		return &QueryResult{Answer: action.Final.Answer, Trace: trace}, nil
	}
	return &QueryResult{Trace: trace, Data: result}, nil
}

// dispatch executes one action. The cypher safety filter runs before
// the query can reach the store.
func (s *AgentService) dispatch(ctx context.Context, action *domain.Action) (any, error) {
	switch action.Kind {
	case domain.ActionNeighbors:
		depth := 1
		if action.Neighbors.Depth != nil {
			depth = *action.Neighbors.Depth
		}
		records, err := s.ledger.Neighbors(ctx, action.Neighbors.ID, depth, action.Neighbors.Limit)
		if err != nil {
			return nil, err
		}
		return map[string]any{"records": records}, nil

	case domain.ActionCypher:
		if !cypherSafe(action.Cypher.Query) {
			return nil, fmt.Errorf("%w: %s", ErrUnsafeQuery, truncate(action.Cypher.Query, 120))
		}
		records, err := s.ledger.Cypher(ctx, action.Cypher.Query, action.Cypher.Params)
		if err != nil {
			return nil, err
		}
		return map[string]any{"records": records}, nil

	case domain.ActionProposeClaim:
		return s.gate.Evaluate(ctx, action.Propose)
	}
	return nil, fmt.Errorf("%w: %q", domain.ErrUnknownAction, action.Kind)
}

func cypherSafe(query string) bool {
	for _, bad := range cypherDenylist {
		if strings.Contains(query, bad) {
			return false
		}
	}
	return true
}

// actionPayload rebuilds the wire form of an action for the trace, so a
// routed intent looks exactly like a model-issued tool call.
func actionPayload(a *domain.Action) map[string]any {
	payload := map[string]any{"tool": string(a.Kind)}
	switch a.Kind {
	case domain.ActionNeighbors:
		payload["args"] = a.Neighbors
	case domain.ActionCypher:
		payload["args"] = a.Cypher
	case domain.ActionProposeClaim:
		payload["args"] = a.Propose
	}
	return payload
}

func toJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
