package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/claimgate/claimgate/internal/llm"
	"github.com/claimgate/claimgate/internal/service"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newAgentTestHandler(graph *stubGraphStore, chat *llm.MockClient) *AgentHandler {
	gate, ledger := newTestServices(graph)
	svc := service.NewAgentService(gate, ledger, chat, nil, nil, zap.NewNop())
	return NewAgentHandler(svc, chat)
}

func TestAgentHandler_Query(t *testing.T) {
	chat := llm.NewMockClient()
	chat.Responses = []string{`{"final": {"answer": "checkout uses redis"}}`}
	h := newAgentTestHandler(newStubGraphStore(), chat)

	rr := postJSON(h.Query, `{"question": "What does svc-checkout use?"}`)

	assert.Equal(t, http.StatusOK, rr.Code)

	var resp queryResponse
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.True(t, resp.OK)
	assert.Equal(t, "checkout uses redis", resp.Answer)
	assert.Len(t, resp.Trace, 1)
}

func TestAgentHandler_Query_MissingQuestion(t *testing.T) {
	h := newAgentTestHandler(newStubGraphStore(), llm.NewMockClient())

	rr := postJSON(h.Query, `{}`)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "question is required", errorMessage(t, rr))
}

func TestAgentHandler_Query_InvalidBody(t *testing.T) {
	h := newAgentTestHandler(newStubGraphStore(), llm.NewMockClient())

	rr := postJSON(h.Query, `[`)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAgentHandler_Query_UnsafeCypherIs400(t *testing.T) {
	chat := llm.NewMockClient()
	chat.Responses = []string{`{"tool": "cypher", "args": {"query": "MATCH (n) DETACH DELETE n"}}`}
	h := newAgentTestHandler(newStubGraphStore(), chat)

	rr := postJSON(h.Query, `{"question": "wipe the graph"}`)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, errorMessage(t, rr), "unsafe")
}

func TestAgentHandler_Query_ChatErrorIs500(t *testing.T) {
	chat := llm.NewMockClient()
	chat.Err = errors.New("model server down")
	h := newAgentTestHandler(newStubGraphStore(), chat)

	rr := postJSON(h.Query, `{"question": "anything"}`)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestAgentHandler_Query_MaxStepsHonored(t *testing.T) {
	chat := llm.NewMockClient()
	chat.DefaultResponse = `{"tool": "neighbors", "args": {"id": "svc-checkout"}}`
	h := newAgentTestHandler(newStubGraphStore(), chat)

	rr := postJSON(h.Query, `{"question": "keep going", "max_steps": 1}`)

	assert.Equal(t, http.StatusOK, rr.Code)

	var resp queryResponse
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, service.StoppedAnswer, resp.Answer)
	assert.Len(t, chat.Calls, 1)
}

func TestAgentHandler_Chat(t *testing.T) {
	chat := llm.NewMockClient()
	chat.Responses = []string{"hello back"}
	h := newAgentTestHandler(newStubGraphStore(), chat)

	rr := postJSON(h.Chat, `[{"role": "user", "content": "hello"}]`)

	assert.Equal(t, http.StatusOK, rr.Code)

	var resp chatResponse
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "hello back", resp.Text)
}

func TestAgentHandler_Chat_EmptyMessages(t *testing.T) {
	h := newAgentTestHandler(newStubGraphStore(), llm.NewMockClient())

	rr := postJSON(h.Chat, `[]`)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "at least one message is required", errorMessage(t, rr))
}

func TestAgentHandler_Chat_ModelError(t *testing.T) {
	chat := llm.NewMockClient()
	chat.Err = errors.New("model server down")
	h := newAgentTestHandler(newStubGraphStore(), chat)

	rr := postJSON(h.Chat, `[{"role": "user", "content": "hello"}]`)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}
