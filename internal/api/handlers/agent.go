package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/claimgate/claimgate/internal/domain"
	"github.com/claimgate/claimgate/internal/service"
)

type AgentHandler struct {
	svc  *service.AgentService
	chat domain.ChatClient
}

func NewAgentHandler(svc *service.AgentService, chat domain.ChatClient) *AgentHandler {
	return &AgentHandler{svc: svc, chat: chat}
}

type queryRequest struct {
	Question string `json:"question"`
	MaxSteps *int   `json:"max_steps"`
}

type queryResponse struct {
	OK     bool                `json:"ok"`
	Answer string              `json:"answer"`
	Trace  []domain.TraceEntry `json:"trace"`
	Data   any                 `json:"data,omitempty"`
}

type chatResponse struct {
	Text string `json:"text"`
}

// Query drives the tool-dispatch loop for one question.
func (h *AgentHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}

	maxSteps := service.DefaultMaxSteps
	if req.MaxSteps != nil {
		maxSteps = *req.MaxSteps
	}

	result, err := h.svc.Query(r.Context(), req.Question, maxSteps)
	if err != nil {
		writeError(w, agentErrorStatus(err), err.Error())
		return
	}

	trace := result.Trace
	if trace == nil {
		trace = []domain.TraceEntry{}
	}
	writeJSON(w, http.StatusOK, queryResponse{
		OK:     true,
		Answer: result.Answer,
		Trace:  trace,
		Data:   result.Data,
	})
}

// Chat is a raw passthrough to the model: the body is the message list,
// no tool contract, no trace. Useful for smoke-testing the model server.
func (h *AgentHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var messages []domain.Message
	if err := json.NewDecoder(r.Body).Decode(&messages); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(messages) == 0 {
		writeError(w, http.StatusBadRequest, "at least one message is required")
		return
	}

	text, err := h.chat.Complete(r.Context(), messages)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{Text: text})
}

// agentErrorStatus separates the caller's mistakes from upstream
// failures. Model and store outages are 5xx; everything the caller (or
// the model acting for it) got wrong is 4xx.
func agentErrorStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrUnsafeQuery),
		errors.Is(err, service.ErrInvalidClaim),
		errors.Is(err, service.ErrInvalidDepth),
		errors.Is(err, service.ErrEmptyQuery),
		errors.Is(err, domain.ErrUnknownAction),
		errors.Is(err, domain.ErrInvalidActionArgs):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
