package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/claimgate/claimgate/internal/domain"
	"github.com/claimgate/claimgate/internal/service"
	"github.com/google/uuid"
)

type ClaimHandler struct {
	gate   *service.PolicyGate
	ledger *service.LedgerService
}

func NewClaimHandler(gate *service.PolicyGate, ledger *service.LedgerService) *ClaimHandler {
	return &ClaimHandler{gate: gate, ledger: ledger}
}

type proposeClaimResponse struct {
	OK           bool          `json:"ok"`
	Decision     string        `json:"decision"`
	Trust        float64       `json:"trust"`
	MinQualityOK bool          `json:"min_quality_ok"`
	NoConflict   bool          `json:"no_conflict"`
	Claim        *domain.Claim `json:"claim"`
}

type claimActionRequest struct {
	ClaimID string `json:"claim_id"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

// Propose runs a claim proposal through the policy gate. Any status in
// the body is discarded; the gate decides.
func (h *ClaimHandler) Propose(w http.ResponseWriter, r *http.Request) {
	var req domain.ClaimProposal
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Status = ""

	result, err := h.gate.Evaluate(r.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidClaim) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, proposeClaimResponse{
		OK:           true,
		Decision:     result.Decision,
		Trust:        result.Trust,
		MinQualityOK: result.MinQualityOK,
		NoConflict:   result.NoConflict,
		Claim:        result.Claim,
	})
}

func (h *ClaimHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id, ok := decodeClaimID(w, r)
	if !ok {
		return
	}

	if err := h.ledger.Approve(r.Context(), id); err != nil {
		if errors.Is(err, service.ErrClaimNotFound) {
			writeError(w, http.StatusNotFound, "Claim not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

func (h *ClaimHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id, ok := decodeClaimID(w, r)
	if !ok {
		return
	}

	if err := h.ledger.Reject(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

func decodeClaimID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	var req claimActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(req.ClaimID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid claim_id")
		return uuid.Nil, false
	}
	return id, true
}
