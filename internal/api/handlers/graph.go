package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/claimgate/claimgate/internal/service"
)

type GraphHandler struct {
	ledger *service.LedgerService
}

func NewGraphHandler(ledger *service.LedgerService) *GraphHandler {
	return &GraphHandler{ledger: ledger}
}

type cypherRequest struct {
	Query  string         `json:"query"`
	Params map[string]any `json:"params"`
}

type neighborsRequest struct {
	ID    string `json:"id"`
	Depth *int   `json:"depth"`
	Limit int    `json:"limit"`
}

type recordsResponse struct {
	Records []map[string]any `json:"records"`
}

// Cypher runs an ad-hoc query. This is the operator surface: no safety
// filter applies here, only on the model's tool path.
func (h *GraphHandler) Cypher(w http.ResponseWriter, r *http.Request) {
	var req cypherRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	records, err := h.ledger.Cypher(r.Context(), req.Query, req.Params)
	if err != nil {
		if errors.Is(err, service.ErrEmptyQuery) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeRecords(w, records)
}

func (h *GraphHandler) Neighbors(w http.ResponseWriter, r *http.Request) {
	var req neighborsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ID == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	depth := 1
	if req.Depth != nil {
		depth = *req.Depth
	}

	records, err := h.ledger.Neighbors(r.Context(), req.ID, depth, req.Limit)
	if err != nil {
		if errors.Is(err, service.ErrInvalidDepth) {
			writeError(w, http.StatusBadRequest, "depth must be 1 or 2")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeRecords(w, records)
}

func (h *GraphHandler) Gaps(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	records, err := h.ledger.Gaps(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeRecords(w, records)
}

func writeRecords(w http.ResponseWriter, records []map[string]any) {
	if records == nil {
		records = []map[string]any{}
	}
	writeJSON(w, http.StatusOK, recordsResponse{Records: records})
}
