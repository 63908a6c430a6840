package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/zatekoja/clinicfinder/internal/domain/entities"
)

// Triager maps a symptom description to specialty tags.
type Triager interface {
	Triage(ctx context.Context, symptom string, history []string) ([]entities.TriagedTag, error)
}

type triageRequest struct {
	Symptom     string   `json:"symptom"`
	HistoryTags []string `json:"history_tags"`
}

type triageResponse struct {
	Tags []entities.TriagedTag `json:"tags"`
}

// TriageHandler serves symptom triage.
type TriageHandler struct {
	triager Triager
}

// NewTriageHandler creates a new triage handler.
func NewTriageHandler(triager Triager) *TriageHandler {
	return &TriageHandler{triager: triager}
}

// Triage handles POST /api/triage
func (h *TriageHandler) Triage(w http.ResponseWriter, r *http.Request) {
	var req triageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tags, err := h.triager.Triage(r.Context(), req.Symptom, req.HistoryTags)
	if err != nil {
		respondWithAppError(r.Context(), w, err, "failed to triage symptom")
		return
	}

	respondWithJSON(w, http.StatusOK, triageResponse{Tags: tags})
}
