package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/zatekoja/clinicfinder/internal/domain/entities"
)

// Recommender runs the per-tag clinic pipeline.
type Recommender interface {
	SearchAllTags(ctx context.Context, tags []entities.SpecialtyTag, location string, userLat, userLng *float64) (*entities.Recommendation, error)
}

// Evaluator writes a Markdown report for a recommendation.
type Evaluator interface {
	Evaluate(ctx context.Context, current, history []entities.TriagedTag, rec *entities.Recommendation) (string, error)
}

// RecommendationRequest is the body of POST /api/recommendations.
type RecommendationRequest struct {
	Tags        []entities.SpecialtyTag `json:"tags"`
	Location    string                  `json:"location"`
	Lat         *float64                `json:"lat,omitempty"`
	Lng         *float64                `json:"lng,omitempty"`
	HistoryTags []entities.SpecialtyTag `json:"history_tags,omitempty"`
	Report      bool                    `json:"report,omitempty"`
}

// RecommendationResponse wraps a recommendation with an optional report.
type RecommendationResponse struct {
	*entities.Recommendation
	Report string `json:"report,omitempty"`
}

// RecommendationHandler serves clinic recommendations.
type RecommendationHandler struct {
	recommender Recommender
	evaluator   Evaluator
}

// NewRecommendationHandler creates a new recommendation handler. evaluator may be nil.
func NewRecommendationHandler(recommender Recommender, evaluator Evaluator) *RecommendationHandler {
	return &RecommendationHandler{recommender: recommender, evaluator: evaluator}
}

// Recommend handles POST /api/recommendations
func (h *RecommendationHandler) Recommend(w http.ResponseWriter, r *http.Request) {
	var req RecommendationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Tags) == 0 {
		respondWithError(w, http.StatusBadRequest, "tags are required")
		return
	}
	req.Location = strings.TrimSpace(req.Location)
	if req.Location == "" && (req.Lat == nil || req.Lng == nil) {
		respondWithError(w, http.StatusBadRequest, "location or lat/lng is required")
		return
	}

	rec, err := h.recommender.SearchAllTags(r.Context(), req.Tags, req.Location, req.Lat, req.Lng)
	if err != nil {
		respondWithAppError(r.Context(), w, err, "failed to build recommendations")
		return
	}

	resp := RecommendationResponse{Recommendation: rec}
	if req.Report && h.evaluator != nil {
		report, err := h.evaluator.Evaluate(r.Context(), scored(req.Tags), scored(req.HistoryTags), rec)
		if err == nil {
			resp.Report = report
		}
	}

	respondWithJSON(w, http.StatusOK, resp)
}

// scored wraps explicitly requested tags as full-confidence triage results.
func scored(tags []entities.SpecialtyTag) []entities.TriagedTag {
	out := make([]entities.TriagedTag, 0, len(tags))
	for _, tag := range tags {
		out = append(out, entities.TriagedTag{Tag: tag, Score: 1})
	}
	return out
}
