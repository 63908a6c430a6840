package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/zatekoja/clinicfinder/internal/domain/providers"
	"github.com/zatekoja/clinicfinder/internal/infrastructure/observability"
	"github.com/zatekoja/clinicfinder/pkg/geo"
)

// GeolocationHandler handles geolocation endpoints.
type GeolocationHandler struct {
	provider providers.GeolocationProvider
}

// NewGeolocationHandler creates a new geolocation handler.
func NewGeolocationHandler(provider providers.GeolocationProvider) *GeolocationHandler {
	return &GeolocationHandler{provider: provider}
}

type geocodeResponse struct {
	Address string                    `json:"address"`
	Results []providers.GeocodeResult `json:"results"`
	MapURL  string                    `json:"map_url,omitempty"`
}

// Geocode handles GET /api/geocode?address=...
func (h *GeolocationHandler) Geocode(w http.ResponseWriter, r *http.Request) {
	address := strings.TrimSpace(r.URL.Query().Get("address"))
	if address == "" {
		respondWithError(w, http.StatusBadRequest, "address parameter is required")
		return
	}

	results, err := h.provider.Geocode(r.Context(), address)
	if err != nil {
		observability.LoggerFromContext(r.Context()).Error().Err(err).Str("address", address).Msg("geocode failed")
		respondWithError(w, http.StatusBadGateway, "failed to geocode address")
		return
	}
	if len(results) == 0 {
		respondWithError(w, http.StatusNotFound, "address not found")
		return
	}

	best := results[0]
	respondWithJSON(w, http.StatusOK, geocodeResponse{
		Address: address,
		Results: results,
		MapURL:  geo.MapURL(best.PlaceID, &best.Lat, &best.Lng),
	})
}

// PlaceDetails handles GET /api/places/{placeID}
func (h *GeolocationHandler) PlaceDetails(w http.ResponseWriter, r *http.Request) {
	placeID := strings.TrimSpace(r.PathValue("placeID"))
	if placeID == "" {
		respondWithError(w, http.StatusBadRequest, "place id is required")
		return
	}

	details, err := h.provider.Details(r.Context(), placeID)
	if errors.Is(err, providers.ErrNoResults) {
		respondWithError(w, http.StatusNotFound, "place not found")
		return
	}
	if err != nil {
		observability.LoggerFromContext(r.Context()).Error().Err(err).Str("place_id", placeID).Msg("place details failed")
		respondWithError(w, http.StatusBadGateway, "failed to fetch place details")
		return
	}

	respondWithJSON(w, http.StatusOK, details)
}
