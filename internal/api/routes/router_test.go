package routes

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/clinicfinder/internal/adapters/providers/geolocation"
	"github.com/zatekoja/clinicfinder/internal/api/handlers"
)

func newTestHandler() http.Handler {
	geo := handlers.NewGeolocationHandler(geolocation.NewMockGeolocationProvider())
	router := NewRouter(handlers.NewRecommendationHandler(nil, nil), nil, geo, []string{"https://app.example"}, nil)
	return router.SetupRoutes()
}

func TestRouter_Health(t *testing.T) {
	rr := httptest.NewRecorder()
	newTestHandler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "OK", rr.Body.String())
	assert.Equal(t, "private, no-cache, must-revalidate", rr.Header().Get("Cache-Control"))
}

func TestRouter_Geocode(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/geocode?address=Shulin+District", nil)
	req.Header.Set("Origin", "https://app.example")
	rr := httptest.NewRecorder()

	newTestHandler().ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "https://app.example", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, rr.Header().Get("ETag"))

	var body struct {
		Results []struct {
			Lat float64 `json:"lat"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.NotEmpty(t, body.Results)
	assert.InDelta(t, 24.9907, body.Results[0].Lat, 1e-9)
}

func TestRouter_RoutingErrors(t *testing.T) {
	h := newTestHandler()

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/recommendations", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)

	// Triage is not mounted without a handler.
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/triage", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
