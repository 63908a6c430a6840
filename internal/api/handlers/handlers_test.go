package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/clinicfinder/internal/api/handlers"
	"github.com/zatekoja/clinicfinder/internal/domain/entities"
	"github.com/zatekoja/clinicfinder/internal/domain/providers"
	apperrors "github.com/zatekoja/clinicfinder/pkg/errors"
)

type MockRecommender struct {
	mock.Mock
}

func (m *MockRecommender) SearchAllTags(ctx context.Context, tags []entities.SpecialtyTag, location string, userLat, userLng *float64) (*entities.Recommendation, error) {
	args := m.Called(ctx, tags, location, userLat, userLng)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Recommendation), args.Error(1)
}

type MockEvaluator struct {
	mock.Mock
}

func (m *MockEvaluator) Evaluate(ctx context.Context, current, history []entities.TriagedTag, rec *entities.Recommendation) (string, error) {
	args := m.Called(ctx, current, history, rec)
	return args.String(0), args.Error(1)
}

type MockTriager struct {
	mock.Mock
}

func (m *MockTriager) Triage(ctx context.Context, symptom string, history []string) ([]entities.TriagedTag, error) {
	args := m.Called(ctx, symptom, history)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.TriagedTag), args.Error(1)
}

type MockGeolocationProvider struct {
	mock.Mock
}

func (m *MockGeolocationProvider) Geocode(ctx context.Context, address string) ([]providers.GeocodeResult, error) {
	args := m.Called(ctx, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]providers.GeocodeResult), args.Error(1)
}

func (m *MockGeolocationProvider) TextSearch(ctx context.Context, query string, radiusMeters, limit int) ([]providers.Place, error) {
	args := m.Called(ctx, query, radiusMeters, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]providers.Place), args.Error(1)
}

func (m *MockGeolocationProvider) Details(ctx context.Context, placeID string) (*providers.PlaceDetails, error) {
	args := m.Called(ctx, placeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*providers.PlaceDetails), args.Error(1)
}

func sampleRecommendation() *entities.Recommendation {
	lat, lng := 24.9907, 121.4202
	return &entities.Recommendation{
		RunID:     "run-1",
		Location:  "Shulin District",
		CenterLat: lat,
		CenterLng: lng,
		Entries: []entities.TagClinics{{
			Tag:     "cardiology",
			Clinics: []*entities.ClinicRecord{{Name: "Shulin Heart Clinic", Address: "Shulin District", Lat: &lat, Lng: &lng, Source: entities.SourceRegistry}},
		}},
	}
}

func TestRecommendationHandler_Recommend(t *testing.T) {
	recommender := new(MockRecommender)
	rec := sampleRecommendation()
	recommender.On("SearchAllTags", mock.Anything, []entities.SpecialtyTag{"cardiology"}, "Shulin District", (*float64)(nil), (*float64)(nil)).
		Return(rec, nil).Once()

	handler := handlers.NewRecommendationHandler(recommender, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/recommendations", strings.NewReader(`{"tags":["cardiology"],"location":" Shulin District "}`))
	rr := httptest.NewRecorder()

	handler.Recommend(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "run-1", body["run_id"])
	assert.NotContains(t, body, "report")
	entries := body["entries"].([]any)
	require.Len(t, entries, 1)
	assert.Equal(t, "cardiology", entries[0].(map[string]any)["tag"])
	recommender.AssertExpectations(t)
}

func TestRecommendationHandler_WithReport(t *testing.T) {
	recommender := new(MockRecommender)
	evaluator := new(MockEvaluator)
	rec := sampleRecommendation()
	lat, lng := 24.99, 121.42
	recommender.On("SearchAllTags", mock.Anything, []entities.SpecialtyTag{"cardiology"}, "", &lat, &lng).Return(rec, nil).Once()
	evaluator.On("Evaluate", mock.Anything,
		[]entities.TriagedTag{{Tag: "cardiology", Score: 1}},
		[]entities.TriagedTag{{Tag: "ent", Score: 1}},
		rec,
	).Return("# 建議", nil).Once()

	handler := handlers.NewRecommendationHandler(recommender, evaluator)
	req := httptest.NewRequest(http.MethodPost, "/api/recommendations",
		strings.NewReader(`{"tags":["cardiology"],"lat":24.99,"lng":121.42,"history_tags":["ent"],"report":true}`))
	rr := httptest.NewRecorder()

	handler.Recommend(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "# 建議", body["report"])
	evaluator.AssertExpectations(t)
}

func TestRecommendationHandler_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		serviceErr error
		wantStatus int
	}{
		{name: "invalid json", body: `{`, wantStatus: http.StatusBadRequest},
		{name: "no tags", body: `{"location":"Shulin"}`, wantStatus: http.StatusBadRequest},
		{name: "no location", body: `{"tags":["ent"]}`, wantStatus: http.StatusBadRequest},
		{name: "validation", body: `{"tags":[" "],"location":"Shulin"}`, serviceErr: apperrors.NewValidationError("empty tag"), wantStatus: http.StatusBadRequest},
		{name: "external", body: `{"tags":["ent"],"location":"Shulin"}`, serviceErr: apperrors.NewExternalError("maps down", errors.New("503")), wantStatus: http.StatusBadGateway},
		{name: "configuration", body: `{"tags":["ent"],"location":"Shulin"}`, serviceErr: apperrors.NewConfigurationError("no key", nil), wantStatus: http.StatusServiceUnavailable},
		{name: "plain error", body: `{"tags":["ent"],"location":"Shulin"}`, serviceErr: errors.New("boom"), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recommender := new(MockRecommender)
			if tt.serviceErr != nil {
				recommender.On("SearchAllTags", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, tt.serviceErr).Once()
			}
			handler := handlers.NewRecommendationHandler(recommender, nil)
			rr := httptest.NewRecorder()

			handler.Recommend(rr, httptest.NewRequest(http.MethodPost, "/api/recommendations", strings.NewReader(tt.body)))

			assert.Equal(t, tt.wantStatus, rr.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
			recommender.AssertExpectations(t)
		})
	}
}

func TestTriageHandler_Triage(t *testing.T) {
	triager := new(MockTriager)
	triager.On("Triage", mock.Anything, "chest pain", []string{"ent"}).
		Return([]entities.TriagedTag{{Tag: "cardiology", Score: 0.9}}, nil).Once()

	handler := handlers.NewTriageHandler(triager)
	rr := httptest.NewRecorder()
	handler.Triage(rr, httptest.NewRequest(http.MethodPost, "/api/triage", strings.NewReader(`{"symptom":"chest pain","history_tags":["ent"]}`)))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"tags":[{"tag":"cardiology","score":0.9}]}`, rr.Body.String())
	triager.AssertExpectations(t)
}

func TestTriageHandler_Failure(t *testing.T) {
	triager := new(MockTriager)
	triager.On("Triage", mock.Anything, "", []string(nil)).Return(nil, apperrors.NewValidationError("symptom is required")).Once()

	handler := handlers.NewTriageHandler(triager)
	rr := httptest.NewRecorder()
	handler.Triage(rr, httptest.NewRequest(http.MethodPost, "/api/triage", strings.NewReader(`{}`)))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.JSONEq(t, `{"error":"symptom is required"}`, rr.Body.String())
}

func TestGeolocationHandler_Geocode(t *testing.T) {
	provider := new(MockGeolocationProvider)
	provider.On("Geocode", mock.Anything, "Shulin District").
		Return([]providers.GeocodeResult{{PlaceID: "abc", FormattedAddress: "Shulin District, New Taipei", Lat: 24.99, Lng: 121.42}}, nil).Once()
	provider.On("Geocode", mock.Anything, "Atlantis").Return([]providers.GeocodeResult{}, nil).Once()
	provider.On("Geocode", mock.Anything, "Broken").Return(nil, errors.New("timeout")).Once()

	handler := handlers.NewGeolocationHandler(provider)

	rr := httptest.NewRecorder()
	handler.Geocode(rr, httptest.NewRequest(http.MethodGet, "/api/geocode?address=Shulin+District", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "https://www.google.com/maps/place/?q=place_id:abc", body["map_url"])

	for address, status := range map[string]int{"": http.StatusBadRequest, "Atlantis": http.StatusNotFound, "Broken": http.StatusBadGateway} {
		rr := httptest.NewRecorder()
		handler.Geocode(rr, httptest.NewRequest(http.MethodGet, "/api/geocode?address="+address, nil))
		assert.Equal(t, status, rr.Code, address)
	}
	provider.AssertExpectations(t)
}

func TestGeolocationHandler_PlaceDetails(t *testing.T) {
	provider := new(MockGeolocationProvider)
	provider.On("Details", mock.Anything, "abc").Return(&providers.PlaceDetails{PlaceID: "abc", Name: "Shulin Heart Clinic", Phone: "02-1234"}, nil).Once()
	provider.On("Details", mock.Anything, "gone").Return(nil, providers.ErrNoResults).Once()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/places/{placeID}", handlers.NewGeolocationHandler(provider).PlaceDetails)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/places/abc", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"phone":"02-1234"`)

	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/places/gone", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
	provider.AssertExpectations(t)
}
