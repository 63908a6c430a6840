package geolocation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/zatekoja/clinicfinder/internal/domain/providers"
	"github.com/zatekoja/clinicfinder/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/clinicfinder/pkg/errors"
)

const (
	googleMapsBaseURL  = "https://maps.googleapis.com/maps/api"
	defaultHTTPTimeout = 30 * time.Second
	defaultQPS         = 4

	statusOK          = "OK"
	statusZeroResults = "ZERO_RESULTS"
)

// GoogleOptions configures the Google Maps provider.
type GoogleOptions struct {
	APIKey     string
	Language   string
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
	QPS        float64
	Logger     zerolog.Logger
	Metrics    *observability.Metrics
}

// GoogleGeolocationProvider implements GeolocationProvider on the Google Maps
// web services. Responses are read through cache: a hit never touches the
// network, and OK/ZERO_RESULTS answers are stored without expiry.
type GoogleGeolocationProvider struct {
	apiKey     string
	language   string
	baseURL    string
	httpClient *http.Client
	cache      providers.CacheProvider
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	inflight   singleflight.Group
	logger     zerolog.Logger
	metrics    *observability.Metrics
}

// NewGoogleGeolocationProvider creates a new Google geolocation provider.
func NewGoogleGeolocationProvider(opts GoogleOptions, cache providers.CacheProvider) (*GoogleGeolocationProvider, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, apperrors.NewConfigurationError("google maps api key is required", nil)
	}
	if cache == nil {
		return nil, apperrors.NewConfigurationError("geolocation cache is required", nil)
	}
	if strings.TrimSpace(opts.BaseURL) == "" {
		opts.BaseURL = googleMapsBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultHTTPTimeout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}
	if opts.QPS <= 0 {
		opts.QPS = defaultQPS
	}

	logger := opts.Logger.With().Str("component", "google_maps").Logger()

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "google-maps",
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	})

	return &GoogleGeolocationProvider{
		apiKey:     opts.APIKey,
		language:   opts.Language,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: opts.HTTPClient,
		cache:      cache,
		limiter:    rate.NewLimiter(rate.Limit(opts.QPS), 1),
		breaker:    breaker,
		logger:     logger,
		metrics:    opts.Metrics,
	}, nil
}

// Geocode resolves an address. ZERO_RESULTS yields an empty slice.
func (g *GoogleGeolocationProvider) Geocode(ctx context.Context, address string) ([]providers.GeocodeResult, error) {
	trimmed := strings.TrimSpace(address)
	if trimmed == "" {
		return nil, apperrors.NewValidationError("address is required")
	}

	params := url.Values{}
	params.Set("address", trimmed)
	body, err := g.fetch(ctx, "geocode::"+trimmed, "/geocode/json", params)
	if err != nil {
		return nil, err
	}

	var payload googleGeocodeResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode geocode response: %w", err)
	}

	results := make([]providers.GeocodeResult, 0, len(payload.Results))
	for _, r := range payload.Results {
		results = append(results, providers.GeocodeResult{
			PlaceID:          r.PlaceID,
			FormattedAddress: r.FormattedAddress,
			Lat:              r.Geometry.Location.Lat,
			Lng:              r.Geometry.Location.Lng,
		})
	}
	return results, nil
}

// TextSearch runs a places text search. The full response is cached; limit
// is applied afterwards so different limits share one entry.
func (g *GoogleGeolocationProvider) TextSearch(ctx context.Context, query string, radiusMeters, limit int) ([]providers.Place, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return nil, apperrors.NewValidationError("query is required")
	}

	params := url.Values{}
	params.Set("query", trimmed)
	if radiusMeters > 0 {
		params.Set("radius", strconv.Itoa(radiusMeters))
	}
	key := fmt.Sprintf("search::%s::%d", trimmed, radiusMeters)
	body, err := g.fetch(ctx, key, "/place/textsearch/json", params)
	if err != nil {
		return nil, err
	}

	var payload googlePlacesTextSearchResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode places text search response: %w", err)
	}

	places := make([]providers.Place, 0, len(payload.Results))
	for _, r := range payload.Results {
		if limit > 0 && len(places) >= limit {
			break
		}
		places = append(places, providers.Place{
			PlaceID:          r.PlaceID,
			Name:             r.Name,
			FormattedAddress: r.FormattedAddress,
			Lat:              r.Geometry.Location.Lat,
			Lng:              r.Geometry.Location.Lng,
			Rating:           r.Rating,
			Types:            r.Types,
		})
	}
	return places, nil
}

// Details fetches contact details for a place id.
func (g *GoogleGeolocationProvider) Details(ctx context.Context, placeID string) (*providers.PlaceDetails, error) {
	trimmed := strings.TrimSpace(placeID)
	if trimmed == "" {
		return nil, apperrors.NewValidationError("place id is required")
	}

	params := url.Values{}
	params.Set("place_id", trimmed)
	params.Set("fields", "name,formatted_address,formatted_phone_number,website,url")
	body, err := g.fetch(ctx, "details::"+trimmed, "/place/details/json", params)
	if err != nil {
		return nil, err
	}

	var payload googlePlaceDetailsResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode place details response: %w", err)
	}
	if payload.Status == statusZeroResults {
		return nil, providers.ErrNoResults
	}

	return &providers.PlaceDetails{
		PlaceID:          trimmed,
		Name:             payload.Result.Name,
		FormattedAddress: payload.Result.FormattedAddress,
		Phone:            payload.Result.FormattedPhoneNumber,
		Website:          payload.Result.Website,
		URL:              payload.Result.URL,
	}, nil
}

// fetch returns the raw JSON for key, calling endpoint on a miss. Concurrent
// misses for the same key share a single request.
func (g *GoogleGeolocationProvider) fetch(ctx context.Context, key, endpoint string, params url.Values) ([]byte, error) {
	kind, _, _ := strings.Cut(key, "::")
	if cached, err := g.cache.Get(ctx, key); err == nil && len(cached) > 0 {
		observability.RecordCacheHit(ctx, g.metrics, kind)
		g.logger.Debug().Str("key", key).Msg("cache hit")
		return cached, nil
	} else if err != nil && !errors.Is(err, providers.ErrCacheMiss) {
		g.logger.Warn().Err(err).Str("key", key).Msg("cache read failed")
	}
	observability.RecordCacheMiss(ctx, g.metrics, kind)

	v, err, shared := g.inflight.Do(key, func() (interface{}, error) {
		body, err := g.request(ctx, endpoint, params)
		if err != nil {
			return nil, err
		}
		if err := g.cache.Set(ctx, key, body, 0); err != nil {
			g.logger.Warn().Err(err).Str("key", key).Msg("cache write failed")
		}
		return body, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		g.logger.Debug().Str("key", key).Msg("shared in-flight request")
	}
	return v.([]byte), nil
}

func (g *GoogleGeolocationProvider) request(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	result, err := g.breaker.Execute(func() (interface{}, error) {
		q := url.Values{}
		for k, v := range params {
			q[k] = v
		}
		if g.language != "" {
			q.Set("language", g.language)
		}
		q.Set("key", g.apiKey)

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+endpoint+"?"+q.Encode(), nil)
		if err != nil {
			return nil, fmt.Errorf("failed to build maps request: %w", err)
		}

		resp, err := g.httpClient.Do(req)
		if err != nil {
			return nil, apperrors.NewExternalError("maps request failed", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, apperrors.NewExternalError(fmt.Sprintf("maps request returned status %d", resp.StatusCode), nil)
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, apperrors.NewExternalError("failed to read maps response", err)
		}

		var envelope googleStatusEnvelope
		if err := json.Unmarshal(body, &envelope); err != nil {
			return nil, apperrors.NewExternalError("failed to decode maps response", err)
		}
		if envelope.Status != statusOK && envelope.Status != statusZeroResults {
			msg := "maps request failed: " + envelope.Status
			if envelope.ErrorMessage != "" {
				msg += " - " + envelope.ErrorMessage
			}
			return nil, apperrors.NewExternalError(msg, nil)
		}
		return body, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

type googleStatusEnvelope struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
}

type googleGeocodeResponse struct {
	Status  string                `json:"status"`
	Results []googleGeocodeResult `json:"results"`
}

type googleGeocodeResult struct {
	PlaceID          string         `json:"place_id"`
	FormattedAddress string         `json:"formatted_address"`
	Geometry         googleGeometry `json:"geometry"`
}

type googleGeometry struct {
	Location googleLocation `json:"location"`
}

type googleLocation struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type googlePlacesTextSearchResponse struct {
	Status  string                         `json:"status"`
	Results []googlePlacesTextSearchResult `json:"results"`
}

type googlePlacesTextSearchResult struct {
	FormattedAddress string         `json:"formatted_address"`
	PlaceID          string         `json:"place_id"`
	Name             string         `json:"name"`
	Geometry         googleGeometry `json:"geometry"`
	Rating           *float64       `json:"rating,omitempty"`
	Types            []string       `json:"types"`
}

type googlePlaceDetailsResponse struct {
	Status string `json:"status"`
	Result struct {
		Name                 string `json:"name"`
		FormattedAddress     string `json:"formatted_address"`
		FormattedPhoneNumber string `json:"formatted_phone_number"`
		Website              string `json:"website"`
		URL                  string `json:"url"`
	} `json:"result"`
}
