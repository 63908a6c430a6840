package geolocation

import (
	"context"
	"fmt"
	"hash/fnv"
	"sort"
	"strings"
	"sync"

	"github.com/zatekoja/clinicfinder/internal/domain/providers"
)

// Banqiao, New Taipei. Unknown addresses are scattered around it.
const (
	mockBaseLat = 25.0117
	mockBaseLng = 121.4655
)

// MockGeolocationProvider is an offline, deterministic provider used with
// GEOLOCATION_PROVIDER=mock and in tests. Every address geocodes to a stable
// point derived from its text unless a fixed location was registered.
type MockGeolocationProvider struct {
	mu        sync.RWMutex
	locations map[string]providers.GeocodeResult
	places    map[string][]providers.Place
	details   map[string]providers.PlaceDetails
}

// NewMockGeolocationProvider creates a new mock geolocation provider
func NewMockGeolocationProvider() *MockGeolocationProvider {
	m := &MockGeolocationProvider{
		locations: make(map[string]providers.GeocodeResult),
		places:    make(map[string][]providers.Place),
		details:   make(map[string]providers.PlaceDetails),
	}
	for name, coords := range map[string][2]float64{
		"樹林區":             {24.9907, 121.4202},
		"Shulin District": {24.9907, 121.4202},
		"板橋區":             {25.0117, 121.4655},
		"臺北市":             {25.0330, 121.5654},
		"中正區":             {25.0324, 121.5187},
	} {
		m.locations[name] = providers.GeocodeResult{
			PlaceID:          "mock-" + name,
			FormattedAddress: name,
			Lat:              coords[0],
			Lng:              coords[1],
		}
	}
	return m
}

// SetLocation pins the geocode result for an address.
func (m *MockGeolocationProvider) SetLocation(address string, result providers.GeocodeResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locations[address] = result
}

// SetPlaces registers text search results for a query, regardless of radius.
func (m *MockGeolocationProvider) SetPlaces(query string, places []providers.Place) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.places[query] = places
}

// Geocode converts an address to coordinates (mock implementation)
func (m *MockGeolocationProvider) Geocode(_ context.Context, address string) ([]providers.GeocodeResult, error) {
	trimmed := strings.TrimSpace(address)
	if trimmed == "" {
		return nil, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if r, ok := m.locations[trimmed]; ok {
		return []providers.GeocodeResult{r}, nil
	}
	names := make([]string, 0, len(m.locations))
	for name := range m.locations {
		names = append(names, name)
	}
	// Longest registered name wins so results do not depend on map order.
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) > len(names[j])
		}
		return names[i] < names[j]
	})
	for _, name := range names {
		r := m.locations[name]
		if strings.Contains(trimmed, name) {
			jittered := r
			jittered.PlaceID = mockPlaceID(trimmed)
			jittered.FormattedAddress = trimmed
			jittered.Lat, jittered.Lng = offset(r.Lat, r.Lng, trimmed, 0.01)
			return []providers.GeocodeResult{jittered}, nil
		}
	}

	lat, lng := offset(mockBaseLat, mockBaseLng, trimmed, 0.05)
	return []providers.GeocodeResult{{
		PlaceID:          mockPlaceID(trimmed),
		FormattedAddress: trimmed,
		Lat:              lat,
		Lng:              lng,
	}}, nil
}

// TextSearch returns registered places for the query (mock implementation)
func (m *MockGeolocationProvider) TextSearch(_ context.Context, query string, _ int, limit int) ([]providers.Place, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	places := m.places[strings.TrimSpace(query)]
	if limit > 0 && len(places) > limit {
		places = places[:limit]
	}
	out := make([]providers.Place, len(places))
	copy(out, places)
	return out, nil
}

// Details returns registered details or a synthesized record.
func (m *MockGeolocationProvider) Details(_ context.Context, placeID string) (*providers.PlaceDetails, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if d, ok := m.details[placeID]; ok {
		return &d, nil
	}
	if placeID == "" {
		return nil, providers.ErrNoResults
	}
	return &providers.PlaceDetails{PlaceID: placeID, Name: placeID}, nil
}

func mockPlaceID(s string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return fmt.Sprintf("mock-%08x", h.Sum32())
}

// offset derives a stable displacement of at most spread degrees from s.
func offset(lat, lng float64, s string, spread float64) (float64, float64) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	sum := h.Sum64()
	dx := float64(sum&0xffff)/0xffff*2 - 1
	dy := float64((sum>>16)&0xffff)/0xffff*2 - 1
	return lat + dy*spread, lng + dx*spread
}
