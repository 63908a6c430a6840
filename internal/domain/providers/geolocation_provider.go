package providers

import (
	"context"
	"errors"
)

// ErrNoResults is returned when a lookup completes but finds nothing.
var ErrNoResults = errors.New("no results")

// GeolocationProvider defines the interface for geocoding and places search
type GeolocationProvider interface {
	// Geocode converts an address to candidate locations, best match first.
	// An empty slice means "not found".
	Geocode(ctx context.Context, address string) ([]GeocodeResult, error)

	// TextSearch runs a places text search biased to radiusMeters.
	TextSearch(ctx context.Context, query string, radiusMeters, limit int) ([]Place, error)

	// Details returns place details for a place id.
	Details(ctx context.Context, placeID string) (*PlaceDetails, error)
}

// GeocodeResult is one geocoding candidate.
type GeocodeResult struct {
	PlaceID          string  `json:"place_id"`
	FormattedAddress string  `json:"formatted_address"`
	Lat              float64 `json:"lat"`
	Lng              float64 `json:"lng"`
}

// Place represents a places search result
type Place struct {
	PlaceID          string   `json:"place_id"`
	Name             string   `json:"name"`
	FormattedAddress string   `json:"formatted_address,omitempty"`
	Lat              float64  `json:"lat"`
	Lng              float64  `json:"lng"`
	Rating           *float64 `json:"rating,omitempty"`
	Types            []string `json:"types,omitempty"`
}

// PlaceDetails carries the contact fields of a place.
type PlaceDetails struct {
	PlaceID          string `json:"place_id"`
	Name             string `json:"name"`
	FormattedAddress string `json:"formatted_address"`
	Phone            string `json:"phone,omitempty"`
	Website          string `json:"website,omitempty"`
	URL              string `json:"url,omitempty"`
}
