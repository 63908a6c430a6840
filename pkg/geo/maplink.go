package geo

import (
	"fmt"
	"net/url"
)

// PlaceURL links to a place by its external identifier.
func PlaceURL(placeID string) string {
	return "https://www.google.com/maps/place/?q=place_id:" + url.QueryEscape(placeID)
}

// CoordinateURL links to a coordinate search.
func CoordinateURL(lat, lng float64) string {
	return fmt.Sprintf("https://www.google.com/maps/search/?api=1&query=%.6f,%.6f", lat, lng)
}

// MapURL prefers a place link and falls back to coordinates. It returns ""
// when neither is known.
func MapURL(placeID string, lat, lng *float64) string {
	if placeID != "" {
		return PlaceURL(placeID)
	}
	if lat != nil && lng != nil {
		return CoordinateURL(*lat, *lng)
	}
	return ""
}
