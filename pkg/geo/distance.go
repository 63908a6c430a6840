// Package geo holds great-circle helpers shared by the registry and search fallback.
package geo

import "math"

// EarthRadiusKm is the mean Earth radius used for haversine distances.
const EarthRadiusKm = 6371.0

// DistanceKm calculates the distance between two points using the Haversine formula.
func DistanceKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := degreesToRadians(lat2 - lat1)
	dLng := degreesToRadians(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(degreesToRadians(lat1))*math.Cos(degreesToRadians(lat2))*
			math.Sin(dLng/2)*math.Sin(dLng/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKm * c
}

// DistanceMeters returns the haversine distance rounded to whole meters.
func DistanceMeters(lat1, lng1, lat2, lng2 float64) int {
	return int(math.Round(DistanceKm(lat1, lng1, lat2, lng2) * 1000))
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}
