// Package geo provides the small amount of spherical geometry the engine
// needs: great-circle distance and the coarse grid key used by risk
// clustering.
package geo

import (
	"math"

	"github.com/civicpulse/civicpulse/internal/models"
)

const earthRadiusMeters = 6371000

// DistanceMeters returns the haversine great-circle distance between two
// points in meters.
func DistanceMeters(a, b models.Location) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLng := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(h))
}

// GridCell buckets a location to 2 decimal places of latitude and
// longitude (~1.1 km cells). Two reports 1 km apart can land in different
// cells if they straddle a boundary; that is the accepted granularity of
// risk clustering, not something to smooth over.
func GridCell(l models.Location) models.GridCell {
	return models.GridCell{
		Lat: Round2(l.Latitude),
		Lng: Round2(l.Longitude),
	}
}

// Round2 rounds to 2 decimal places
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
