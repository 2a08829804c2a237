// Package geo holds the great-circle helpers shared by the decoders and the
// metrics engine.
package geo

import (
	"math"

	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
)

// EarthRadiusMeters is the mean Earth radius used for all distances.
const EarthRadiusMeters = 6371000.0

// HaversineDistance returns the great-circle distance in meters between two
// WGS84 coordinates given in degrees.
func HaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	p1 := s2.LatLngFromDegrees(lat1, lon1)
	p2 := s2.LatLngFromDegrees(lat2, lon2)
	return p1.Distance(p2).Radians() * EarthRadiusMeters
}

// ToRadians converts degrees to radians.
func ToRadians(degrees float64) float64 {
	return (s1.Angle(degrees) * s1.Degree).Radians()
}

// ValidCoordinate reports whether lat/lon are finite and inside WGS84 bounds.
func ValidCoordinate(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
