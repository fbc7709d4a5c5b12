package geo

import (
	"github.com/golang/geo/s2"
)

const earthRadiusMeters = 6371008.8

// DistanceMeters returns the great-circle distance between two points given in degrees.
func DistanceMeters(lat1, lon1, lat2, lon2 float64) float64 {
	a := s2.LatLngFromDegrees(lat1, lon1)
	b := s2.LatLngFromDegrees(lat2, lon2)
	return a.Distance(b).Radians() * earthRadiusMeters
}

// CellToken returns the s2 cell token covering the point at the given level.
func CellToken(lat, lon float64, level int) string {
	return s2.CellIDFromLatLng(s2.LatLngFromDegrees(lat, lon)).Parent(level).ToToken()
}
