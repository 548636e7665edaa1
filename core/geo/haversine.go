// Package geo provides great-circle distance estimates.
package geo

import (
	"math"

	"github.com/kilianp07/fooddispatch/core/model"
)

// EarthRadiusKm is the mean earth radius used for all estimates.
const EarthRadiusKm = 6371.0

// HaversineKm returns the great-circle distance between a and b in kilometres.
// Callers must exclude invalid coordinates beforehand.
func HaversineKm(a, b model.Coordinates) float64 {
	lat1 := toRad(a.Lat)
	lat2 := toRad(b.Lat)
	dLat := toRad(b.Lat - a.Lat)
	dLng := toRad(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return EarthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

func toRad(deg float64) float64 { return deg * math.Pi / 180 }
