// Package routing defines the road-distance lookup used to validate driver
// candidates.
package routing

import (
	"context"
	"errors"

	"github.com/kilianp07/fooddispatch/core/model"
)

// Distance source tags attached to candidates.
const (
	SourceGoogleMaps = "google_maps"
	SourceHaversine  = "haversine"
)

// ErrNotConfigured is returned when the service has no credential.
var ErrNotConfigured = errors.New("routing: no api key configured")

// Route is a driving distance and duration between two points.
type Route struct {
	DistanceKm      float64 `json:"distance_km"`
	DurationMinutes float64 `json:"duration_minutes"`
}

// Service computes road distances. Any error means no usable result; callers
// decide how to degrade.
type Service interface {
	Distance(ctx context.Context, from, to model.Coordinates) (Route, error)
}
