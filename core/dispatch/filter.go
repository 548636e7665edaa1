package dispatch

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/kilianp07/fooddispatch/core/geo"
	"github.com/kilianp07/fooddispatch/core/logger"
	"github.com/kilianp07/fooddispatch/core/model"
	"github.com/kilianp07/fooddispatch/core/routing"
)

// coarseFactor widens the first haversine pass so that drivers whose straight
// line distance underestimates the road distance are still validated.
const coarseFactor = 2.0

// Candidate is a driver that passed filtering, with the distance used to rank it.
type Candidate struct {
	Driver          model.Driver `json:"driver"`
	HaversineKm     float64      `json:"haversine_km"`
	DistanceKm      float64      `json:"distance_km"`
	DurationMinutes float64      `json:"duration_minutes,omitempty"`
	Source          string       `json:"source"`
	IsBatched       bool         `json:"is_batched"`
}

// FilterStats describes the work done by one filter run.
type FilterStats struct {
	Considered    int
	Batched       int
	Coarse        int
	RouteLookups  int
	RouteFailures int
	Duration      time.Duration
}

// CandidateFilter selects the drivers able to take an order from a pickup.
type CandidateFilter struct {
	routes   routing.Service
	batching *BatchingEvaluator
	log      logger.Logger
}

// NewCandidateFilter creates a filter. routes may be nil, in which case
// distances are validated with haversine only. batching may be nil to disable
// batched candidates regardless of settings.
func NewCandidateFilter(routes routing.Service, batching *BatchingEvaluator, log logger.Logger) *CandidateFilter {
	return &CandidateFilter{routes: routes, batching: batching, log: log}
}

// Candidates returns the eligible drivers ordered best first: batched drivers,
// then ascending distance, then driver ID.
//
//gocyclo:ignore
func (f *CandidateFilter) Candidates(ctx context.Context, pickup model.Coordinates, drivers []model.Driver, s model.Settings) ([]Candidate, FilterStats) {
	start := time.Now()
	radius := s.RadiusKm()
	var (
		stats   FilterStats
		batched []Candidate
		coarse  []Candidate
	)
	for _, d := range drivers {
		if d.Status != model.DriverActive || !d.Locatable() {
			continue
		}
		stats.Considered++
		hv := geo.HaversineKm(*d.Location, pickup)

		if s.BatchingEnabled && f.batching != nil && d.Availability == model.AvailabilityOnDelivery {
			ok, err := f.batching.Eligible(ctx, d, pickup)
			if err != nil {
				f.log.Debugw("batching lookup failed", map[string]any{"driver_id": d.ID, "error": err.Error()})
			}
			if ok {
				batched = append(batched, Candidate{
					Driver:      d,
					HaversineKm: hv,
					DistanceKm:  0,
					Source:      routing.SourceHaversine,
					IsBatched:   true,
				})
			}
			continue
		}
		if d.Availability != model.AvailabilityAvailable {
			continue
		}
		if hv > coarseFactor*radius {
			continue
		}
		coarse = append(coarse, Candidate{Driver: d, HaversineKm: hv, DistanceKm: hv, Source: routing.SourceHaversine})
	}
	stats.Batched = len(batched)
	stats.Coarse = len(coarse)

	routes := f.routes
	out := batched
	for _, c := range coarse {
		if routes != nil {
			stats.RouteLookups++
			r, err := routes.Distance(ctx, *c.Driver.Location, pickup)
			if err == nil {
				if r.DistanceKm <= radius {
					c.DistanceKm = r.DistanceKm
					c.DurationMinutes = r.DurationMinutes
					c.Source = routing.SourceGoogleMaps
					out = append(out, c)
				}
				continue
			}
			stats.RouteFailures++
			if errors.Is(err, routing.ErrNotConfigured) {
				routes = nil
			}
			f.log.Debugw("route lookup failed, using haversine", map[string]any{"driver_id": c.Driver.ID, "error": err.Error()})
		}
		if c.HaversineKm <= radius {
			out = append(out, c)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.IsBatched != b.IsBatched {
			return a.IsBatched
		}
		if a.DistanceKm != b.DistanceKm {
			return a.DistanceKm < b.DistanceKm
		}
		return a.Driver.ID < b.Driver.ID
	})
	stats.Duration = time.Since(start)
	return out, stats
}
