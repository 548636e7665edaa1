package metrics

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/fooddispatch/core/metrics"
)

// PromSink records dispatch outcomes in Prometheus metrics.
type PromSink struct {
	outcomes   *prometheus.CounterVec
	distance   *prometheus.HistogramVec
	candidates prometheus.Histogram
	bookings   *prometheus.CounterVec
	deferrals  prometheus.Histogram
}

// NewPromSink registers dispatch metrics on the default Prometheus registerer.
// The Prometheus server should be started separately using StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_outcomes_total",
		Help: "Dispatch attempts by outcome, reason and delayed flag",
	}, []string{"outcome", "reason", "delayed"})
	distance := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dispatch_assignment_distance_km",
		Help:    "Driver to pickup distance of internal assignments",
		Buckets: []float64{0.5, 1, 2, 3, 5, 7.5, 10, 15, 20},
	}, []string{"source", "batched"})
	candidates := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "dispatch_candidates_per_search",
		Help:    "Number of eligible drivers returned by a candidate search",
		Buckets: []float64{0, 1, 2, 3, 5, 8, 13, 21},
	})
	bookings := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_external_bookings_total",
		Help: "External courier bookings by provider, package size and success",
	}, []string{"provider", "package_size", "success"})
	deferrals := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "dispatch_deferral_minutes",
		Help:    "How long predictive dispatch postponed an attempt",
		Buckets: []float64{1, 5, 10, 15, 20, 30, 45, 60, 90},
	})

	var err error
	if outcomes, err = register(reg, outcomes); err != nil {
		return nil, err
	}
	if distance, err = register(reg, distance); err != nil {
		return nil, err
	}
	if candidates, err = register(reg, candidates); err != nil {
		return nil, err
	}
	if bookings, err = register(reg, bookings); err != nil {
		return nil, err
	}
	if deferrals, err = register(reg, deferrals); err != nil {
		return nil, err
	}
	return &PromSink{outcomes: outcomes, distance: distance, candidates: candidates, bookings: bookings, deferrals: deferrals}, nil
}

// register adds c to reg, reusing an identical collector registered earlier.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordDispatchOutcome counts the outcome and, for internal assignments,
// observes the distance used.
func (s *PromSink) RecordDispatchOutcome(o coremetrics.DispatchOutcome) error {
	s.outcomes.WithLabelValues(o.Outcome, o.Reason, strconv.FormatBool(o.Delayed)).Inc()
	if o.DriverID != "" {
		s.distance.WithLabelValues(o.DistanceSource, strconv.FormatBool(o.Batched)).Observe(o.DistanceKm)
	}
	return nil
}

// RecordCandidateSearch observes the size of the candidate list.
func (s *PromSink) RecordCandidateSearch(ev coremetrics.CandidateSearchEvent) error {
	s.candidates.Observe(float64(ev.Candidates))
	return nil
}

// RecordExternalBooking counts a courier booking attempt.
func (s *PromSink) RecordExternalBooking(ev coremetrics.ExternalBookingEvent) error {
	s.bookings.WithLabelValues(ev.Provider, ev.PackageSize, strconv.FormatBool(ev.Success)).Inc()
	return nil
}

// RecordDeferral observes the deferral length.
func (s *PromSink) RecordDeferral(ev coremetrics.DeferralEvent) error {
	s.deferrals.Observe(ev.Delay.Minutes())
	return nil
}
