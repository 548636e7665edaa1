package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	dispatchAttempts *prometheus.CounterVec
	dispatchLatency  *prometheus.HistogramVec
	candidateSearch  prometheus.Histogram
	routeLookups     *prometheus.CounterVec
	externalBookings *prometheus.CounterVec
	dispatchDeferred prometheus.Counter
	notifySuccess    prometheus.Counter
	notifyFailure    prometheus.Counter
)

// newCollectors creates new metric collectors.
func newCollectors() (*prometheus.CounterVec, *prometheus.HistogramVec, prometheus.Histogram, *prometheus.CounterVec, *prometheus.CounterVec, prometheus.Counter, prometheus.Counter, prometheus.Counter) {
	att := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_attempts_total",
			Help: "Number of dispatch attempts by outcome",
		},
		[]string{"outcome"},
	)
	lat := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dispatch_attempt_duration_seconds",
			Help:    "Duration of a dispatch attempt from load to outcome",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)
	search := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "candidate_search_duration_seconds",
			Help:    "Duration of the driver candidate search",
			Buckets: prometheus.DefBuckets,
		},
	)
	routes := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "route_lookups_total",
			Help: "Number of route distance lookups by result",
		},
		[]string{"result"},
	)
	ext := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "external_bookings_total",
			Help: "Number of external courier bookings by result",
		},
		[]string{"result"},
	)
	def := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dispatch_deferred_total",
			Help: "Number of dispatch attempts deferred until food is nearly ready",
		},
	)
	suc := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "driver_notify_success_total",
			Help: "Number of successful driver assignment notifications",
		},
	)
	fail := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "driver_notify_failure_total",
			Help: "Number of failed driver assignment notifications",
		},
	)
	return att, lat, search, routes, ext, def, suc, fail
}

func init() {
	dispatchAttempts, dispatchLatency, candidateSearch, routeLookups, externalBookings, dispatchDeferred, notifySuccess, notifyFailure = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers dispatch metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(dispatchAttempts, dispatchLatency, candidateSearch, routeLookups, externalBookings, dispatchDeferred, notifySuccess, notifyFailure)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	dispatchAttempts, dispatchLatency, candidateSearch, routeLookups, externalBookings, dispatchDeferred, notifySuccess, notifyFailure = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
