package metrics

import "time"

// DispatchOutcome is the terminal state of one dispatch attempt.
type DispatchOutcome struct {
	OrderID        string
	Outcome        string
	Reason         string
	DriverID       string
	DistanceKm     float64
	DistanceSource string
	Batched        bool
	Delayed        bool
	Provider       string
	ExternalJobID  string
	Candidates     int
	Duration       time.Duration
	Time           time.Time
}

// MetricsSink records dispatch outcomes.
type MetricsSink interface {
	RecordDispatchOutcome(o DispatchOutcome) error
}

// CandidateSearchEvent summarises one candidate search.
type CandidateSearchEvent struct {
	OrderID       string
	Considered    int
	Candidates    int
	Batched       int
	RouteLookups  int
	RouteFailures int
	Duration      time.Duration
	Time          time.Time
}

// CandidateSearchRecorder records candidate searches.
type CandidateSearchRecorder interface {
	RecordCandidateSearch(ev CandidateSearchEvent) error
}

// ExternalBookingEvent captures an external courier booking attempt.
type ExternalBookingEvent struct {
	OrderID     string
	Provider    string
	JobID       string
	PackageSize string
	Success     bool
	Error       string
	Time        time.Time
}

// ExternalBookingRecorder records external bookings.
type ExternalBookingRecorder interface {
	RecordExternalBooking(ev ExternalBookingEvent) error
}

// DeferralEvent records a predictive deferral.
type DeferralEvent struct {
	OrderID string
	Delay   time.Duration
	RunAt   time.Time
	Time    time.Time
}

// DeferralRecorder records deferrals.
type DeferralRecorder interface {
	RecordDeferral(ev DeferralEvent) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordDispatchOutcome(DispatchOutcome) error      { return nil }
func (NopSink) RecordCandidateSearch(CandidateSearchEvent) error { return nil }
func (NopSink) RecordExternalBooking(ExternalBookingEvent) error { return nil }
func (NopSink) RecordDeferral(DeferralEvent) error               { return nil }
