package events

import "time"

// AttemptEvent is published when an attempt starts.
type AttemptEvent struct {
	OrderID string
	Delayed bool
	Time    time.Time
}

// DeferredEvent is published when an attempt schedules a delayed run.
type DeferredEvent struct {
	OrderID string
	RunAt   time.Time
	Time    time.Time
}

// CandidateEvent summarises a candidate search.
type CandidateEvent struct {
	OrderID       string
	Considered    int
	Candidates    int
	Batched       int
	RouteLookups  int
	RouteFailures int
	Duration      time.Duration
	Time          time.Time
}

// BookingEvent is published after an external booking attempt.
type BookingEvent struct {
	OrderID     string
	Provider    string
	JobID       string
	PackageSize string
	Err         error
	Time        time.Time
}

// OutcomeEvent is published once per attempt with its terminal state.
type OutcomeEvent struct {
	OrderID        string
	Outcome        string
	Reason         string
	DriverID       string
	DistanceKm     float64
	DistanceSource string
	Batched        bool
	Delayed        bool
	ExternalJobID  string
	Candidates     int
	Duration       time.Duration
	Time           time.Time
}
