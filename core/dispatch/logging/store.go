package logging

import (
	"context"
	"time"
)

// LogRecord captures one dispatch attempt and how it ended.
type LogRecord struct {
	Timestamp      time.Time  `json:"timestamp"`
	OrderID        string     `json:"order_id"`
	Delayed        bool       `json:"delayed"`
	Outcome        string     `json:"outcome"`
	Reason         string     `json:"reason,omitempty"`
	DriverID       string     `json:"driver_id,omitempty"`
	AssignmentID   string     `json:"assignment_id,omitempty"`
	DistanceKm     float64    `json:"distance_km,omitempty"`
	DistanceSource string     `json:"distance_source,omitempty"`
	Batched        bool       `json:"batched,omitempty"`
	Candidates     []string   `json:"candidates,omitempty"`
	Provider       string     `json:"provider,omitempty"`
	ExternalJobID  string     `json:"external_job_id,omitempty"`
	TrackingURL    string     `json:"tracking_url,omitempty"`
	DeferredUntil  *time.Time `json:"deferred_until,omitempty"`
	DurationMs     int64      `json:"duration_ms"`
}

// LogQuery defines filters for retrieving records. Zero fields match all.
type LogQuery struct {
	Start    time.Time
	End      time.Time
	OrderID  string
	DriverID string
	Outcome  string
}

// Match reports whether r satisfies every filter set on q. A driver filter
// matches the assigned driver or any driver that was a candidate.
func (q LogQuery) Match(r LogRecord) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.OrderID != "" && r.OrderID != q.OrderID {
		return false
	}
	if q.Outcome != "" && r.Outcome != q.Outcome {
		return false
	}
	if q.DriverID == "" || r.DriverID == q.DriverID {
		return true
	}
	for _, id := range r.Candidates {
		if id == q.DriverID {
			return true
		}
	}
	return false
}

// LogStore persists LogRecords and supports querying.
type LogStore interface {
	Append(ctx context.Context, rec LogRecord) error
	Query(ctx context.Context, q LogQuery) ([]LogRecord, error)
	Close() error
}
