package metrics

import (
	"context"

	"github.com/kilianp07/fooddispatch/core/events"
	coremetrics "github.com/kilianp07/fooddispatch/core/metrics"
	"github.com/kilianp07/fooddispatch/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and records metrics for events.
// It stops when the context is canceled or the bus is closed.
func StartEventCollector(ctx context.Context, bus eventbus.EventBus, sink coremetrics.MetricsSink) {
	if bus == nil || sink == nil {
		return
	}
	sub := bus.Subscribe()
	go func() {
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				collect(sink, ev)
			}
		}
	}()
}

func collect(sink coremetrics.MetricsSink, ev eventbus.Event) {
	switch e := ev.(type) {
	case events.CandidateEvent:
		if r, ok := sink.(coremetrics.CandidateSearchRecorder); ok {
			_ = r.RecordCandidateSearch(coremetrics.CandidateSearchEvent{
				OrderID:       e.OrderID,
				Considered:    e.Considered,
				Candidates:    e.Candidates,
				Batched:       e.Batched,
				RouteLookups:  e.RouteLookups,
				RouteFailures: e.RouteFailures,
				Duration:      e.Duration,
				Time:          e.Time,
			})
		}
	case events.BookingEvent:
		if r, ok := sink.(coremetrics.ExternalBookingRecorder); ok {
			errStr := ""
			if e.Err != nil {
				errStr = e.Err.Error()
			}
			_ = r.RecordExternalBooking(coremetrics.ExternalBookingEvent{
				OrderID:     e.OrderID,
				Provider:    e.Provider,
				JobID:       e.JobID,
				PackageSize: e.PackageSize,
				Success:     e.Err == nil,
				Error:       errStr,
				Time:        e.Time,
			})
		}
	case events.DeferredEvent:
		if r, ok := sink.(coremetrics.DeferralRecorder); ok {
			_ = r.RecordDeferral(coremetrics.DeferralEvent{
				OrderID: e.OrderID,
				Delay:   e.RunAt.Sub(e.Time),
				RunAt:   e.RunAt,
				Time:    e.Time,
			})
		}
	}
}
