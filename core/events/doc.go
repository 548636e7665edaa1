// Package events defines the dispatch events emitted on the event bus.
//
// Available event types:
//   - AttemptEvent: a dispatch attempt started for an order
//   - DeferredEvent: the attempt was postponed until food is nearly ready
//   - CandidateEvent: the candidate search finished
//   - BookingEvent: an external courier booking succeeded or failed
//   - OutcomeEvent: the attempt reached a terminal state
package events
