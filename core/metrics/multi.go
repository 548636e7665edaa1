package metrics

import "errors"

// MultiSink fans records out to several sinks. Every sink is called even when
// an earlier one fails; the errors are joined.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

func (m *MultiSink) RecordDispatchOutcome(o DispatchOutcome) error {
	var errs []error
	for _, s := range m.Sinks {
		errs = append(errs, s.RecordDispatchOutcome(o))
	}
	return errors.Join(errs...)
}

func (m *MultiSink) RecordCandidateSearch(ev CandidateSearchEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(CandidateSearchRecorder); ok {
			errs = append(errs, r.RecordCandidateSearch(ev))
		}
	}
	return errors.Join(errs...)
}

func (m *MultiSink) RecordExternalBooking(ev ExternalBookingEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(ExternalBookingRecorder); ok {
			errs = append(errs, r.RecordExternalBooking(ev))
		}
	}
	return errors.Join(errs...)
}

func (m *MultiSink) RecordDeferral(ev DeferralEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(DeferralRecorder); ok {
			errs = append(errs, r.RecordDeferral(ev))
		}
	}
	return errors.Join(errs...)
}
