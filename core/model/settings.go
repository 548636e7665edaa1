package model

// Settings is the dispatch configuration in force for a single attempt.
// It is passed by value so an attempt never observes a concurrent change.
type Settings struct {
	FallbackEnabled           bool    `json:"fallback_enabled"`
	MaxDriverRadiusKm         float64 `json:"max_driver_radius_km"`
	BatchingEnabled           bool    `json:"batching_enabled"`
	PredictiveDispatchEnabled bool    `json:"predictive_dispatch_enabled"`
	PredictiveBufferMinutes   int     `json:"predictive_buffer_minutes"`
	// RequireQuote blocks external bookings when no price quote is available.
	RequireQuote bool `json:"require_quote"`
}

// DefaultMaxDriverRadiusKm applies when settings carry no positive radius.
const DefaultMaxDriverRadiusKm = 10.0

// RadiusKm returns the configured radius or the default.
func (s Settings) RadiusKm() float64 {
	if s.MaxDriverRadiusKm > 0 {
		return s.MaxDriverRadiusKm
	}
	return DefaultMaxDriverRadiusKm
}
