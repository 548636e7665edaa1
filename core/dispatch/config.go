package dispatch

import (
	"time"

	"github.com/kilianp07/fooddispatch/core/model"
)

// Config defines dispatch-related settings.
type Config struct {
	FallbackEnabled           bool    `json:"fallback_enabled"`
	MaxDriverRadiusKm         float64 `json:"max_driver_radius_km"`
	BatchingEnabled           bool    `json:"batching_enabled"`
	PredictiveDispatchEnabled bool    `json:"predictive_dispatch_enabled"`
	PredictiveBufferMinutes   int     `json:"predictive_buffer_minutes"`
	RequireQuote              bool    `json:"require_quote"`
	AttemptTimeoutSeconds     int     `json:"attempt_timeout_seconds"`
	SystemUserID              string  `json:"system_user_id"`
	PlaceholderPhone          string  `json:"placeholder_phone"`
	// RecoveryWindowHours bounds how far back undispatched orders are
	// re-enqueued at startup. Zero disables recovery.
	RecoveryWindowHours int `json:"recovery_window_hours"`
}

// DefaultAttemptTimeout bounds one attempt when no timeout is configured.
const DefaultAttemptTimeout = 30 * time.Second

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.MaxDriverRadiusKm <= 0 {
		c.MaxDriverRadiusKm = model.DefaultMaxDriverRadiusKm
	}
	if c.AttemptTimeoutSeconds <= 0 {
		c.AttemptTimeoutSeconds = int(DefaultAttemptTimeout / time.Second)
	}
	if c.SystemUserID == "" {
		c.SystemUserID = DefaultSystemUserID
	}
	if c.PlaceholderPhone == "" {
		c.PlaceholderPhone = DefaultContactPhone
	}
}

// ToSettings returns the per-attempt settings described by c.
func (c Config) ToSettings() model.Settings {
	return model.Settings{
		FallbackEnabled:           c.FallbackEnabled,
		MaxDriverRadiusKm:         c.MaxDriverRadiusKm,
		BatchingEnabled:           c.BatchingEnabled,
		PredictiveDispatchEnabled: c.PredictiveDispatchEnabled,
		PredictiveBufferMinutes:   c.PredictiveBufferMinutes,
		RequireQuote:              c.RequireQuote,
	}
}

// AttemptTimeout returns the configured per-attempt deadline.
func (c Config) AttemptTimeout() time.Duration {
	if c.AttemptTimeoutSeconds <= 0 {
		return DefaultAttemptTimeout
	}
	return time.Duration(c.AttemptTimeoutSeconds) * time.Second
}
