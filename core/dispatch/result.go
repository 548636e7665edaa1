package dispatch

import (
	"time"

	"github.com/kilianp07/fooddispatch/core/model"
)

// Outcome is the terminal state of one dispatch attempt.
type Outcome string

const (
	OutcomeAssigned   Outcome = "assigned"
	OutcomeExternal   Outcome = "external"
	OutcomeDeferred   Outcome = "deferred"
	OutcomeUnassigned Outcome = "unassigned"
	OutcomeSkipped    Outcome = "skipped"
)

// Reasons attached to non-assigned outcomes.
const (
	ReasonOrderNotFound       = "order_not_found"
	ReasonOrderLookupFailed   = "order_lookup_failed"
	ReasonOrderClosed         = "order_closed"
	ReasonChefNotFound        = "chef_not_found"
	ReasonChefLookupFailed    = "chef_lookup_failed"
	ReasonSettingsUnavailable = "settings_unavailable"
	ReasonAwaitingPreparation = "awaiting_preparation"
	ReasonAlreadyScheduled    = "already_scheduled"
	ReasonAlreadyAssigned     = "already_assigned"
	ReasonAssignmentFailed    = "assignment_failed"
	ReasonFallbackDisabled    = "no_drivers_fallback_disabled"
	ReasonNoCourierNetwork    = "no_courier_network"
	ReasonBookingFailed       = "booking_failed"
	ReasonPanic               = "internal_error"
)

// Request asks for one dispatch attempt. Delayed marks a run fired by the
// predictive scheduler; such runs are never deferred again.
type Request struct {
	OrderID string `json:"order_id"`
	Delayed bool   `json:"delayed"`
}

// Result describes how an attempt ended. Exactly one of Assignment and
// External is set for the assigned and external outcomes.
type Result struct {
	OrderID       string                    `json:"order_id"`
	Delayed       bool                      `json:"delayed"`
	Outcome       Outcome                   `json:"outcome"`
	Reason        string                    `json:"reason,omitempty"`
	Assignment    *model.Assignment         `json:"assignment,omitempty"`
	External      *model.ExternalAssignment `json:"external,omitempty"`
	DeferredUntil *time.Time                `json:"deferred_until,omitempty"`
	Candidates    []Candidate               `json:"candidates,omitempty"`
	Search        FilterStats               `json:"-"`
	Err           error                     `json:"-"`
	Duration      time.Duration             `json:"duration"`
}
