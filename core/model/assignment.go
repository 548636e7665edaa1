package model

import (
	"encoding/json"
	"time"
)

// AssignmentStatus tracks an internal delivery from assignment to drop-off.
type AssignmentStatus string

const (
	AssignmentAssigned  AssignmentStatus = "assigned"
	AssignmentAccepted  AssignmentStatus = "accepted"
	AssignmentPickedUp  AssignmentStatus = "picked_up"
	AssignmentInTransit AssignmentStatus = "in_transit"
	AssignmentDelivered AssignmentStatus = "delivered"
	AssignmentFailed    AssignmentStatus = "failed"
	AssignmentCancelled AssignmentStatus = "cancelled"
)

// PreDeparture reports whether the driver has not yet left for drop-off.
func (s AssignmentStatus) PreDeparture() bool {
	switch s {
	case AssignmentAssigned, AssignmentAccepted, AssignmentPickedUp:
		return true
	}
	return false
}

// Active reports whether the assignment still occupies the driver.
func (s AssignmentStatus) Active() bool {
	return s.PreDeparture() || s == AssignmentInTransit
}

// Location is a point of an assignment with human readable details.
type Location struct {
	Coordinates  Coordinates `json:"coordinates"`
	Address      string      `json:"address,omitempty"`
	Instructions string      `json:"instructions,omitempty"`
}

// AssignmentMetadata records how the assignment was produced.
type AssignmentMetadata struct {
	AutoDispatched bool    `json:"auto_dispatched"`
	DistanceKm     float64 `json:"distance_km"`
	DistanceSource string  `json:"distance_source"`
	IsBatched      bool    `json:"is_batched"`
}

// Assignment binds an order to an internal driver.
type Assignment struct {
	ID         string             `json:"id"`
	OrderID    string             `json:"order_id"`
	DriverID   string             `json:"driver_id"`
	AssignedBy string             `json:"assigned_by"`
	AssignedAt time.Time          `json:"assigned_at"`
	Status     AssignmentStatus   `json:"status"`
	Pickup     Location           `json:"pickup_location"`
	Delivery   Location           `json:"delivery_location"`
	Metadata   AssignmentMetadata `json:"metadata"`
}

// ExternalMetadata records the context of an external booking.
type ExternalMetadata struct {
	ProviderResponse json.RawMessage `json:"provider_response,omitempty"`
	Fallback         bool            `json:"fallback"`
	PackageSize      PackageSize     `json:"package_size"`
}

// ExternalAssignment records a job booked with an external courier network.
type ExternalAssignment struct {
	ID                  string           `json:"id"`
	OrderID             string           `json:"order_id"`
	Provider            string           `json:"provider"`
	ExternalJobID       string           `json:"external_job_id"`
	ExternalStatus      string           `json:"external_status"`
	TrackingURL         string           `json:"tracking_url,omitempty"`
	EstimatedPickupAt   *time.Time       `json:"estimated_pickup_at,omitempty"`
	EstimatedDeliveryAt *time.Time       `json:"estimated_delivery_at,omitempty"`
	PickupAddress       string           `json:"pickup_address"`
	DropoffAddress      string           `json:"dropoff_address"`
	Metadata            ExternalMetadata `json:"metadata"`
	CreatedAt           time.Time        `json:"created_at"`
}

// PackageSize is the courier parcel category.
type PackageSize string

const (
	PackageXSmall PackageSize = "xsmall"
	PackageSmall  PackageSize = "small"
	PackageMedium PackageSize = "medium"
	PackageLarge  PackageSize = "large"
	PackageXLarge PackageSize = "xlarge"
)
