package model

// DriverStatus is the account status of a driver.
type DriverStatus string

const (
	DriverPending   DriverStatus = "pending"
	DriverApproved  DriverStatus = "approved"
	DriverRejected  DriverStatus = "rejected"
	DriverOnHold    DriverStatus = "on_hold"
	DriverActive    DriverStatus = "active"
	DriverInactive  DriverStatus = "inactive"
	DriverSuspended DriverStatus = "suspended"
)

// Availability is the real-time working state of a driver.
type Availability string

const (
	AvailabilityAvailable  Availability = "available"
	AvailabilityBusy       Availability = "busy"
	AvailabilityOffline    Availability = "offline"
	AvailabilityOnDelivery Availability = "on_delivery"
)

// Driver is a member of the internal delivery fleet.
type Driver struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Phone        string       `json:"phone,omitempty"`
	Status       DriverStatus `json:"status"`
	Availability Availability `json:"availability"`
	// Location is the last reported position; nil when never reported.
	Location *Coordinates `json:"location,omitempty"`
}

// Locatable reports whether the driver has a usable last-known position.
func (d Driver) Locatable() bool {
	return d.Location != nil && d.Location.Valid()
}
