// Package courier defines the external courier network used when no internal
// driver can take an order.
package courier

import (
	"context"
	"encoding/json"
	"time"

	"github.com/kilianp07/fooddispatch/core/factory"
	"github.com/kilianp07/fooddispatch/core/model"
)

// Contact is the person to meet at a stop.
type Contact struct {
	FirstName string `json:"firstname,omitempty"`
	LastName  string `json:"lastname,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Company   string `json:"company,omitempty"`
}

// Stop is a pickup or drop-off point.
type Stop struct {
	Address string  `json:"address"`
	Contact Contact `json:"contact"`
}

// JobRequest describes a single pickup to single drop-off delivery.
type JobRequest struct {
	Pickup          Stop
	Dropoff         Stop
	PackageType     model.PackageSize
	ClientReference string
	// PickupAt requests a pickup time; zero means as soon as possible.
	PickupAt time.Time
}

// Delivery is one leg of a booked job.
type Delivery struct {
	TrackingURL       string     `json:"tracking_url,omitempty"`
	PickupAt          *time.Time `json:"pickup_at,omitempty"`
	DropoffAt         *time.Time `json:"dropoff_at,omitempty"`
	DropoffETASeconds int        `json:"dropoff_eta_seconds,omitempty"`
}

// Courier describes the person carrying the job.
type Courier struct {
	Name          string             `json:"name,omitempty"`
	Phone         string             `json:"phone,omitempty"`
	PhotoURL      string             `json:"photo_url,omitempty"`
	TransportType string             `json:"transport_type,omitempty"`
	Location      *model.Coordinates `json:"location,omitempty"`
}

// Job is the provider's view of a booked delivery.
type Job struct {
	ID         string          `json:"id"`
	Status     string          `json:"status"`
	PickupAt   *time.Time      `json:"pickup_at,omitempty"`
	DropoffAt  *time.Time      `json:"dropoff_at,omitempty"`
	Deliveries []Delivery      `json:"deliveries,omitempty"`
	Courier    *Courier        `json:"courier,omitempty"`
	Raw        json.RawMessage `json:"-"`
}

// TrackingURL returns the tracking link of the first delivery.
func (j Job) TrackingURL() string {
	if len(j.Deliveries) == 0 {
		return ""
	}
	return j.Deliveries[0].TrackingURL
}

// EstimatedPickup returns the first delivery pickup time, falling back to the
// job level estimate.
func (j Job) EstimatedPickup() *time.Time {
	if len(j.Deliveries) > 0 && j.Deliveries[0].PickupAt != nil {
		return j.Deliveries[0].PickupAt
	}
	return j.PickupAt
}

// EstimatedDropoff returns the first delivery drop-off time, falling back to
// the job level estimate.
func (j Job) EstimatedDropoff() *time.Time {
	if len(j.Deliveries) > 0 && j.Deliveries[0].DropoffAt != nil {
		return j.Deliveries[0].DropoffAt
	}
	return j.DropoffAt
}

// Quote is a price estimate for a job request.
type Quote struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// Network books jobs with an external courier provider.
type Network interface {
	// Name identifies the provider on persisted records.
	Name() string
	// Quote prices a request. A nil quote with a nil error means the provider
	// returned no price.
	Quote(ctx context.Context, req JobRequest) (*Quote, error)
	CreateJob(ctx context.Context, req JobRequest) (Job, error)
}

var networkRegistry = factory.NewRegistry[Network]()

// RegisterNetwork adds a courier network factory identified by name.
func RegisterNetwork(name string, f factory.Factory[Network]) error {
	return networkRegistry.Register(name, f)
}

// NewNetwork builds the network named by cfg.Type.
func NewNetwork(cfg factory.ModuleConfig) (Network, error) {
	return networkRegistry.Create(cfg)
}
