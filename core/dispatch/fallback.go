package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/fooddispatch/core/courier"
	"github.com/kilianp07/fooddispatch/core/logger"
	"github.com/kilianp07/fooddispatch/core/model"
)

var (
	// ErrNoPickupAddress means none of the chef's address fields is set.
	ErrNoPickupAddress = errors.New("no pickup address")
	// ErrNoDeliveryAddress means the order has no delivery address.
	ErrNoDeliveryAddress = errors.New("no delivery address")
	// ErrQuoteUnavailable is returned when a quote is required but missing.
	ErrQuoteUnavailable = errors.New("courier quote unavailable")
)

// ExternalStore is what the external dispatcher writes to.
type ExternalStore interface {
	CreateExternalAssignment(ctx context.Context, a model.ExternalAssignment) error
	SetExternalTracking(ctx context.Context, orderID, jobID, trackingURL string) error
}

// ExternalDispatcher books orders with an external courier network when the
// internal fleet has no candidate.
type ExternalDispatcher struct {
	network          courier.Network
	store            ExternalStore
	sizer            PackageSizer
	placeholderPhone string
	now              func() time.Time
	log              logger.Logger
}

// NewExternalDispatcher creates a dispatcher. An empty placeholderPhone uses
// DefaultContactPhone.
func NewExternalDispatcher(network courier.Network, store ExternalStore, sizer PackageSizer, placeholderPhone string, now func() time.Time, log logger.Logger) *ExternalDispatcher {
	if placeholderPhone == "" {
		placeholderPhone = DefaultContactPhone
	}
	if now == nil {
		now = time.Now
	}
	return &ExternalDispatcher{
		network:          network,
		store:            store,
		sizer:            sizer,
		placeholderPhone: placeholderPhone,
		now:              now,
		log:              log,
	}
}

// BuildRequest assembles the courier job request for an order.
func (x *ExternalDispatcher) BuildRequest(ctx context.Context, o model.Order, chef model.Chef) (courier.JobRequest, error) {
	pickupAddr, ok := ResolvePickupAddress(chef)
	if !ok {
		return courier.JobRequest{}, ErrNoPickupAddress
	}
	dropoffAddr := o.DeliveryAddress.String()
	if dropoffAddr == "" {
		return courier.JobRequest{}, ErrNoDeliveryAddress
	}
	size := model.PackageMedium
	if x.sizer != nil {
		size = x.sizer.Size(ctx, &o)
	}
	chefFirst, chefLast := splitName(chef.Name)
	custFirst, custLast := splitName(o.CustomerName)
	return courier.JobRequest{
		Pickup: courier.Stop{
			Address: pickupAddr,
			Contact: courier.Contact{
				FirstName: chefFirst,
				LastName:  chefLast,
				Phone:     contactPhone(chef.Phone, x.placeholderPhone),
				Company:   chef.Name,
			},
		},
		Dropoff: courier.Stop{
			Address: dropoffAddr,
			Contact: courier.Contact{
				FirstName: custFirst,
				LastName:  custLast,
				Phone:     contactPhone(o.CustomerPhone, x.placeholderPhone),
			},
		},
		PackageType:     size,
		ClientReference: o.Reference(),
	}, nil
}

// Book requests a quote, books the job and records the external assignment
// and tracking link. Once the booking request is sent it runs to completion
// even if ctx is cancelled, so a booked job is always recorded.
func (x *ExternalDispatcher) Book(ctx context.Context, o model.Order, chef model.Chef, s model.Settings) (model.ExternalAssignment, error) {
	req, err := x.BuildRequest(ctx, o, chef)
	if err != nil {
		return model.ExternalAssignment{}, err
	}

	quote, qerr := x.network.Quote(ctx, req)
	switch {
	case qerr != nil:
		x.log.Warnf("courier quote for order %s failed: %v", o.ID, qerr)
	case quote == nil:
		x.log.Debugf("courier returned no quote for order %s", o.ID)
	default:
		x.log.Infow("courier quote", map[string]any{
			"order_id": o.ID, "amount": quote.Amount, "currency": quote.Currency, "package_size": string(req.PackageType),
		})
	}
	if s.RequireQuote && (qerr != nil || quote == nil) {
		return model.ExternalAssignment{}, ErrQuoteUnavailable
	}

	bookCtx := context.WithoutCancel(ctx)
	job, err := x.network.CreateJob(bookCtx, req)
	if err != nil {
		return model.ExternalAssignment{}, fmt.Errorf("create %s job: %w", x.network.Name(), err)
	}

	ea := model.ExternalAssignment{
		ID:                  uuid.NewString(),
		OrderID:             o.ID,
		Provider:            x.network.Name(),
		ExternalJobID:       job.ID,
		ExternalStatus:      job.Status,
		TrackingURL:         job.TrackingURL(),
		EstimatedPickupAt:   job.EstimatedPickup(),
		EstimatedDeliveryAt: job.EstimatedDropoff(),
		PickupAddress:       req.Pickup.Address,
		DropoffAddress:      req.Dropoff.Address,
		Metadata: model.ExternalMetadata{
			ProviderResponse: job.Raw,
			Fallback:         true,
			PackageSize:      req.PackageType,
		},
		CreatedAt: x.now(),
	}
	if err := x.store.CreateExternalAssignment(bookCtx, ea); err != nil {
		return ea, fmt.Errorf("record external assignment for job %s: %w", job.ID, err)
	}
	if err := x.store.SetExternalTracking(bookCtx, o.ID, job.ID, ea.TrackingURL); err != nil {
		return ea, fmt.Errorf("record tracking for job %s: %w", job.ID, err)
	}
	return ea, nil
}
