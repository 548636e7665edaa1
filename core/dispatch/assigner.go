package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/fooddispatch/core/logger"
	"github.com/kilianp07/fooddispatch/core/model"
)

// DefaultSystemUserID identifies automatic assignments when none is configured.
const DefaultSystemUserID = "system:auto-dispatch"

// InternalAssigner commits an order to a fleet driver.
type InternalAssigner struct {
	store        AssignmentStore
	notifier     Notifier
	systemUserID string
	now          func() time.Time
	log          logger.Logger
}

// NewInternalAssigner creates an assigner. notifier may be nil.
func NewInternalAssigner(store AssignmentStore, notifier Notifier, systemUserID string, now func() time.Time, log logger.Logger) *InternalAssigner {
	if systemUserID == "" {
		systemUserID = DefaultSystemUserID
	}
	if now == nil {
		now = time.Now
	}
	return &InternalAssigner{store: store, notifier: notifier, systemUserID: systemUserID, now: now, log: log}
}

// Assign creates the assignment for the top candidate. The store flips the
// driver to on_delivery as part of the same write. Notification happens after
// the commit and never undoes it.
func (a *InternalAssigner) Assign(ctx context.Context, o model.Order, chef model.Chef, c Candidate) (model.Assignment, error) {
	pickup := model.Location{}
	if chef.Location != nil {
		pickup.Coordinates = *chef.Location
	}
	pickup.Address, _ = ResolvePickupAddress(chef)

	delivery := model.Location{Address: o.DeliveryAddress.String()}
	if o.DeliveryAddress.Coordinates != nil {
		delivery.Coordinates = *o.DeliveryAddress.Coordinates
	}

	asn := model.Assignment{
		ID:         uuid.NewString(),
		OrderID:    o.ID,
		DriverID:   c.Driver.ID,
		AssignedBy: a.systemUserID,
		AssignedAt: a.now(),
		Status:     model.AssignmentAssigned,
		Pickup:     pickup,
		Delivery:   delivery,
		Metadata: model.AssignmentMetadata{
			AutoDispatched: true,
			DistanceKm:     c.DistanceKm,
			DistanceSource: c.Source,
			IsBatched:      c.IsBatched,
		},
	}
	if err := a.store.CreateAssignment(ctx, asn); err != nil {
		return model.Assignment{}, fmt.Errorf("create assignment: %w", err)
	}
	if a.notifier != nil {
		if err := a.notifier.NotifyAssignment(ctx, asn); err != nil {
			notifyFailure.Inc()
			a.log.Warnf("notify driver %s for order %s: %v", asn.DriverID, asn.OrderID, err)
		} else {
			notifySuccess.Inc()
		}
	}
	return asn, nil
}
