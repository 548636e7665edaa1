package dispatch

import (
	"context"
	"errors"

	"github.com/kilianp07/fooddispatch/core/model"
)

// BatchingEvaluator decides whether a driver already out on a delivery can take
// another order from the same pickup.
type BatchingEvaluator struct {
	assignments AssignmentLookup
}

// NewBatchingEvaluator creates an evaluator backed by the assignment lookup.
func NewBatchingEvaluator(assignments AssignmentLookup) *BatchingEvaluator {
	return &BatchingEvaluator{assignments: assignments}
}

// Eligible reports whether d is on_delivery with an active assignment that has
// not left for drop-off and whose pickup is exactly pickup.
func (b *BatchingEvaluator) Eligible(ctx context.Context, d model.Driver, pickup model.Coordinates) (bool, error) {
	if d.Availability != model.AvailabilityOnDelivery || b.assignments == nil {
		return false, nil
	}
	a, err := b.assignments.ActiveAssignmentForDriver(ctx, d.ID)
	if errors.Is(err, model.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !a.Status.PreDeparture() {
		return false, nil
	}
	return a.Pickup.Coordinates.Equal(pickup), nil
}
