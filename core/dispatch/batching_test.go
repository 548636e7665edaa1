package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/kilianp07/fooddispatch/core/model"
	"github.com/kilianp07/fooddispatch/infra/store/memory"
)

type failingLookup struct{}

func (failingLookup) ActiveAssignmentForDriver(context.Context, string) (model.Assignment, error) {
	return model.Assignment{}, errors.New("db down")
}

func TestBatchingEvaluator_Eligible(t *testing.T) {
	elsewhere := model.Coordinates{Lat: pickup.Lat, Lng: pickup.Lng + 0.0000001}
	cases := []struct {
		name   string
		status model.AssignmentStatus
		at     model.Coordinates
		want   bool
	}{
		{"assigned same pickup", model.AssignmentAssigned, pickup, true},
		{"accepted same pickup", model.AssignmentAccepted, pickup, true},
		{"picked up same pickup", model.AssignmentPickedUp, pickup, true},
		{"in transit", model.AssignmentInTransit, pickup, false},
		{"nearby pickup", model.AssignmentAssigned, elsewhere, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := memory.New()
			store.PutAssignment(model.Assignment{DriverID: "d1", Status: tc.status, Pickup: model.Location{Coordinates: tc.at}})
			d := model.Driver{ID: "d1", Availability: model.AvailabilityOnDelivery}
			got, err := NewBatchingEvaluator(store).Eligible(context.Background(), d, pickup)
			if err != nil {
				t.Fatalf("eligible: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %v got %v", tc.want, got)
			}
		})
	}
}

func TestBatchingEvaluator_RequiresOnDelivery(t *testing.T) {
	store := memory.New()
	store.PutAssignment(model.Assignment{DriverID: "d1", Status: model.AssignmentAssigned, Pickup: model.Location{Coordinates: pickup}})
	d := model.Driver{ID: "d1", Availability: model.AvailabilityAvailable}
	if ok, _ := NewBatchingEvaluator(store).Eligible(context.Background(), d, pickup); ok {
		t.Fatalf("available driver must not be batched")
	}
}

func TestBatchingEvaluator_NoAssignment(t *testing.T) {
	d := model.Driver{ID: "d1", Availability: model.AvailabilityOnDelivery}
	ok, err := NewBatchingEvaluator(memory.New()).Eligible(context.Background(), d, pickup)
	if err != nil || ok {
		t.Fatalf("expected not eligible without error, got %v %v", ok, err)
	}
}

func TestBatchingEvaluator_LookupError(t *testing.T) {
	d := model.Driver{ID: "d1", Availability: model.AvailabilityOnDelivery}
	ok, err := NewBatchingEvaluator(failingLookup{}).Eligible(context.Background(), d, pickup)
	if err == nil || ok {
		t.Fatalf("expected error, got %v %v", ok, err)
	}
}
