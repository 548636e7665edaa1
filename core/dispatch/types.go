package dispatch

import (
	"context"

	"github.com/kilianp07/fooddispatch/core/model"
)

// OrderStore reads orders and records external tracking details on them.
type OrderStore interface {
	GetOrder(ctx context.Context, id string) (model.Order, error)
	SetExternalTracking(ctx context.Context, orderID, jobID, trackingURL string) error
}

// ChefStore reads pickup entities.
type ChefStore interface {
	GetChef(ctx context.Context, id string) (model.Chef, error)
}

// MealStore reads menu items.
type MealStore interface {
	GetMeal(ctx context.Context, id string) (model.Meal, error)
}

// DriverStore lists the internal fleet.
type DriverStore interface {
	ListDrivers(ctx context.Context) ([]model.Driver, error)
}

// AssignmentLookup finds the assignment a driver is currently working on.
// It returns model.ErrNotFound when the driver has none.
type AssignmentLookup interface {
	ActiveAssignmentForDriver(ctx context.Context, driverID string) (model.Assignment, error)
}

// AssignmentStore persists internal and external assignments.
type AssignmentStore interface {
	AssignmentLookup
	// CreateAssignment stores the assignment and marks the driver on_delivery
	// in one write. It returns model.ErrAlreadyAssigned when the order already
	// has an active assignment.
	CreateAssignment(ctx context.Context, a model.Assignment) error
	CreateExternalAssignment(ctx context.Context, a model.ExternalAssignment) error
	// OrderBooked reports whether the order has an active internal assignment
	// or any external booking.
	OrderBooked(ctx context.Context, orderID string) (bool, error)
}

// Store groups every collaborator the manager reads from or writes to.
type Store interface {
	OrderStore
	ChefStore
	MealStore
	DriverStore
	AssignmentStore
}

// SettingsProvider returns the dispatch settings in force right now.
type SettingsProvider interface {
	Settings(ctx context.Context) (model.Settings, error)
}

// StaticSettings serves a fixed settings value.
type StaticSettings model.Settings

func (s StaticSettings) Settings(context.Context) (model.Settings, error) {
	return model.Settings(s), nil
}

// Notifier tells a driver about a new assignment.
type Notifier interface {
	NotifyAssignment(ctx context.Context, a model.Assignment) error
}
