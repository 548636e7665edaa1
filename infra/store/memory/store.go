// Package memory holds dispatch collaborators in process memory. It backs the
// CLI dry runs and the dispatch tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/kilianp07/fooddispatch/core/model"
)

// Store is a concurrency-safe in-memory implementation of the dispatch store.
type Store struct {
	mu          sync.RWMutex
	orders      map[string]model.Order
	chefs       map[string]model.Chef
	meals       map[string]model.Meal
	drivers     map[string]model.Driver
	assignments []model.Assignment
	external    []model.ExternalAssignment
}

// New returns an empty store.
func New() *Store {
	return &Store{
		orders:  map[string]model.Order{},
		chefs:   map[string]model.Chef{},
		meals:   map[string]model.Meal{},
		drivers: map[string]model.Driver{},
	}
}

func (s *Store) PutOrder(o model.Order) {
	s.mu.Lock()
	s.orders[o.ID] = o
	s.mu.Unlock()
}

func (s *Store) PutChef(c model.Chef) {
	s.mu.Lock()
	s.chefs[c.ID] = c
	s.mu.Unlock()
}

func (s *Store) PutMeal(m model.Meal) {
	s.mu.Lock()
	s.meals[m.ID] = m
	s.mu.Unlock()
}

func (s *Store) PutDriver(d model.Driver) {
	s.mu.Lock()
	s.drivers[d.ID] = d
	s.mu.Unlock()
}

// PutAssignment stores a without the conflict checks of CreateAssignment.
func (s *Store) PutAssignment(a model.Assignment) {
	s.mu.Lock()
	s.assignments = append(s.assignments, a)
	s.mu.Unlock()
}

func (s *Store) GetOrder(_ context.Context, id string) (model.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok {
		return model.Order{}, fmt.Errorf("order %s: %w", id, model.ErrNotFound)
	}
	return o, nil
}

func (s *Store) GetChef(_ context.Context, id string) (model.Chef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.chefs[id]
	if !ok {
		return model.Chef{}, fmt.Errorf("chef %s: %w", id, model.ErrNotFound)
	}
	return c, nil
}

func (s *Store) GetMeal(_ context.Context, id string) (model.Meal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.meals[id]
	if !ok {
		return model.Meal{}, fmt.Errorf("meal %s: %w", id, model.ErrNotFound)
	}
	return m, nil
}

func (s *Store) GetDriver(_ context.Context, id string) (model.Driver, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.drivers[id]
	if !ok {
		return model.Driver{}, fmt.Errorf("driver %s: %w", id, model.ErrNotFound)
	}
	return d, nil
}

// ListDrivers returns every driver ordered by ID.
func (s *Store) ListDrivers(_ context.Context) ([]model.Driver, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Driver, 0, len(s.drivers))
	for _, d := range s.drivers {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ActiveAssignmentForDriver returns the most recent active assignment of the driver.
func (s *Store) ActiveAssignmentForDriver(_ context.Context, driverID string) (model.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.assignments) - 1; i >= 0; i-- {
		a := s.assignments[i]
		if a.DriverID == driverID && a.Status.Active() {
			return a, nil
		}
	}
	return model.Assignment{}, fmt.Errorf("active assignment for driver %s: %w", driverID, model.ErrNotFound)
}

// CreateAssignment stores a and marks its driver on_delivery. It fails with
// model.ErrAlreadyAssigned when the order already has an active internal or
// an external assignment.
func (s *Store) CreateAssignment(_ context.Context, a model.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hasAssignmentLocked(a.OrderID) {
		return fmt.Errorf("order %s: %w", a.OrderID, model.ErrAlreadyAssigned)
	}
	s.assignments = append(s.assignments, a)
	if d, ok := s.drivers[a.DriverID]; ok {
		d.Availability = model.AvailabilityOnDelivery
		s.drivers[a.DriverID] = d
	}
	return nil
}

func (s *Store) CreateExternalAssignment(_ context.Context, a model.ExternalAssignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hasAssignmentLocked(a.OrderID) {
		return fmt.Errorf("order %s: %w", a.OrderID, model.ErrAlreadyAssigned)
	}
	s.external = append(s.external, a)
	return nil
}

func (s *Store) OrderBooked(_ context.Context, orderID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hasAssignmentLocked(orderID), nil
}

// SetExternalTracking writes the courier job onto the order.
func (s *Store) SetExternalTracking(_ context.Context, orderID, jobID, trackingURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return fmt.Errorf("order %s: %w", orderID, model.ErrNotFound)
	}
	o.ExternalJobID = jobID
	o.TrackingURL = trackingURL
	s.orders[orderID] = o
	return nil
}

// ListUndispatched returns orders created at or after since that are still
// open and have neither an assignment nor an external job.
func (s *Store) ListUndispatched(_ context.Context, since time.Time) ([]model.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Order
	for _, o := range s.orders {
		if o.CreatedAt.Before(since) || !o.Status.Open() || o.ExternalJobID != "" {
			continue
		}
		if s.hasAssignmentLocked(o.ID) {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Assignments returns a copy of the stored internal assignments.
func (s *Store) Assignments() []model.Assignment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Assignment(nil), s.assignments...)
}

// ExternalAssignments returns a copy of the stored external assignments.
func (s *Store) ExternalAssignments() []model.ExternalAssignment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.ExternalAssignment(nil), s.external...)
}

func (s *Store) hasAssignmentLocked(orderID string) bool {
	for _, a := range s.assignments {
		if a.OrderID == orderID && a.Status.Active() {
			return true
		}
	}
	for _, e := range s.external {
		if e.OrderID == orderID {
			return true
		}
	}
	return false
}
