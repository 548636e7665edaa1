package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/kilianp07/fooddispatch/core/model"
)

const activeStatuses = `('assigned', 'accepted', 'picked_up', 'in_transit')`

// ActiveAssignmentForDriver returns the latest assignment still occupying the
// driver, or a wrapped model.ErrNotFound.
func (s *Store) ActiveAssignmentForDriver(ctx context.Context, driverID string) (model.Assignment, error) {
	var a model.Assignment
	err := s.pool.QueryRow(ctx, `SELECT id, order_id, driver_id, assigned_by, assigned_at, status,
            pickup, delivery, metadata
        FROM assignments WHERE driver_id = $1 AND status IN `+activeStatuses+`
        ORDER BY assigned_at DESC LIMIT 1`, driverID).
		Scan(&a.ID, &a.OrderID, &a.DriverID, &a.AssignedBy, &a.AssignedAt, &a.Status,
			&a.Pickup, &a.Delivery, &a.Metadata)
	if err != nil {
		return model.Assignment{}, notFound(err, "active assignment for driver", driverID)
	}
	return a, nil
}

const bookedQuery = `SELECT
            EXISTS (SELECT 1 FROM assignments WHERE order_id = $1 AND status IN ` + activeStatuses + `)
            OR EXISTS (SELECT 1 FROM external_assignments WHERE order_id = $1)`

// OrderBooked reports whether the order has an active assignment or an
// external booking.
func (s *Store) OrderBooked(ctx context.Context, orderID string) (bool, error) {
	var booked bool
	err := s.pool.QueryRow(ctx, bookedQuery, orderID).Scan(&booked)
	if err != nil {
		return false, fmt.Errorf("check order %s: %w", orderID, err)
	}
	return booked, nil
}

func orderBooked(ctx context.Context, tx pgx.Tx, orderID string) (bool, error) {
	var booked bool
	err := tx.QueryRow(ctx, bookedQuery, orderID).Scan(&booked)
	return booked, err
}

// CreateAssignment stores the assignment and marks the driver on_delivery in
// one transaction. The partial unique index on active assignments backs the
// model.ErrAlreadyAssigned check against concurrent writers.
func (s *Store) CreateAssignment(ctx context.Context, a model.Assignment) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	booked, err := orderBooked(ctx, tx, a.OrderID)
	if err != nil {
		return fmt.Errorf("check order %s: %w", a.OrderID, err)
	}
	if booked {
		return fmt.Errorf("order %s: %w", a.OrderID, model.ErrAlreadyAssigned)
	}
	_, err = tx.Exec(ctx, `INSERT INTO assignments (id, order_id, driver_id, assigned_by, assigned_at,
            status, pickup, delivery, metadata)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		a.ID, a.OrderID, a.DriverID, a.AssignedBy, a.AssignedAt, a.Status, a.Pickup, a.Delivery, a.Metadata)
	if isUniqueViolation(err) {
		return fmt.Errorf("order %s: %w", a.OrderID, model.ErrAlreadyAssigned)
	}
	if err != nil {
		return fmt.Errorf("insert assignment: %w", err)
	}
	if _, err := tx.Exec(ctx, `UPDATE drivers SET availability = $2 WHERE id = $1`,
		a.DriverID, model.AvailabilityOnDelivery); err != nil {
		return fmt.Errorf("update driver %s: %w", a.DriverID, err)
	}
	return tx.Commit(ctx)
}

// CreateExternalAssignment stores an external booking. One booking per order.
func (s *Store) CreateExternalAssignment(ctx context.Context, e model.ExternalAssignment) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	booked, err := orderBooked(ctx, tx, e.OrderID)
	if err != nil {
		return fmt.Errorf("check order %s: %w", e.OrderID, err)
	}
	if booked {
		return fmt.Errorf("order %s: %w", e.OrderID, model.ErrAlreadyAssigned)
	}
	_, err = tx.Exec(ctx, `INSERT INTO external_assignments (id, order_id, provider, external_job_id,
            external_status, tracking_url, estimated_pickup_at, estimated_delivery_at,
            pickup_address, dropoff_address, metadata, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		e.ID, e.OrderID, e.Provider, e.ExternalJobID, e.ExternalStatus, e.TrackingURL,
		e.EstimatedPickupAt, e.EstimatedDeliveryAt, e.PickupAddress, e.DropoffAddress, e.Metadata, e.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("order %s: %w", e.OrderID, model.ErrAlreadyAssigned)
	}
	if err != nil {
		return fmt.Errorf("insert external assignment: %w", err)
	}
	return tx.Commit(ctx)
}

// ExternalAssignment returns the booking recorded for an order.
func (s *Store) ExternalAssignment(ctx context.Context, orderID string) (model.ExternalAssignment, error) {
	var e model.ExternalAssignment
	err := s.pool.QueryRow(ctx, `SELECT id, order_id, provider, external_job_id, external_status,
            tracking_url, estimated_pickup_at, estimated_delivery_at, pickup_address, dropoff_address,
            metadata, created_at
        FROM external_assignments WHERE order_id = $1`, orderID).
		Scan(&e.ID, &e.OrderID, &e.Provider, &e.ExternalJobID, &e.ExternalStatus, &e.TrackingURL,
			&e.EstimatedPickupAt, &e.EstimatedDeliveryAt, &e.PickupAddress, &e.DropoffAddress,
			&e.Metadata, &e.CreatedAt)
	if err != nil {
		return model.ExternalAssignment{}, notFound(err, "external assignment for order", orderID)
	}
	return e, nil
}
