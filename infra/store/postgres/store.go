package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kilianp07/fooddispatch/core/model"
)

const uniqueViolation = "23505"

// Store implements the dispatch collaborator interfaces on PostgreSQL.
type Store struct {
	pool     *pgxpool.Pool
	defaults model.Settings
}

// New wraps an open pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the pool.
func (s *Store) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

func notFound(err error, kind, id string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", kind, id, model.ErrNotFound)
	}
	return fmt.Errorf("get %s %s: %w", kind, id, err)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func coordinates(lat, lng *float64) *model.Coordinates {
	if lat == nil || lng == nil {
		return nil
	}
	return &model.Coordinates{Lat: *lat, Lng: *lng}
}

func latLng(c *model.Coordinates) (*float64, *float64) {
	if c == nil {
		return nil, nil
	}
	lat, lng := c.Lat, c.Lng
	return &lat, &lng
}

const orderColumns = `id, public_id, chef_id, customer_id, customer_name, customer_phone,
    delivery_address, items, status, created_at, tracking_url, external_job_id`

func scanOrder(row pgx.Row) (model.Order, error) {
	var o model.Order
	err := row.Scan(&o.ID, &o.PublicID, &o.ChefID, &o.CustomerID, &o.CustomerName, &o.CustomerPhone,
		&o.DeliveryAddress, &o.Items, &o.Status, &o.CreatedAt, &o.TrackingURL, &o.ExternalJobID)
	return o, err
}

// GetOrder returns the order or a wrapped model.ErrNotFound.
func (s *Store) GetOrder(ctx context.Context, id string) (model.Order, error) {
	o, err := scanOrder(s.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		return model.Order{}, notFound(err, "order", id)
	}
	return o, nil
}

// UpsertOrder inserts or replaces an order.
func (s *Store) UpsertOrder(ctx context.Context, o model.Order) error {
	if o.Items == nil {
		o.Items = []model.LineItem{}
	}
	_, err := s.pool.Exec(ctx, `INSERT INTO orders (`+orderColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
        ON CONFLICT (id) DO UPDATE SET
            public_id = excluded.public_id, chef_id = excluded.chef_id,
            customer_id = excluded.customer_id, customer_name = excluded.customer_name,
            customer_phone = excluded.customer_phone, delivery_address = excluded.delivery_address,
            items = excluded.items, status = excluded.status, created_at = excluded.created_at,
            tracking_url = excluded.tracking_url, external_job_id = excluded.external_job_id`,
		o.ID, o.PublicID, o.ChefID, o.CustomerID, o.CustomerName, o.CustomerPhone,
		o.DeliveryAddress, o.Items, o.Status, o.CreatedAt, o.TrackingURL, o.ExternalJobID)
	return err
}

// SetExternalTracking writes the booked job back onto the order.
func (s *Store) SetExternalTracking(ctx context.Context, orderID, jobID, trackingURL string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE orders SET external_job_id = $2, tracking_url = $3 WHERE id = $1`,
		orderID, jobID, trackingURL)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order %s: %w", orderID, model.ErrNotFound)
	}
	return nil
}

// ListUndispatched returns open orders created since the given time that have
// neither an active internal assignment nor an external booking, oldest first.
func (s *Store) ListUndispatched(ctx context.Context, since time.Time) ([]model.Order, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+orderColumns+` FROM orders o
        WHERE o.created_at >= $1
            AND o.status NOT IN ('on_the_way', 'delivered', 'cancelled')
            AND o.external_job_id = ''
            AND NOT EXISTS (SELECT 1 FROM assignments a WHERE a.order_id = o.id
                AND a.status IN ('assigned', 'accepted', 'picked_up', 'in_transit'))
            AND NOT EXISTS (SELECT 1 FROM external_assignments e WHERE e.order_id = o.id)
        ORDER BY o.created_at`, since)
	if err != nil {
		return nil, fmt.Errorf("list undispatched: %w", err)
	}
	defer rows.Close()
	var out []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// GetChef returns the kitchen or a wrapped model.ErrNotFound.
func (s *Store) GetChef(ctx context.Context, id string) (model.Chef, error) {
	var c model.Chef
	var lat, lng *float64
	err := s.pool.QueryRow(ctx, `SELECT id, name, phone, lat, lng, kitchen_address, base_city, onboarding
        FROM chefs WHERE id = $1`, id).
		Scan(&c.ID, &c.Name, &c.Phone, &lat, &lng, &c.KitchenAddress, &c.BaseCity, &c.Onboarding)
	if err != nil {
		return model.Chef{}, notFound(err, "chef", id)
	}
	c.Location = coordinates(lat, lng)
	return c, nil
}

// UpsertChef inserts or replaces a kitchen.
func (s *Store) UpsertChef(ctx context.Context, c model.Chef) error {
	lat, lng := latLng(c.Location)
	_, err := s.pool.Exec(ctx, `INSERT INTO chefs (id, name, phone, lat, lng, kitchen_address, base_city, onboarding)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        ON CONFLICT (id) DO UPDATE SET
            name = excluded.name, phone = excluded.phone, lat = excluded.lat, lng = excluded.lng,
            kitchen_address = excluded.kitchen_address, base_city = excluded.base_city,
            onboarding = excluded.onboarding`,
		c.ID, c.Name, c.Phone, lat, lng, c.KitchenAddress, c.BaseCity, c.Onboarding)
	return err
}

// GetMeal returns the menu item or a wrapped model.ErrNotFound.
func (s *Store) GetMeal(ctx context.Context, id string) (model.Meal, error) {
	var m model.Meal
	err := s.pool.QueryRow(ctx, `SELECT id, name, prep_time_minutes, serving_count, portion_size,
            package_weight_grams, requires_special_packaging
        FROM meals WHERE id = $1`, id).
		Scan(&m.ID, &m.Name, &m.PrepTimeMinutes, &m.ServingCount, &m.PortionSize,
			&m.PackageWeightGrams, &m.RequiresSpecialPackaging)
	if err != nil {
		return model.Meal{}, notFound(err, "meal", id)
	}
	return m, nil
}

// UpsertMeal inserts or replaces a menu item.
func (s *Store) UpsertMeal(ctx context.Context, m model.Meal) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO meals (id, name, prep_time_minutes, serving_count,
            portion_size, package_weight_grams, requires_special_packaging)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        ON CONFLICT (id) DO UPDATE SET
            name = excluded.name, prep_time_minutes = excluded.prep_time_minutes,
            serving_count = excluded.serving_count, portion_size = excluded.portion_size,
            package_weight_grams = excluded.package_weight_grams,
            requires_special_packaging = excluded.requires_special_packaging`,
		m.ID, m.Name, m.PrepTimeMinutes, m.ServingCount, m.PortionSize, m.PackageWeightGrams, m.RequiresSpecialPackaging)
	return err
}

const driverColumns = `id, name, phone, status, availability, lat, lng`

func scanDriver(row pgx.Row) (model.Driver, error) {
	var d model.Driver
	var lat, lng *float64
	if err := row.Scan(&d.ID, &d.Name, &d.Phone, &d.Status, &d.Availability, &lat, &lng); err != nil {
		return model.Driver{}, err
	}
	d.Location = coordinates(lat, lng)
	return d, nil
}

// GetDriver returns the driver or a wrapped model.ErrNotFound.
func (s *Store) GetDriver(ctx context.Context, id string) (model.Driver, error) {
	d, err := scanDriver(s.pool.QueryRow(ctx, `SELECT `+driverColumns+` FROM drivers WHERE id = $1`, id))
	if err != nil {
		return model.Driver{}, notFound(err, "driver", id)
	}
	return d, nil
}

// ListDrivers returns the whole fleet ordered by id.
func (s *Store) ListDrivers(ctx context.Context) ([]model.Driver, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+driverColumns+` FROM drivers ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list drivers: %w", err)
	}
	defer rows.Close()
	var out []model.Driver
	for rows.Next() {
		d, err := scanDriver(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// UpsertDriver inserts or replaces a driver.
func (s *Store) UpsertDriver(ctx context.Context, d model.Driver) error {
	lat, lng := latLng(d.Location)
	_, err := s.pool.Exec(ctx, `INSERT INTO drivers (`+driverColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        ON CONFLICT (id) DO UPDATE SET
            name = excluded.name, phone = excluded.phone, status = excluded.status,
            availability = excluded.availability, lat = excluded.lat, lng = excluded.lng`,
		d.ID, d.Name, d.Phone, d.Status, d.Availability, lat, lng)
	return err
}
