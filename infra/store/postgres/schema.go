package postgres

import "context"

const schema = `
CREATE TABLE IF NOT EXISTS chefs (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL DEFAULT '',
    phone TEXT NOT NULL DEFAULT '',
    lat DOUBLE PRECISION,
    lng DOUBLE PRECISION,
    kitchen_address TEXT NOT NULL DEFAULT '',
    base_city TEXT NOT NULL DEFAULT '',
    onboarding JSONB NOT NULL DEFAULT '{}'
);
CREATE TABLE IF NOT EXISTS meals (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL DEFAULT '',
    prep_time_minutes INTEGER NOT NULL DEFAULT 0,
    serving_count INTEGER NOT NULL DEFAULT 0,
    portion_size TEXT NOT NULL DEFAULT '',
    package_weight_grams INTEGER NOT NULL DEFAULT 0,
    requires_special_packaging BOOLEAN NOT NULL DEFAULT FALSE
);
CREATE TABLE IF NOT EXISTS orders (
    id TEXT PRIMARY KEY,
    public_id TEXT NOT NULL DEFAULT '',
    chef_id TEXT NOT NULL,
    customer_id TEXT NOT NULL DEFAULT '',
    customer_name TEXT NOT NULL DEFAULT '',
    customer_phone TEXT NOT NULL DEFAULT '',
    delivery_address JSONB NOT NULL DEFAULT '""',
    items JSONB NOT NULL DEFAULT '[]',
    status TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    tracking_url TEXT NOT NULL DEFAULT '',
    external_job_id TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS orders_created_at_idx ON orders (created_at);
CREATE TABLE IF NOT EXISTS drivers (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL DEFAULT '',
    phone TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL,
    availability TEXT NOT NULL,
    lat DOUBLE PRECISION,
    lng DOUBLE PRECISION
);
CREATE TABLE IF NOT EXISTS assignments (
    id TEXT PRIMARY KEY,
    order_id TEXT NOT NULL,
    driver_id TEXT NOT NULL,
    assigned_by TEXT NOT NULL DEFAULT '',
    assigned_at TIMESTAMPTZ NOT NULL,
    status TEXT NOT NULL,
    pickup JSONB NOT NULL,
    delivery JSONB NOT NULL,
    metadata JSONB NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS assignments_active_order_idx ON assignments (order_id)
    WHERE status IN ('assigned', 'accepted', 'picked_up', 'in_transit');
CREATE INDEX IF NOT EXISTS assignments_driver_idx ON assignments (driver_id, assigned_at DESC);
CREATE TABLE IF NOT EXISTS external_assignments (
    id TEXT PRIMARY KEY,
    order_id TEXT NOT NULL UNIQUE,
    provider TEXT NOT NULL,
    external_job_id TEXT NOT NULL,
    external_status TEXT NOT NULL DEFAULT '',
    tracking_url TEXT NOT NULL DEFAULT '',
    estimated_pickup_at TIMESTAMPTZ,
    estimated_delivery_at TIMESTAMPTZ,
    pickup_address TEXT NOT NULL DEFAULT '',
    dropoff_address TEXT NOT NULL DEFAULT '',
    metadata JSONB NOT NULL,
    created_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS dispatch_settings (
    id TEXT PRIMARY KEY,
    settings JSONB NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Migrate creates the tables when they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schema)
	return err
}
