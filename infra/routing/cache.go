package routing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kilianp07/fooddispatch/core/model"
	corerouting "github.com/kilianp07/fooddispatch/core/routing"
)

// DefaultCacheTTL bounds how long a cached route is trusted.
const DefaultCacheTTL = 24 * time.Hour

// cachePrecision rounds coordinates to roughly 11 m so that nearby lookups
// share an entry.
const cachePrecision = 1e4

// CachedService decorates a routing.Service with a SQLite cache keyed by the
// rounded origin/destination pair. Only successful lookups are stored.
type CachedService struct {
	next corerouting.Service
	db   *sql.DB
	ttl  time.Duration
	now  func() time.Time
}

// NewCachedService opens or creates the cache database at path.
func NewCachedService(next corerouting.Service, path string, ttl time.Duration) (*CachedService, error) {
	if next == nil {
		return nil, errors.New("routing cache: nil service")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	schema := `CREATE TABLE IF NOT EXISTS route_cache (
        from_lat INTEGER,
        from_lng INTEGER,
        to_lat INTEGER,
        to_lng INTEGER,
        distance_km REAL,
        duration_minutes REAL,
        fetched_at INTEGER,
        PRIMARY KEY(from_lat, from_lng, to_lat, to_lng)
    );`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, err
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedService{next: next, db: db, ttl: ttl, now: time.Now}, nil
}

func roundKey(c model.Coordinates) (int64, int64) {
	return int64(math.Round(c.Lat * cachePrecision)), int64(math.Round(c.Lng * cachePrecision))
}

// Distance answers from the cache when a fresh entry exists and otherwise
// delegates, storing the result.
func (s *CachedService) Distance(ctx context.Context, from, to model.Coordinates) (corerouting.Route, error) {
	fLat, fLng := roundKey(from)
	tLat, tLng := roundKey(to)
	var r corerouting.Route
	var fetched int64
	err := s.db.QueryRowContext(ctx, `SELECT distance_km, duration_minutes, fetched_at
        FROM route_cache WHERE from_lat = ? AND from_lng = ? AND to_lat = ? AND to_lng = ?`,
		fLat, fLng, tLat, tLng).Scan(&r.DistanceKm, &r.DurationMinutes, &fetched)
	switch {
	case err == nil:
		if s.now().Sub(time.Unix(0, fetched)) < s.ttl {
			return r, nil
		}
	case !errors.Is(err, sql.ErrNoRows):
		return corerouting.Route{}, fmt.Errorf("read route cache: %w", err)
	}

	r, err = s.next.Distance(ctx, from, to)
	if err != nil {
		return corerouting.Route{}, err
	}
	// Cache writes are best effort.
	_, _ = s.db.ExecContext(ctx, `INSERT INTO route_cache
        (from_lat, from_lng, to_lat, to_lng, distance_km, duration_minutes, fetched_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(from_lat, from_lng, to_lat, to_lng) DO UPDATE SET
            distance_km = excluded.distance_km,
            duration_minutes = excluded.duration_minutes,
            fetched_at = excluded.fetched_at`,
		fLat, fLng, tLat, tLng, r.DistanceKm, r.DurationMinutes, s.now().UnixNano())
	return r, nil
}

// Close closes the underlying database.
func (s *CachedService) Close() error {
	return s.db.Close()
}
