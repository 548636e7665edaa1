package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/kilianp07/fooddispatch/core/model"
)

const settingsRow = "default"

// SetDefaultSettings sets the value served while no settings row exists.
func (s *Store) SetDefaultSettings(d model.Settings) {
	s.defaults = d
}

// Settings reads the settings row, falling back to the defaults when the row
// has never been written. Every call hits the database so that admin changes
// apply to the next attempt.
func (s *Store) Settings(ctx context.Context) (model.Settings, error) {
	var st model.Settings
	err := s.pool.QueryRow(ctx, `SELECT settings FROM dispatch_settings WHERE id = $1`, settingsRow).Scan(&st)
	if errors.Is(err, pgx.ErrNoRows) {
		return s.defaults, nil
	}
	if err != nil {
		return model.Settings{}, fmt.Errorf("read dispatch settings: %w", err)
	}
	return st, nil
}

// PutSettings replaces the settings row.
func (s *Store) PutSettings(ctx context.Context, st model.Settings) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO dispatch_settings (id, settings, updated_at)
        VALUES ($1, $2, now())
        ON CONFLICT (id) DO UPDATE SET settings = excluded.settings, updated_at = now()`,
		settingsRow, st)
	return err
}
