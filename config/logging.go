package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Dispatch log backends.
const (
	LogBackendJSONL         = "jsonl"
	LogBackendJSONLRotating = "jsonl_rotating"
	LogBackendSQLite        = "sqlite"
)

// LoggingConfig selects where dispatch attempt records are kept.
type LoggingConfig struct {
	Backend string `json:"backend"`
	Path    string `json:"path"`
	// Rotation settings, used by jsonl_rotating only.
	MaxSizeMB  int `json:"max_size_mb"`
	MaxBackups int `json:"max_backups"`
	MaxAgeDays int `json:"max_age_days"`
}

// SetDefaults picks the jsonl backend and a path matching the backend.
func (c *LoggingConfig) SetDefaults() {
	if c.Backend == "" {
		c.Backend = LogBackendJSONL
	}
	if c.Path == "" {
		if c.Backend == LogBackendSQLite {
			c.Path = "dispatch.db"
		} else {
			c.Path = "dispatch.jsonl"
		}
	}
	if c.Backend == LogBackendJSONLRotating && c.MaxSizeMB <= 0 {
		c.MaxSizeMB = 100
	}
}

// Validate rejects unknown backends and unusable paths.
func (c LoggingConfig) Validate() error {
	switch c.Backend {
	case LogBackendJSONL, LogBackendJSONLRotating, LogBackendSQLite:
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	if strings.TrimSpace(c.Path) == "" {
		return fmt.Errorf("path is required")
	}
	if c.Backend != LogBackendSQLite && strings.HasSuffix(filepath.Base(c.Path), ".db") {
		return fmt.Errorf("%s backend cannot write to database file %s", c.Backend, c.Path)
	}
	if c.MaxBackups < 0 || c.MaxAgeDays < 0 {
		return fmt.Errorf("rotation limits must not be negative")
	}
	return nil
}
