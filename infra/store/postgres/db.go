// Package postgres stores orders, kitchens, the fleet and assignments in
// PostgreSQL through pgx.
package postgres

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Config holds the connection settings. DSN wins over the discrete fields.
type Config struct {
	DSN         string `json:"dsn"`
	Host        string `json:"host"`
	Port        int    `json:"port"`
	User        string `json:"user"`
	Password    string `json:"password"`
	Database    string `json:"database"`
	SSLMode     string `json:"sslmode"`
	MaxConns    int32  `json:"max_conns"`
	ConnRetries int    `json:"conn_retries"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 5432
	}
	if c.SSLMode == "" {
		c.SSLMode = "disable"
	}
	if c.ConnRetries <= 0 {
		c.ConnRetries = 5
	}
}

// Validate checks that a database can be addressed.
func (c Config) Validate() error {
	if c.DSN == "" && (c.User == "" || c.Database == "") {
		return fmt.Errorf("postgres: dsn or user and database are required")
	}
	return nil
}

// ConnString returns the DSN used to open the pool.
func (c Config) ConnString() string {
	if c.DSN != "" {
		return c.DSN
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     c.Database,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	return u.String()
}

const retryDelay = 2 * time.Second

// Connect opens a pool and pings it, retrying while the database comes up.
func Connect(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	cfg.SetDefaults()
	pcfg, err := pgxpool.ParseConfig(cfg.ConnString())
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}
	for i := 1; ; i++ {
		pool, err := pgxpool.NewWithConfig(ctx, pcfg)
		if err == nil {
			pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = pool.Ping(pctx)
			cancel()
			if err == nil {
				return pool, nil
			}
			pool.Close()
		}
		if i >= cfg.ConnRetries {
			return nil, fmt.Errorf("database unreachable after %d attempts: %w", i, err)
		}
		select {
		case <-time.After(retryDelay):
		case <-ctx.Done():
			return nil, fmt.Errorf("postgres connect canceled: %w", ctx.Err())
		}
	}
}
