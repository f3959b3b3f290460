package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/storegraph/storegraph/internal/config"
)

// Connection wraps a pgx connection pool to the catalog database.
// The catalog is read-only from this service's point of view.
type Connection struct {
	pool *pgxpool.Pool
}

// Connect opens a connection pool using the given database configuration
// and verifies it with a ping.
func Connect(ctx context.Context, cfg *config.DatabaseConfig) (*Connection, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.ConnString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConnections
	poolCfg.MinConns = cfg.MinConnections
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Database).
		Int32("max_conns", cfg.MaxConnections).
		Msg("Connected to catalog database")

	return &Connection{pool: pool}, nil
}

// Pool returns the underlying pgx pool
func (c *Connection) Pool() *pgxpool.Pool {
	return c.pool
}

// Query executes a query that returns rows
func (c *Connection) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return c.pool.Query(ctx, sql, args...)
}

// QueryRow executes a query that returns at most one row
func (c *Connection) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return c.pool.QueryRow(ctx, sql, args...)
}

// Ping checks connectivity to the database
func (c *Connection) Ping(ctx context.Context) error {
	return c.pool.Ping(ctx)
}

// Close closes the connection pool
func (c *Connection) Close() {
	if c.pool != nil {
		c.pool.Close()
	}
}
