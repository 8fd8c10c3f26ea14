// internal/common/database/postgres.go
// PostgreSQL connection and configuration

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
)

// PostgresConfig holds connection pool settings
type PostgresConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

// DefaultPostgresConfig returns pool defaults for the given URL
func DefaultPostgresConfig(databaseURL string) *PostgresConfig {
	return &PostgresConfig{
		URL:          databaseURL,
		MaxOpenConns: 25,
		MaxIdleConns: 5,
		MaxLifetime:  5 * time.Minute,
	}
}

// NewPostgresDB opens and pings a PostgreSQL connection pool
func NewPostgresDB(ctx context.Context, config *PostgresConfig) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", config.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.MaxLifetime)

	// Test connection
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// NewPostgresDBFromURL creates a connection from a URL with default pool settings
func NewPostgresDBFromURL(ctx context.Context, databaseURL string) (*sqlx.DB, error) {
	return NewPostgresDB(ctx, DefaultPostgresConfig(databaseURL))
}
