package db

import (
	"context"
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/sola-scriptura-text-search/pkg/schema/config"
)

var (
	pgDB   *sqlx.DB
	pgOnce sync.Once
	pgMu   sync.RWMutex
)

// postgresEnabled tracks whether Postgres was initialized
var postgresEnabled bool

// InitPostgres initializes the PostgreSQL database connection.
func InitPostgres(ctx context.Context) error {
	var initErr error
	pgOnce.Do(func() {
		cfg := config.GetConfig()

		if cfg.PostgresURI == "" {
			initErr = fmt.Errorf("POSTGRES_URI is required")
			return
		}

		conn, err := sqlx.ConnectContext(ctx, "postgres", cfg.PostgresURI)
		if err != nil {
			initErr = fmt.Errorf("failed to connect to PostgreSQL: %w", err)
			return
		}

		// Configure connection pool
		conn.SetMaxOpenConns(cfg.MaxOpenConns)
		conn.SetMaxIdleConns(cfg.MaxIdleConns)
		conn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
		conn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

		// Verify connectivity
		if err := conn.PingContext(ctx); err != nil {
			initErr = fmt.Errorf("failed to ping PostgreSQL: %w", err)
			_ = conn.Close()
			return
		}

		pgMu.Lock()
		pgDB = conn
		postgresEnabled = true
		pgMu.Unlock()
	})
	return initErr
}

// PostgresEnabled returns whether Postgres is available
func PostgresEnabled() bool {
	pgMu.RLock()
	defer pgMu.RUnlock()
	return postgresEnabled
}

// GetPostgres returns the PostgreSQL database instance
func GetPostgres() *sqlx.DB {
	pgMu.RLock()
	defer pgMu.RUnlock()
	return pgDB
}

// ClosePostgres closes the PostgreSQL database connection
func ClosePostgres() error {
	pgMu.Lock()
	defer pgMu.Unlock()
	if pgDB != nil {
		return pgDB.Close()
	}
	return nil
}
