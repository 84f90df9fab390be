package db

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// MemorySQLite is the path of a private in-memory database
const MemorySQLite = ":memory:"

// OpenSQLite opens the embedded SQLite database at path. The pool holds a
// single connection, which also keeps an in-memory database alive.
func OpenSQLite(ctx context.Context, path string) (*sqlx.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("SQLITE_PATH is required")
	}
	conn, err := sqlx.ConnectContext(ctx, "sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite %s: %w", path, err)
	}
	conn.SetMaxOpenConns(1)
	conn.SetConnMaxLifetime(0)
	conn.SetConnMaxIdleTime(0)

	if path != MemorySQLite {
		if _, err := conn.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("configure SQLite: %w", err)
		}
	}
	return conn, nil
}
