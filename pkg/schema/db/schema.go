package db

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// schema is portable between PostgreSQL and SQLite. Chapters are stored on
// their own so that empty chapters survive a round trip; verse order within
// a chapter is kept by position.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS bibles (
		id        TEXT PRIMARY KEY,
		name      TEXT NOT NULL,
		language  TEXT NOT NULL DEFAULT '',
		copyright TEXT NOT NULL DEFAULT '',
		source    TEXT NOT NULL DEFAULT '',
		notes     TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS books (
		bible_id TEXT    NOT NULL,
		number   INTEGER NOT NULL,
		name     TEXT    NOT NULL,
		PRIMARY KEY (bible_id, number)
	)`,
	`CREATE TABLE IF NOT EXISTS chapters (
		bible_id TEXT    NOT NULL,
		book     INTEGER NOT NULL,
		number   INTEGER NOT NULL,
		PRIMARY KEY (bible_id, book, number)
	)`,
	`CREATE TABLE IF NOT EXISTS verses (
		bible_id TEXT    NOT NULL,
		book     INTEGER NOT NULL,
		chapter  INTEGER NOT NULL,
		position INTEGER NOT NULL,
		number   TEXT    NOT NULL,
		text     TEXT    NOT NULL,
		PRIMARY KEY (bible_id, book, chapter, position)
	)`,
}

// EnsureSchema creates the scripture tables when they do not exist
func EnsureSchema(ctx context.Context, conn *sqlx.DB) error {
	for _, stmt := range schema {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
