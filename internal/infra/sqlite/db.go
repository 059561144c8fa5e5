// Package sqlite implements the durable ledger store on SQLite.
// Persistence for account balances, grant state, and the append-only
// purchase audit log.
package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite handle and exposes ledger operations.
type DB struct {
	db *sql.DB
}

// Open opens (or creates) the ledger database at path and applies migrations.
// Use ":memory:" for an ephemeral store.
func Open(path string) (*DB, error) {
	handle, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Single connection: SQLite serializes writers anyway, and one writer
	// connection keeps conditional UPDATEs free of SQLITE_BUSY retries.
	handle.SetMaxOpenConns(1)

	db := &DB{db: handle}
	if err := db.migrate(); err != nil {
		handle.Close()
		return nil, err
	}
	return db, nil
}

// Close releases the underlying handle.
func (db *DB) Close() error { return db.db.Close() }

// Migrations returns the schema migration statements.
// Each string is a single SQL statement (SQLite executes one at a time).
func Migrations() []string {
	return []string{
		// Account balances and grant state. Timestamps are unix milliseconds.
		`CREATE TABLE IF NOT EXISTS accounts (
			id            TEXT PRIMARY KEY,
			game_id       TEXT,
			coins         INTEGER NOT NULL DEFAULT 0 CHECK(coins >= 0),
			last_daily_at INTEGER NOT NULL DEFAULT 0,
			welcome_pack  INTEGER NOT NULL DEFAULT 0
		)`,

		// Append-only purchase audit log. No uniqueness beyond the row id.
		`CREATE TABLE IF NOT EXISTS purchases (
			id         TEXT PRIMARY KEY,
			account_id TEXT NOT NULL,
			item       TEXT NOT NULL,
			price      INTEGER NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_purchases_account ON purchases(account_id, created_at)`,
	}
}

func (db *DB) migrate() error {
	for _, stmt := range Migrations() {
		if _, err := db.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
