// Package db opens the sqlite file that holds the session and the attempt
// ledger, and keeps its schema current.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DB is a migrated sqlite handle.
type DB struct {
	*sql.DB
	path string
}

// Open creates or opens a SQLite database at path, creating parent
// directories as needed.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}
	sqlDB, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return setup(sqlDB, path)
}

// OpenMemory creates an in-memory SQLite database (useful for testing).
func OpenMemory() (*DB, error) {
	sqlDB, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("opening in-memory database: %w", err)
	}
	// Every new connection to :memory: is a fresh, empty database.
	sqlDB.SetMaxOpenConns(1)
	return setup(sqlDB, ":memory:")
}

func setup(sqlDB *sql.DB, path string) (*DB, error) {
	d := &DB{DB: sqlDB, path: path}
	if err := d.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return d, nil
}

// Path returns the file the database was opened from.
func (d *DB) Path() string { return d.path }

// Version returns the schema version recorded in the file.
func (d *DB) Version() (int, error) {
	var v int
	err := d.QueryRow(`PRAGMA user_version`).Scan(&v)
	return v, err
}

// migrate applies every migration newer than the file's user_version, each
// in its own transaction.
func (d *DB) migrate() error {
	current, err := d.Version()
	if err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}
	for i := current; i < len(migrations); i++ {
		tx, err := d.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(migrations[i]); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
		// PRAGMA does not take bind parameters.
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", i+1)); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	return nil
}

// migrations are applied in order and never edited once released.
var migrations = []string{
	`
CREATE TABLE kv (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);`,
	`
CREATE TABLE attempts (
    id TEXT PRIMARY KEY,
    timestamp DATETIME NOT NULL DEFAULT (datetime('now')),
    kind TEXT NOT NULL CHECK(kind IN ('generate','fix')),
    depth INTEGER NOT NULL DEFAULT 0,
    instruction TEXT NOT NULL DEFAULT '',
    candidate TEXT NOT NULL DEFAULT '',
    outcome TEXT NOT NULL CHECK(outcome IN ('committed','render_failed','transport_failed','malformed','renderer_unavailable','reverted')),
    error TEXT NOT NULL DEFAULT '',
    model TEXT NOT NULL DEFAULT '',
    input_tokens INTEGER NOT NULL DEFAULT 0,
    output_tokens INTEGER NOT NULL DEFAULT 0,
    cost_usd REAL NOT NULL DEFAULT 0
);
CREATE INDEX idx_attempts_timestamp ON attempts(timestamp);
CREATE INDEX idx_attempts_outcome ON attempts(outcome);`,
	// sqlite cannot alter a CHECK constraint, so the table is rebuilt to
	// admit commit_failed.
	`
CREATE TABLE attempts_v3 (
    id TEXT PRIMARY KEY,
    timestamp DATETIME NOT NULL DEFAULT (datetime('now')),
    kind TEXT NOT NULL CHECK(kind IN ('generate','fix')),
    depth INTEGER NOT NULL DEFAULT 0,
    instruction TEXT NOT NULL DEFAULT '',
    candidate TEXT NOT NULL DEFAULT '',
    outcome TEXT NOT NULL CHECK(outcome IN ('committed','render_failed','transport_failed','malformed','renderer_unavailable','commit_failed','reverted')),
    error TEXT NOT NULL DEFAULT '',
    model TEXT NOT NULL DEFAULT '',
    input_tokens INTEGER NOT NULL DEFAULT 0,
    output_tokens INTEGER NOT NULL DEFAULT 0,
    cost_usd REAL NOT NULL DEFAULT 0
);
INSERT INTO attempts_v3 SELECT id, timestamp, kind, depth, instruction, candidate, outcome,
    error, model, input_tokens, output_tokens, cost_usd FROM attempts;
DROP TABLE attempts;
ALTER TABLE attempts_v3 RENAME TO attempts;
CREATE INDEX idx_attempts_timestamp ON attempts(timestamp);
CREATE INDEX idx_attempts_outcome ON attempts(outcome);`,
}
