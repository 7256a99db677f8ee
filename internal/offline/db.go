// Package offline keeps client-local durable state: the pending mutation
// log and the cached collection snapshots. Both live in one SQLite file.
package offline

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite handle shared by Queue and Cache.
type DB struct {
	*sql.DB
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS offline_actions (
		seq        INTEGER PRIMARY KEY AUTOINCREMENT,
		id         TEXT NOT NULL UNIQUE,
		kind       TEXT NOT NULL,
		entity     TEXT NOT NULL,
		payload    TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		attempts   INTEGER NOT NULL DEFAULT 0,
		last_error TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_offline_actions_created_at ON offline_actions(created_at)`,
	`CREATE TABLE IF NOT EXISTS cached_data (
		key       TEXT PRIMARY KEY,
		data      TEXT NOT NULL,
		cached_at INTEGER NOT NULL
	)`,
}

// Open opens (creating if needed) the SQLite file at path and applies the schema.
func Open(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}

	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable wal mode: %w", err)
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate local store: %w", err)
		}
	}

	return &DB{db}, nil
}
