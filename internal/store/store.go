// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists candidate items and their model judgments in
// SQLite and serves the time-windowed candidate sets and judgment lookups
// the ranking pipeline consumes. It also keeps a history of produced
// digests.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/digest-engine/pkg/types"
)

const (
	dbFile = "digest.db"

	// timeLayout is fixed width so stored timestamps compare as text.
	timeLayout = "2006-01-02T15:04:05Z"
)

// Store manages the digest SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens or creates dir/digest.db and ensures the schema exists.
func Open(cfg types.StoreConfig) (*Store, error) {
	dir := cfg.Dir
	if dir == "" {
		dir = "store"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}

	dbPath := filepath.Join(dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS items (
			id TEXT PRIMARY KEY,
			source_name TEXT NOT NULL,
			title TEXT NOT NULL,
			url TEXT,
			published_at TEXT NOT NULL,
			summary TEXT,
			snippet TEXT,
			full_text TEXT,
			category TEXT NOT NULL,
			categories TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_items_category_published ON items(category, published_at)`,
		`CREATE INDEX IF NOT EXISTS idx_items_published ON items(published_at)`,
		`CREATE TABLE IF NOT EXISTS judgments (
			item_id TEXT PRIMARY KEY REFERENCES items(id) ON DELETE CASCADE,
			relevance REAL NOT NULL,
			usefulness REAL NOT NULL,
			tags TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS ingest_status (
			file TEXT PRIMARY KEY,
			file_mod_time TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS digest_runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			category TEXT NOT NULL,
			period TEXT NOT NULL,
			generated_at TEXT NOT NULL,
			candidates INTEGER NOT NULL,
			threshold INTEGER NOT NULL,
			relaxed INTEGER NOT NULL,
			item_ids TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_digest_runs_category ON digest_runs(category, generated_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}
