// Package store is the persistence boundary for Memoria: sessions,
// events and skills imported from agent runs, the derived memory tree,
// and recall telemetry. All reads return typed DTOs decoded at this
// boundary; callers never see raw rows.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

var (
	// ErrNotInitialized is returned when the backing database does not exist.
	ErrNotInitialized = errors.New("store not initialized")

	// ErrNotFound is returned for lookups of unknown ids.
	ErrNotFound = errors.New("not found")
)

// Store wraps the SQLite sessions database.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open opens (or creates) the database at the given path and applies
// the schema. Parent directories are created as needed.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	slog.Info("store opened", "path", dbPath)
	return s, nil
}

// OpenExisting opens the database only if it already exists on disk.
// Returns ErrNotInitialized otherwise. Recall treats a missing store as
// a valid empty state; the index builder treats it as fatal.
func OpenExisting(dbPath string) (*Store, error) {
	if _, err := os.Stat(dbPath); err != nil {
		return nil, ErrNotInitialized
	}
	return Open(dbPath)
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			timestamp INTEGER NOT NULL,
			project TEXT NOT NULL DEFAULT 'default',
			event_count INTEGER NOT NULL DEFAULT 0,
			summary TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_project ON sessions(project)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_timestamp ON sessions(timestamp)`,
		`CREATE TABLE IF NOT EXISTS events (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			timestamp INTEGER NOT NULL,
			event_type TEXT NOT NULL,
			content TEXT NOT NULL DEFAULT '{}',
			metadata TEXT NOT NULL DEFAULT '{}',
			FOREIGN KEY (session_id) REFERENCES sessions(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_session ON events(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_events_type ON events(event_type)`,
		`CREATE TABLE IF NOT EXISTS skills (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT 'general',
			created_date INTEGER NOT NULL,
			success_rate REAL NOT NULL DEFAULT 0,
			use_count INTEGER NOT NULL DEFAULT 0,
			filepath TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS memory_nodes (
			id TEXT PRIMARY KEY,
			parent_id TEXT,
			project TEXT NOT NULL,
			title TEXT NOT NULL,
			summary TEXT NOT NULL DEFAULT '',
			level INTEGER NOT NULL,
			path_key TEXT NOT NULL UNIQUE,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			last_synced_at INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_nodes_parent ON memory_nodes(parent_id)`,
		`CREATE INDEX IF NOT EXISTS idx_nodes_project ON memory_nodes(project)`,
		`CREATE TABLE IF NOT EXISTS memory_node_sources (
			node_id TEXT NOT NULL,
			session_id TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			PRIMARY KEY (node_id, session_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_node_sources_session ON memory_node_sources(session_id)`,
		`CREATE TABLE IF NOT EXISTS recall_telemetry (
			id TEXT PRIMARY KEY,
			route_mode TEXT NOT NULL,
			fallback_used INTEGER NOT NULL DEFAULT 0,
			hit_count INTEGER NOT NULL DEFAULT 0,
			latency_ms INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_telemetry_created ON recall_telemetry(created_at)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:min(len(stmt), 60)], err)
		}
	}

	return nil
}

// WithTx runs fn inside a transaction, rolling back on error.
func (s *Store) WithTx(fn func(tx *sql.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
