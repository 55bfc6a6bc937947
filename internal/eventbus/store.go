// Package eventbus implements the cross-session event bus: a single-file
// relational store of registered sessions and a totally ordered event log,
// used by subagents and companion surfaces to coordinate without a shared
// process.
package eventbus

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Store is a single-connection, mutex-free relational store; all writes
// commit synchronously through the standard library's *sql.DB, which
// already serializes access to a single SQLite connection.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the event bus database at path and
// applies its schema. Pass ":memory:" for an ephemeral store in tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open event bus store: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			machine TEXT NOT NULL,
			cwd TEXT NOT NULL,
			client_id TEXT NOT NULL,
			cursor INTEGER NOT NULL DEFAULT 0,
			last_heartbeat DATETIME NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			event_type TEXT NOT NULL,
			payload TEXT NOT NULL,
			channel TEXT NOT NULL,
			session_id TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_channel ON events(channel)`,
		`CREATE INDEX IF NOT EXISTS idx_events_created_at ON events(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_machine_client ON sessions(machine, client_id)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
