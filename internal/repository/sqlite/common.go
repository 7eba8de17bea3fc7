// Package sqlite provides the SQLite implementation of the session
// repository. It is the default backend for single-node deployments.
package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// schema creates the session tables. The (session_id, chunk_index)
// uniqueness constraint is the store-level backstop for the
// accept-at-most-once chunk invariant.
const schema = `
CREATE TABLE IF NOT EXISTS upload_sessions (
	session_id TEXT PRIMARY KEY,
	owner_id TEXT NOT NULL,
	owner_role TEXT NOT NULL,
	file_name TEXT NOT NULL,
	content_type TEXT NOT NULL,
	total_size INTEGER NOT NULL,
	storage_key TEXT NOT NULL,
	backend_upload_id TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'initiated',
	version INTEGER NOT NULL DEFAULT 1,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS upload_chunks (
	session_id TEXT NOT NULL REFERENCES upload_sessions(session_id) ON DELETE CASCADE,
	chunk_index INTEGER NOT NULL,
	chunk_size INTEGER NOT NULL,
	integrity_tag TEXT NOT NULL,
	UNIQUE(session_id, chunk_index)
);

CREATE INDEX IF NOT EXISTS idx_upload_sessions_status_updated
	ON upload_sessions(status, updated_at);
`

// Initialize opens the SQLite database at the given path and ensures the
// schema exists. Use ":memory:" for tests.
func Initialize(dbPath string) (*sql.DB, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// WAL improves concurrent read behavior; harmless for :memory:
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set journal mode: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return db, nil
}

// isUniqueConstraintError reports whether the error is a SQLite uniqueness
// violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
