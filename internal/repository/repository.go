// Package repository defines interfaces for session persistence.
// This package provides abstractions for the session store, allowing
// different backend implementations (SQLite, PostgreSQL) to be swapped
// without changing coordinator code.
//
// The repository pattern encapsulates database-specific SQL and provides
// a clean interface for the coordinator to interact with persisted state.
package repository

import "errors"

// Common errors returned by repository operations.
var (
	// ErrNotFound is returned when a requested session does not exist.
	ErrNotFound = errors.New("session not found")

	// ErrDuplicateSession is returned when an insert violates the session id
	// uniqueness constraint.
	ErrDuplicateSession = errors.New("duplicate session id")

	// ErrDuplicateChunk is returned when a chunk record insert violates the
	// (session_id, chunk_index) uniqueness constraint.
	ErrDuplicateChunk = errors.New("duplicate chunk index")

	// ErrConcurrentModification is returned when an update loses the
	// optimistic version check against the stored session.
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// ErrNilDatabase is returned when a nil database connection is provided.
	ErrNilDatabase = errors.New("nil database connection")
)

// Database backend identifiers.
const (
	DatabaseTypeSQLite   = "sqlite"
	DatabaseTypePostgres = "postgres"
)

// Repositories holds all repository implementations.
type Repositories struct {
	Sessions     SessionRepository
	DatabaseType string
	Cleanup      func()
}
