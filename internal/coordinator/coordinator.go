// Package coordinator implements the upload session lifecycle: initiating
// sessions, accepting chunks, and finalizing or cancelling the backend
// multipart transfer.
//
// All mutating operations on a given session are serialized through a keyed
// lock, and the session store additionally rejects stale writes with a
// version check. Chunk indices are 0-based on the wire and mapped to 1-based
// backend part numbers.
package coordinator

import (
	"log/slog"
	"time"

	"github.com/tmeadon/chunkvault/internal/repository"
	"github.com/tmeadon/chunkvault/internal/storage"
)

// Limits holds the validation limits applied to incoming uploads.
type Limits struct {
	// MaxFileSize is the maximum declared total size in bytes.
	MaxFileSize int64

	// MaxChunkIndex is the highest acceptable 0-based chunk index.
	MaxChunkIndex int

	// DefaultChunkSize is the chunk size recommended to clients at
	// initiation and used as the denominator for progress estimates.
	DefaultChunkSize int64

	// AllowedRoles restricts which owner roles may initiate uploads.
	// Empty means all valid roles are allowed.
	AllowedRoles []string
}

// roleAllowed reports whether the role passes the configured allow list.
func (l Limits) roleAllowed(role string) bool {
	if len(l.AllowedRoles) == 0 {
		return true
	}
	for _, allowed := range l.AllowedRoles {
		if allowed == role {
			return true
		}
	}
	return false
}

// Coordinator drives upload sessions against a session store and a
// multipart storage backend.
type Coordinator struct {
	sessions repository.SessionRepository
	backend  storage.MultipartBackend
	limits   Limits
	logger   *slog.Logger
	locks    *keyedLocks

	// now is swappable for tests.
	now func() time.Time
}

// New creates a Coordinator. A nil logger falls back to slog.Default().
func New(sessions repository.SessionRepository, backend storage.MultipartBackend, limits Limits, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		sessions: sessions,
		backend:  backend,
		limits:   limits,
		logger:   logger,
		locks:    newKeyedLocks(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Limits returns the configured validation limits.
func (c *Coordinator) Limits() Limits {
	return c.limits
}
