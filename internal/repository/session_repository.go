package repository

import (
	"context"
	"time"

	"github.com/tmeadon/chunkvault/internal/models"
)

// SessionRepository defines the persistence interface for upload sessions.
// Implementations must provide read-your-writes consistency per session id.
// All methods accept a context for cancellation and timeout support.
type SessionRepository interface {
	// Create inserts a new session record together with its chunk set.
	// Returns ErrDuplicateSession if the session id already exists.
	Create(ctx context.Context, session *models.UploadSession) error

	// Get retrieves a session by id, including all chunk records ordered by
	// chunk index. Returns ErrNotFound if the session does not exist.
	Get(ctx context.Context, sessionID string) (*models.UploadSession, error)

	// Update persists the mutable session fields and any newly recorded
	// chunks atomically. The write is guarded by an optimistic version
	// check: if the stored version differs from session.Version,
	// ErrConcurrentModification is returned and nothing is written.
	// On success the stored and in-memory versions are incremented.
	Update(ctx context.Context, session *models.UploadSession) error

	// GetIdleSince returns non-terminal sessions whose updated_at is older
	// than the cutoff. Used by the idle session sweep.
	GetIdleSince(ctx context.Context, cutoff time.Time) ([]models.UploadSession, error)

	// Delete removes a session and its chunk records. Used by retention
	// tooling only; normal operations never delete sessions.
	Delete(ctx context.Context, sessionID string) error
}
