package coordinator

import (
	"context"
	"errors"
	"math"

	"github.com/tmeadon/chunkvault/internal/models"
	"github.com/tmeadon/chunkvault/internal/repository"
)

// Status returns the current session state. It is read-only and does not
// take the per-session lock.
func (c *Coordinator) Status(ctx context.Context, sessionID string) (*models.UploadSession, error) {
	if sessionID == "" {
		return nil, newValidationError("session_id is required")
	}

	session, err := c.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newStateError(CodeUploadNotFound, sessionID)
		}
		return nil, newPersistenceError("status lookup", err)
	}

	return session, nil
}

// ProgressPercentage estimates upload progress from the number of received
// chunks against the expected chunk count at the recommended chunk size.
// The estimate is capped at 100; a completed session always reports 100.
func (c *Coordinator) ProgressPercentage(session *models.UploadSession) int {
	if session.Status == models.StatusCompleted {
		return 100
	}
	if session.TotalSize <= 0 || c.limits.DefaultChunkSize <= 0 {
		return 0
	}

	expected := int(math.Ceil(float64(session.TotalSize) / float64(c.limits.DefaultChunkSize)))
	if expected < 1 {
		expected = 1
	}

	pct := len(session.Chunks) * 100 / expected
	if pct > 100 {
		pct = 100
	}
	return pct
}
