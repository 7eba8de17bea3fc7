package coordinator

import (
	"context"
	"errors"

	"github.com/tmeadon/chunkvault/internal/models"
	"github.com/tmeadon/chunkvault/internal/repository"
)

// Cancel aborts the backend transfer and transitions the session to
// cancelled. Cancelling an already-cancelled session is a no-op success; a
// completed session cannot be cancelled.
//
// The backend abort is best effort: the session transitions to cancelled
// even if the abort fails, so clients always observe a terminal state. An
// orphaned backend transfer is reclaimed later by the sweep.
func (c *Coordinator) Cancel(ctx context.Context, sessionID string) (*models.UploadSession, error) {
	if sessionID == "" {
		return nil, newValidationError("session_id is required")
	}

	unlock := c.locks.lock(sessionID)
	defer unlock()

	session, err := c.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newStateError(CodeUploadNotFound, sessionID)
		}
		return nil, newPersistenceError("cancel lookup", err)
	}

	switch session.Status {
	case models.StatusCancelled:
		return session, nil
	case models.StatusCompleted:
		return nil, newStateError(CodeUploadAlreadyCompleted, sessionID)
	}

	if session.BackendUploadID != "" {
		if err := c.backend.AbortTransfer(ctx, session.StorageKey, session.BackendUploadID); err != nil {
			c.logger.Warn("failed to abort backend transfer, cancelling session anyway",
				"session_id", sessionID,
				"storage_key", session.StorageKey,
				"error", err)
		}
	}

	session.Status = models.StatusCancelled
	session.UpdatedAt = c.now()

	if err := c.sessions.Update(ctx, session); err != nil {
		return nil, newPersistenceError("cancel", err)
	}

	c.logger.Info("upload session cancelled",
		"session_id", sessionID,
		"storage_key", session.StorageKey,
		"chunks_received", len(session.Chunks))

	return session, nil
}
