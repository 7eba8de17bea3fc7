package coordinator

import (
	"context"
	"errors"

	"github.com/tmeadon/chunkvault/internal/models"
	"github.com/tmeadon/chunkvault/internal/repository"
	"github.com/tmeadon/chunkvault/internal/storage"
)

// Complete finalizes the backend transfer from all acknowledged chunks,
// ordered by chunk index, and transitions the session to completed.
//
// If the backend rejects the completion the session stays in_progress so the
// client can retry or upload missing chunks.
func (c *Coordinator) Complete(ctx context.Context, sessionID string) (*models.UploadSession, error) {
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
		return nil, newPersistenceError("complete lookup", err)
	}

	switch session.Status {
	case models.StatusCompleted:
		return nil, newStateError(CodeUploadAlreadyCompleted, sessionID)
	case models.StatusCancelled:
		return nil, newStateError(CodeUploadCancelled, sessionID)
	}

	if len(session.Chunks) == 0 {
		return nil, newValidationError("cannot complete upload with no chunks")
	}

	parts := make([]storage.CompletedPart, 0, len(session.Chunks))
	for _, chunk := range session.SortedChunks() {
		parts = append(parts, storage.CompletedPart{
			PartNumber:   int32(chunk.ChunkIndex + 1),
			IntegrityTag: chunk.IntegrityTag,
		})
	}

	if err := c.backend.CompleteTransfer(ctx, session.StorageKey, session.BackendUploadID, parts); err != nil {
		c.logger.Error("failed to complete backend transfer",
			"session_id", sessionID,
			"storage_key", session.StorageKey,
			"parts", len(parts),
			"error", err)
		return nil, newBackendError("CompleteTransfer", err)
	}

	session.Status = models.StatusCompleted
	session.UpdatedAt = c.now()

	if err := c.sessions.Update(ctx, session); err != nil {
		// The object is assembled in the backend but the session record is
		// stale. Surface the persistence failure; the sweep reconciles it.
		c.logger.Error("backend transfer completed but session persist failed",
			"session_id", sessionID,
			"storage_key", session.StorageKey,
			"error", err)
		return nil, newPersistenceError("complete", err)
	}

	c.logger.Info("upload session completed",
		"session_id", sessionID,
		"storage_key", session.StorageKey,
		"chunks", len(session.Chunks),
		"received_bytes", session.ReceivedBytes())

	return session, nil
}
