package coordinator

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strconv"

	"github.com/gabriel-vasile/mimetype"

	"github.com/tmeadon/chunkvault/internal/models"
	"github.com/tmeadon/chunkvault/internal/repository"
)

// sniffLen is how many leading bytes of the first chunk are inspected for
// content type detection.
const sniffLen = 3072

// UploadChunk streams one chunk to the backend and records its
// acknowledgement. A chunk index is accepted at most once per session; the
// backend part number is chunkIndex+1.
func (c *Coordinator) UploadChunk(ctx context.Context, sessionID string, chunkIndex int, body io.Reader, size int64) (*models.ChunkRecord, error) {
	if sessionID == "" {
		return nil, newValidationError("session_id is required")
	}
	if chunkIndex < 0 || chunkIndex > c.limits.MaxChunkIndex {
		return nil, &Error{
			Code:    CodeInvalidChunkIndex,
			Message: "chunk_index must be between 0 and " + strconv.Itoa(c.limits.MaxChunkIndex),
		}
	}
	if size <= 0 {
		return nil, newValidationError("chunk body must not be empty")
	}

	unlock := c.locks.lock(sessionID)
	defer unlock()

	session, err := c.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newStateError(CodeUploadNotFound, sessionID)
		}
		return nil, newPersistenceError("chunk lookup", err)
	}

	switch session.Status {
	case models.StatusCompleted:
		return nil, newStateError(CodeUploadAlreadyCompleted, sessionID)
	case models.StatusCancelled:
		return nil, newStateError(CodeUploadCancelled, sessionID)
	}

	if session.HasChunk(chunkIndex) {
		return nil, &Error{
			Code:    CodeChunkAlreadyUploaded,
			Message: "chunk " + strconv.Itoa(chunkIndex) + " was already uploaded",
		}
	}

	// Sessions recovered from a store migration may predate the backend
	// transfer; open one on demand.
	if session.BackendUploadID == "" {
		transferID, err := c.backend.OpenTransfer(ctx, session.StorageKey, session.ContentType)
		if err != nil {
			return nil, newBackendError("OpenTransfer", err)
		}
		session.BackendUploadID = transferID
	}

	if chunkIndex == 0 {
		body = c.sniffContentType(session, body)
	}

	partNumber := int32(chunkIndex + 1)
	tag, err := c.backend.UploadPart(ctx, session.StorageKey, session.BackendUploadID, partNumber, body, size)
	if err != nil {
		c.logger.Error("failed to upload part",
			"session_id", sessionID,
			"chunk_index", chunkIndex,
			"part_number", partNumber,
			"error", err)
		return nil, newBackendError("UploadPart", err)
	}

	record := models.ChunkRecord{
		ChunkIndex:   chunkIndex,
		ChunkSize:    size,
		IntegrityTag: tag,
	}
	if err := session.AddChunk(record); err != nil {
		return nil, &Error{
			Code:    CodeChunkAlreadyUploaded,
			Message: "chunk " + strconv.Itoa(chunkIndex) + " was already uploaded",
		}
	}
	if session.Status == models.StatusInitiated {
		session.Status = models.StatusInProgress
	}
	session.UpdatedAt = c.now()

	if err := c.sessions.Update(ctx, session); err != nil {
		return nil, newPersistenceError("chunk", err)
	}

	c.logger.Debug("chunk accepted",
		"session_id", sessionID,
		"chunk_index", chunkIndex,
		"chunk_size", size,
		"chunks_received", len(session.Chunks))

	return &record, nil
}

// sniffContentType inspects the head of the first chunk and logs when the
// detected type disagrees with the declared one. The body is returned with
// the inspected bytes replayed in front.
func (c *Coordinator) sniffContentType(session *models.UploadSession, body io.Reader) io.Reader {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(body, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return io.MultiReader(bytes.NewReader(head[:n]), body)
	}
	head = head[:n]

	detected := mimetype.Detect(head)
	if !detected.Is(session.ContentType) && session.ContentType != defaultContentType {
		c.logger.Warn("detected content type differs from declared",
			"session_id", session.SessionID,
			"declared", session.ContentType,
			"detected", detected.String())
	}

	return io.MultiReader(bytes.NewReader(head), body)
}

