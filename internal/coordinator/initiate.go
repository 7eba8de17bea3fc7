package coordinator

import (
	"context"

	"github.com/google/uuid"

	"github.com/tmeadon/chunkvault/internal/models"
	"github.com/tmeadon/chunkvault/internal/utils"
)

// defaultContentType is assumed when the client declares none.
const defaultContentType = "application/octet-stream"

// Initiate validates the upload request, opens a backend multipart transfer
// and persists a new session in the initiated state.
func (c *Coordinator) Initiate(ctx context.Context, req *models.UploadInitRequest) (*models.UploadSession, error) {
	if req == nil {
		return nil, newValidationError("request body is required")
	}
	if req.OwnerID == "" {
		return nil, newValidationError("owner_id is required")
	}
	if req.FileName == "" {
		return nil, newValidationError("file_name is required")
	}
	if req.TotalSize <= 0 {
		return nil, newValidationError("total_size must be a positive integer")
	}
	if req.TotalSize > c.limits.MaxFileSize {
		return nil, newFileSizeError(req.TotalSize, c.limits.MaxFileSize)
	}

	role, err := models.ParseOwnerRole(req.OwnerRole)
	if err != nil {
		return nil, newValidationError("invalid owner_role: %q", req.OwnerRole)
	}
	if !c.limits.roleAllowed(string(role)) {
		return nil, &Error{
			Code:    CodeAuthorization,
			Message: "role " + string(role) + " is not permitted to upload",
		}
	}

	contentType := req.ContentType
	if contentType == "" {
		contentType = defaultContentType
	}

	now := c.now()
	session := &models.UploadSession{
		SessionID:   uuid.NewString(),
		OwnerID:     req.OwnerID,
		OwnerRole:   role,
		FileName:    utils.SanitizeFileName(req.FileName),
		ContentType: contentType,
		TotalSize:   req.TotalSize,
		StorageKey:  utils.DeriveStorageKey(role, req.OwnerID, req.FileName, contentType, now),
		Status:      models.StatusInitiated,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	transferID, err := c.backend.OpenTransfer(ctx, session.StorageKey, session.ContentType)
	if err != nil {
		c.logger.Error("failed to open backend transfer",
			"storage_key", session.StorageKey,
			"owner_id", session.OwnerID,
			"error", err)
		return nil, newBackendError("OpenTransfer", err)
	}
	session.BackendUploadID = transferID

	if err := c.sessions.Create(ctx, session); err != nil {
		// The backend transfer is already open; abort it so it does not
		// linger as an orphan accruing storage.
		if abortErr := c.backend.AbortTransfer(ctx, session.StorageKey, transferID); abortErr != nil {
			c.logger.Warn("failed to abort orphaned transfer after persist failure",
				"session_id", session.SessionID,
				"storage_key", session.StorageKey,
				"error", abortErr)
		}
		return nil, newPersistenceError("initiate", err)
	}

	c.logger.Info("upload session initiated",
		"session_id", session.SessionID,
		"owner_id", session.OwnerID,
		"owner_role", session.OwnerRole,
		"file_name", session.FileName,
		"total_size", session.TotalSize,
		"storage_key", session.StorageKey)

	return session, nil
}
