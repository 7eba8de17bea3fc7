package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tmeadon/chunkvault/internal/models"
	"github.com/tmeadon/chunkvault/internal/repository"
)

// SessionRepository implements repository.SessionRepository for SQLite.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new SQLite session repository.
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Ensure SessionRepository implements repository.SessionRepository
var _ repository.SessionRepository = (*SessionRepository)(nil)

// Create inserts a new session record together with its chunk set.
func (r *SessionRepository) Create(ctx context.Context, session *models.UploadSession) error {
	if session == nil {
		return fmt.Errorf("session cannot be nil")
	}
	if session.SessionID == "" {
		return fmt.Errorf("session_id cannot be empty")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	version := session.Version
	if version == 0 {
		version = 1
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO upload_sessions (
			session_id, owner_id, owner_role, file_name, content_type,
			total_size, storage_key, backend_upload_id, status, version,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		session.SessionID,
		session.OwnerID,
		string(session.OwnerRole),
		session.FileName,
		session.ContentType,
		session.TotalSize,
		session.StorageKey,
		session.BackendUploadID,
		string(session.Status),
		version,
		session.CreatedAt.UTC().Format(time.RFC3339Nano),
		session.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return repository.ErrDuplicateSession
		}
		return fmt.Errorf("failed to create session: %w", err)
	}

	if err := insertChunks(ctx, tx, session.SessionID, session.Chunks); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	session.Version = version
	return nil
}

// Get retrieves a session by id with its chunk records.
func (r *SessionRepository) Get(ctx context.Context, sessionID string) (*models.UploadSession, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session_id cannot be empty")
	}

	session := &models.UploadSession{}
	var role, status, createdAt, updatedAt string

	err := r.db.QueryRowContext(ctx, `
		SELECT session_id, owner_id, owner_role, file_name, content_type,
			total_size, storage_key, backend_upload_id, status, version,
			created_at, updated_at
		FROM upload_sessions
		WHERE session_id = ?
	`, sessionID).Scan(
		&session.SessionID,
		&session.OwnerID,
		&role,
		&session.FileName,
		&session.ContentType,
		&session.TotalSize,
		&session.StorageKey,
		&session.BackendUploadID,
		&status,
		&session.Version,
		&createdAt,
		&updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	if err := hydrateSession(session, role, status, createdAt, updatedAt); err != nil {
		return nil, err
	}

	chunks, err := r.getChunks(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	session.Chunks = chunks

	return session, nil
}

// Update persists mutable fields and new chunks under an optimistic
// version check.
func (r *SessionRepository) Update(ctx context.Context, session *models.UploadSession) error {
	if session == nil {
		return fmt.Errorf("session cannot be nil")
	}
	if session.SessionID == "" {
		return fmt.Errorf("session_id cannot be empty")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	result, err := tx.ExecContext(ctx, `
		UPDATE upload_sessions
		SET backend_upload_id = ?, status = ?, version = version + 1, updated_at = ?
		WHERE session_id = ? AND version = ?
	`,
		session.BackendUploadID,
		string(session.Status),
		session.UpdatedAt.UTC().Format(time.RFC3339Nano),
		session.SessionID,
		session.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		// Distinguish a missing session from a lost version race.
		var exists int
		err := tx.QueryRowContext(ctx,
			"SELECT 1 FROM upload_sessions WHERE session_id = ?", session.SessionID,
		).Scan(&exists)
		if err == sql.ErrNoRows {
			return repository.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to check session existence: %w", err)
		}
		return repository.ErrConcurrentModification
	}

	if err := syncChunks(ctx, tx, session.SessionID, session.Chunks); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	session.Version++
	return nil
}

// GetIdleSince returns non-terminal sessions not updated since the cutoff.
func (r *SessionRepository) GetIdleSince(ctx context.Context, cutoff time.Time) ([]models.UploadSession, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT session_id, owner_id, owner_role, file_name, content_type,
			total_size, storage_key, backend_upload_id, status, version,
			created_at, updated_at
		FROM upload_sessions
		WHERE status IN (?, ?) AND updated_at < ?
		ORDER BY updated_at ASC
	`,
		string(models.StatusInitiated),
		string(models.StatusInProgress),
		cutoff.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query idle sessions: %w", err)
	}
	defer rows.Close()

	var sessions []models.UploadSession
	for rows.Next() {
		var session models.UploadSession
		var role, status, createdAt, updatedAt string
		if err := rows.Scan(
			&session.SessionID,
			&session.OwnerID,
			&role,
			&session.FileName,
			&session.ContentType,
			&session.TotalSize,
			&session.StorageKey,
			&session.BackendUploadID,
			&status,
			&session.Version,
			&createdAt,
			&updatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		if err := hydrateSession(&session, role, status, createdAt, updatedAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate idle sessions: %w", err)
	}

	return sessions, nil
}

// Delete removes a session and its chunk records.
func (r *SessionRepository) Delete(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session_id cannot be empty")
	}

	result, err := r.db.ExecContext(ctx,
		"DELETE FROM upload_sessions WHERE session_id = ?", sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// getChunks loads all chunk records for a session ordered by index.
func (r *SessionRepository) getChunks(ctx context.Context, sessionID string) ([]models.ChunkRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT chunk_index, chunk_size, integrity_tag
		FROM upload_chunks
		WHERE session_id = ?
		ORDER BY chunk_index ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	var chunks []models.ChunkRecord
	for rows.Next() {
		var c models.ChunkRecord
		if err := rows.Scan(&c.ChunkIndex, &c.ChunkSize, &c.IntegrityTag); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate chunks: %w", err)
	}

	return chunks, nil
}

// insertChunks inserts chunk records, failing on duplicate indices.
func insertChunks(ctx context.Context, tx *sql.Tx, sessionID string, chunks []models.ChunkRecord) error {
	for _, c := range chunks {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO upload_chunks (session_id, chunk_index, chunk_size, integrity_tag)
			VALUES (?, ?, ?, ?)
		`, sessionID, c.ChunkIndex, c.ChunkSize, c.IntegrityTag)
		if err != nil {
			if isUniqueConstraintError(err) {
				return repository.ErrDuplicateChunk
			}
			return fmt.Errorf("failed to insert chunk %d: %w", c.ChunkIndex, err)
		}
	}
	return nil
}

// syncChunks inserts chunk records not yet persisted. Records already in
// the store are left untouched; chunk content is immutable once
// acknowledged.
func syncChunks(ctx context.Context, tx *sql.Tx, sessionID string, chunks []models.ChunkRecord) error {
	for _, c := range chunks {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO upload_chunks (session_id, chunk_index, chunk_size, integrity_tag)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(session_id, chunk_index) DO NOTHING
		`, sessionID, c.ChunkIndex, c.ChunkSize, c.IntegrityTag)
		if err != nil {
			return fmt.Errorf("failed to sync chunk %d: %w", c.ChunkIndex, err)
		}
	}
	return nil
}

// hydrateSession parses enum and timestamp columns into the model.
func hydrateSession(session *models.UploadSession, role, status, createdAt, updatedAt string) error {
	parsedRole, err := models.ParseOwnerRole(role)
	if err != nil {
		return fmt.Errorf("corrupt owner_role for session %s: %w", session.SessionID, err)
	}
	session.OwnerRole = parsedRole

	parsedStatus, err := models.ParseUploadStatus(status)
	if err != nil {
		return fmt.Errorf("corrupt status for session %s: %w", session.SessionID, err)
	}
	session.Status = parsedStatus

	session.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return fmt.Errorf("corrupt created_at for session %s: %w", session.SessionID, err)
	}
	session.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt)
	if err != nil {
		return fmt.Errorf("corrupt updated_at for session %s: %w", session.SessionID, err)
	}
	return nil
}
