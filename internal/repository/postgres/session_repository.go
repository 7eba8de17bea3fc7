package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tmeadon/chunkvault/internal/models"
	"github.com/tmeadon/chunkvault/internal/repository"
)

// SessionRepository implements repository.SessionRepository for PostgreSQL.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new PostgreSQL session repository.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
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

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	version := session.Version
	if version == 0 {
		version = 1
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO upload_sessions (
			session_id, owner_id, owner_role, file_name, content_type,
			total_size, storage_key, backend_upload_id, status, version,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
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
		session.CreatedAt.UTC(),
		session.UpdatedAt.UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicateSession
		}
		return fmt.Errorf("failed to create session: %w", err)
	}

	for _, c := range session.Chunks {
		_, err := tx.Exec(ctx, `
			INSERT INTO upload_chunks (session_id, chunk_index, chunk_size, integrity_tag)
			VALUES ($1, $2, $3, $4)
		`, session.SessionID, c.ChunkIndex, c.ChunkSize, c.IntegrityTag)
		if err != nil {
			if isUniqueViolation(err) {
				return repository.ErrDuplicateChunk
			}
			return fmt.Errorf("failed to insert chunk %d: %w", c.ChunkIndex, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
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
	var role, status string

	err := r.pool.QueryRow(ctx, `
		SELECT session_id, owner_id, owner_role, file_name, content_type,
			total_size, storage_key, backend_upload_id, status, version,
			created_at, updated_at
		FROM upload_sessions
		WHERE session_id = $1
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
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	if err := parseEnums(session, role, status); err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT chunk_index, chunk_size, integrity_tag
		FROM upload_chunks
		WHERE session_id = $1
		ORDER BY chunk_index ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c models.ChunkRecord
		if err := rows.Scan(&c.ChunkIndex, &c.ChunkSize, &c.IntegrityTag); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		session.Chunks = append(session.Chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate chunks: %w", err)
	}

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

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	tag, err := tx.Exec(ctx, `
		UPDATE upload_sessions
		SET backend_upload_id = $1, status = $2, version = version + 1, updated_at = $3
		WHERE session_id = $4 AND version = $5
	`,
		session.BackendUploadID,
		string(session.Status),
		session.UpdatedAt.UTC(),
		session.SessionID,
		session.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}

	if tag.RowsAffected() == 0 {
		var exists bool
		err := tx.QueryRow(ctx,
			"SELECT EXISTS(SELECT 1 FROM upload_sessions WHERE session_id = $1)",
			session.SessionID,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check session existence: %w", err)
		}
		if !exists {
			return repository.ErrNotFound
		}
		return repository.ErrConcurrentModification
	}

	for _, c := range session.Chunks {
		_, err := tx.Exec(ctx, `
			INSERT INTO upload_chunks (session_id, chunk_index, chunk_size, integrity_tag)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (session_id, chunk_index) DO NOTHING
		`, session.SessionID, c.ChunkIndex, c.ChunkSize, c.IntegrityTag)
		if err != nil {
			return fmt.Errorf("failed to sync chunk %d: %w", c.ChunkIndex, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	session.Version++
	return nil
}

// GetIdleSince returns non-terminal sessions not updated since the cutoff.
func (r *SessionRepository) GetIdleSince(ctx context.Context, cutoff time.Time) ([]models.UploadSession, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT session_id, owner_id, owner_role, file_name, content_type,
			total_size, storage_key, backend_upload_id, status, version,
			created_at, updated_at
		FROM upload_sessions
		WHERE status IN ($1, $2) AND updated_at < $3
		ORDER BY updated_at ASC
	`,
		string(models.StatusInitiated),
		string(models.StatusInProgress),
		cutoff.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query idle sessions: %w", err)
	}
	defer rows.Close()

	var sessions []models.UploadSession
	for rows.Next() {
		var session models.UploadSession
		var role, status string
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
			&session.CreatedAt,
			&session.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		if err := parseEnums(&session, role, status); err != nil {
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

	tag, err := r.pool.Exec(ctx,
		"DELETE FROM upload_sessions WHERE session_id = $1", sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// parseEnums parses the role and status columns into the model.
func parseEnums(session *models.UploadSession, role, status string) error {
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
	return nil
}
