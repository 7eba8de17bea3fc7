// Package mock provides an in-memory implementation of the session
// repository for testing. It mirrors the optimistic-concurrency semantics
// of the real stores and provides configurable error injection.
//
// IMPORTANT: Error injection fields (e.g., CreateError) and hooks
// (e.g., OnUpdate) should be set BEFORE any concurrent operations begin.
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/tmeadon/chunkvault/internal/models"
	"github.com/tmeadon/chunkvault/internal/repository"
)

// SessionRepository is a mock implementation of repository.SessionRepository.
type SessionRepository struct {
	mu sync.RWMutex

	sessions map[string]*models.UploadSession

	// Error injection for testing error handling
	// NOTE: Set these BEFORE concurrent access begins
	CreateError       error
	GetError          error
	UpdateError       error
	GetIdleSinceError error
	DeleteError       error

	// Custom behavior hooks
	// NOTE: Set these BEFORE concurrent access begins
	OnUpdate func(ctx context.Context, session *models.UploadSession) error
}

// NewSessionRepository creates a new mock SessionRepository.
func NewSessionRepository() *SessionRepository {
	return &SessionRepository{
		sessions: make(map[string]*models.UploadSession),
	}
}

// Ensure SessionRepository implements repository.SessionRepository
var _ repository.SessionRepository = (*SessionRepository)(nil)

// Create inserts a new session record.
func (r *SessionRepository) Create(ctx context.Context, session *models.UploadSession) error {
	if r.CreateError != nil {
		return r.CreateError
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[session.SessionID]; exists {
		return repository.ErrDuplicateSession
	}

	stored := session.Clone()
	if stored.Version == 0 {
		stored.Version = 1
	}
	r.sessions[session.SessionID] = stored
	session.Version = stored.Version
	return nil
}

// Get returns a deep copy of the stored session.
func (r *SessionRepository) Get(ctx context.Context, sessionID string) (*models.UploadSession, error) {
	if r.GetError != nil {
		return nil, r.GetError
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	stored, exists := r.sessions[sessionID]
	if !exists {
		return nil, repository.ErrNotFound
	}
	return stored.Clone(), nil
}

// Update applies the session state under an optimistic version check.
func (r *SessionRepository) Update(ctx context.Context, session *models.UploadSession) error {
	if r.UpdateError != nil {
		return r.UpdateError
	}
	if r.OnUpdate != nil {
		if err := r.OnUpdate(ctx, session); err != nil {
			return err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored, exists := r.sessions[session.SessionID]
	if !exists {
		return repository.ErrNotFound
	}
	if stored.Version != session.Version {
		return repository.ErrConcurrentModification
	}

	updated := session.Clone()
	updated.Version = stored.Version + 1
	r.sessions[session.SessionID] = updated
	session.Version = updated.Version
	return nil
}

// GetIdleSince returns non-terminal sessions not updated since the cutoff.
func (r *SessionRepository) GetIdleSince(ctx context.Context, cutoff time.Time) ([]models.UploadSession, error) {
	if r.GetIdleSinceError != nil {
		return nil, r.GetIdleSinceError
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var idle []models.UploadSession
	for _, s := range r.sessions {
		if !s.Status.IsTerminal() && s.UpdatedAt.Before(cutoff) {
			idle = append(idle, *s.Clone())
		}
	}
	return idle, nil
}

// Delete removes a session.
func (r *SessionRepository) Delete(ctx context.Context, sessionID string) error {
	if r.DeleteError != nil {
		return r.DeleteError
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[sessionID]; !exists {
		return repository.ErrNotFound
	}
	delete(r.sessions, sessionID)
	return nil
}

// Count returns the number of stored sessions.
func (r *SessionRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Put stores a session directly, bypassing version checks (test setup).
func (r *SessionRepository) Put(session *models.UploadSession) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := session.Clone()
	if stored.Version == 0 {
		stored.Version = 1
	}
	r.sessions[session.SessionID] = stored
}

// Reset clears all sessions and injected errors for a fresh test state.
func (r *SessionRepository) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions = make(map[string]*models.UploadSession)
	r.CreateError = nil
	r.GetError = nil
	r.UpdateError = nil
	r.GetIdleSinceError = nil
	r.DeleteError = nil
	r.OnUpdate = nil
}
