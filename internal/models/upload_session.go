// Package models defines the core data structures for upload sessions.
package models

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// UploadStatus represents the lifecycle state of an upload session.
// Transitions are monotonic: initiated -> in_progress -> completed, or any
// non-terminal state -> cancelled.
type UploadStatus string

const (
	StatusInitiated  UploadStatus = "initiated"
	StatusInProgress UploadStatus = "in_progress"
	StatusCompleted  UploadStatus = "completed"
	StatusCancelled  UploadStatus = "cancelled"
)

// IsTerminal reports whether no further mutation of the session is permitted.
func (s UploadStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Valid reports whether s is one of the four known states.
func (s UploadStatus) Valid() bool {
	switch s {
	case StatusInitiated, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// ParseUploadStatus parses a stored status string.
func ParseUploadStatus(s string) (UploadStatus, error) {
	status := UploadStatus(strings.ToLower(s))
	if !status.Valid() {
		return "", fmt.Errorf("invalid upload status: %q", s)
	}
	return status, nil
}

// OwnerRole is the coarse permission class of the uploading principal.
// The set of roles allowed to upload is supplied by configuration.
type OwnerRole string

const (
	RoleCreator    OwnerRole = "creator"
	RoleMember     OwnerRole = "member"
	RoleSubscriber OwnerRole = "subscriber"
)

// Valid reports whether r is a known role.
func (r OwnerRole) Valid() bool {
	switch r {
	case RoleCreator, RoleMember, RoleSubscriber:
		return true
	}
	return false
}

// ParseOwnerRole parses a role string case-insensitively.
func ParseOwnerRole(s string) (OwnerRole, error) {
	role := OwnerRole(strings.ToLower(s))
	if !role.Valid() {
		return "", fmt.Errorf("invalid owner role: %q", s)
	}
	return role, nil
}

// ChunkRecord is the acknowledgement record for a single accepted chunk.
// ChunkIndex is 0-based; the backend part number is ChunkIndex+1.
type ChunkRecord struct {
	ChunkIndex   int    `json:"chunk_index"`
	ChunkSize    int64  `json:"chunk_size"`
	IntegrityTag string `json:"integrity_tag"`
}

// UploadSession is the sole persisted entity of the coordinator.
type UploadSession struct {
	SessionID       string        `json:"session_id"`
	OwnerID         string        `json:"owner_id"`
	OwnerRole       OwnerRole     `json:"owner_role"`
	FileName        string        `json:"file_name"`
	ContentType     string        `json:"content_type"`
	TotalSize       int64         `json:"total_size"`
	StorageKey      string        `json:"storage_key"`
	BackendUploadID string        `json:"backend_upload_id,omitempty"`
	Status          UploadStatus  `json:"status"`
	Chunks          []ChunkRecord `json:"chunks"`
	Version         int64         `json:"-"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// HasChunk reports whether a chunk with the given index has been recorded.
func (s *UploadSession) HasChunk(index int) bool {
	for _, c := range s.Chunks {
		if c.ChunkIndex == index {
			return true
		}
	}
	return false
}

// AddChunk records an accepted chunk. A chunk index is accepted at most
// once; resubmissions are rejected, never overwritten.
func (s *UploadSession) AddChunk(c ChunkRecord) error {
	if s.HasChunk(c.ChunkIndex) {
		return fmt.Errorf("chunk %d already recorded", c.ChunkIndex)
	}
	s.Chunks = append(s.Chunks, c)
	return nil
}

// SortedChunks returns the chunk records ordered by ascending chunk index,
// regardless of arrival order.
func (s *UploadSession) SortedChunks() []ChunkRecord {
	chunks := make([]ChunkRecord, len(s.Chunks))
	copy(chunks, s.Chunks)
	sort.Slice(chunks, func(i, j int) bool {
		return chunks[i].ChunkIndex < chunks[j].ChunkIndex
	})
	return chunks
}

// ChunkIndices returns the sorted indices of all recorded chunks.
func (s *UploadSession) ChunkIndices() []int {
	indices := make([]int, 0, len(s.Chunks))
	for _, c := range s.Chunks {
		indices = append(indices, c.ChunkIndex)
	}
	sort.Ints(indices)
	return indices
}

// ReceivedBytes returns the sum of all recorded chunk sizes.
func (s *UploadSession) ReceivedBytes() int64 {
	var total int64
	for _, c := range s.Chunks {
		total += c.ChunkSize
	}
	return total
}

// Clone returns a deep copy of the session.
func (s *UploadSession) Clone() *UploadSession {
	clone := *s
	clone.Chunks = make([]ChunkRecord, len(s.Chunks))
	copy(clone.Chunks, s.Chunks)
	return &clone
}
