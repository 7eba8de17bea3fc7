// Package mock provides an in-memory implementation of the multipart
// backend for testing. It records every call and supports error injection
// so tests can exercise backend failure paths without a real object store.
//
// IMPORTANT: Error injection fields (e.g., OpenError) should be set BEFORE
// any concurrent operations begin.
package mock

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"sync"

	"github.com/tmeadon/chunkvault/internal/storage"
)

// Transfer holds the recorded state of one multipart transfer.
type Transfer struct {
	Key         string
	ContentType string
	Parts       map[int32][]byte // by part number
	Completed   bool
	Aborted     bool
	// CompletedParts is the ordered part list passed to CompleteTransfer.
	CompletedParts []storage.CompletedPart
}

// MultipartBackend is a mock implementation of storage.MultipartBackend.
type MultipartBackend struct {
	mu sync.Mutex

	transfers map[string]*Transfer // by transfer ID
	nextID    int

	// Error injection for testing error handling
	// NOTE: Set these BEFORE concurrent access begins
	OpenError     error
	UploadError   error
	CompleteError error
	AbortError    error
	HealthError   error

	// Call counters
	OpenCalls     int
	UploadCalls   int
	CompleteCalls int
	AbortCalls    int
}

// NewMultipartBackend creates a new mock backend with default behavior.
func NewMultipartBackend() *MultipartBackend {
	return &MultipartBackend{
		transfers: make(map[string]*Transfer),
		nextID:    1,
	}
}

// Ensure MultipartBackend implements storage.MultipartBackend
var _ storage.MultipartBackend = (*MultipartBackend)(nil)

// OpenTransfer opens a new in-memory transfer and returns its handle.
func (m *MultipartBackend) OpenTransfer(ctx context.Context, key, contentType string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.OpenCalls++
	if m.OpenError != nil {
		return "", m.OpenError
	}
	if key == "" {
		return "", storage.NewStorageErrorWithMessage("OpenTransfer", key, nil, "empty key not allowed")
	}

	transferID := fmt.Sprintf("transfer-%04d", m.nextID)
	m.nextID++

	m.transfers[transferID] = &Transfer{
		Key:         key,
		ContentType: contentType,
		Parts:       make(map[int32][]byte),
	}

	return transferID, nil
}

// UploadPart stores the part bytes and returns an S3-style hex integrity tag.
func (m *MultipartBackend) UploadPart(ctx context.Context, key, transferID string, partNumber int32, body io.Reader, size int64) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", storage.NewStorageError("UploadPart", key, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.UploadCalls++
	if m.UploadError != nil {
		return "", m.UploadError
	}

	tr, ok := m.transfers[transferID]
	if !ok {
		return "", storage.NewStorageErrorWithMessage("UploadPart", key, nil, "unknown transfer ID")
	}
	if tr.Completed || tr.Aborted {
		return "", storage.NewStorageErrorWithMessage("UploadPart", key, nil, "transfer is closed")
	}
	if partNumber < 1 {
		return "", storage.NewStorageErrorWithMessage("UploadPart", key, nil,
			fmt.Sprintf("part number must be positive: %d", partNumber))
	}

	tr.Parts[partNumber] = data
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:]), nil
}

// CompleteTransfer marks the transfer completed and records the part list.
func (m *MultipartBackend) CompleteTransfer(ctx context.Context, key, transferID string, parts []storage.CompletedPart) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CompleteCalls++
	if m.CompleteError != nil {
		return m.CompleteError
	}

	tr, ok := m.transfers[transferID]
	if !ok {
		return storage.NewStorageErrorWithMessage("CompleteTransfer", key, nil, "unknown transfer ID")
	}
	if tr.Completed || tr.Aborted {
		return storage.NewStorageErrorWithMessage("CompleteTransfer", key, nil, "transfer is closed")
	}
	if len(parts) == 0 {
		return storage.NewStorageErrorWithMessage("CompleteTransfer", key, nil, "no parts provided")
	}
	for _, p := range parts {
		if _, present := tr.Parts[p.PartNumber]; !present {
			return storage.NewStorageErrorWithMessage("CompleteTransfer", key, nil,
				fmt.Sprintf("part %d was never uploaded", p.PartNumber))
		}
		if p.IntegrityTag == "" {
			return storage.NewStorageErrorWithMessage("CompleteTransfer", key, nil,
				fmt.Sprintf("empty integrity tag for part %d", p.PartNumber))
		}
	}

	tr.Completed = true
	tr.CompletedParts = append([]storage.CompletedPart(nil), parts...)
	return nil
}

// AbortTransfer marks the transfer aborted and discards its parts.
func (m *MultipartBackend) AbortTransfer(ctx context.Context, key, transferID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.AbortCalls++
	if m.AbortError != nil {
		return m.AbortError
	}

	tr, ok := m.transfers[transferID]
	if !ok {
		return storage.NewStorageErrorWithMessage("AbortTransfer", key, nil, "unknown transfer ID")
	}
	if tr.Completed {
		return storage.NewStorageErrorWithMessage("AbortTransfer", key, nil, "transfer already completed")
	}

	tr.Aborted = true
	tr.Parts = make(map[int32][]byte)
	return nil
}

// HealthCheck returns the injected health error, if any.
func (m *MultipartBackend) HealthCheck(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.HealthError
}

// Transfer returns the recorded transfer for inspection, or nil.
func (m *MultipartBackend) Transfer(transferID string) *Transfer {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transfers[transferID]
}

// OpenTransferIDs returns the IDs of all transfers that are neither
// completed nor aborted.
func (m *MultipartBackend) OpenTransferIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var ids []string
	for id, tr := range m.transfers {
		if !tr.Completed && !tr.Aborted {
			ids = append(ids, id)
		}
	}
	return ids
}

// Reset clears all transfers and injected errors for a fresh test state.
func (m *MultipartBackend) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.transfers = make(map[string]*Transfer)
	m.nextID = 1
	m.OpenError = nil
	m.UploadError = nil
	m.CompleteError = nil
	m.AbortError = nil
	m.HealthError = nil
	m.OpenCalls = 0
	m.UploadCalls = 0
	m.CompleteCalls = 0
	m.AbortCalls = 0
}
