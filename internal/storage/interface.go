// Package storage defines the abstraction over the object-storage multipart
// API. Implementations can target AWS S3, S3-compatible services, or an
// in-memory backend for tests, without changing coordinator code.
package storage

import (
	"context"
	"io"
)

// CompletedPart identifies one uploaded part when finalizing a transfer.
// PartNumber is 1-based, following object-storage convention.
type CompletedPart struct {
	PartNumber   int32
	IntegrityTag string
}

// MultipartBackend is the backend multipart transfer API consumed by the
// upload session coordinator. Every call is an I/O boundary and may fail or
// time out; callers must not assume partial success.
type MultipartBackend interface {
	// OpenTransfer opens a multipart transfer for the given object key and
	// returns the backend transfer handle.
	OpenTransfer(ctx context.Context, key, contentType string) (transferID string, err error)

	// UploadPart uploads one numbered part against an open transfer and
	// returns the opaque integrity tag for that part.
	UploadPart(ctx context.Context, key, transferID string, partNumber int32, body io.Reader, size int64) (integrityTag string, err error)

	// CompleteTransfer finalizes a transfer from an ordered part list,
	// assembling the parts into a single stored object.
	CompleteTransfer(ctx context.Context, key, transferID string, parts []CompletedPart) error

	// AbortTransfer aborts an open transfer and reclaims backend resources.
	AbortTransfer(ctx context.Context, key, transferID string) error

	// HealthCheck verifies the backend is reachable.
	HealthCheck(ctx context.Context) error
}

// StorageError represents errors from backend operations with additional context.
type StorageError struct {
	Op      string // Operation that failed (e.g., "OpenTransfer", "UploadPart")
	Key     string // Object key involved
	Err     error  // Underlying error
	Message string // Human-readable message
}

func (e *StorageError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Key != "" {
		return e.Op + " " + e.Key + ": " + e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewStorageError creates a new StorageError with the given details.
func NewStorageError(op, key string, err error) *StorageError {
	return &StorageError{
		Op:  op,
		Key: key,
		Err: err,
	}
}

// NewStorageErrorWithMessage creates a new StorageError with a custom message.
func NewStorageErrorWithMessage(op, key string, err error, message string) *StorageError {
	return &StorageError{
		Op:      op,
		Key:     key,
		Err:     err,
		Message: message,
	}
}
