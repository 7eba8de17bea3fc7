package coordinator

import (
	"errors"
	"fmt"
)

// Code classifies coordinator failures for API mapping.
type Code string

const (
	CodeValidation             Code = "VALIDATION_ERROR"
	CodeFileSizeExceeded       Code = "FILE_SIZE_EXCEEDED"
	CodeInvalidChunkIndex      Code = "INVALID_CHUNK_INDEX"
	CodeChunkAlreadyUploaded   Code = "CHUNK_ALREADY_UPLOADED"
	CodeUploadNotFound         Code = "UPLOAD_NOT_FOUND"
	CodeUploadAlreadyCompleted Code = "UPLOAD_ALREADY_COMPLETED"
	CodeUploadCancelled        Code = "UPLOAD_CANCELLED"
	CodeAuthorization          Code = "AUTHORIZATION_ERROR"
	CodeStorageBackend         Code = "STORAGE_BACKEND_ERROR"
	CodePersistence            Code = "PERSISTENCE_ERROR"
)

// Error is the typed error returned by all coordinator operations.
type Error struct {
	Code    Code
	Message string

	// ObservedSize and MaxSize are populated for CodeFileSizeExceeded.
	ObservedSize int64
	MaxSize      int64

	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ErrorCode extracts the coordinator error code, if any.
func ErrorCode(err error) (Code, bool) {
	var coordErr *Error
	if errors.As(err, &coordErr) {
		return coordErr.Code, true
	}
	return "", false
}

func newValidationError(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

func newFileSizeError(observed, max int64) *Error {
	return &Error{
		Code:         CodeFileSizeExceeded,
		Message:      fmt.Sprintf("file size %d exceeds maximum %d", observed, max),
		ObservedSize: observed,
		MaxSize:      max,
	}
}

func newStateError(code Code, sessionID string) *Error {
	var msg string
	switch code {
	case CodeUploadNotFound:
		msg = fmt.Sprintf("upload session %s not found", sessionID)
	case CodeUploadAlreadyCompleted:
		msg = fmt.Sprintf("upload session %s is already completed", sessionID)
	case CodeUploadCancelled:
		msg = fmt.Sprintf("upload session %s is cancelled", sessionID)
	default:
		msg = fmt.Sprintf("upload session %s: invalid state", sessionID)
	}
	return &Error{Code: code, Message: msg}
}

func newBackendError(op string, err error) *Error {
	return &Error{
		Code:    CodeStorageBackend,
		Message: fmt.Sprintf("storage backend %s failed", op),
		Err:     err,
	}
}

func newPersistenceError(op string, err error) *Error {
	return &Error{
		Code:    CodePersistence,
		Message: fmt.Sprintf("failed to persist session state during %s", op),
		Err:     err,
	}
}
