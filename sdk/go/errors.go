package chunkvault

import "fmt"

// Error codes returned by the coordinator API.
const (
	CodeValidationError        = "VALIDATION_ERROR"
	CodeFileSizeExceeded       = "FILE_SIZE_EXCEEDED"
	CodeInvalidChunkIndex      = "INVALID_CHUNK_INDEX"
	CodeChunkAlreadyUploaded   = "CHUNK_ALREADY_UPLOADED"
	CodeUploadNotFound         = "UPLOAD_NOT_FOUND"
	CodeUploadAlreadyCompleted = "UPLOAD_ALREADY_COMPLETED"
	CodeUploadCancelled        = "UPLOAD_CANCELLED"
	CodeAuthorizationError     = "AUTHORIZATION_ERROR"
	CodeStorageBackendError    = "STORAGE_BACKEND_ERROR"
	CodePersistenceError       = "PERSISTENCE_ERROR"
)

// APIError represents an error response from the chunkvault API.
type APIError struct {
	// StatusCode is the HTTP status code.
	StatusCode int
	// Code is the machine-readable error code.
	Code string
	// Message is the human-readable error message.
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s (status %d)", e.Code, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.StatusCode)
}

// IsRetryable reports whether the request may succeed if retried.
func (e *APIError) IsRetryable() bool {
	return e.Code == CodeStorageBackendError || e.Code == CodePersistenceError ||
		e.StatusCode >= 500
}

// ValidationError represents a client-side input validation failure.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}
