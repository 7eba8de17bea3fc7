// Package handlers implements the HTTP surface of the upload coordinator.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/tmeadon/chunkvault/internal/coordinator"
	"github.com/tmeadon/chunkvault/internal/metrics"
	"github.com/tmeadon/chunkvault/internal/models"
)

// sendJSON writes a JSON response with the given status code
func sendJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// sendError writes a JSON error response
func sendError(w http.ResponseWriter, message, code string, status int) {
	sendJSON(w, status, models.ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// sendCoordinatorError maps a coordinator error to an HTTP response and
// records it in the error metrics.
func sendCoordinatorError(w http.ResponseWriter, err error) {
	code, ok := coordinator.ErrorCode(err)
	if !ok {
		slog.Error("unclassified error", "error", err)
		sendError(w, "Internal server error", "INTERNAL_ERROR", http.StatusInternalServerError)
		return
	}

	metrics.ErrorsTotal.WithLabelValues(string(code)).Inc()

	message := err.Error()
	var coordErr *coordinator.Error
	if errors.As(err, &coordErr) {
		message = coordErr.Message
	}

	sendError(w, message, string(code), statusForCode(code))
}

// statusForCode maps coordinator error codes to HTTP status codes
func statusForCode(code coordinator.Code) int {
	switch code {
	case coordinator.CodeValidation, coordinator.CodeInvalidChunkIndex:
		return http.StatusBadRequest
	case coordinator.CodeFileSizeExceeded:
		return http.StatusRequestEntityTooLarge
	case coordinator.CodeChunkAlreadyUploaded, coordinator.CodeUploadAlreadyCompleted:
		return http.StatusConflict
	case coordinator.CodeUploadCancelled:
		return http.StatusGone
	case coordinator.CodeUploadNotFound:
		return http.StatusNotFound
	case coordinator.CodeAuthorization:
		return http.StatusForbidden
	case coordinator.CodeStorageBackend:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
