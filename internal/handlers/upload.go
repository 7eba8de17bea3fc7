package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/tmeadon/chunkvault/internal/coordinator"
	"github.com/tmeadon/chunkvault/internal/metrics"
	"github.com/tmeadon/chunkvault/internal/models"
)

// UploadInitHandler handles POST /api/upload/init
func UploadInitHandler(coord *coordinator.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			sendError(w, "Method not allowed", "METHOD_NOT_ALLOWED", http.StatusMethodNotAllowed)
			return
		}

		var req models.UploadInitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			sendError(w, "Invalid JSON request body", "INVALID_JSON", http.StatusBadRequest)
			return
		}

		session, err := coord.Initiate(r.Context(), &req)
		if err != nil {
			sendCoordinatorError(w, err)
			return
		}

		metrics.SessionsInitiatedTotal.Inc()

		sendJSON(w, http.StatusCreated, models.UploadInitResponse{
			SessionID:            session.SessionID,
			StorageKey:           session.StorageKey,
			RecommendedChunkSize: coord.Limits().DefaultChunkSize,
		})
	}
}

// UploadChunkHandler handles PUT /api/upload/chunk/{session_id}/{chunk_index}
// with the raw chunk bytes as the request body.
func UploadChunkHandler(coord *coordinator.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut && r.Method != http.MethodPost {
			sendError(w, "Method not allowed", "METHOD_NOT_ALLOWED", http.StatusMethodNotAllowed)
			return
		}

		sessionID, indexStr, ok := splitChunkPath(r.URL.Path)
		if !ok {
			sendError(w, "Expected /api/upload/chunk/{session_id}/{chunk_index}", "INVALID_PATH", http.StatusBadRequest)
			return
		}

		chunkIndex, err := strconv.Atoi(indexStr)
		if err != nil {
			sendError(w, "Chunk index must be an integer", "INVALID_CHUNK_INDEX", http.StatusBadRequest)
			return
		}

		record, err := coord.UploadChunk(r.Context(), sessionID, chunkIndex, r.Body, r.ContentLength)
		if err != nil {
			sendCoordinatorError(w, err)
			return
		}

		metrics.ChunksAcceptedTotal.Inc()
		metrics.BytesAcceptedTotal.Add(float64(record.ChunkSize))
		metrics.ChunkSizeBytes.Observe(float64(record.ChunkSize))

		sendJSON(w, http.StatusOK, models.UploadChunkResponse{
			ChunkIndex:   record.ChunkIndex,
			IntegrityTag: record.IntegrityTag,
			Status:       models.StatusInProgress,
		})
	}
}

// UploadCompleteHandler handles POST /api/upload/complete/{session_id}
func UploadCompleteHandler(coord *coordinator.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			sendError(w, "Method not allowed", "METHOD_NOT_ALLOWED", http.StatusMethodNotAllowed)
			return
		}

		sessionID := strings.TrimPrefix(r.URL.Path, "/api/upload/complete/")
		session, err := coord.Complete(r.Context(), sessionID)
		if err != nil {
			sendCoordinatorError(w, err)
			return
		}

		metrics.SessionsCompletedTotal.Inc()

		sendJSON(w, http.StatusOK, models.UploadCompleteResponse{
			SessionID:  session.SessionID,
			StorageKey: session.StorageKey,
			Status:     session.Status,
		})
	}
}

// UploadCancelHandler handles POST /api/upload/cancel/{session_id}
func UploadCancelHandler(coord *coordinator.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost && r.Method != http.MethodDelete {
			sendError(w, "Method not allowed", "METHOD_NOT_ALLOWED", http.StatusMethodNotAllowed)
			return
		}

		sessionID := strings.TrimPrefix(r.URL.Path, "/api/upload/cancel/")
		session, err := coord.Cancel(r.Context(), sessionID)
		if err != nil {
			sendCoordinatorError(w, err)
			return
		}

		metrics.SessionsCancelledTotal.Inc()

		sendJSON(w, http.StatusOK, models.UploadCancelResponse{
			SessionID: session.SessionID,
			Status:    session.Status,
		})
	}
}

// UploadStatusHandler handles GET /api/upload/status/{session_id}
func UploadStatusHandler(coord *coordinator.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			sendError(w, "Method not allowed", "METHOD_NOT_ALLOWED", http.StatusMethodNotAllowed)
			return
		}

		sessionID := strings.TrimPrefix(r.URL.Path, "/api/upload/status/")
		session, err := coord.Status(r.Context(), sessionID)
		if err != nil {
			sendCoordinatorError(w, err)
			return
		}

		sendJSON(w, http.StatusOK, models.UploadStatusResponse{
			SessionID:          session.SessionID,
			FileName:           session.FileName,
			ContentType:        session.ContentType,
			OwnerRole:          session.OwnerRole,
			TotalSize:          session.TotalSize,
			Status:             session.Status,
			UploadedChunks:     session.ChunkIndices(),
			ChunksReceived:     len(session.Chunks),
			ReceivedBytes:      session.ReceivedBytes(),
			ProgressPercentage: coord.ProgressPercentage(session),
			CreatedAt:          session.CreatedAt,
			UpdatedAt:          session.UpdatedAt,
		})
	}
}

// splitChunkPath parses /api/upload/chunk/{session_id}/{chunk_index}.
func splitChunkPath(path string) (sessionID, chunkIndex string, ok bool) {
	rest := strings.TrimPrefix(path, "/api/upload/chunk/")
	if rest == path {
		return "", "", false
	}
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
