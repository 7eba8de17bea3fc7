package handlers

import (
	"net/http"
	"time"

	"github.com/tmeadon/chunkvault/internal/storage"
)

// HealthResponse is the payload returned by the health endpoint.
type HealthResponse struct {
	Status        string `json:"status"`
	Database      string `json:"database"`
	Storage       string `json:"storage"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// HealthHandler handles GET /health. It reports degraded with a 503 when
// the storage backend is unreachable.
func HealthHandler(backend storage.MultipartBackend, databaseType string, startTime time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			sendError(w, "Method not allowed", "METHOD_NOT_ALLOWED", http.StatusMethodNotAllowed)
			return
		}

		resp := HealthResponse{
			Status:        "ok",
			Database:      databaseType,
			Storage:       "ok",
			UptimeSeconds: int64(time.Since(startTime).Seconds()),
		}
		status := http.StatusOK

		if err := backend.HealthCheck(r.Context()); err != nil {
			resp.Status = "degraded"
			resp.Storage = "unreachable"
			status = http.StatusServiceUnavailable
		}

		sendJSON(w, status, resp)
	}
}
