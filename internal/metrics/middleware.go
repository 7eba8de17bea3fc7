package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware instruments HTTP handlers with request metrics
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK, // Default to 200 if WriteHeader not called
		}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start).Seconds()
		path := normalizePath(r.URL.Path)
		status := strconv.Itoa(wrapped.statusCode)

		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
		HTTPRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
	})
}

// normalizePath replaces dynamic path segments with placeholders to keep
// metric label cardinality bounded.
func normalizePath(path string) string {
	switch {
	case path == "/health":
		return "/health"
	case path == "/metrics":
		return "/metrics"
	case path == "/api/upload/init":
		return "/api/upload/init"
	case strings.HasPrefix(path, "/api/upload/chunk/"):
		return "/api/upload/chunk/:id/:index"
	case strings.HasPrefix(path, "/api/upload/complete/"):
		return "/api/upload/complete/:id"
	case strings.HasPrefix(path, "/api/upload/cancel/"):
		return "/api/upload/cancel/:id"
	case strings.HasPrefix(path, "/api/upload/status/"):
		return "/api/upload/status/:id"
	default:
		return "/other"
	}
}
