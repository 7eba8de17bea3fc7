package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	storagemock "github.com/tmeadon/chunkvault/internal/storage/mock"
)

func TestHealthHandler(t *testing.T) {
	backend := storagemock.NewMultipartBackend()
	handler := HealthHandler(backend, "sqlite", time.Now().Add(-time.Minute))

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("status = %q, want %q", resp.Status, "ok")
	}
	if resp.Database != "sqlite" {
		t.Errorf("database = %q, want %q", resp.Database, "sqlite")
	}
	if resp.UptimeSeconds < 60 {
		t.Errorf("uptime_seconds = %d, want >= 60", resp.UptimeSeconds)
	}
}

func TestHealthHandlerDegraded(t *testing.T) {
	backend := storagemock.NewMultipartBackend()
	backend.HealthError = errors.New("connection refused")
	handler := HealthHandler(backend, "postgres", time.Now())

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}

	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if resp.Status != "degraded" {
		t.Errorf("status = %q, want %q", resp.Status, "degraded")
	}
	if resp.Storage != "unreachable" {
		t.Errorf("storage = %q, want %q", resp.Storage, "unreachable")
	}
}
