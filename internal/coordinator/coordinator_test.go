package coordinator

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/tmeadon/chunkvault/internal/models"
	repomock "github.com/tmeadon/chunkvault/internal/repository/mock"
	storagemock "github.com/tmeadon/chunkvault/internal/storage/mock"
)

const (
	testMaxFileSize      = 10737418240
	testMaxChunkIndex    = 10000
	testDefaultChunkSize = 157286400
)

func setupCoordinator(t *testing.T) (*Coordinator, *repomock.SessionRepository, *storagemock.MultipartBackend) {
	t.Helper()

	sessions := repomock.NewSessionRepository()
	backend := storagemock.NewMultipartBackend()
	limits := Limits{
		MaxFileSize:      testMaxFileSize,
		MaxChunkIndex:    testMaxChunkIndex,
		DefaultChunkSize: testDefaultChunkSize,
		AllowedRoles:     []string{"creator", "member"},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return New(sessions, backend, limits, logger), sessions, backend
}

func testInitRequest() *models.UploadInitRequest {
	return &models.UploadInitRequest{
		OwnerID:     "user-42",
		OwnerRole:   "creator",
		FileName:    "video.mp4",
		TotalSize:   500000000,
		ContentType: "video/mp4",
	}
}

// mustInitiate creates a session or fails the test.
func mustInitiate(t *testing.T, c *Coordinator) *models.UploadSession {
	t.Helper()
	session, err := c.Initiate(context.Background(), testInitRequest())
	if err != nil {
		t.Fatalf("Initiate failed: %v", err)
	}
	return session
}

func chunkBody(size int) io.Reader {
	return bytes.NewReader(bytes.Repeat([]byte{0xAB}, size))
}

// assertCode fails unless err carries the given coordinator error code.
func assertCode(t *testing.T, err error, want Code) {
	t.Helper()
	code, ok := ErrorCode(err)
	if !ok {
		t.Fatalf("expected coordinator error with code %s, got %v", want, err)
	}
	if code != want {
		t.Fatalf("error code = %s, want %s (err: %v)", code, want, err)
	}
}

func TestInitiate(t *testing.T) {
	coord, _, backend := setupCoordinator(t)

	session := mustInitiate(t, coord)

	if session.SessionID == "" {
		t.Error("session_id is empty")
	}
	if session.Status != models.StatusInitiated {
		t.Errorf("status = %q, want %q", session.Status, models.StatusInitiated)
	}
	if session.BackendUploadID == "" {
		t.Error("backend transfer was not opened")
	}
	if backend.OpenCalls != 1 {
		t.Errorf("OpenCalls = %d, want 1", backend.OpenCalls)
	}
	if !strings.HasPrefix(session.StorageKey, "creator/user-42/") {
		t.Errorf("storage key %q lacks role/owner prefix", session.StorageKey)
	}
	if !strings.HasSuffix(session.StorageKey, "/video/video.mp4") {
		t.Errorf("storage key %q lacks category/file suffix", session.StorageKey)
	}
}

func TestInitiateValidation(t *testing.T) {
	coord, _, backend := setupCoordinator(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		mutate   func(*models.UploadInitRequest)
		wantCode Code
	}{
		{"missing owner", func(r *models.UploadInitRequest) { r.OwnerID = "" }, CodeValidation},
		{"missing file name", func(r *models.UploadInitRequest) { r.FileName = "" }, CodeValidation},
		{"zero size", func(r *models.UploadInitRequest) { r.TotalSize = 0 }, CodeValidation},
		{"negative size", func(r *models.UploadInitRequest) { r.TotalSize = -1 }, CodeValidation},
		{"oversize", func(r *models.UploadInitRequest) { r.TotalSize = 20000000000 }, CodeFileSizeExceeded},
		{"unknown role", func(r *models.UploadInitRequest) { r.OwnerRole = "admin" }, CodeValidation},
		{"disallowed role", func(r *models.UploadInitRequest) { r.OwnerRole = "subscriber" }, CodeAuthorization},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testInitRequest()
			tt.mutate(req)
			_, err := coord.Initiate(ctx, req)
			assertCode(t, err, tt.wantCode)
		})
	}

	// Validation failures must never touch the backend.
	if backend.OpenCalls != 0 {
		t.Errorf("OpenCalls = %d, want 0", backend.OpenCalls)
	}
}

func TestInitiateFileSizeErrorDetail(t *testing.T) {
	coord, _, _ := setupCoordinator(t)

	_, err := coord.Initiate(context.Background(), &models.UploadInitRequest{
		OwnerID:   "user-42",
		OwnerRole: "creator",
		FileName:  "big.bin",
		TotalSize: 20000000000,
	})

	var coordErr *Error
	if !errors.As(err, &coordErr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if coordErr.ObservedSize != 20000000000 {
		t.Errorf("ObservedSize = %d, want 20000000000", coordErr.ObservedSize)
	}
	if coordErr.MaxSize != testMaxFileSize {
		t.Errorf("MaxSize = %d, want %d", coordErr.MaxSize, testMaxFileSize)
	}
}

func TestInitiateAbortsTransferOnPersistFailure(t *testing.T) {
	coord, sessions, backend := setupCoordinator(t)
	sessions.CreateError = errors.New("disk full")

	_, err := coord.Initiate(context.Background(), testInitRequest())
	assertCode(t, err, CodePersistence)

	if open := backend.OpenTransferIDs(); len(open) != 0 {
		t.Errorf("expected no open transfers after persist failure, got %v", open)
	}
}

func TestUploadChunkTransitionsToInProgress(t *testing.T) {
	coord, sessions, backend := setupCoordinator(t)
	ctx := context.Background()

	session := mustInitiate(t, coord)

	record, err := coord.UploadChunk(ctx, session.SessionID, 0, chunkBody(1048576), 1048576)
	if err != nil {
		t.Fatalf("UploadChunk failed: %v", err)
	}
	if record.ChunkIndex != 0 {
		t.Errorf("chunk_index = %d, want 0", record.ChunkIndex)
	}
	if record.IntegrityTag == "" {
		t.Error("integrity tag is empty")
	}
	if record.ChunkSize != 1048576 {
		t.Errorf("chunk_size = %d, want 1048576", record.ChunkSize)
	}

	got, err := sessions.Get(ctx, session.SessionID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Status != models.StatusInProgress {
		t.Errorf("status = %q, want %q", got.Status, models.StatusInProgress)
	}
	if !got.HasChunk(0) {
		t.Error("chunk 0 not recorded")
	}

	// Chunk 0 maps to backend part 1 and carries the full body.
	tr := backend.Transfer(session.BackendUploadID)
	if tr == nil {
		t.Fatal("transfer not found")
	}
	if len(tr.Parts[1]) != 1048576 {
		t.Errorf("part 1 size = %d, want 1048576", len(tr.Parts[1]))
	}
}

func TestUploadChunkValidation(t *testing.T) {
	coord, _, _ := setupCoordinator(t)
	ctx := context.Background()

	session := mustInitiate(t, coord)

	_, err := coord.UploadChunk(ctx, session.SessionID, -1, chunkBody(10), 10)
	assertCode(t, err, CodeInvalidChunkIndex)

	_, err = coord.UploadChunk(ctx, session.SessionID, testMaxChunkIndex+1, chunkBody(10), 10)
	assertCode(t, err, CodeInvalidChunkIndex)

	_, err = coord.UploadChunk(ctx, session.SessionID, 0, bytes.NewReader(nil), 0)
	assertCode(t, err, CodeValidation)

	_, err = coord.UploadChunk(ctx, "missing", 0, chunkBody(10), 10)
	assertCode(t, err, CodeUploadNotFound)
}

func TestUploadChunkDuplicateRejected(t *testing.T) {
	coord, sessions, backend := setupCoordinator(t)
	ctx := context.Background()

	session := mustInitiate(t, coord)

	if _, err := coord.UploadChunk(ctx, session.SessionID, 3, chunkBody(512), 512); err != nil {
		t.Fatalf("UploadChunk failed: %v", err)
	}

	before, _ := sessions.Get(ctx, session.SessionID)

	_, err := coord.UploadChunk(ctx, session.SessionID, 3, chunkBody(1024), 1024)
	assertCode(t, err, CodeChunkAlreadyUploaded)

	// Rejection leaves the session and the stored part untouched.
	after, _ := sessions.Get(ctx, session.SessionID)
	if len(after.Chunks) != len(before.Chunks) {
		t.Errorf("chunk count changed: %d -> %d", len(before.Chunks), len(after.Chunks))
	}
	if after.Chunks[0].ChunkSize != 512 {
		t.Errorf("chunk size = %d, want 512", after.Chunks[0].ChunkSize)
	}
	tr := backend.Transfer(session.BackendUploadID)
	if len(tr.Parts[4]) != 512 {
		t.Errorf("part 4 size = %d, want 512", len(tr.Parts[4]))
	}
}

func TestUploadChunkTerminalStates(t *testing.T) {
	coord, _, _ := setupCoordinator(t)
	ctx := context.Background()

	completed := mustInitiate(t, coord)
	if _, err := coord.UploadChunk(ctx, completed.SessionID, 0, chunkBody(10), 10); err != nil {
		t.Fatalf("UploadChunk failed: %v", err)
	}
	if _, err := coord.Complete(ctx, completed.SessionID); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	_, err := coord.UploadChunk(ctx, completed.SessionID, 1, chunkBody(10), 10)
	assertCode(t, err, CodeUploadAlreadyCompleted)

	cancelled := mustInitiate(t, coord)
	if _, err := coord.Cancel(ctx, cancelled.SessionID); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	_, err = coord.UploadChunk(ctx, cancelled.SessionID, 0, chunkBody(10), 10)
	assertCode(t, err, CodeUploadCancelled)
}

func TestUploadChunkBackendFailure(t *testing.T) {
	coord, sessions, backend := setupCoordinator(t)
	ctx := context.Background()

	session := mustInitiate(t, coord)
	backend.UploadError = errors.New("connection reset")

	_, err := coord.UploadChunk(ctx, session.SessionID, 0, chunkBody(10), 10)
	assertCode(t, err, CodeStorageBackend)

	// The failed chunk is not acknowledged.
	got, _ := sessions.Get(ctx, session.SessionID)
	if len(got.Chunks) != 0 {
		t.Errorf("expected no recorded chunks, got %d", len(got.Chunks))
	}
	if got.Status != models.StatusInitiated {
		t.Errorf("status = %q, want %q", got.Status, models.StatusInitiated)
	}
}

func TestCompleteOrdersPartsByChunkIndex(t *testing.T) {
	coord, _, backend := setupCoordinator(t)
	ctx := context.Background()

	session := mustInitiate(t, coord)

	// Chunks arrive out of order.
	for _, idx := range []int{2, 0, 1} {
		if _, err := coord.UploadChunk(ctx, session.SessionID, idx, chunkBody(100), 100); err != nil {
			t.Fatalf("UploadChunk(%d) failed: %v", idx, err)
		}
	}

	done, err := coord.Complete(ctx, session.SessionID)
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if done.Status != models.StatusCompleted {
		t.Errorf("status = %q, want %q", done.Status, models.StatusCompleted)
	}

	tr := backend.Transfer(session.BackendUploadID)
	if !tr.Completed {
		t.Fatal("backend transfer not completed")
	}
	if len(tr.CompletedParts) != 3 {
		t.Fatalf("expected 3 completed parts, got %d", len(tr.CompletedParts))
	}
	for i, p := range tr.CompletedParts {
		if p.PartNumber != int32(i+1) {
			t.Errorf("part[%d].PartNumber = %d, want %d", i, p.PartNumber, i+1)
		}
	}
}

func TestCompleteWithNoChunks(t *testing.T) {
	coord, _, backend := setupCoordinator(t)

	session := mustInitiate(t, coord)

	_, err := coord.Complete(context.Background(), session.SessionID)
	assertCode(t, err, CodeValidation)

	if backend.CompleteCalls != 0 {
		t.Errorf("CompleteCalls = %d, want 0", backend.CompleteCalls)
	}
}

func TestCompleteRetryAfterBackendFailure(t *testing.T) {
	coord, sessions, backend := setupCoordinator(t)
	ctx := context.Background()

	session := mustInitiate(t, coord)
	if _, err := coord.UploadChunk(ctx, session.SessionID, 0, chunkBody(100), 100); err != nil {
		t.Fatalf("UploadChunk failed: %v", err)
	}

	backend.CompleteError = errors.New("service unavailable")
	_, err := coord.Complete(ctx, session.SessionID)
	assertCode(t, err, CodeStorageBackend)

	// The session stays in_progress so the client can retry.
	got, _ := sessions.Get(ctx, session.SessionID)
	if got.Status != models.StatusInProgress {
		t.Errorf("status = %q, want %q", got.Status, models.StatusInProgress)
	}

	backend.CompleteError = nil
	done, err := coord.Complete(ctx, session.SessionID)
	if err != nil {
		t.Fatalf("retry Complete failed: %v", err)
	}
	if done.Status != models.StatusCompleted {
		t.Errorf("status = %q, want %q", done.Status, models.StatusCompleted)
	}
}

func TestCompleteTerminalStates(t *testing.T) {
	coord, _, _ := setupCoordinator(t)
	ctx := context.Background()

	session := mustInitiate(t, coord)
	if _, err := coord.UploadChunk(ctx, session.SessionID, 0, chunkBody(10), 10); err != nil {
		t.Fatalf("UploadChunk failed: %v", err)
	}
	if _, err := coord.Complete(ctx, session.SessionID); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	_, err := coord.Complete(ctx, session.SessionID)
	assertCode(t, err, CodeUploadAlreadyCompleted)

	cancelled := mustInitiate(t, coord)
	if _, err := coord.Cancel(ctx, cancelled.SessionID); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	_, err = coord.Complete(ctx, cancelled.SessionID)
	assertCode(t, err, CodeUploadCancelled)

	_, err = coord.Complete(ctx, "missing")
	assertCode(t, err, CodeUploadNotFound)
}

func TestCancel(t *testing.T) {
	coord, _, backend := setupCoordinator(t)
	ctx := context.Background()

	session := mustInitiate(t, coord)
	if _, err := coord.UploadChunk(ctx, session.SessionID, 0, chunkBody(10), 10); err != nil {
		t.Fatalf("UploadChunk failed: %v", err)
	}

	got, err := coord.Cancel(ctx, session.SessionID)
	if err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if got.Status != models.StatusCancelled {
		t.Errorf("status = %q, want %q", got.Status, models.StatusCancelled)
	}

	tr := backend.Transfer(session.BackendUploadID)
	if !tr.Aborted {
		t.Error("backend transfer not aborted")
	}

	// Cancelling again is a no-op success.
	again, err := coord.Cancel(ctx, session.SessionID)
	if err != nil {
		t.Fatalf("second Cancel failed: %v", err)
	}
	if again.Status != models.StatusCancelled {
		t.Errorf("status = %q, want %q", again.Status, models.StatusCancelled)
	}
	if backend.AbortCalls != 1 {
		t.Errorf("AbortCalls = %d, want 1", backend.AbortCalls)
	}
}

func TestCancelSurvivesAbortFailure(t *testing.T) {
	coord, sessions, backend := setupCoordinator(t)
	ctx := context.Background()

	session := mustInitiate(t, coord)
	backend.AbortError = errors.New("access denied")

	got, err := coord.Cancel(ctx, session.SessionID)
	if err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if got.Status != models.StatusCancelled {
		t.Errorf("status = %q, want %q", got.Status, models.StatusCancelled)
	}

	stored, _ := sessions.Get(ctx, session.SessionID)
	if stored.Status != models.StatusCancelled {
		t.Errorf("persisted status = %q, want %q", stored.Status, models.StatusCancelled)
	}
}

func TestCancelCompletedSession(t *testing.T) {
	coord, _, _ := setupCoordinator(t)
	ctx := context.Background()

	session := mustInitiate(t, coord)
	if _, err := coord.UploadChunk(ctx, session.SessionID, 0, chunkBody(10), 10); err != nil {
		t.Fatalf("UploadChunk failed: %v", err)
	}
	if _, err := coord.Complete(ctx, session.SessionID); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	_, err := coord.Cancel(ctx, session.SessionID)
	assertCode(t, err, CodeUploadAlreadyCompleted)
}

func TestStatus(t *testing.T) {
	coord, _, _ := setupCoordinator(t)
	ctx := context.Background()

	session := mustInitiate(t, coord)
	for _, idx := range []int{1, 0} {
		if _, err := coord.UploadChunk(ctx, session.SessionID, idx, chunkBody(100), 100); err != nil {
			t.Fatalf("UploadChunk(%d) failed: %v", idx, err)
		}
	}

	got, err := coord.Status(ctx, session.SessionID)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if got.Status != models.StatusInProgress {
		t.Errorf("status = %q, want %q", got.Status, models.StatusInProgress)
	}
	indices := got.ChunkIndices()
	if len(indices) != 2 || indices[0] != 0 || indices[1] != 1 {
		t.Errorf("chunk indices = %v, want [0 1]", indices)
	}
	if got.ReceivedBytes() != 200 {
		t.Errorf("received bytes = %d, want 200", got.ReceivedBytes())
	}

	_, err = coord.Status(ctx, "missing")
	assertCode(t, err, CodeUploadNotFound)
}

func TestProgressPercentage(t *testing.T) {
	coord, _, _ := setupCoordinator(t)

	session := &models.UploadSession{
		TotalSize: 4 * testDefaultChunkSize,
		Status:    models.StatusInProgress,
		Chunks: []models.ChunkRecord{
			{ChunkIndex: 0, ChunkSize: testDefaultChunkSize},
			{ChunkIndex: 1, ChunkSize: testDefaultChunkSize},
		},
	}
	if pct := coord.ProgressPercentage(session); pct != 50 {
		t.Errorf("progress = %d, want 50", pct)
	}

	session.Status = models.StatusCompleted
	if pct := coord.ProgressPercentage(session); pct != 100 {
		t.Errorf("completed progress = %d, want 100", pct)
	}

	// More chunks than estimated never exceeds 100.
	small := &models.UploadSession{
		TotalSize: 1,
		Status:    models.StatusInProgress,
		Chunks: []models.ChunkRecord{
			{ChunkIndex: 0, ChunkSize: 1},
			{ChunkIndex: 1, ChunkSize: 1},
		},
	}
	if pct := coord.ProgressPercentage(small); pct != 100 {
		t.Errorf("capped progress = %d, want 100", pct)
	}
}

func TestSweepIdle(t *testing.T) {
	coord, sessions, backend := setupCoordinator(t)
	ctx := context.Background()

	stale := mustInitiate(t, coord)
	fresh := mustInitiate(t, coord)

	// Age the stale session past the idle cutoff.
	aged, _ := sessions.Get(ctx, stale.SessionID)
	aged.UpdatedAt = time.Now().UTC().Add(-48 * time.Hour)
	sessions.Put(aged)

	swept, err := coord.SweepIdle(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("SweepIdle failed: %v", err)
	}
	if swept != 1 {
		t.Fatalf("swept = %d, want 1", swept)
	}

	got, _ := sessions.Get(ctx, stale.SessionID)
	if got.Status != models.StatusCancelled {
		t.Errorf("stale status = %q, want %q", got.Status, models.StatusCancelled)
	}
	tr := backend.Transfer(stale.BackendUploadID)
	if !tr.Aborted {
		t.Error("stale transfer not aborted")
	}

	untouched, _ := sessions.Get(ctx, fresh.SessionID)
	if untouched.Status != models.StatusInitiated {
		t.Errorf("fresh status = %q, want %q", untouched.Status, models.StatusInitiated)
	}
}

func TestConcurrentChunksSerialized(t *testing.T) {
	coord, sessions, _ := setupCoordinator(t)
	ctx := context.Background()

	session := mustInitiate(t, coord)

	const n = 20
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func(idx int) {
			_, err := coord.UploadChunk(ctx, session.SessionID, idx, chunkBody(64), 64)
			errs <- err
		}(i)
	}
	for i := 0; i < n; i++ {
		if err := <-errs; err != nil {
			t.Errorf("concurrent UploadChunk failed: %v", err)
		}
	}

	got, err := sessions.Get(ctx, session.SessionID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(got.Chunks) != n {
		t.Errorf("expected %d chunks, got %d", n, len(got.Chunks))
	}
}
