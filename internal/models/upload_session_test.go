package models

import (
	"testing"
)

func TestUploadStatusIsTerminal(t *testing.T) {
	tests := []struct {
		status UploadStatus
		want   bool
	}{
		{StatusInitiated, false},
		{StatusInProgress, false},
		{StatusCompleted, true},
		{StatusCancelled, true},
	}

	for _, tt := range tests {
		if got := tt.status.IsTerminal(); got != tt.want {
			t.Errorf("%s.IsTerminal() = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestParseUploadStatus(t *testing.T) {
	status, err := ParseUploadStatus("IN_PROGRESS")
	if err != nil {
		t.Fatalf("ParseUploadStatus failed: %v", err)
	}
	if status != StatusInProgress {
		t.Errorf("status = %q, want %q", status, StatusInProgress)
	}

	if _, err := ParseUploadStatus("finished"); err == nil {
		t.Error("expected error for unknown status")
	}
}

func TestParseOwnerRole(t *testing.T) {
	role, err := ParseOwnerRole("Creator")
	if err != nil {
		t.Fatalf("ParseOwnerRole failed: %v", err)
	}
	if role != RoleCreator {
		t.Errorf("role = %q, want %q", role, RoleCreator)
	}

	if _, err := ParseOwnerRole("admin"); err == nil {
		t.Error("expected error for unknown role")
	}
}

func TestAddChunkRejectsDuplicates(t *testing.T) {
	session := &UploadSession{}

	if err := session.AddChunk(ChunkRecord{ChunkIndex: 3, ChunkSize: 100, IntegrityTag: "a"}); err != nil {
		t.Fatalf("AddChunk failed: %v", err)
	}
	if !session.HasChunk(3) {
		t.Error("HasChunk(3) = false after AddChunk")
	}

	err := session.AddChunk(ChunkRecord{ChunkIndex: 3, ChunkSize: 200, IntegrityTag: "b"})
	if err == nil {
		t.Fatal("expected error for duplicate chunk")
	}

	// The original record survives the rejected resubmission.
	if len(session.Chunks) != 1 || session.Chunks[0].IntegrityTag != "a" {
		t.Errorf("chunks = %+v, want single original record", session.Chunks)
	}
}

func TestSortedChunksAndIndices(t *testing.T) {
	session := &UploadSession{
		Chunks: []ChunkRecord{
			{ChunkIndex: 5, ChunkSize: 10},
			{ChunkIndex: 0, ChunkSize: 20},
			{ChunkIndex: 2, ChunkSize: 30},
		},
	}

	sorted := session.SortedChunks()
	for i, want := range []int{0, 2, 5} {
		if sorted[i].ChunkIndex != want {
			t.Errorf("sorted[%d].ChunkIndex = %d, want %d", i, sorted[i].ChunkIndex, want)
		}
	}

	// Sorting returns a copy; the original order is preserved.
	if session.Chunks[0].ChunkIndex != 5 {
		t.Error("SortedChunks mutated the session")
	}

	indices := session.ChunkIndices()
	if len(indices) != 3 || indices[0] != 0 || indices[1] != 2 || indices[2] != 5 {
		t.Errorf("indices = %v, want [0 2 5]", indices)
	}

	if got := session.ReceivedBytes(); got != 60 {
		t.Errorf("ReceivedBytes = %d, want 60", got)
	}
}

func TestClone(t *testing.T) {
	session := &UploadSession{
		SessionID: "sess-1",
		Chunks:    []ChunkRecord{{ChunkIndex: 0, ChunkSize: 10, IntegrityTag: "a"}},
	}

	clone := session.Clone()
	clone.Chunks[0].IntegrityTag = "mutated"
	clone.SessionID = "sess-2"

	if session.Chunks[0].IntegrityTag != "a" {
		t.Error("mutating the clone changed the original chunk")
	}
	if session.SessionID != "sess-1" {
		t.Error("mutating the clone changed the original session")
	}
}
