package chunkvault

import "time"

// InitUploadRequest opens a new upload session.
type InitUploadRequest struct {
	OwnerID     string `json:"owner_id"`
	OwnerRole   string `json:"owner_role"`
	FileName    string `json:"file_name"`
	TotalSize   int64  `json:"total_size"`
	ContentType string `json:"content_type,omitempty"`
}

// InitUploadResponse describes a freshly opened session.
type InitUploadResponse struct {
	SessionID            string `json:"session_id"`
	StorageKey           string `json:"storage_key"`
	RecommendedChunkSize int64  `json:"recommended_chunk_size"`
}

// ChunkResponse acknowledges one accepted chunk.
type ChunkResponse struct {
	ChunkIndex   int    `json:"chunk_index"`
	IntegrityTag string `json:"integrity_tag"`
	Status       string `json:"status"`
}

// CompleteResponse is returned after the upload has been assembled.
type CompleteResponse struct {
	SessionID  string `json:"session_id"`
	StorageKey string `json:"storage_key"`
	Status     string `json:"status"`
}

// CancelResponse is returned after a cancellation.
type CancelResponse struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
}

// StatusResponse is the read-only projection of a session.
type StatusResponse struct {
	SessionID          string    `json:"session_id"`
	FileName           string    `json:"file_name"`
	ContentType        string    `json:"content_type"`
	OwnerRole          string    `json:"owner_role"`
	TotalSize          int64     `json:"total_size"`
	Status             string    `json:"status"`
	UploadedChunks     []int     `json:"uploaded_chunks"`
	ChunksReceived     int       `json:"chunks_received"`
	ReceivedBytes      int64     `json:"received_bytes"`
	ProgressPercentage int       `json:"progress_percentage"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// errorResponse is the API error envelope.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
