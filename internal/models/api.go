package models

import "time"

// UploadInitRequest is the request to open a new upload session.
type UploadInitRequest struct {
	OwnerID     string `json:"owner_id"`
	OwnerRole   string `json:"owner_role"`
	FileName    string `json:"file_name"`
	TotalSize   int64  `json:"total_size"`
	ContentType string `json:"content_type"`
}

// UploadInitResponse is returned after a session has been created and the
// backend multipart transfer has been opened.
type UploadInitResponse struct {
	SessionID            string `json:"session_id"`
	StorageKey           string `json:"storage_key"`
	RecommendedChunkSize int64  `json:"recommended_chunk_size"`
}

// UploadChunkResponse acknowledges a single accepted chunk.
type UploadChunkResponse struct {
	ChunkIndex   int          `json:"chunk_index"`
	IntegrityTag string       `json:"integrity_tag"`
	Status       UploadStatus `json:"status"`
}

// UploadCompleteResponse is returned after the backend transfer has been
// finalized into a single stored object.
type UploadCompleteResponse struct {
	SessionID  string       `json:"session_id"`
	StorageKey string       `json:"storage_key"`
	Status     UploadStatus `json:"status"`
}

// UploadCancelResponse is returned after a cancellation.
type UploadCancelResponse struct {
	SessionID string       `json:"session_id"`
	Status    UploadStatus `json:"status"`
}

// UploadStatusResponse is the read-only projection of a session.
type UploadStatusResponse struct {
	SessionID          string       `json:"session_id"`
	FileName           string       `json:"file_name"`
	ContentType        string       `json:"content_type"`
	OwnerRole          OwnerRole    `json:"owner_role"`
	TotalSize          int64        `json:"total_size"`
	Status             UploadStatus `json:"status"`
	UploadedChunks     []int        `json:"uploaded_chunks"`
	ChunksReceived     int          `json:"chunks_received"`
	ReceivedBytes      int64        `json:"received_bytes"`
	ProgressPercentage int          `json:"progress_percentage"`
	CreatedAt          time.Time    `json:"created_at"`
	UpdatedAt          time.Time    `json:"updated_at"`
}

// ErrorResponse is the JSON error envelope returned by the HTTP layer.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
