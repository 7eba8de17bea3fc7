package chunkvault

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
)

// InitUpload opens a new upload session.
func (c *Client) InitUpload(ctx context.Context, req InitUploadRequest) (*InitUploadResponse, error) {
	if req.OwnerID == "" {
		return nil, &ValidationError{Field: "OwnerID", Message: "is required"}
	}
	if req.FileName == "" {
		return nil, &ValidationError{Field: "FileName", Message: "is required"}
	}
	if req.TotalSize <= 0 {
		return nil, &ValidationError{Field: "TotalSize", Message: "must be positive"}
	}

	var resp InitUploadResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/upload/init", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UploadChunk uploads one chunk body. ChunkIndex is 0-based and size must
// match the body length.
func (c *Client) UploadChunk(ctx context.Context, sessionID string, chunkIndex int, body io.Reader, size int64) (*ChunkResponse, error) {
	if sessionID == "" {
		return nil, &ValidationError{Field: "sessionID", Message: "is required"}
	}
	if chunkIndex < 0 {
		return nil, &ValidationError{Field: "chunkIndex", Message: "must not be negative"}
	}

	url := fmt.Sprintf("%s/api/upload/chunk/%s/%d", c.baseURL, sessionID, chunkIndex)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.ContentLength = size
	req.Header.Set("Content-Type", "application/octet-stream")

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer httpResp.Body.Close()

	var resp ChunkResponse
	if err := decodeResponse(httpResp, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Complete finalizes the upload from all uploaded chunks.
func (c *Client) Complete(ctx context.Context, sessionID string) (*CompleteResponse, error) {
	if sessionID == "" {
		return nil, &ValidationError{Field: "sessionID", Message: "is required"}
	}

	var resp CompleteResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/upload/complete/"+sessionID, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Cancel aborts the upload and releases backend resources.
func (c *Client) Cancel(ctx context.Context, sessionID string) (*CancelResponse, error) {
	if sessionID == "" {
		return nil, &ValidationError{Field: "sessionID", Message: "is required"}
	}

	var resp CancelResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/upload/cancel/"+sessionID, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status returns the session state including uploaded chunk indices.
func (c *Client) Status(ctx context.Context, sessionID string) (*StatusResponse, error) {
	if sessionID == "" {
		return nil, &ValidationError{Field: "sessionID", Message: "is required"}
	}

	var resp StatusResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/upload/status/"+sessionID, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Upload streams r as a chunked upload end to end: it initiates a session,
// splits the reader into chunks of the server-recommended size, uploads
// them sequentially and completes the session. On any error after
// initiation the session is cancelled best effort.
func (c *Client) Upload(ctx context.Context, req InitUploadRequest, r io.Reader) (*CompleteResponse, error) {
	initResp, err := c.InitUpload(ctx, req)
	if err != nil {
		return nil, err
	}

	chunkSize := initResp.RecommendedChunkSize
	if chunkSize <= 0 {
		chunkSize = 8 << 20
	}

	var index int
	var sent int64
	buf := make([]byte, chunkSize)
	for sent < req.TotalSize {
		n, err := io.ReadFull(r, buf)
		if n > 0 {
			chunk := buf[:n]
			if _, upErr := c.UploadChunk(ctx, initResp.SessionID, index, bytes.NewReader(chunk), int64(n)); upErr != nil {
				c.cancelQuietly(ctx, initResp.SessionID)
				return nil, upErr
			}
			index++
			sent += int64(n)
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			break
		}
		if err != nil {
			c.cancelQuietly(ctx, initResp.SessionID)
			return nil, fmt.Errorf("failed to read source: %w", err)
		}
	}

	if sent != req.TotalSize {
		c.cancelQuietly(ctx, initResp.SessionID)
		return nil, fmt.Errorf("source ended after %d of %d bytes", sent, req.TotalSize)
	}

	resp, err := c.Complete(ctx, initResp.SessionID)
	if err != nil {
		c.cancelQuietly(ctx, initResp.SessionID)
		return nil, err
	}
	return resp, nil
}

func (c *Client) cancelQuietly(ctx context.Context, sessionID string) {
	_, _ = c.Cancel(ctx, sessionID)
}
