// Package chunkvault provides a Go client for the chunkvault upload
// coordinator API.
package chunkvault

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// ClientConfig configures a Client.
type ClientConfig struct {
	// BaseURL is the coordinator base URL, e.g. "https://vault.example.com".
	BaseURL string
	// Timeout is the per-request timeout. Defaults to 5 minutes, which
	// accommodates large chunk bodies.
	Timeout time.Duration
	// HTTPClient overrides the default HTTP client when set.
	HTTPClient *http.Client
}

// Client is the chunkvault API client.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new chunkvault client.
//
// Example:
//
//	client, err := chunkvault.NewClient(chunkvault.ClientConfig{
//	    BaseURL: "https://vault.example.com",
//	})
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, &ValidationError{Field: "BaseURL", Message: "is required"}
	}

	parsedURL, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, &ValidationError{Field: "BaseURL", Message: "must be a valid URL"}
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, &ValidationError{Field: "BaseURL", Message: "must use http or https protocol"}
	}
	if parsedURL.Host == "" {
		return nil, &ValidationError{Field: "BaseURL", Message: "must include a host"}
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 5 * time.Minute
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL:    parsedURL.Scheme + "://" + parsedURL.Host,
		httpClient: httpClient,
	}, nil
}

// doJSON performs a request with an optional JSON body and decodes a JSON
// response into out.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	return decodeResponse(resp, out)
}

// decodeResponse decodes a JSON response, converting error payloads into
// *APIError values.
func decodeResponse(resp *http.Response, out any) error {
	if resp.StatusCode >= 400 {
		var errResp errorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
			return &APIError{StatusCode: resp.StatusCode, Message: resp.Status}
		}
		return &APIError{
			StatusCode: resp.StatusCode,
			Code:       errResp.Code,
			Message:    errResp.Error,
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
