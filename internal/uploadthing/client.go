// Package uploadthing is a minimal client for the UploadThing REST API,
// covering the bulk file deletion used by expiry cleanup.
package uploadthing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// DefaultDeleteEndpoint is the production bulk-delete endpoint
	DefaultDeleteEndpoint = "https://api.uploadthing.com/v6/deleteFiles"

	// deleteChunkSize caps the keys per delete request
	deleteChunkSize = 100

	apiKeyHeader = "x-uploadthing-api-key"
)

// Client calls the UploadThing API
type Client struct {
	httpClient     *http.Client
	deleteEndpoint string
}

// Option configures a Client
type Option func(*Client)

// WithDeleteEndpoint overrides the bulk-delete endpoint
func WithDeleteEndpoint(endpoint string) Option {
	return func(c *Client) {
		c.deleteEndpoint = endpoint
	}
}

// WithHTTPClient overrides the underlying HTTP client
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a new client. Requests are bounded by the given timeout
// in addition to any context deadline
func NewClient(timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		httpClient:     &http.Client{Timeout: timeout},
		deleteEndpoint: DefaultDeleteEndpoint,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type deleteRequest struct {
	FileKeys []string `json:"fileKeys"`
}

// DeleteFiles removes files from the upload service in chunks of at most
// 100 keys. The first failing chunk aborts the remaining chunks and is
// returned as the error; callers must treat the whole batch as failed
func (c *Client) DeleteFiles(ctx context.Context, apiKey string, keys []string) error {
	for start := 0; start < len(keys); start += deleteChunkSize {
		end := start + deleteChunkSize
		if end > len(keys) {
			end = len(keys)
		}
		if err := c.deleteChunk(ctx, apiKey, keys[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) deleteChunk(ctx context.Context, apiKey string, keys []string) error {
	body, err := json.Marshal(deleteRequest{FileKeys: keys})
	if err != nil {
		return fmt.Errorf("failed to encode delete request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.deleteEndpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build delete request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(apiKeyHeader, apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("uploadthing delete request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("uploadthing delete returned %d: %s", resp.StatusCode, string(detail))
	}
	return nil
}
