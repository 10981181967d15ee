// Package sync pushes recorded work to the billing API with at-least-once
// delivery. Failures are queued and retried on later cycles, never raised
// past the sync boundary.
package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/smerrill/worktrace/internal/core/models"
)

const requestTimeout = 10 * time.Second

// BillingClient talks to the remote billing API
type BillingClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewBillingClient creates a client for the given API base URL
func NewBillingClient(baseURL, apiKey string) *BillingClient {
	return &BillingClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: requestTimeout},
	}
}

// Endpoint returns the configured API base URL
func (c *BillingClient) Endpoint() string {
	return c.baseURL
}

// HasCredential reports whether an API key is configured
func (c *BillingClient) HasCredential() bool {
	return c.apiKey != ""
}

// PostSession delivers one work session
func (c *BillingClient) PostSession(ctx context.Context, payload models.SessionPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	return c.post(ctx, "/sessions", body)
}

// PostEntry delivers one queued entry payload verbatim
func (c *BillingClient) PostEntry(ctx context.Context, payload json.RawMessage) error {
	return c.post(ctx, "/entries", payload)
}

// PostQueueItem routes a queue item to the endpoint its type selects
func (c *BillingClient) PostQueueItem(ctx context.Context, item models.SyncQueueItem) error {
	switch item.Type {
	case models.QueueItemSession:
		return c.post(ctx, "/sessions", item.Payload)
	case models.QueueItemEntry:
		return c.post(ctx, "/entries", item.Payload)
	default:
		return fmt.Errorf("unknown queue item type %q", item.Type)
	}
}

func (c *BillingClient) post(ctx context.Context, path string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("post %s: server returned %d", path, resp.StatusCode)
	}
	return nil
}
