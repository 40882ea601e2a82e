package feedback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ppiankov/distortia/internal/apperr"
	"github.com/ppiankov/distortia/internal/model"
	"github.com/ppiankov/distortia/internal/worker"
)

// Client posts feedback records to the collection endpoint
type Client struct {
	url        string
	apiKey     string
	httpClient *http.Client
	limiter    *worker.Limiter
}

// NewClient creates a client for the endpoint at url. The API key is sent
// as X-API-Key when set.
func NewClient(url, apiKey string, timeout time.Duration, limiter *worker.Limiter) *Client {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		url:        url,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
	}
}

// Send delivers one record. Any network error or non-2xx status is a
// FeedbackTransport error.
func (c *Client) Send(ctx context.Context, record model.FeedbackRecord) error {
	body, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal feedback: %w", err)
	}

	if err := c.limiter.Wait(ctx, c.url); err != nil {
		return apperr.FeedbackTransport("rate limiter", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return apperr.FeedbackTransport("create feedback request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperr.FeedbackTransport("feedback request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return apperr.FeedbackTransport(
			fmt.Sprintf("feedback endpoint returned HTTP %d", resp.StatusCode),
			fmt.Errorf("%s", strings.TrimSpace(string(detail))))
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
