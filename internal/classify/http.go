package classify

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
)

// maxResponseBytes caps how much of a classifier response is read
const maxResponseBytes = 4 << 20

// HTTPClassifier calls the ML backend's /predict endpoint
type HTTPClassifier struct {
	baseURL    string
	httpClient *http.Client
	config     Config
}

type predictRequest struct {
	Text      string     `json:"text"`
	Sentences []string   `json:"sentences,omitempty"`
	Mode      model.Mode `json:"mode,omitempty"`
}

type predictError struct {
	Error string `json:"error"`
}

// NewHTTPClassifier creates a classifier for the ML backend
func NewHTTPClassifier(config Config) (*HTTPClassifier, error) {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = DefaultConfig().BaseURL
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &HTTPClassifier{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		config: config,
	}, nil
}

// Name returns the provider name
func (c *HTTPClassifier) Name() string {
	return "http"
}

// Ping checks that the backend answers at all. The backend has no health
// route, so any non-5xx status counts as reachable.
func (c *HTTPClassifier) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", c.baseURL, err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("classifier at %s returned HTTP %d", c.baseURL, resp.StatusCode)
	}
	return nil
}

// Classify sends every sentence in one request. There is no retry.
func (c *HTTPClassifier) Classify(ctx context.Context, req Request) (*Response, error) {
	apiReq := predictRequest{Text: req.Text, Mode: req.Mode}
	if req.Mode != model.ModeSingle {
		apiReq.Sentences = req.Sentences
	}

	body, err := c.makeRequest(ctx, apiReq)
	if err != nil {
		return nil, err
	}

	classifications, err := Normalize(body, req)
	if err != nil {
		return nil, err
	}

	return &Response{
		Classifications: classifications,
		Provider:        c.Name(),
	}, nil
}

// makeRequest posts to /predict and returns the raw body of a 2xx response
func (c *HTTPClassifier) makeRequest(ctx context.Context, apiReq predictRequest) ([]byte, error) {
	body, err := json.Marshal(apiReq)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := c.baseURL + "/predict"

	if err := c.config.Limiter.Wait(ctx, url); err != nil {
		return nil, apperr.AnalysisTransport("rate limiter", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if c.config.APIKey != "" {
		httpReq.Header.Set("X-API-Key", c.config.APIKey)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, apperr.AnalysisTransport("classifier request failed", err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		return nil, apperr.AnalysisTransport("read classifier response", err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		detail := strings.TrimSpace(string(respBody))
		var apiErr predictError
		if err := json.Unmarshal(respBody, &apiErr); err == nil && apiErr.Error != "" {
			detail = apiErr.Error
		}
		return nil, apperr.AnalysisTransport(
			fmt.Sprintf("classifier returned HTTP %d", httpResp.StatusCode),
			fmt.Errorf("%s", detail))
	}

	return respBody, nil
}
