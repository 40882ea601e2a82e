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
)

// OllamaClassifier classifies with a local Ollama model through
// /api/generate in JSON mode
type OllamaClassifier struct {
	baseURL    string
	httpClient *http.Client
	config     Config
}

type ollamaRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	System  string        `json:"system,omitempty"`
	Format  string        `json:"format,omitempty"`
	Options ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
}

type ollamaResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

type ollamaError struct {
	Error string `json:"error"`
}

// NewOllamaClassifier creates an Ollama-backed classifier
func NewOllamaClassifier(config Config) (*OllamaClassifier, error) {
	if config.Model == "" {
		return nil, fmt.Errorf("ollama model must be specified (e.g., llama3.1:8b, mistral)")
	}
	if len(config.Labels) == 0 {
		return nil, fmt.Errorf("ollama classifier needs a label set")
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second // local models are slow
	}

	return &OllamaClassifier{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		config:     config,
	}, nil
}

// Name returns the provider name
func (c *OllamaClassifier) Name() string {
	return "ollama"
}

// Ping lists local models
func (c *OllamaClassifier) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", c.baseURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama at %s returned HTTP %d", c.baseURL, resp.StatusCode)
	}
	return nil
}

// Classify sends all inputs in one generate call
func (c *OllamaClassifier) Classify(ctx context.Context, req Request) (*Response, error) {
	apiReq := ollamaRequest{
		Model:   c.config.Model,
		Prompt:  BuildPrompt(req, c.config.Labels),
		Stream:  false,
		System:  systemPrompt,
		Format:  "json",
		Options: ollamaOptions{Temperature: 0},
	}

	resp, err := c.makeRequest(ctx, apiReq)
	if err != nil {
		return nil, err
	}

	classifications, err := Normalize([]byte(resp.Response), req)
	if err != nil {
		return nil, err
	}

	return &Response{
		Classifications: classifications,
		Provider:        c.Name(),
		Model:           resp.Model,
	}, nil
}

func (c *OllamaClassifier) makeRequest(ctx context.Context, apiReq ollamaRequest) (*ollamaResponse, error) {
	body, err := json.Marshal(apiReq)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := c.baseURL + "/api/generate"

	if err := c.config.Limiter.Wait(ctx, url); err != nil {
		return nil, apperr.AnalysisTransport("rate limiter", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, apperr.AnalysisTransport("ollama request failed", err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		return nil, apperr.AnalysisTransport("read ollama response", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		var apiErr ollamaError
		if err := json.Unmarshal(respBody, &apiErr); err == nil && apiErr.Error != "" {
			return nil, apperr.AnalysisTransport(fmt.Sprintf("ollama API error (%d)", httpResp.StatusCode), fmt.Errorf("%s", apiErr.Error))
		}
		return nil, apperr.AnalysisTransport(fmt.Sprintf("ollama API error (%d)", httpResp.StatusCode), fmt.Errorf("%s", string(respBody)))
	}

	var resp ollamaResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, apperr.AnalysisFormat("unmarshal ollama response", err)
	}

	return &resp, nil
}
