// Package classify talks to the external distortion classifier. The
// classifier is a black box: it receives sentences and returns one
// prediction per sentence. Every provider normalizes its wire response
// into []model.Classification at this boundary.
package classify

import (
	"context"
	"time"

	"github.com/ppiankov/distortia/internal/model"
	"github.com/ppiankov/distortia/internal/worker"
)

// Classifier classifies sentences
type Classifier interface {
	// Name returns the provider name
	Name() string

	// Classify sends one request and returns one classification per
	// submitted sentence, in order
	Classify(ctx context.Context, req Request) (*Response, error)

	// Ping checks that the classifier is reachable
	Ping(ctx context.Context) error
}

// Request is the input of one classification call
type Request struct {
	// Sentences are the ordered segmenter output (batch mode)
	Sentences []string

	// Text is the whole input (single mode, also sent as context in batch mode)
	Text string

	Mode model.Mode
}

// Expected returns how many classifications a valid response carries
func (r Request) Expected() int {
	if r.Mode == model.ModeSingle {
		return 1
	}
	return len(r.Sentences)
}

// Inputs returns what is submitted for classification, in order
func (r Request) Inputs() []string {
	if r.Mode == model.ModeSingle {
		return []string{r.Text}
	}
	return r.Sentences
}

// Response is the normalized classifier output
type Response struct {
	Classifications []model.Classification
	Provider        string
	Model           string
	Cached          bool
}

// Config holds classifier provider configuration
type Config struct {
	// Provider name: "http", "openai", "ollama"
	Provider string

	// BaseURL of the classifier service or OpenAI-compatible API
	BaseURL string

	// Model name for LLM-backed providers
	Model string

	// APIKey for the classifier service or OpenAI
	APIKey string

	Timeout time.Duration

	// Labels offered to LLM-backed providers, sentinel excluded
	Labels []model.Label

	// Limiter throttles outbound requests, nil disables throttling
	Limiter *worker.Limiter
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider: "http",
		BaseURL:  "http://localhost:5000",
		Timeout:  30 * time.Second,
	}
}

// ConfigFromModel converts model.ClassifierConfig to classify.Config
func ConfigFromModel(mc model.ClassifierConfig) Config {
	return Config{
		Provider: mc.Provider,
		BaseURL:  mc.BaseURL,
		Model:    mc.Model,
		APIKey:   mc.APIKey,
		Timeout:  mc.Timeout,
	}
}
