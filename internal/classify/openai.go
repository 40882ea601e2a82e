package classify

import (
	"context"
	"fmt"
	"strings"

	"github.com/ppiankov/distortia/internal/apperr"
	"github.com/sashabaranov/go-openai"
)

// OpenAIClassifier classifies zero-shot through a chat completion API.
// Any OpenAI-compatible base URL works.
type OpenAIClassifier struct {
	client *openai.Client
	config Config
}

// NewOpenAIClassifier creates an OpenAI-backed classifier
func NewOpenAIClassifier(config Config) (*OpenAIClassifier, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	if len(config.Labels) == 0 {
		return nil, fmt.Errorf("OpenAI classifier needs a label set")
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	return &OpenAIClassifier{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
	}, nil
}

// Name returns the provider name
func (c *OpenAIClassifier) Name() string {
	return "openai"
}

// Ping lists models, the cheapest authenticated call
func (c *OpenAIClassifier) Ping(ctx context.Context) error {
	if _, err := c.client.ListModels(ctx); err != nil {
		return fmt.Errorf("OpenAI API check failed: %w", err)
	}
	return nil
}

// Classify sends all inputs in one chat completion
func (c *OpenAIClassifier) Classify(ctx context.Context, req Request) (*Response, error) {
	model := c.config.Model
	if model == "" {
		model = openai.GPT4oMini
	}

	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	if err := c.config.Limiter.Wait(ctx, c.endpoint()); err != nil {
		return nil, apperr.AnalysisTransport("rate limiter", err)
	}

	chatReq := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: BuildPrompt(req, c.config.Labels),
			},
		},
		Temperature: 0,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	resp, err := c.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, apperr.AnalysisTransport("OpenAI API error", err)
	}

	if len(resp.Choices) == 0 {
		return nil, apperr.AnalysisFormat("no response from OpenAI", nil)
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	classifications, err := Normalize([]byte(content), req)
	if err != nil {
		return nil, err
	}

	return &Response{
		Classifications: classifications,
		Provider:        c.Name(),
		Model:           model,
	}, nil
}

func (c *OpenAIClassifier) endpoint() string {
	if c.config.BaseURL != "" {
		return c.config.BaseURL
	}
	return "https://api.openai.com/v1"
}
