package classify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/distortia/internal/apperr"
	"github.com/ppiankov/distortia/internal/model"
	"github.com/sashabaranov/go-openai"
)

var testLabels = []model.Label{"Labeling", "Mind Reading", "Overgeneralization"}

func chatServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("Expected path /chat/completions, got %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("Expected Authorization header Bearer test-key, got %s", r.Header.Get("Authorization"))
		}

		var req openai.ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.ResponseFormat == nil || req.ResponseFormat.Type != openai.ChatCompletionResponseFormatTypeJSONObject {
			t.Errorf("expected JSON response format")
		}
		if len(req.Messages) != 2 || !strings.Contains(req.Messages[1].Content, "Mind Reading") {
			t.Errorf("prompt must list the catalog labels")
		}

		resp := openai.ChatCompletionResponse{
			ID:    "chatcmpl-123",
			Model: "gpt-4o-mini",
			Choices: []openai.ChatCompletionChoice{
				{
					Message: openai.ChatCompletionMessage{
						Role:    "assistant",
						Content: content,
					},
					FinishReason: "stop",
				},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestOpenAIClassifier_Classify_Success(t *testing.T) {
	server := chatServer(t, `{"results":[{"input":"They hate me.","prediction":"Mind Reading","confidence":0.7},{"input":"Fine.","prediction":"No Distortion","confidence":0.9}]}`)
	defer server.Close()

	c, err := NewOpenAIClassifier(Config{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Model:   "gpt-4o-mini",
		Timeout: 5 * time.Second,
		Labels:  testLabels,
	})
	if err != nil {
		t.Fatalf("Failed to create classifier: %v", err)
	}

	resp, err := c.Classify(context.Background(), Request{
		Sentences: []string{"They hate me.", "Fine."},
		Mode:      model.ModeBatch,
	})
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}

	if len(resp.Classifications) != 2 {
		t.Fatalf("expected 2 classifications, got %d", len(resp.Classifications))
	}
	if resp.Classifications[0].Prediction != "Mind Reading" {
		t.Errorf("unexpected prediction: %s", resp.Classifications[0].Prediction)
	}
	if resp.Model != "gpt-4o-mini" || resp.Provider != "openai" {
		t.Errorf("unexpected provider/model: %s/%s", resp.Provider, resp.Model)
	}
}

func TestOpenAIClassifier_Classify_BadContent(t *testing.T) {
	server := chatServer(t, `I think sentence one is mind reading.`)
	defer server.Close()

	c, _ := NewOpenAIClassifier(Config{APIKey: "test-key", BaseURL: server.URL, Labels: testLabels})

	_, err := c.Classify(context.Background(), Request{Sentences: []string{"They hate me."}, Mode: model.ModeBatch})
	if !errors.Is(err, apperr.ErrAnalysisFormat) {
		t.Errorf("expected analysis format error, got %v", err)
	}
}

func TestOpenAIClassifier_Classify_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	c, _ := NewOpenAIClassifier(Config{APIKey: "test-key", BaseURL: server.URL, Labels: testLabels})

	_, err := c.Classify(context.Background(), Request{Sentences: []string{"x"}, Mode: model.ModeBatch})
	if !errors.Is(err, apperr.ErrAnalysisTransport) {
		t.Errorf("expected analysis transport error, got %v", err)
	}
}

func TestNewOpenAIClassifier_Validation(t *testing.T) {
	if _, err := NewOpenAIClassifier(Config{Labels: testLabels}); err == nil {
		t.Error("expected error without API key")
	}
	if _, err := NewOpenAIClassifier(Config{APIKey: "k"}); err == nil {
		t.Error("expected error without labels")
	}
}
