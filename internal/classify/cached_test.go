package classify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ppiankov/distortia/internal/cache"
	"github.com/ppiankov/distortia/internal/model"
)

type countingClassifier struct {
	calls int
	err   error
}

func (c *countingClassifier) Name() string { return "fake" }

func (c *countingClassifier) Ping(ctx context.Context) error { return nil }

func (c *countingClassifier) Classify(ctx context.Context, req Request) (*Response, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	out := make([]model.Classification, len(req.Inputs()))
	for i, s := range req.Inputs() {
		out[i] = model.Classification{Input: s, Prediction: "Labeling", Confidence: 0.5}
	}
	return &Response{Classifications: out, Provider: "fake"}, nil
}

func TestCachedClassifier(t *testing.T) {
	inner := &countingClassifier{}
	c := NewCachedClassifier(inner, cache.NewMemoryCache(time.Minute, time.Minute), time.Minute, "m1")

	req := Request{Sentences: []string{"I am a loser.", "I am a loser."}, Mode: model.ModeBatch}

	first, err := c.Classify(context.Background(), req)
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if first.Cached {
		t.Error("first call must not be cached")
	}

	second, err := c.Classify(context.Background(), req)
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if !second.Cached {
		t.Error("second call should be served from cache")
	}
	if inner.calls != 1 {
		t.Errorf("expected 1 upstream call, got %d", inner.calls)
	}
	if len(second.Classifications) != 2 {
		t.Errorf("cached response lost duplicates: %+v", second.Classifications)
	}

	// Different sentence split is a different key
	if _, err := c.Classify(context.Background(), Request{Sentences: []string{"I am a loser. I am a loser."}, Mode: model.ModeBatch}); err != nil {
		t.Fatal(err)
	}
	if inner.calls != 2 {
		t.Errorf("expected 2 upstream calls, got %d", inner.calls)
	}
}

func TestCachedClassifier_ErrorsNotCached(t *testing.T) {
	inner := &countingClassifier{err: errors.New("down")}
	c := NewCachedClassifier(inner, cache.NewMemoryCache(time.Minute, time.Minute), time.Minute, "")

	req := Request{Sentences: []string{"x"}, Mode: model.ModeBatch}
	for i := 0; i < 2; i++ {
		if _, err := c.Classify(context.Background(), req); err == nil {
			t.Fatal("expected error")
		}
	}
	if inner.calls != 2 {
		t.Errorf("errors must not be cached, got %d calls", inner.calls)
	}
}
