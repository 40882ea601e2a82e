package classify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ppiankov/distortia/internal/cache"
	"github.com/ppiankov/distortia/internal/model"
)

// CachedClassifier memoizes classifications. Identical inputs sent to the
// same provider and model return the stored result without a request.
type CachedClassifier struct {
	next  Classifier
	cache cache.Cache
	ttl   time.Duration
	model string
}

// NewCachedClassifier wraps next with c
func NewCachedClassifier(next Classifier, c cache.Cache, ttl time.Duration, modelName string) *CachedClassifier {
	return &CachedClassifier{next: next, cache: c, ttl: ttl, model: modelName}
}

// Name returns the wrapped provider name
func (c *CachedClassifier) Name() string {
	return c.next.Name()
}

// Ping delegates to the wrapped classifier
func (c *CachedClassifier) Ping(ctx context.Context) error {
	return c.next.Ping(ctx)
}

// Classify returns a cached response or calls the wrapped classifier.
// Cache failures never fail the classification.
func (c *CachedClassifier) Classify(ctx context.Context, req Request) (*Response, error) {
	key := c.key(req)

	if data, ok := c.cache.Get(key); ok {
		var stored []model.Classification
		if err := json.Unmarshal(data, &stored); err == nil && len(stored) == req.Expected() {
			return &Response{
				Classifications: stored,
				Provider:        c.next.Name(),
				Model:           c.model,
				Cached:          true,
			}, nil
		}
		_ = c.cache.Delete(key)
	}

	resp, err := c.next.Classify(ctx, req)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(resp.Classifications); err == nil {
		_ = c.cache.Set(key, data, c.ttl)
	}

	return resp, nil
}

func (c *CachedClassifier) key(req Request) string {
	parts := []string{c.next.Name(), c.model, string(req.Mode)}
	parts = append(parts, req.Inputs()...)
	return cache.Key(parts...)
}
