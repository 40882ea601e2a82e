package pipeline

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ppiankov/distortia/internal/cache"
	"github.com/ppiankov/distortia/internal/catalog"
	"github.com/ppiankov/distortia/internal/classify"
	"github.com/ppiankov/distortia/internal/model"
	"github.com/ppiankov/distortia/internal/worker"
)

// NewClassifier builds the configured classifier, throttled by limiter and
// wrapped in the classification cache when enabled
func NewClassifier(cfg *model.Config, cat *catalog.Catalog, limiter *worker.Limiter, logger *zap.Logger) (classify.Classifier, error) {
	if cat == nil {
		cat = catalog.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ccfg := classify.ConfigFromModel(cfg.Classifier)
	ccfg.Labels = cat.Labels()
	ccfg.Limiter = limiter

	c, err := classify.NewClassifier(ccfg)
	if err != nil {
		return nil, fmt.Errorf("create classifier: %w", err)
	}

	if !cfg.Cache.Enabled {
		return c, nil
	}

	store := cache.NewLayeredCache(cfg.Cache.MemoryTTL, cfg.Cache.Dir, cfg.Cache.DiskTTL)
	logger.Debug("Classification cache enabled",
		zap.String("dir", cfg.Cache.Dir),
		zap.Duration("memory_ttl", cfg.Cache.MemoryTTL),
		zap.Duration("disk_ttl", cfg.Cache.DiskTTL),
	)

	// Catalog version is part of the key so renamed labels are never served
	modelKey := fmt.Sprintf("%s@catalog-v%d", cfg.Classifier.Model, cat.Version())
	return classify.NewCachedClassifier(c, store, 0, modelKey), nil
}
