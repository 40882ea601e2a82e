package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ppiankov/distortia/internal/apperr"
	"github.com/ppiankov/distortia/internal/catalog"
	"github.com/ppiankov/distortia/internal/classify"
	"github.com/ppiankov/distortia/internal/model"
	"github.com/ppiankov/distortia/internal/reconcile"
	"github.com/ppiankov/distortia/internal/segment"
)

// EmptyInputMessage is shown when there is nothing to analyze
const EmptyInputMessage = "Please enter some text to analyze."

// Pipeline orchestrates one analysis: validate, segment, classify once,
// then reconcile for display
type Pipeline struct {
	classifier classify.Classifier
	catalog    *catalog.Catalog
	fetcher    *Fetcher
	renderer   *Renderer
	mode       model.Mode
	logger     *zap.Logger
	config     *model.Config
}

// NewPipeline creates a pipeline around classifier
func NewPipeline(cfg *model.Config, classifier classify.Classifier, cat *catalog.Catalog, logger *zap.Logger) *Pipeline {
	if cat == nil {
		cat = catalog.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	mode := cfg.Classifier.Mode
	if mode == "" {
		mode = model.ModeBatch
	}

	return &Pipeline{
		classifier: classifier,
		catalog:    cat,
		fetcher:    NewFetcher(cfg.Classifier.Timeout, 0),
		renderer:   NewRenderer(cfg.Output.Disclaimer),
		mode:       mode,
		logger:     logger,
		config:     cfg,
	}
}

// Catalog returns the label catalog in use
func (p *Pipeline) Catalog() *catalog.Catalog {
	return p.catalog
}

// Classifier returns the underlying classifier
func (p *Pipeline) Classifier() classify.Classifier {
	return p.classifier
}

// Validate rejects empty or whitespace-only input
func (p *Pipeline) Validate(text string) error {
	if strings.TrimSpace(text) == "" {
		return apperr.Validation(EmptyInputMessage)
	}
	return nil
}

// Analyze classifies text in the configured mode
func (p *Pipeline) Analyze(ctx context.Context, text string) (*model.AnalysisResult, error) {
	return p.AnalyzeMode(ctx, text, p.mode)
}

// AnalyzeMode classifies text with exactly one classifier request. Invalid
// input is rejected before any request is made.
func (p *Pipeline) AnalyzeMode(ctx context.Context, text string, mode model.Mode) (*model.AnalysisResult, error) {
	if err := p.Validate(text); err != nil {
		return nil, err
	}

	trimmed := strings.TrimSpace(text)
	req := classify.Request{
		Text: trimmed,
		Mode: mode,
	}
	if mode != model.ModeSingle {
		req.Sentences = segment.Split(trimmed)
	}

	start := time.Now()
	resp, err := p.classifier.Classify(ctx, req)
	if err != nil {
		p.logger.Warn("Classification failed",
			zap.String("provider", p.classifier.Name()),
			zap.String("kind", string(apperr.KindOf(err))),
			zap.Error(err),
		)
		return nil, fmt.Errorf("classify: %w", err)
	}

	result := &model.AnalysisResult{
		ID:              uuid.NewString(),
		Text:            trimmed,
		Mode:            mode,
		Provider:        resp.Provider,
		Classifications: resp.Classifications,
	}

	p.logger.Info("Analysis complete",
		zap.String("id", result.ID),
		zap.String("mode", string(mode)),
		zap.Int("sentences", result.Len()),
		zap.Bool("cached", resp.Cached),
		zap.Duration("took", time.Since(start)),
	)

	return result, nil
}

// AnalyzeURL fetches a page and analyzes its visible text
func (p *Pipeline) AnalyzeURL(ctx context.Context, url string) (*model.AnalysisResult, error) {
	doc, err := p.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	return p.Analyze(ctx, doc.Text)
}

// Reconcile builds the display view of result
func (p *Pipeline) Reconcile(result *model.AnalysisResult) *reconcile.View {
	return reconcile.Reconcile(result, p.catalog)
}

// RenderReport writes the requested report files and prints the summary
func (p *Pipeline) RenderReport(view *reconcile.View, jsonPath string, mdPath string, verbose bool) error {
	report := BuildReport(view, p.renderer.disclaimer)

	if jsonPath != "" {
		if err := p.renderer.RenderJSON(report, jsonPath); err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
		if verbose {
			fmt.Printf("✓ Wrote JSON: %s\n", jsonPath)
		}
	}

	if mdPath != "" {
		if err := p.renderer.RenderMarkdown(report, mdPath); err != nil {
			return fmt.Errorf("render markdown: %w", err)
		}
		if verbose {
			fmt.Printf("✓ Wrote Markdown: %s\n", mdPath)
		}
	}

	p.renderer.RenderSummary(report)
	return nil
}
