package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/distortia/internal/model"
	"github.com/ppiankov/distortia/internal/segment"
)

// Analyzer analyzes one document
type Analyzer interface {
	Analyze(ctx context.Context, text string) (*model.AnalysisResult, error)
}

// Document is one batch input
type Document struct {
	Source string // file path or label shown in reports
	Text   string
}

// AnalyzeJob analyzes one document
type AnalyzeJob struct {
	Index    int
	Document Document
	Analyzer Analyzer
}

// Execute runs the analysis
func (j *AnalyzeJob) Execute(ctx context.Context) Result {
	result, err := j.Analyzer.Analyze(ctx, j.Document.Text)
	return &AnalyzeResult{
		Index:  j.Index,
		Source: j.Document.Source,
		Result: result,
		Error:  err,
	}
}

// AnalyzeResult is the outcome of one document analysis
type AnalyzeResult struct {
	Index  int
	Source string
	Result *model.AnalysisResult
	Error  error
}

// GetError returns the analysis error
func (r *AnalyzeResult) GetError() error {
	return r.Error
}

// Position returns the document's index in the batch
func (r *AnalyzeResult) Position() int {
	return r.Index
}

// BatchProcessor analyzes many documents concurrently. Each document is
// still a single classifier request.
type BatchProcessor struct {
	analyzer    Analyzer
	concurrency int
}

// NewBatchProcessor creates a batch processor
func NewBatchProcessor(analyzer Analyzer, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		analyzer:    analyzer,
		concurrency: concurrency,
	}
}

// ProcessDocuments analyzes docs and returns results in input order
func (b *BatchProcessor) ProcessDocuments(ctx context.Context, docs []Document) []*AnalyzeResult {
	if len(docs) == 0 {
		return []*AnalyzeResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	for i, doc := range docs {
		if !pool.Submit(&AnalyzeJob{Index: i, Document: doc, Analyzer: b.analyzer}) {
			break
		}
	}

	results := pool.Wait()

	out := make([]*AnalyzeResult, len(docs))
	for _, r := range results {
		ar := r.(*AnalyzeResult)
		out[ar.Index] = ar
	}

	// Jobs dropped by cancellation still get a result slot
	for i, doc := range docs {
		if out[i] == nil {
			err := ctx.Err()
			if err == nil {
				err = fmt.Errorf("document not processed")
			}
			out[i] = &AnalyzeResult{Index: i, Source: doc.Source, Error: err}
		}
	}

	return out
}

// ProcessFile reads a list of document paths and analyzes them
func (b *BatchProcessor) ProcessFile(ctx context.Context, listPath string) ([]*AnalyzeResult, error) {
	paths, err := ReadPathsFromFile(listPath)
	if err != nil {
		return nil, fmt.Errorf("read document list: %w", err)
	}

	docs, err := LoadDocuments(paths)
	if err != nil {
		return nil, err
	}

	return b.ProcessDocuments(ctx, docs), nil
}

// LoadDocuments reads each path. HTML files are reduced to their visible text.
func LoadDocuments(paths []string) ([]Document, error) {
	docs := make([]Document, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read document %s: %w", p, err)
		}

		text := string(data)
		ext := strings.ToLower(filepath.Ext(p))
		if ext == ".html" || ext == ".htm" || segment.LooksLikeHTML(text) {
			text, err = segment.VisibleText(text)
			if err != nil {
				return nil, fmt.Errorf("extract text from %s: %w", p, err)
			}
		}

		docs = append(docs, Document{Source: p, Text: text})
	}
	return docs, nil
}

// ReadPathsFromFile reads document paths from a file (one per line).
// Relative paths are resolved against the list file's directory.
func ReadPathsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	base := filepath.Dir(filePath)
	var paths []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !filepath.IsAbs(line) {
			line = filepath.Join(base, line)
		}

		if !seen[line] {
			seen[line] = true
			paths = append(paths, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return paths, nil
}
