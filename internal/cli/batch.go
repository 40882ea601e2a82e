package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/distortia/internal/pipeline"
	"github.com/ppiankov/distortia/internal/worker"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Analyze many documents from a list file in parallel",
	Long: `Batch analyzes multiple documents concurrently:
- Read document paths from the list file (one per line, # for comments)
- Reduce HTML documents to their visible text
- Analyze documents in parallel with a bounded worker pool
- Each document is one classifier request
- Write a JSON and Markdown report for each document

Example:
  distortia batch journals.txt
  distortia batch journals.txt --concurrency 8 --output-dir ./reports
  distortia batch journals.txt --timeout 5m`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", runtime.NumCPU(), "number of concurrent workers")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./distortia-reports", "output directory for reports")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")
	batchCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable classification cache")
	batchCmd.Flags().BoolVar(&noDisclaim, "no-disclaimer", false, "omit the accuracy disclaimer from reports")
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.Cache.Enabled = cfg.Cache.Enabled && !noCache
	cfg.Output.Disclaimer = cfg.Output.Disclaimer && !noDisclaim
	if cmd.Flags().Changed("concurrency") || cfg.Concurrency.Workers <= 0 {
		cfg.Concurrency.Workers = concurrency
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Distortia Batch Processing\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", cfg.Concurrency.Workers)
	fmt.Fprintf(os.Stderr, "  Classifier:   %s %s\n", cfg.Classifier.Provider, cfg.Classifier.BaseURL)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)
	fmt.Fprintf(os.Stderr, "\n")

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	processor := worker.NewBatchProcessor(a.pipeline, cfg.Concurrency.Workers)

	fmt.Fprintf(os.Stderr, "⚙️  Analyzing documents with %d workers...\n\n", cfg.Concurrency.Workers)
	results, err := processor.ProcessFile(ctx, file)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	renderer := pipeline.NewRenderer(cfg.Output.Disclaimer)
	successCount := 0
	failureCount := 0
	flagged := 0

	for _, result := range results {
		if result.Error != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: %s\n", result.Source, errorMessage(result.Error))
			continue
		}

		report := pipeline.BuildReport(a.pipeline.Reconcile(result.Result), cfg.Output.Disclaimer)
		report.Source = result.Source

		base := fmt.Sprintf("%03d-%s", result.Index+1, sanitizeFilename(result.Source))
		jsonPath := filepath.Join(outputDir, base+".json")
		mdPath := filepath.Join(outputDir, base+".md")

		if err := renderer.RenderJSON(report, jsonPath); err != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: failed to write JSON: %v\n", result.Source, err)
			continue
		}
		if err := renderer.RenderMarkdown(report, mdPath); err != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: failed to write Markdown: %v\n", result.Source, err)
			continue
		}

		successCount++
		flagged += report.Flagged()
		fmt.Fprintf(os.Stderr, "✓ %s (%d/%d sentences flagged)\n", result.Source, report.Flagged(), len(report.Sentences))
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d documents\n", len(results))
	fmt.Fprintf(os.Stderr, "  Success:   %d\n", successCount)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", failureCount)
	fmt.Fprintf(os.Stderr, "  Flagged:   %d sentences\n", flagged)
	fmt.Fprintf(os.Stderr, "  Output:    %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "\n")

	if failureCount > 0 && successCount == 0 {
		return fmt.Errorf("all %d documents failed", failureCount)
	}
	return nil
}

var filenameReplacer = strings.NewReplacer(
	"/", "_",
	"\\", "_",
	":", "_",
	"*", "_",
	"?", "_",
	"\"", "_",
	"<", "_",
	">", "_",
	"|", "_",
	" ", "-",
)

// sanitizeFilename turns a document path into a safe report name
func sanitizeFilename(s string) string {
	s = filepath.Base(s)
	s = strings.TrimSuffix(s, filepath.Ext(s))
	s = filenameReplacer.Replace(s)

	if s == "" || s == "." {
		s = "document"
	}

	// Limit length
	if len(s) > 100 {
		s = s[:100]
	}

	return s
}
