package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/distortia/internal/model"
	"github.com/ppiankov/distortia/internal/segment"
)

var (
	outJSON    string
	outMD      string
	inputFile  string
	inputURL   string
	mode       string
	timeout    time.Duration
	noCache    bool
	noDisclaim bool
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze [text]",
	Short: "Classify every sentence of a text for cognitive distortions",
	Long: `Analyze splits the text into sentences and sends them to the classifier
in one request. Each sentence gets a predicted distortion (or "No Distortion")
and a confidence.

Text is taken from the argument, --file, --url, or stdin.

Example:
  distortia analyze "I always fail. Nobody cares about me."
  distortia analyze --file journal.txt --md report.md
  echo "I should be perfect." | distortia analyze --json report.json
  distortia analyze --url https://example.com/post --mode single`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	// Input flags
	analyzeCmd.Flags().StringVarP(&inputFile, "file", "f", "", "read text from file (HTML is reduced to visible text)")
	analyzeCmd.Flags().StringVar(&inputURL, "url", "", "fetch a web page and analyze its visible text")
	analyzeCmd.Flags().StringVar(&mode, "mode", "", "classification mode: batch (per sentence) or single (whole text)")

	// Output flags
	analyzeCmd.Flags().StringVar(&outJSON, "json", "", "output JSON path (optional)")
	analyzeCmd.Flags().StringVar(&outMD, "md", "", "output Markdown path (optional)")
	analyzeCmd.Flags().BoolVar(&noDisclaim, "no-disclaimer", false, "omit the accuracy disclaimer from reports")

	// Classifier flags
	analyzeCmd.Flags().DurationVar(&timeout, "timeout", 60*time.Second, "overall analysis timeout")
	analyzeCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable classification cache")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.Cache.Enabled = cfg.Cache.Enabled && !noCache
	cfg.Output.Disclaimer = cfg.Output.Disclaimer && !noDisclaim
	if mode != "" {
		m := model.Mode(mode)
		if m != model.ModeBatch && m != model.ModeSingle {
			return fmt.Errorf("invalid mode %q (want batch or single)", mode)
		}
		cfg.Classifier.Mode = m
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	var result *model.AnalysisResult
	if inputURL != "" {
		if cfg.Output.Verbose {
			fmt.Fprintf(os.Stderr, "⚙️  Fetching %s...\n", inputURL)
		}
		result, err = a.pipeline.AnalyzeURL(ctx, inputURL)
	} else {
		var text string
		text, err = readInput(args, inputFile, cmd.InOrStdin())
		if err != nil {
			return err
		}
		result, err = a.pipeline.Analyze(ctx, text)
	}
	if err != nil {
		return err
	}

	if cfg.Output.Verbose {
		fmt.Fprintf(os.Stderr, "✓ Classified %d sentence(s) with %s\n", result.Len(), result.Provider)
	}

	return a.pipeline.RenderReport(a.pipeline.Reconcile(result), outJSON, outMD, cfg.Output.Verbose)
}

// readInput takes text from the argument, a file, or stdin in that order
func readInput(args []string, file string, stdin io.Reader) (string, error) {
	if len(args) > 0 && args[0] != "-" {
		return args[0], nil
	}

	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read input: %w", err)
		}
		text := string(data)
		if strings.HasSuffix(strings.ToLower(file), ".html") || segment.LooksLikeHTML(text) {
			return segment.VisibleText(text)
		}
		return text, nil
	}

	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(data), nil
}
