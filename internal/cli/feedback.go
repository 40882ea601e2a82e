package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ppiankov/distortia/internal/feedback"
	"github.com/ppiankov/distortia/internal/model"
)

var (
	feedbackLimit int
	exportOut     string
	markUsed      bool
)

// feedbackCmd represents the feedback command
var feedbackCmd = &cobra.Command{
	Use:   "feedback",
	Short: "Inspect and export collected feedback",
	Long: `Inspect the feedback stored by 'distortia serve --collector' and export
user corrections for retraining the classifier.`,
}

var feedbackListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored feedback, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(store *feedback.Store) error {
			records, err := store.List(cmd.Context(), feedbackLimit)
			if err != nil {
				return err
			}
			stats, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}
			writeFeedbackTable(cmd.OutOrStdout(), records)
			fmt.Fprintf(cmd.OutOrStdout(), "\n%d total, %d accepted, %d corrected, %d pending training\n",
				stats.Total, stats.Accepted, stats.Corrected, stats.Pending)
			return nil
		})
	},
}

var feedbackExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export corrections not yet used in training",
	Long: `Export writes (text, label) pairs for every correction that has not been
used in training yet, as a JSON array. With --mark-used the exported rows
are flagged so the next export skips them.

Example:
  distortia feedback export --out corrections.json --mark-used`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(store *feedback.Store) error {
			records, err := store.TrainingFeedback(cmd.Context())
			if err != nil {
				return err
			}

			data, err := json.MarshalIndent(feedback.TrainingPairs(records), "", "  ")
			if err != nil {
				return fmt.Errorf("marshal training pairs: %w", err)
			}
			data = append(data, '\n')

			if exportOut == "" || exportOut == "-" {
				_, err = cmd.OutOrStdout().Write(data)
			} else {
				err = os.WriteFile(exportOut, data, 0644)
			}
			if err != nil {
				return fmt.Errorf("write export: %w", err)
			}
			fmt.Fprintf(os.Stderr, "✓ Exported %d correction(s)\n", len(records))

			if !markUsed || len(records) == 0 {
				return nil
			}
			ids := make([]int64, len(records))
			for i, r := range records {
				ids[i] = r.ID
			}
			if err := store.MarkUsed(cmd.Context(), ids); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "✓ Marked %d correction(s) as used in training\n", len(ids))
			return nil
		})
	},
}

func withStore(fn func(*feedback.Store) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(model.LogConfig{Level: "warn", Format: cfg.Log.Format})
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	store, err := feedback.OpenStore(cfg.Store.Path, logger)
	if err != nil {
		return fmt.Errorf("open feedback store: %w", err)
	}
	defer func() { _ = store.Close() }()

	return fn(store)
}

func writeFeedbackTable(out io.Writer, records []model.StoredFeedback) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tPREDICTED\tVERDICT\tCONF\tTEXT")
	for _, r := range records {
		verdict := "accepted"
		if r.UserCorrection != nil {
			verdict = "→ " + string(*r.UserCorrection)
		}
		if r.UsedInTraining {
			verdict += " (trained)"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%.3f\t%s\n",
			r.ID, r.CreatedAt.Format("2006-01-02 15:04"), r.PredictedDistortion, verdict, r.Confidence, truncate(r.Text, 60))
	}
	_ = w.Flush()
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}

func init() {
	rootCmd.AddCommand(feedbackCmd)
	feedbackCmd.AddCommand(feedbackListCmd)
	feedbackCmd.AddCommand(feedbackExportCmd)

	feedbackListCmd.Flags().IntVar(&feedbackLimit, "limit", 50, "maximum records to list (0 for all)")
	feedbackExportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (default stdout)")
	feedbackExportCmd.Flags().BoolVar(&markUsed, "mark-used", false, "mark exported corrections as used in training")
}
