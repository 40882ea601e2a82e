package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/distortia/internal/catalog"
	"github.com/ppiankov/distortia/internal/feedback"
	"github.com/ppiankov/distortia/internal/model"
	"github.com/ppiankov/distortia/internal/pipeline"
	"github.com/ppiankov/distortia/internal/reconcile"
	"github.com/ppiankov/distortia/internal/session"
	"github.com/ppiankov/distortia/internal/tui"
)

var (
	plainReview bool
	localReview bool
)

// reviewCmd represents the review command
var reviewCmd = &cobra.Command{
	Use:   "review [text]",
	Short: "Interactively review predictions and send feedback",
	Long: `Review analyzes text and lets you walk through the flagged sentences.
Select a sentence to see its definition, then accept the prediction or
correct it. Feedback goes to the configured feedback endpoint, or with
--local straight into the local collector database (see 'feedback list').

--plain reads commands line by line instead of opening the terminal UI:
  <text>            analyze text
  /select N         select (or deselect) sentence N
  /accept           accept the prediction of the selected sentence
  /correct LABEL    correct the selected sentence
  /labels           list correction labels
  /quit             exit

Example:
  distortia review
  distortia review "I always ruin everything."
  distortia review --plain < session.txt`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReview,
}

func init() {
	rootCmd.AddCommand(reviewCmd)
	reviewCmd.Flags().BoolVar(&plainReview, "plain", false, "line-oriented review without the terminal UI")
	reviewCmd.Flags().BoolVar(&localReview, "local", false, "store feedback in the local collector database")
}

func runReview(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	text := ""
	if len(args) > 0 {
		text = args[0]
	}

	var sender session.Sender = a.sender
	if localReview {
		store, err := feedback.OpenStore(cfg.Store.Path, a.logger)
		if err != nil {
			return fmt.Errorf("open feedback store: %w", err)
		}
		defer func() { _ = store.Close() }()
		sender = store
	}

	if !plainReview {
		return tui.Run(cmd.Context(), a.pipeline, sender, a.catalog, text)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	loop := session.NewLoop(session.NewMachine())
	go loop.Run(ctx)
	ctrl := session.NewController(loop, a.pipeline, sender, a.catalog)

	in := io.Reader(cmd.InOrStdin())
	if text != "" {
		in = io.MultiReader(strings.NewReader(text+"\n"), in)
	}
	return plainSession(ctx, ctrl, a.catalog, in, cmd.OutOrStdout(), cfg.Output.Disclaimer)
}

// plainSession drives a controller from line commands and prints the
// resulting state after each one
func plainSession(ctx context.Context, ctrl *session.Controller, cat *catalog.Catalog, in io.Reader, out io.Writer, disclaimer bool) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		cmd, arg, _ := strings.Cut(line, " ")
		arg = strings.TrimSpace(arg)

		var err error
		switch {
		case !strings.HasPrefix(line, "/"):
			err = ctrl.Analyze(ctx, line)
		case cmd == "/quit" || cmd == "/q":
			return nil
		case cmd == "/labels":
			for _, l := range cat.CorrectionOptions() {
				fmt.Fprintf(out, "  %s\n", l)
			}
			continue
		case cmd == "/select":
			n, convErr := strconv.Atoi(arg)
			if convErr != nil {
				fmt.Fprintf(out, "✗ /select needs a sentence number\n")
				continue
			}
			err = ctrl.Click(ctx, n-1)
		case cmd == "/accept" || cmd == "/correct":
			err = feedbackCommand(ctx, ctrl, cmd, arg)
		default:
			fmt.Fprintf(out, "✗ unknown command %s\n", cmd)
			continue
		}

		ctrl.Wait()
		// Analysis errors land in the snapshot's error slot
		if err != nil && strings.HasPrefix(line, "/") && !errors.Is(err, context.Canceled) {
			fmt.Fprintf(out, "✗ %s\n", errorMessage(err))
		}

		snap, snapErr := ctrl.Snapshot(ctx)
		if snapErr != nil {
			return snapErr
		}
		printSnapshot(out, snap, disclaimer)
	}

	return scanner.Err()
}

func feedbackCommand(ctx context.Context, ctrl *session.Controller, cmd, arg string) error {
	snap, err := ctrl.Snapshot(ctx)
	if err != nil {
		return err
	}
	sel, ok := snap.State.(session.Selected)
	if !ok {
		return session.ErrNotSelected
	}

	if cmd == "/accept" {
		return ctrl.Accept(ctx, sel.Index)
	}
	if arg == "" {
		return fmt.Errorf("/correct needs a label (see /labels)")
	}
	return ctrl.Correct(ctx, sel.Index, model.Label(arg))
}

func printSnapshot(out io.Writer, snap session.Snapshot, disclaimer bool) {
	if snap.Error != "" {
		fmt.Fprintf(out, "✗ %s\n", snap.Error)
	}
	if snap.View == nil {
		return
	}

	selected := -1
	if sel, ok := snap.State.(session.Selected); ok {
		selected = sel.Index
	}

	fmt.Fprintln(out)
	if snap.View.Mode == reconcile.RenderPlain {
		fmt.Fprintf(out, "  %s\n  ✓ No cognitive distortions detected\n", snap.View.Text)
	} else {
		for _, u := range snap.View.Units {
			marker := " "
			switch {
			case u.Index == selected:
				marker = ">"
			case u.Interactive:
				marker = "•"
			}
			fmt.Fprintf(out, "%s [%d] %s\n", marker, u.Index+1, u.Input)
		}
	}

	if snap.Panel != nil {
		fmt.Fprintf(out, "\n  %s (%.1f%%)\n", snap.Panel.Label, snap.Panel.Confidence*100)
		if snap.Panel.Definition != "" {
			fmt.Fprintf(out, "  %s\n", snap.Panel.Definition)
		}
	}

	switch snap.Affordance {
	case session.AffordanceFeedback:
		fmt.Fprintln(out, "  /accept or /correct LABEL")
	case session.AffordanceSubmitting:
		fmt.Fprintln(out, "  Submitting feedback...")
	case session.AffordanceThanks:
		fmt.Fprintln(out, "  Thanks for your feedback!")
	}
	if snap.FeedbackError != "" {
		fmt.Fprintf(out, "  ✗ %s\n", snap.FeedbackError)
	}

	if disclaimer {
		fmt.Fprintf(out, "\n  %s\n", pipeline.Disclaimer)
	}
	fmt.Fprintln(out)
}
