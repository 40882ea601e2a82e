package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ppiankov/distortia/internal/reconcile"
)

// Renderer writes reports as JSON, Markdown and a terminal summary
type Renderer struct {
	disclaimer bool
	out        io.Writer
}

// NewRenderer creates a renderer printing summaries to stdout
func NewRenderer(disclaimer bool) *Renderer {
	return &Renderer{disclaimer: disclaimer, out: os.Stdout}
}

// SetOutput redirects the terminal summary
func (r *Renderer) SetOutput(w io.Writer) {
	r.out = w
}

// RenderJSON writes report to path as indented JSON
func (r *Renderer) RenderJSON(report *Report, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}

// RenderMarkdown writes report to path as Markdown
func (r *Renderer) RenderMarkdown(report *Report, path string) error {
	return os.WriteFile(path, []byte(Markdown(report)), 0644)
}

// Markdown formats report as a Markdown document
func Markdown(report *Report) string {
	var b strings.Builder

	b.WriteString("# Cognitive Distortion Analysis\n\n")
	if report.ID != "" {
		fmt.Fprintf(&b, "- **Analysis:** `%s`\n", report.ID)
	}
	if report.Source != "" {
		fmt.Fprintf(&b, "- **Source:** %s\n", report.Source)
	}
	fmt.Fprintf(&b, "- **Generated:** %s\n", report.GeneratedAt.Format("2006-01-02 15:04:05 UTC"))
	fmt.Fprintf(&b, "- **Sentences:** %d (%d flagged)\n\n", len(report.Sentences), report.Flagged())

	if report.Render == reconcile.RenderPlain {
		b.WriteString("No cognitive distortions detected.\n\n")
		fmt.Fprintf(&b, "> %s\n\n", report.Text)
	} else {
		b.WriteString("## Sentences\n\n")
		b.WriteString("| # | Sentence | Prediction | Confidence |\n")
		b.WriteString("|---|----------|------------|------------|\n")
		for _, u := range report.Sentences {
			fmt.Fprintf(&b, "| %d | %s | %s | %.1f%% |\n",
				u.Index+1, escapeCell(u.Input), escapeCell(string(u.Label)), u.Confidence*100)
		}
		b.WriteString("\n")

		var defs []string
		seen := make(map[string]bool)
		for _, u := range report.Sentences {
			if u.Definition == "" || u.Label.IsSentinel() || seen[string(u.Label)] {
				continue
			}
			seen[string(u.Label)] = true
			defs = append(defs, fmt.Sprintf("- **%s**: %s", u.Label, u.Definition))
		}
		if len(defs) > 0 {
			b.WriteString("## Definitions\n\n")
			b.WriteString(strings.Join(defs, "\n"))
			b.WriteString("\n\n")
		}
	}

	if len(report.Conflicts) > 0 {
		b.WriteString("## Repeated Sentences\n\n")
		for _, c := range report.Conflicts {
			fmt.Fprintf(&b, "- \"%s\" at positions %s was labeled %s\n",
				c.Input, joinInts(c.Indices), joinLabels(c))
		}
		b.WriteString("\n")
	}

	if report.Disclaimer != "" {
		fmt.Fprintf(&b, "---\n\n_%s_\n", report.Disclaimer)
	}

	return b.String()
}

// RenderSummary prints a short summary of report
func (r *Renderer) RenderSummary(report *Report) {
	fmt.Fprintf(r.out, "\n📄 Analysis %s\n", report.ID)
	fmt.Fprintf(r.out, "   Sentences: %d  Flagged: %d\n", len(report.Sentences), report.Flagged())

	if report.Render == reconcile.RenderPlain {
		fmt.Fprintln(r.out, "   ✓ No cognitive distortions detected")
	} else {
		for _, u := range report.Sentences {
			marker := " "
			if !u.Label.IsSentinel() {
				marker = "•"
			}
			fmt.Fprintf(r.out, "   %s [%d] %s\n", marker, u.Index+1, u.Input)
			if !u.Label.IsSentinel() {
				fmt.Fprintf(r.out, "         → %s (%.1f%%)\n", u.Label, u.Confidence*100)
			}
		}
	}

	for _, c := range report.Conflicts {
		fmt.Fprintf(r.out, "   ⚠ \"%s\" repeated with different labels: %s\n", c.Input, joinLabels(c))
	}

	if report.Disclaimer != "" {
		fmt.Fprintf(r.out, "\n   ⚠️  %s\n", report.Disclaimer)
	}
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}

func joinInts(xs []int) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = fmt.Sprintf("%d", x+1)
	}
	return strings.Join(parts, ", ")
}

func joinLabels(c reconcile.Conflict) string {
	parts := make([]string, len(c.Labels))
	for i, l := range c.Labels {
		parts[i] = string(l)
	}
	return strings.Join(parts, ", ")
}
