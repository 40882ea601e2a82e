package pipeline

import (
	"sort"
	"time"

	"github.com/ppiankov/distortia/internal/model"
	"github.com/ppiankov/distortia/internal/reconcile"
)

// Disclaimer is attached to every report
const Disclaimer = "Note: This model has ~34% accuracy and is for learning purposes only. " +
	"Predictions should not be taken as psychological advice."

// Report is the serializable result of one analysis
type Report struct {
	ID          string               `json:"id,omitempty"`
	Source      string               `json:"source,omitempty"`
	Mode        model.Mode           `json:"mode"`
	Render      reconcile.RenderMode `json:"render"`
	Text        string               `json:"text"`
	Sentences   []reconcile.Unit     `json:"sentences"`
	Conflicts   []reconcile.Conflict `json:"conflicts,omitempty"`
	Counts      []LabelCount         `json:"counts"`
	Disclaimer  string               `json:"disclaimer,omitempty"`
	GeneratedAt time.Time            `json:"generated_at"`
}

// LabelCount is how often one label was predicted
type LabelCount struct {
	Label model.Label `json:"label"`
	Count int         `json:"count"`
}

// BuildReport converts a view into a report
func BuildReport(view *reconcile.View, withDisclaimer bool) *Report {
	r := &Report{
		ID:          view.ID,
		Mode:        view.Source,
		Render:      view.Mode,
		Text:        view.Text,
		Sentences:   view.Units,
		Conflicts:   view.Conflicts,
		Counts:      countLabels(view.Units),
		GeneratedAt: time.Now().UTC(),
	}
	if withDisclaimer {
		r.Disclaimer = Disclaimer
	}
	return r
}

// Flagged returns how many sentences carry a distortion label
func (r *Report) Flagged() int {
	n := 0
	for _, u := range r.Sentences {
		if !u.Label.IsSentinel() {
			n++
		}
	}
	return n
}

// countLabels orders by count, then by first appearance
func countLabels(units []reconcile.Unit) []LabelCount {
	index := make(map[model.Label]int)
	var counts []LabelCount
	for _, u := range units {
		if i, ok := index[u.Label]; ok {
			counts[i].Count++
			continue
		}
		index[u.Label] = len(counts)
		counts = append(counts, LabelCount{Label: u.Label, Count: 1})
	}

	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].Count > counts[j].Count
	})
	return counts
}
