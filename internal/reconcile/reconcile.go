// Package reconcile joins classifier output with label metadata and decides
// how an analysis is rendered. Units are identified by index only; sentence
// text is never used as a lookup key because sentences may repeat.
package reconcile

import (
	"github.com/ppiankov/distortia/internal/catalog"
	"github.com/ppiankov/distortia/internal/model"
	"github.com/ppiankov/distortia/internal/segment"
)

// RenderMode selects how an analysis is displayed
type RenderMode string

const (
	// RenderPlain shows the original text unstyled (nothing was flagged)
	RenderPlain RenderMode = "plain"
	// RenderHighlighted shows every sentence as its own unit
	RenderHighlighted RenderMode = "highlighted"
)

// Unit is one classified sentence ready for display
type Unit struct {
	Index       int         `json:"index"`
	Input       string      `json:"input"`
	Label       model.Label `json:"label"`
	Confidence  float64     `json:"confidence"`
	Color       string      `json:"color,omitempty"`
	Definition  string      `json:"definition,omitempty"`
	Known       bool        `json:"known"`       // Label exists in the catalog (the sentinel counts as known)
	Interactive bool        `json:"interactive"` // Can be hovered, selected and given feedback
}

// Info is what the info panel shows for one unit
type Info struct {
	Index      int         `json:"index"`
	Label      model.Label `json:"label"`
	Confidence float64     `json:"confidence"`
	Definition string      `json:"definition,omitempty"`
}

// Conflict reports identical sentences that received different labels
type Conflict struct {
	Input   string        `json:"input"`
	Indices []int         `json:"indices"`
	Labels  []model.Label `json:"labels"`
}

// View is the reconciled, render-ready form of an analysis
type View struct {
	ID        string     `json:"id,omitempty"`
	Mode      RenderMode `json:"render"`
	Text      string     `json:"text"`
	Units     []Unit     `json:"units"`
	Conflicts []Conflict `json:"conflicts,omitempty"`
	Source    model.Mode `json:"mode"`
}

// Reconcile builds the view of result. Unknown labels still render, with
// no color and no definition.
func Reconcile(result *model.AnalysisResult, cat *catalog.Catalog) *View {
	if cat == nil {
		cat = catalog.Default()
	}

	if result == nil {
		return &View{Mode: RenderPlain, Units: []Unit{}}
	}

	v := &View{
		Mode:  RenderHighlighted,
		Units: make([]Unit, 0, len(result.Classifications)),
	}

	v.ID = result.ID
	v.Text = result.Text
	v.Source = result.Mode

	for i, c := range result.Classifications {
		u := Unit{
			Index:      i,
			Input:      c.Input,
			Label:      c.Prediction,
			Confidence: c.Confidence,
		}

		if c.Prediction.IsSentinel() {
			u.Definition = cat.Sentinel().Definition
			u.Known = true
		} else {
			u.Interactive = true
			if e, ok := cat.Lookup(c.Prediction); ok {
				u.Color = e.Color
				u.Definition = e.Definition
				u.Known = true
			}
		}

		v.Units = append(v.Units, u)
	}

	if result.AllSentinel() {
		v.Mode = RenderPlain
	}
	if v.Text == "" {
		v.Text = segment.Join(inputs(v.Units))
	}

	v.Conflicts = findConflicts(v.Units)
	return v
}

// Len returns the number of units
func (v *View) Len() int {
	if v == nil {
		return 0
	}
	return len(v.Units)
}

// Unit returns the unit at index i
func (v *View) Unit(i int) (Unit, bool) {
	if v == nil || i < 0 || i >= len(v.Units) {
		return Unit{}, false
	}
	return v.Units[i], true
}

// Interactive reports whether unit i accepts hover, selection and feedback
func (v *View) Interactive(i int) bool {
	u, ok := v.Unit(i)
	return ok && u.Interactive && v.Mode == RenderHighlighted
}

// Info returns the info panel contents for unit i
func (v *View) Info(i int) (Info, bool) {
	u, ok := v.Unit(i)
	if !ok {
		return Info{}, false
	}
	return Info{
		Index:      u.Index,
		Label:      u.Label,
		Confidence: u.Confidence,
		Definition: u.Definition,
	}, true
}

// Classification returns the classification behind unit i
func (v *View) Classification(i int) (model.Classification, bool) {
	u, ok := v.Unit(i)
	if !ok {
		return model.Classification{}, false
	}
	return model.Classification{Input: u.Input, Prediction: u.Label, Confidence: u.Confidence}, true
}

// Flagged returns the interactive units
func (v *View) Flagged() []Unit {
	var out []Unit
	for _, u := range v.Units {
		if v.Interactive(u.Index) {
			out = append(out, u)
		}
	}
	return out
}

func findConflicts(units []Unit) []Conflict {
	byText := make(map[string][]int)
	var order []string
	for _, u := range units {
		if _, seen := byText[u.Input]; !seen {
			order = append(order, u.Input)
		}
		byText[u.Input] = append(byText[u.Input], u.Index)
	}

	var conflicts []Conflict
	for _, text := range order {
		indices := byText[text]
		if len(indices) < 2 {
			continue
		}

		var labels []model.Label
		distinct := make(map[model.Label]bool)
		for _, i := range indices {
			l := units[i].Label
			if !distinct[l] {
				distinct[l] = true
				labels = append(labels, l)
			}
		}
		if len(labels) > 1 {
			conflicts = append(conflicts, Conflict{Input: text, Indices: indices, Labels: labels})
		}
	}
	return conflicts
}

func inputs(units []Unit) []string {
	out := make([]string, len(units))
	for i, u := range units {
		out[i] = u.Input
	}
	return out
}
