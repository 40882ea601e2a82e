// Package catalog holds the read-only distortion label metadata: one
// definition and one display color per label, plus the "No Distortion"
// sentinel which has neither color nor highlighting.
//
// A Catalog is immutable after construction. Accessors return copies, so
// callers cannot mutate the process-wide table.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"sync"

	"github.com/ppiankov/distortia/internal/model"
	"gopkg.in/yaml.v3"
)

//go:embed labels.yaml
var embeddedLabels []byte

// Entry describes one label
type Entry struct {
	Label      model.Label `yaml:"label" json:"label"`
	Definition string      `yaml:"definition" json:"definition"`
	Color      string      `yaml:"color,omitempty" json:"color,omitempty"` // Opaque style token, empty for the sentinel
}

type document struct {
	Version  int     `yaml:"version"`
	Labels   []Entry `yaml:"labels"`
	Sentinel Entry   `yaml:"sentinel"`
}

// Catalog is an immutable label lookup table
type Catalog struct {
	version  int
	entries  []Entry
	index    map[model.Label]int
	sentinel Entry
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the embedded catalog, parsed once per process
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := Parse(embeddedLabels)
		if err != nil {
			panic(fmt.Sprintf("embedded label catalog is invalid: %v", err))
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// Load returns the catalog at path, or the embedded one when path is empty
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Parse builds a catalog from YAML
func Parse(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	if doc.Sentinel.Label == "" {
		doc.Sentinel.Label = model.NoDistortion
	}
	if doc.Sentinel.Label != model.NoDistortion {
		return nil, fmt.Errorf("sentinel must be %q, got %q", model.NoDistortion, doc.Sentinel.Label)
	}
	if doc.Sentinel.Color != "" {
		return nil, fmt.Errorf("sentinel must not have a color")
	}
	if len(doc.Labels) == 0 {
		return nil, fmt.Errorf("catalog has no labels")
	}

	c := &Catalog{
		version:  doc.Version,
		entries:  make([]Entry, 0, len(doc.Labels)),
		index:    make(map[model.Label]int, len(doc.Labels)),
		sentinel: doc.Sentinel,
	}

	for _, e := range doc.Labels {
		switch {
		case e.Label == "":
			return nil, fmt.Errorf("label %d has no name", len(c.entries))
		case e.Label == model.NoDistortion:
			return nil, fmt.Errorf("sentinel %q listed as a label", e.Label)
		case e.Definition == "":
			return nil, fmt.Errorf("label %q has no definition", e.Label)
		case e.Color == "":
			return nil, fmt.Errorf("label %q has no color", e.Label)
		}
		if _, dup := c.index[e.Label]; dup {
			return nil, fmt.Errorf("duplicate label %q", e.Label)
		}
		c.index[e.Label] = len(c.entries)
		c.entries = append(c.entries, e)
	}

	return c, nil
}

// Version returns the catalog version
func (c *Catalog) Version() int {
	return c.version
}

// Lookup returns the entry for a non-sentinel label
func (c *Catalog) Lookup(label model.Label) (Entry, bool) {
	i, ok := c.index[label]
	if !ok {
		return Entry{}, false
	}
	return c.entries[i], true
}

// Sentinel returns the "No Distortion" entry
func (c *Catalog) Sentinel() Entry {
	return c.sentinel
}

// Definition returns the definition of label, or "" when unknown
func (c *Catalog) Definition(label model.Label) string {
	e, _ := c.Lookup(label)
	return e.Definition
}

// Color returns the color token of label, or "" when unknown or sentinel
func (c *Catalog) Color(label model.Label) string {
	e, _ := c.Lookup(label)
	return e.Color
}

// Entries returns the labels in display order
func (c *Catalog) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Labels returns the label names in display order
func (c *Catalog) Labels() []model.Label {
	out := make([]model.Label, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.Label
	}
	return out
}

// CorrectionOptions returns every value a reader may pick as a correction:
// all labels followed by the sentinel
func (c *Catalog) CorrectionOptions() []model.Label {
	return append(c.Labels(), c.sentinel.Label)
}

// IsValidCorrection reports whether label may be used as a user correction
func (c *Catalog) IsValidCorrection(label model.Label) bool {
	if label == c.sentinel.Label {
		return true
	}
	_, ok := c.index[label]
	return ok
}
