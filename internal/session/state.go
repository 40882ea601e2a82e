// Package session holds the per-analysis interaction state: hover,
// selection, submitted feedback and the two error slots.
//
// The Machine is not safe for concurrent use. Callers that deliver events
// from several goroutines go through a Loop, which applies them one at a
// time.
package session

import "fmt"

// Phase is the feedback sub-state of a selected unit
type Phase int

const (
	// PhasePending shows the accept/correct affordance
	PhasePending Phase = iota
	// PhaseDone shows the acknowledgement, terminal for the index
	PhaseDone
)

func (p Phase) String() string {
	if p == PhaseDone {
		return "done"
	}
	return "pending"
}

// State is the tagged interaction state: Idle, Hovering or Selected
type State interface {
	isState()
	String() string
}

// Idle has no hover and no selection
type Idle struct{}

// Hovering has the pointer over Index and nothing selected
type Hovering struct {
	Index int
}

// Selected has Index selected. Selection takes precedence over hover.
type Selected struct {
	Index int
	Phase Phase
}

func (Idle) isState()     {}
func (Hovering) isState() {}
func (Selected) isState() {}

func (Idle) String() string       { return "idle" }
func (s Hovering) String() string { return fmt.Sprintf("hovering(%d)", s.Index) }
func (s Selected) String() string { return fmt.Sprintf("selected(%d, %s)", s.Index, s.Phase) }

// Affordance is the feedback control shown for the current state
type Affordance int

const (
	// AffordanceNone shows no feedback controls
	AffordanceNone Affordance = iota
	// AffordanceFeedback shows accept and correct controls
	AffordanceFeedback
	// AffordanceSubmitting shows that a submission is in flight
	AffordanceSubmitting
	// AffordanceThanks shows the acknowledgement
	AffordanceThanks
)

func (a Affordance) String() string {
	switch a {
	case AffordanceFeedback:
		return "feedback"
	case AffordanceSubmitting:
		return "submitting"
	case AffordanceThanks:
		return "thanks"
	default:
		return "none"
	}
}
