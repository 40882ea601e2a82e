package session

import (
	"errors"

	"github.com/ppiankov/distortia/internal/apperr"
	"github.com/ppiankov/distortia/internal/catalog"
	"github.com/ppiankov/distortia/internal/feedback"
	"github.com/ppiankov/distortia/internal/model"
	"github.com/ppiankov/distortia/internal/reconcile"
)

// Feedback is refused with one of these
var (
	ErrNoAnalysis       = errors.New("no analysis to give feedback on")
	ErrNotInteractive   = errors.New("sentence does not accept feedback")
	ErrNotSelected      = errors.New("sentence is not selected")
	ErrAlreadySubmitted = errors.New("feedback already submitted for this sentence")
	ErrInFlight         = errors.New("feedback submission already in progress")
)

// AnalysisTicket identifies one analysis request. Results carrying an
// older ticket are dropped.
type AnalysisTicket uint64

// FeedbackTicket identifies one feedback submission
type FeedbackTicket struct {
	Generation AnalysisTicket
	Index      int
	Record     model.FeedbackRecord
}

// Machine is the interaction state of one analysis session
type Machine struct {
	generation AnalysisTicket
	view       *reconcile.View
	analyzing  bool

	hovered  int
	selected int

	submitted map[int]bool
	inFlight  map[int]bool

	err         string
	feedbackErr string
}

// NewMachine returns an idle machine with no analysis
func NewMachine() *Machine {
	m := &Machine{}
	m.reset()
	return m
}

func (m *Machine) reset() {
	m.view = nil
	m.hovered = -1
	m.selected = -1
	m.submitted = make(map[int]bool)
	m.inFlight = make(map[int]bool)
	m.err = ""
	m.feedbackErr = ""
}

// State returns the current tagged state
func (m *Machine) State() State {
	switch {
	case m.selected >= 0:
		phase := PhasePending
		if m.submitted[m.selected] {
			phase = PhaseDone
		}
		return Selected{Index: m.selected, Phase: phase}
	case m.hovered >= 0:
		return Hovering{Index: m.hovered}
	default:
		return Idle{}
	}
}

// View returns the current analysis view, nil before the first success
func (m *Machine) View() *reconcile.View {
	return m.view
}

// Analyzing reports whether an analysis is in flight
func (m *Machine) Analyzing() bool {
	return m.analyzing
}

// Error returns the analysis error slot
func (m *Machine) Error() string {
	return m.err
}

// FeedbackError returns the feedback error slot
func (m *Machine) FeedbackError() string {
	return m.feedbackErr
}

// Submitted reports whether feedback for index i was delivered
func (m *Machine) Submitted(i int) bool {
	return m.submitted[i]
}

// Panel returns the info shown in the info panel. A hovered unit wins;
// otherwise the selected unit's info stays visible.
func (m *Machine) Panel() (reconcile.Info, bool) {
	if m.hovered >= 0 {
		return m.view.Info(m.hovered)
	}
	if m.selected >= 0 {
		return m.view.Info(m.selected)
	}
	return reconcile.Info{}, false
}

// Affordance returns the feedback control for the selected unit
func (m *Machine) Affordance() Affordance {
	if m.selected < 0 {
		return AffordanceNone
	}
	switch {
	case m.submitted[m.selected]:
		return AffordanceThanks
	case m.inFlight[m.selected]:
		return AffordanceSubmitting
	default:
		return AffordanceFeedback
	}
}

// BeginAnalysis starts a new analysis. Hover, selection, submitted
// feedback and both error slots are cleared.
func (m *Machine) BeginAnalysis() AnalysisTicket {
	m.generation++
	m.reset()
	m.analyzing = true
	return m.generation
}

// AnalysisSucceeded installs view if t is current
func (m *Machine) AnalysisSucceeded(t AnalysisTicket, view *reconcile.View) bool {
	if t != m.generation {
		return false
	}
	m.analyzing = false
	m.view = view
	m.err = ""
	return true
}

// AnalysisFailed fills the analysis error slot if t is current
func (m *Machine) AnalysisFailed(t AnalysisTicket, err error) bool {
	if t != m.generation {
		return false
	}
	m.analyzing = false
	m.err = apperr.UserMessage(err)
	return true
}

// Reject records a validation error without touching the loading state
// or the current analysis
func (m *Machine) Reject(err error) {
	m.err = apperr.UserMessage(err)
}

// DismissError clears the analysis error slot
func (m *Machine) DismissError() {
	m.err = ""
}

// PointerEnter hovers unit i. Non-interactive units are ignored.
func (m *Machine) PointerEnter(i int) bool {
	if !m.view.Interactive(i) {
		return false
	}
	m.hovered = i
	return true
}

// PointerLeave clears the hover over unit i. A selection keeps the panel.
func (m *Machine) PointerLeave(i int) {
	if m.hovered == i {
		m.hovered = -1
	}
}

// Click toggles the selection of unit i. Clicking the selected unit
// deselects it and returns to Idle; clicking another unit replaces the
// selection.
func (m *Machine) Click(i int) bool {
	if !m.view.Interactive(i) {
		return false
	}
	if m.selected == i {
		m.selected = -1
		m.hovered = -1
		return true
	}
	m.selected = i
	m.hovered = -1
	return true
}

// BeginFeedback starts a submission for the selected unit i. A correction
// must be a label of cat or the sentinel. The caller delivers the returned
// record and reports back with the ticket.
func (m *Machine) BeginFeedback(i int, accepted bool, correction *model.Label, cat *catalog.Catalog) (FeedbackTicket, error) {
	if m.view == nil {
		return FeedbackTicket{}, ErrNoAnalysis
	}
	if !m.view.Interactive(i) {
		return FeedbackTicket{}, ErrNotInteractive
	}
	if m.selected != i {
		return FeedbackTicket{}, ErrNotSelected
	}
	if m.submitted[i] {
		return FeedbackTicket{}, ErrAlreadySubmitted
	}
	if m.inFlight[i] {
		return FeedbackTicket{}, ErrInFlight
	}

	c, _ := m.view.Classification(i)
	record, err := feedback.NewRecord(c, accepted, correction, cat)
	if err != nil {
		return FeedbackTicket{}, err
	}

	m.inFlight[i] = true
	m.feedbackErr = ""
	return FeedbackTicket{Generation: m.generation, Index: i, Record: record}, nil
}

// FeedbackSucceeded marks the ticket's index as submitted, even when the
// selection moved on meanwhile. Tickets from an earlier analysis are
// dropped.
func (m *Machine) FeedbackSucceeded(t FeedbackTicket) bool {
	if t.Generation != m.generation {
		return false
	}
	delete(m.inFlight, t.Index)
	m.submitted[t.Index] = true
	return true
}

// FeedbackFailed fills the feedback error slot. Selection, hover and the
// submitted set are left alone so the user can retry.
func (m *Machine) FeedbackFailed(t FeedbackTicket, err error) bool {
	if t.Generation != m.generation {
		return false
	}
	delete(m.inFlight, t.Index)
	m.feedbackErr = apperr.UserMessage(err)
	return true
}
