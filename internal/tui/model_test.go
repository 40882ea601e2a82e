package tui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ppiankov/distortia/internal/apperr"
	"github.com/ppiankov/distortia/internal/model"
	"github.com/ppiankov/distortia/internal/segment"
	"github.com/ppiankov/distortia/internal/session"
)

// fakeAnalyzer flags sentences containing "ever" as Overgeneralization
type fakeAnalyzer struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeAnalyzer) Validate(text string) error {
	if strings.TrimSpace(text) == "" {
		return apperr.Validation("Please enter some text to analyze.")
	}
	return nil
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, text string) (*model.AnalysisResult, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}

	result := &model.AnalysisResult{ID: "test", Text: text, Mode: model.ModeBatch}
	for _, s := range segment.Split(text) {
		c := model.Classification{Input: s, Prediction: model.NoDistortion, Confidence: 0.9}
		if strings.Contains(s, "ever") {
			c.Prediction = "Overgeneralization"
			c.Confidence = 0.734
		}
		result.Classifications = append(result.Classifications, c)
	}
	return result, nil
}

type fakeSender struct {
	records []model.FeedbackRecord
	err     error
}

func (s *fakeSender) Send(ctx context.Context, record model.FeedbackRecord) error {
	if s.err != nil {
		return s.err
	}
	s.records = append(s.records, record)
	return nil
}

var (
	keyAnalyze = tea.KeyMsg{Type: tea.KeyCtrlS}
	keyEnter   = tea.KeyMsg{Type: tea.KeyEnter}
	keyRight   = tea.KeyMsg{Type: tea.KeyRight}
	keyDown    = tea.KeyMsg{Type: tea.KeyDown}
	keyEsc     = tea.KeyMsg{Type: tea.KeyEsc}
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

// collect runs cmd and flattens batches, skipping spinner ticks
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, collect(c)...)
		}
		return out
	}
	switch msg.(type) {
	case analysisDoneMsg, feedbackDoneMsg:
		return []tea.Msg{msg}
	}
	return nil
}

// settle feeds every result message produced by cmd back into m
func settle(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	for _, msg := range collect(cmd) {
		var next tea.Cmd
		m, next = update(t, m, msg)
		m = settle(t, m, next)
	}
	return m
}

func analyzed(t *testing.T, text string, sender *fakeSender) Model {
	t.Helper()
	m := NewModel(context.Background(), &fakeAnalyzer{}, sender, nil, text)
	m, cmd := update(t, m, keyAnalyze)
	return settle(t, m, cmd)
}

func TestModel_EmptyInputMakesNoRequest(t *testing.T) {
	analyzer := &fakeAnalyzer{}
	m := NewModel(context.Background(), analyzer, &fakeSender{}, nil, "   ")

	m, cmd := update(t, m, keyAnalyze)
	if cmd != nil {
		t.Error("empty input must not start an analysis")
	}
	if analyzer.calls != 0 {
		t.Errorf("expected no analyzer calls, got %d", analyzer.calls)
	}
	if m.machine.Analyzing() {
		t.Error("validation must not enter the loading state")
	}
	if !strings.Contains(m.View(), "Please enter some text to analyze.") {
		t.Error("expected validation message in view")
	}
}

func TestModel_AnalyzeEntersReview(t *testing.T) {
	m := analyzed(t, "Nobody ever listens to me. It is sunny.", &fakeSender{})

	if m.mode != modeReview {
		t.Fatalf("expected review mode, got %d", m.mode)
	}
	if got := m.machine.State(); got != (session.Hovering{Index: 0}) {
		t.Errorf("expected hover on first flagged sentence, got %s", got)
	}

	out := m.View()
	for _, want := range []string{"Overgeneralization", "73.4%", "Making broad interpretations", "~34% accuracy"} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestModel_PlainResult(t *testing.T) {
	m := analyzed(t, "It is sunny. I like tea.", &fakeSender{})

	if !strings.Contains(m.View(), "No cognitive distortions detected.") {
		t.Error("expected plain result notice")
	}
	if _, ok := m.machine.State().(session.Idle); !ok {
		t.Errorf("expected idle state, got %s", m.machine.State())
	}
}

func TestModel_ToggleSelection(t *testing.T) {
	m := analyzed(t, "Nobody ever listens to me. It is sunny.", &fakeSender{})

	m, _ = update(t, m, keyEnter)
	if got := m.machine.State(); got != (session.Selected{Index: 0, Phase: session.PhasePending}) {
		t.Fatalf("expected selected(0), got %s", got)
	}
	if !strings.Contains(m.View(), "[a] accept") {
		t.Error("expected feedback controls")
	}

	m, _ = update(t, m, keyEnter)
	if _, ok := m.machine.State().(session.Idle); !ok {
		t.Errorf("second click must deselect, got %s", m.machine.State())
	}
}

func TestModel_SentinelNotSelectable(t *testing.T) {
	m := analyzed(t, "Nobody ever listens to me. It is sunny.", &fakeSender{})

	m, _ = update(t, m, keyRight)
	if _, ok := m.machine.State().(session.Idle); !ok {
		t.Errorf("hovering a neutral sentence must not change state, got %s", m.machine.State())
	}

	m, _ = update(t, m, keyEnter)
	if _, ok := m.machine.State().(session.Idle); !ok {
		t.Errorf("neutral sentence must not be selectable, got %s", m.machine.State())
	}
	if m.notice == "" {
		t.Error("expected a notice")
	}
}

func TestModel_Accept(t *testing.T) {
	sender := &fakeSender{}
	m := analyzed(t, "Nobody ever listens to me. It is sunny.", sender)

	m, _ = update(t, m, keyEnter)
	m, cmd := update(t, m, runes("a"))
	if cmd == nil {
		t.Fatal("expected feedback command")
	}
	if m.machine.Affordance() != session.AffordanceSubmitting {
		t.Errorf("expected submitting, got %s", m.machine.Affordance())
	}

	m = settle(t, m, cmd)
	if m.machine.Affordance() != session.AffordanceThanks {
		t.Errorf("expected thanks, got %s", m.machine.Affordance())
	}
	if !strings.Contains(m.View(), "Thanks for your feedback!") {
		t.Error("expected acknowledgement in view")
	}

	if len(sender.records) != 1 {
		t.Fatalf("expected one record, got %d", len(sender.records))
	}
	r := sender.records[0]
	if !r.IsAccepted || r.UserCorrection != nil || r.Text != "Nobody ever listens to me." || r.Confidence != 0.734 {
		t.Errorf("unexpected record: %+v", r)
	}

	m, cmd = update(t, m, runes("a"))
	if cmd != nil || len(sender.records) != 1 {
		t.Error("feedback must be sent once per sentence")
	}
	if m.notice == "" {
		t.Error("expected already-submitted notice")
	}
}

func TestModel_Correct(t *testing.T) {
	sender := &fakeSender{}
	m := analyzed(t, "Nobody ever listens to me.", sender)

	m, _ = update(t, m, runes("c"))
	if m.mode == modeCorrect {
		t.Fatal("correction requires a selection")
	}

	m, _ = update(t, m, keyEnter)
	m, _ = update(t, m, runes("c"))
	if m.mode != modeCorrect {
		t.Fatal("expected correction picker")
	}

	m, _ = update(t, m, keyDown)
	m, _ = update(t, m, keyDown)
	want := m.options[2]

	m, cmd := update(t, m, keyEnter)
	m = settle(t, m, cmd)

	if len(sender.records) != 1 {
		t.Fatalf("expected one record, got %d", len(sender.records))
	}
	r := sender.records[0]
	if r.IsAccepted || r.UserCorrection == nil || *r.UserCorrection != want {
		t.Errorf("unexpected record: %+v", r)
	}
	if m.mode != modeReview {
		t.Error("expected review mode after correction")
	}
}

func TestModel_CorrectCancel(t *testing.T) {
	sender := &fakeSender{}
	m := analyzed(t, "Nobody ever listens to me.", sender)

	m, _ = update(t, m, keyEnter)
	m, _ = update(t, m, runes("c"))
	m, _ = update(t, m, keyEsc)

	if m.mode != modeReview || len(sender.records) != 0 {
		t.Error("cancel must return to review without sending")
	}
}

func TestModel_FeedbackFailureAllowsRetry(t *testing.T) {
	sender := &fakeSender{err: apperr.FeedbackTransport("feedback endpoint returned HTTP 500", errors.New("boom"))}
	m := analyzed(t, "Nobody ever listens to me.", sender)

	m, _ = update(t, m, keyEnter)
	m, cmd := update(t, m, runes("a"))
	m = settle(t, m, cmd)

	if m.machine.FeedbackError() != "Failed to submit feedback. Please try again." {
		t.Errorf("unexpected feedback error %q", m.machine.FeedbackError())
	}
	if m.machine.Affordance() != session.AffordanceFeedback {
		t.Errorf("expected controls to remain, got %s", m.machine.Affordance())
	}

	sender.err = nil
	m, cmd = update(t, m, runes("a"))
	m = settle(t, m, cmd)
	if m.machine.Affordance() != session.AffordanceThanks || m.machine.FeedbackError() != "" {
		t.Error("retry should succeed and clear the error")
	}
}

func TestModel_AnalysisFailure(t *testing.T) {
	analyzer := &fakeAnalyzer{err: apperr.AnalysisTransport("predict request failed", errors.New("connection refused"))}
	m := NewModel(context.Background(), analyzer, &fakeSender{}, nil, "Nobody ever listens to me.")

	m, cmd := update(t, m, keyAnalyze)
	if !m.machine.Analyzing() {
		t.Error("expected loading state")
	}
	m = settle(t, m, cmd)

	if m.machine.Analyzing() {
		t.Error("loading state must end on failure")
	}
	if m.machine.Error() != "Analysis failed. Please try again." {
		t.Errorf("unexpected error %q", m.machine.Error())
	}
	if m.mode != modeInput {
		t.Error("failure must stay in input mode")
	}
}

func TestModel_StaleAnalysisIgnored(t *testing.T) {
	m := NewModel(context.Background(), &fakeAnalyzer{}, &fakeSender{}, nil, "Nobody ever listens to me.")

	m, first := update(t, m, keyAnalyze)
	m, second := update(t, m, keyAnalyze)

	m = settle(t, m, first)
	if !m.machine.Analyzing() || m.machine.View() != nil {
		t.Fatal("superseded analysis must be dropped")
	}

	m = settle(t, m, second)
	if m.machine.Analyzing() || m.machine.View() == nil {
		t.Error("latest analysis should be installed")
	}
}

func TestModel_NewTextKeepsNothingSelected(t *testing.T) {
	m := analyzed(t, "Nobody ever listens to me.", &fakeSender{})

	m, _ = update(t, m, keyEnter)
	m, _ = update(t, m, runes("n"))
	if m.mode != modeInput || m.input.Value() != "" {
		t.Fatal("expected empty input mode")
	}

	m.input.SetValue("It is sunny.")
	m, cmd := update(t, m, keyAnalyze)
	m = settle(t, m, cmd)

	if _, ok := m.machine.State().(session.Idle); !ok {
		t.Errorf("new analysis must reset selection, got %s", m.machine.State())
	}
}
