// Package tui is the interactive terminal reviewer. Text is entered,
// analyzed, and each flagged sentence can be selected to accept or correct
// the prediction.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ppiankov/distortia/internal/catalog"
	"github.com/ppiankov/distortia/internal/model"
	"github.com/ppiankov/distortia/internal/pipeline"
	"github.com/ppiankov/distortia/internal/reconcile"
	"github.com/ppiankov/distortia/internal/session"
)

type mode int

const (
	modeInput mode = iota
	modeReview
	modeCorrect
)

type analysisDoneMsg struct {
	ticket session.AnalysisTicket
	result *model.AnalysisResult
	err    error
}

type feedbackDoneMsg struct {
	ticket session.FeedbackTicket
	err    error
}

// Model is the bubbletea model of the reviewer
type Model struct {
	ctx      context.Context
	machine  *session.Machine
	analyzer session.Analyzer
	sender   session.Sender
	catalog  *catalog.Catalog

	keys    keyMap
	input   textarea.Model
	spinner spinner.Model

	mode    mode
	cursor  int
	choice  int
	options []model.Label
	notice  string
	width   int
}

// NewModel creates a reviewer. text pre-fills the input; when non-empty
// it is analyzed on start.
func NewModel(ctx context.Context, analyzer session.Analyzer, sender session.Sender, cat *catalog.Catalog, text string) Model {
	if cat == nil {
		cat = catalog.Default()
	}

	ta := textarea.New()
	ta.Placeholder = "Type or paste text to analyze..."
	ta.ShowLineNumbers = false
	ta.SetHeight(6)
	ta.SetValue(text)
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		ctx:      ctx,
		machine:  session.NewMachine(),
		analyzer: analyzer,
		sender:   sender,
		catalog:  cat,
		keys:     defaultKeyMap(),
		input:    ta,
		spinner:  sp,
		mode:     modeInput,
		options:  cat.CorrectionOptions(),
		width:    80,
	}
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	if strings.TrimSpace(m.input.Value()) != "" {
		return func() tea.Msg { return tea.KeyMsg{Type: tea.KeyCtrlS} }
	}
	return textarea.Blink
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.SetWidth(msg.Width - 4)
		return m, nil

	case spinner.TickMsg:
		if !m.machine.Analyzing() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case analysisDoneMsg:
		return m.handleAnalysisDone(msg)

	case feedbackDoneMsg:
		if msg.err != nil {
			m.machine.FeedbackFailed(msg.ticket, msg.err)
		} else {
			m.machine.FeedbackSucceeded(msg.ticket)
		}
		return m, nil

	case tea.KeyMsg:
		m.notice = ""
		switch m.mode {
		case modeReview:
			return m.handleReviewKeys(msg)
		case modeCorrect:
			return m.handleCorrectKeys(msg)
		default:
			return m.handleInputKeys(msg)
		}
	}

	return m, nil
}

func (m Model) handleInputKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.Type == tea.KeyCtrlC || key.Matches(msg, m.keys.Cancel):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Submit):
		return m.analyze()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleReviewKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	view := m.machine.View()

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Prev):
		m.moveCursor(view, -1)
	case key.Matches(msg, m.keys.Next):
		m.moveCursor(view, 1)
	case key.Matches(msg, m.keys.Select):
		if !m.machine.Click(m.cursor) {
			m.notice = "This sentence has nothing to review."
		}
	case key.Matches(msg, m.keys.Accept):
		return m.submitFeedback(true, nil)
	case key.Matches(msg, m.keys.Correct):
		if _, ok := m.machine.State().(session.Selected); ok && m.machine.Affordance() == session.AffordanceFeedback {
			m.mode = modeCorrect
			m.choice = 0
		} else {
			m.notice = "Select a flagged sentence first."
		}
	case key.Matches(msg, m.keys.Dismiss):
		m.machine.DismissError()
	case key.Matches(msg, m.keys.NewText):
		m.mode = modeInput
		m.input.Reset()
		m.input.Focus()
		return m, textarea.Blink
	}

	return m, nil
}

func (m Model) handleCorrectKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.Type == tea.KeyCtrlC:
		return m, tea.Quit
	case key.Matches(msg, m.keys.Cancel):
		m.mode = modeReview
	case key.Matches(msg, m.keys.Up):
		if m.choice > 0 {
			m.choice--
		}
	case key.Matches(msg, m.keys.Down):
		if m.choice < len(m.options)-1 {
			m.choice++
		}
	case key.Matches(msg, m.keys.Confirm):
		m.mode = modeReview
		label := m.options[m.choice]
		return m.submitFeedback(false, &label)
	}
	return m, nil
}

func (m Model) analyze() (tea.Model, tea.Cmd) {
	text := m.input.Value()
	if err := m.analyzer.Validate(text); err != nil {
		m.machine.Reject(err)
		return m, nil
	}

	ticket := m.machine.BeginAnalysis()
	m.input.Blur()

	analyzer, ctx := m.analyzer, m.ctx
	run := func() tea.Msg {
		result, err := analyzer.Analyze(ctx, text)
		return analysisDoneMsg{ticket: ticket, result: result, err: err}
	}
	return m, tea.Batch(m.spinner.Tick, run)
}

func (m Model) handleAnalysisDone(msg analysisDoneMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		if m.machine.AnalysisFailed(msg.ticket, msg.err) {
			m.input.Focus()
		}
		return m, nil
	}

	view := reconcile.Reconcile(msg.result, m.catalog)
	if !m.machine.AnalysisSucceeded(msg.ticket, view) {
		return m, nil
	}

	m.mode = modeReview
	m.cursor = 0
	for i := 0; i < view.Len(); i++ {
		if view.Interactive(i) {
			m.cursor = i
			break
		}
	}
	m.machine.PointerEnter(m.cursor)
	return m, nil
}

// moveCursor acts as the pointer: leaving one unit and entering the next
func (m *Model) moveCursor(view *reconcile.View, delta int) {
	if view == nil || view.Len() == 0 {
		return
	}
	next := m.cursor + delta
	if next < 0 || next >= view.Len() {
		return
	}
	m.machine.PointerLeave(m.cursor)
	m.cursor = next
	m.machine.PointerEnter(m.cursor)
}

func (m Model) submitFeedback(accepted bool, correction *model.Label) (tea.Model, tea.Cmd) {
	sel, ok := m.machine.State().(session.Selected)
	if !ok {
		m.notice = "Select a flagged sentence first."
		return m, nil
	}
	ticket, err := m.machine.BeginFeedback(sel.Index, accepted, correction, m.catalog)
	if err != nil {
		m.notice = refusal(err)
		return m, nil
	}

	sender, ctx := m.sender, m.ctx
	return m, func() tea.Msg {
		return feedbackDoneMsg{ticket: ticket, err: sender.Send(ctx, ticket.Record)}
	}
}

func refusal(err error) string {
	switch {
	case errors.Is(err, session.ErrAlreadySubmitted):
		return "Feedback for this sentence was already sent."
	case errors.Is(err, session.ErrInFlight):
		return "Feedback is being submitted..."
	case errors.Is(err, session.ErrNotInteractive):
		return "This sentence has nothing to review."
	default:
		return err.Error()
	}
}

// View implements tea.Model
func (m Model) View() string {
	var sections []string

	sections = append(sections, titleStyle.Render("Cognitive Distortion Detector"))

	if e := m.machine.Error(); e != "" {
		sections = append(sections, errorStyle.Render("✗ "+e))
	}

	switch {
	case m.machine.Analyzing():
		sections = append(sections, m.input.View(), m.spinner.View()+" Analyzing...")
	case m.mode == modeInput:
		sections = append(sections, m.input.View())
	default:
		sections = append(sections, m.renderAnalysis()...)
	}

	if m.notice != "" {
		sections = append(sections, noticeStyle.Render(m.notice))
	}

	sections = append(sections, helpStyle.Render(m.helpLine()))

	if m.machine.View() != nil {
		sections = append(sections, dimStyle.Width(m.wrapWidth()).Render(pipeline.Disclaimer))
	}

	return docStyle.Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

func (m Model) renderAnalysis() []string {
	view := m.machine.View()
	if view == nil {
		return nil
	}

	if view.Mode == reconcile.RenderPlain {
		return []string{
			lipgloss.NewStyle().Width(m.wrapWidth()).Render(view.Text),
			successStyle.Render("✓ No cognitive distortions detected."),
		}
	}

	selected := -1
	if sel, ok := m.machine.State().(session.Selected); ok {
		selected = sel.Index
	}

	parts := make([]string, 0, view.Len())
	for _, u := range view.Units {
		text := u.Input
		if m.machine.Submitted(u.Index) {
			text += " ✓"
		}
		parts = append(parts, unitStyle(u.Color, u.Index == m.cursor, u.Index == selected).Render(text))
	}

	out := []string{lipgloss.NewStyle().Width(m.wrapWidth()).Render(strings.Join(parts, " "))}

	if info, ok := m.machine.Panel(); ok {
		out = append(out, m.renderPanel(info))
	}

	out = append(out, m.renderAffordance()...)
	return out
}

func (m Model) renderPanel(info reconcile.Info) string {
	definition := info.Definition
	if definition == "" {
		definition = "No definition available for this label."
	}
	body := lipgloss.JoinVertical(lipgloss.Left,
		selectedStyle.Render(string(info.Label)),
		fmt.Sprintf("Confidence: %.1f%%", info.Confidence*100),
		definition,
	)
	return panelStyle.Width(m.wrapWidth()).Render(body)
}

func (m Model) renderAffordance() []string {
	var out []string

	switch m.machine.Affordance() {
	case session.AffordanceFeedback:
		if m.mode == modeCorrect {
			out = append(out, m.renderOptions())
		} else {
			out = append(out, "Is this prediction right? [a] accept  [c] correct")
		}
	case session.AffordanceSubmitting:
		out = append(out, dimStyle.Render("Submitting feedback..."))
	case session.AffordanceThanks:
		out = append(out, successStyle.Render("Thanks for your feedback!"))
	}

	if e := m.machine.FeedbackError(); e != "" {
		out = append(out, errorStyle.Render("✗ "+e))
	}
	return out
}

func (m Model) renderOptions() string {
	var b strings.Builder
	b.WriteString("Choose the correct label:\n")
	for i, opt := range m.options {
		line := "  " + string(opt)
		if i == m.choice {
			line = selectedStyle.Render("> " + string(opt))
		}
		b.WriteString(line)
		if i < len(m.options)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (m Model) helpLine() string {
	var bindings []key.Binding
	switch m.mode {
	case modeReview:
		bindings = []key.Binding{m.keys.Prev, m.keys.Next, m.keys.Select, m.keys.Accept, m.keys.Correct, m.keys.NewText, m.keys.Quit}
	case modeCorrect:
		bindings = []key.Binding{m.keys.Up, m.keys.Down, m.keys.Confirm, m.keys.Cancel}
	default:
		bindings = []key.Binding{m.keys.Submit, m.keys.Cancel}
	}

	parts := make([]string, len(bindings))
	for i, b := range bindings {
		h := b.Help()
		parts[i] = h.Key + " " + h.Desc
	}
	return strings.Join(parts, " • ")
}

func (m Model) wrapWidth() int {
	if m.width <= 8 {
		return 72
	}
	return m.width - 8
}

// Run starts the reviewer on the terminal
func Run(ctx context.Context, analyzer session.Analyzer, sender session.Sender, cat *catalog.Catalog, text string) error {
	p := tea.NewProgram(NewModel(ctx, analyzer, sender, cat, text), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
