package tui

import "github.com/charmbracelet/lipgloss"

var (
	docStyle      = lipgloss.NewStyle().Margin(1, 2)
	titleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("63")).Bold(true)
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	noticeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	successStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	panelStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("63")).Padding(0, 1)
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
)

// palette maps catalog color tokens to terminal colors
var palette = map[string]lipgloss.Color{
	"blue":    lipgloss.Color("33"),
	"indigo":  lipgloss.Color("63"),
	"violet":  lipgloss.Color("135"),
	"cyan":    lipgloss.Color("44"),
	"teal":    lipgloss.Color("30"),
	"purple":  lipgloss.Color("129"),
	"emerald": lipgloss.Color("35"),
	"orange":  lipgloss.Color("208"),
	"sky":     lipgloss.Color("117"),
	"slate":   lipgloss.Color("103"),
	"amber":   lipgloss.Color("214"),
	"rose":    lipgloss.Color("204"),
	"red":     lipgloss.Color("160"),
	"green":   lipgloss.Color("42"),
}

// unitStyle styles a sentence by its color token. Unknown tokens and the
// sentinel render unstyled.
func unitStyle(token string, cursor, selected bool) lipgloss.Style {
	s := lipgloss.NewStyle()
	if c, ok := palette[token]; ok {
		s = s.Foreground(c)
	}
	if cursor {
		s = s.Underline(true)
	}
	if selected {
		s = s.Bold(true).Reverse(true)
	}
	return s
}
