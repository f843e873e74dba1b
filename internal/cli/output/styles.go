package output

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Styles holds the lipgloss styles used in text mode.
type Styles struct {
	Header1 lipgloss.Style
	Header2 lipgloss.Style
	Bold    lipgloss.Style
	Muted   lipgloss.Style
	Key     lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Info    lipgloss.Style
}

// NewStyles builds styles bound to w. Colour is disabled when w is not a
// terminal or NO_COLOR is set.
func NewStyles(w io.Writer, isTTY bool) *Styles {
	lr := lipgloss.NewRenderer(w)
	if !isTTY || os.Getenv("NO_COLOR") != "" {
		lr.SetColorProfile(termenv.Ascii)
	} else {
		lr.SetColorProfile(termenv.NewOutput(w).EnvColorProfile())
	}

	return &Styles{
		Header1: lr.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).MarginBottom(1),
		Header2: lr.NewStyle().Bold(true).Foreground(lipgloss.Color("14")),
		Bold:    lr.NewStyle().Bold(true),
		Muted:   lr.NewStyle().Foreground(lipgloss.Color("8")),
		Key:     lr.NewStyle().Foreground(lipgloss.Color("7")),
		Success: lr.NewStyle().Foreground(lipgloss.Color("10")),
		Warning: lr.NewStyle().Foreground(lipgloss.Color("11")),
		Error:   lr.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		Info:    lr.NewStyle().Foreground(lipgloss.Color("12")),
	}
}
