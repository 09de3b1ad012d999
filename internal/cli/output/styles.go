package output

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Styles holds the text styles used by commands. Styles render plain text
// when the stream has no color support.
type Styles struct {
	Header1 lipgloss.Style
	Header2 lipgloss.Style
	Bold    lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
}

// NewStyles creates styles bound to the color profile of w.
func NewStyles(w io.Writer) *Styles {
	re := lipgloss.NewRenderer(w)
	return &Styles{
		Header1: re.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		Header2: re.NewStyle().Bold(true).Foreground(lipgloss.Color("14")),
		Bold:    re.NewStyle().Bold(true),
		Muted:   re.NewStyle().Foreground(lipgloss.Color("8")),
		Success: re.NewStyle().Foreground(lipgloss.Color("10")),
		Warning: re.NewStyle().Foreground(lipgloss.Color("11")),
		Error:   re.NewStyle().Foreground(lipgloss.Color("9")),
	}
}
