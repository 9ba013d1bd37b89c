package output

import "github.com/charmbracelet/lipgloss"

// Styles are the lipgloss styles used for terminal output.
type Styles struct {
	Header1 lipgloss.Style
	Header2 lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Muted   lipgloss.Style
	Stage   lipgloss.Style
	Step    lipgloss.Style
	Edge    lipgloss.Style
}

// NewStyles builds the styles for a lipgloss renderer.
func NewStyles(r *lipgloss.Renderer) Styles {
	return Styles{
		Header1: r.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF0072")),
		Header2: r.NewStyle().Bold(true),
		Success: r.NewStyle().Foreground(lipgloss.Color("42")),
		Warning: r.NewStyle().Foreground(lipgloss.Color("214")),
		Error:   r.NewStyle().Foreground(lipgloss.Color("196")),
		Muted:   r.NewStyle().Foreground(lipgloss.Color("244")),
		Stage:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF0072")),
		Step:    r.NewStyle().Foreground(lipgloss.Color("#60a5fa")),
		Edge:    r.NewStyle().Foreground(lipgloss.Color("250")),
	}
}
