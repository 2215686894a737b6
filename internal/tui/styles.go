package tui

import "github.com/charmbracelet/lipgloss"

type styles struct {
	Title    lipgloss.Style
	Label    lipgloss.Style
	Cursor   lipgloss.Style
	Selected lipgloss.Style
	Online   lipgloss.Style
	Dim      lipgloss.Style
	Notice   lipgloss.Style
	Error    lipgloss.Style
	Success  lipgloss.Style
}

func newStyles() styles {
	return styles{
		Title:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99")).MarginBottom(1),
		Label:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		Cursor:   lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true),
		Selected: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		Online:   lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		Dim:      lipgloss.NewStyle().Faint(true),
		Notice:   lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		Error:    lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		Success:  lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),
	}
}
