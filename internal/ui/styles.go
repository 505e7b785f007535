// Package ui is the Bubble Tea chat view for the terminal client: a scrolling
// message viewport, a text input, and a side panel for profiles surfaced
// mid-stream.
package ui

import "github.com/charmbracelet/lipgloss"

// Theme holds the styled components for the chat view.
type Theme struct {
	Header      lipgloss.Style
	HeaderTitle lipgloss.Style

	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	ThinkingLabel  lipgloss.Style
	ThinkingText   lipgloss.Style

	StatusBar   lipgloss.Style
	StatusError lipgloss.Style
	Hint        lipgloss.Style

	Panel       lipgloss.Style
	PanelTitle  lipgloss.Style
	ProfileName lipgloss.Style
	ProfileMeta lipgloss.Style
}

// NewTheme builds the default theme with adaptive colors.
func NewTheme() *Theme {
	accent := lipgloss.AdaptiveColor{Light: "25", Dark: "39"}
	subtle := lipgloss.AdaptiveColor{Light: "245", Dark: "241"}

	return &Theme{
		Header: lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "255", Dark: "232"}).
			Background(accent).
			Padding(0, 1),
		HeaderTitle: lipgloss.NewStyle().Bold(true),

		UserLabel: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "28", Dark: "78"}),
		AssistantLabel: lipgloss.NewStyle().
			Bold(true).
			Foreground(accent),
		ThinkingLabel: lipgloss.NewStyle().
			Foreground(subtle).
			Italic(true),
		ThinkingText: lipgloss.NewStyle().
			Foreground(subtle).
			Italic(true),

		StatusBar: lipgloss.NewStyle().
			Foreground(subtle).
			Padding(0, 1),
		StatusError: lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "160", Dark: "196"}),
		Hint: lipgloss.NewStyle().
			Foreground(subtle),

		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(subtle).
			Padding(0, 1),
		PanelTitle: lipgloss.NewStyle().
			Bold(true).
			Foreground(accent),
		ProfileName: lipgloss.NewStyle().Bold(true),
		ProfileMeta: lipgloss.NewStyle().Foreground(subtle),
	}
}
