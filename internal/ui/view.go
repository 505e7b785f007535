package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/circl-ai/circl/internal/model"
)

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	main := m.viewport.View()
	if len(m.profiles) > 0 && m.width > panelWidth*2 {
		main = lipgloss.JoinHorizontal(lipgloss.Top, main, m.renderProfiles())
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		main,
		m.input.View(),
		m.renderStatusBar(),
	)
}

func (m Model) renderHeader() string {
	title := "new session"
	if active, ok := m.manager.Store().Active(); ok && active.Title != "" {
		title = active.Title
	}
	label := m.theme.HeaderTitle.Render("circl") + "  " + title
	return m.theme.Header.Width(m.width).Render(label)
}

// renderMessages lays out the conversation: user turns, thought regions in a
// muted style, and response regions as plain text.
func (m Model) renderMessages() string {
	messages := m.manager.Messages()
	if len(messages) == 0 {
		return m.theme.Hint.Render("Type a query to get started.")
	}

	wrap := lipgloss.NewStyle().Width(m.viewport.Width)

	blocks := make([]string, 0, len(messages))
	for _, msg := range messages {
		var b strings.Builder
		switch {
		case msg.Role == model.RoleUser:
			b.WriteString(m.theme.UserLabel.Render("You"))
			b.WriteString("\n")
			b.WriteString(msg.Content)
		case msg.IsThinking:
			b.WriteString(m.theme.ThinkingLabel.Render("thinking"))
			b.WriteString("\n")
			b.WriteString(m.theme.ThinkingText.Render(msg.ThinkingText))
		default:
			b.WriteString(m.theme.AssistantLabel.Render("Circl"))
			b.WriteString("\n")
			b.WriteString(msg.Content)
		}
		blocks = append(blocks, wrap.Render(b.String()))
	}

	return strings.Join(blocks, "\n\n")
}

func (m Model) renderProfiles() string {
	var b strings.Builder
	b.WriteString(m.theme.PanelTitle.Render(fmt.Sprintf("Profiles (%d)", len(m.profiles))))

	for _, p := range m.profiles {
		b.WriteString("\n\n")
		b.WriteString(m.theme.ProfileName.Render(p.Name))
		if p.Title != "" {
			b.WriteString("\n" + p.Title)
		}
		if p.Company != "" {
			b.WriteString("\n" + m.theme.ProfileMeta.Render(p.Company))
		}
	}

	return m.theme.Panel.
		Width(panelWidth - 2).
		Height(m.viewport.Height - 2).
		Render(b.String())
}

func (m Model) renderStatusBar() string {
	var left string
	switch m.state {
	case StateLoading:
		left = m.spinner.View() + " Connecting..."
	case StateStreaming:
		left = m.spinner.View() + " " + m.status
	default:
		if strings.HasPrefix(m.status, "Error:") {
			left = m.theme.StatusError.Render(m.status)
		} else {
			left = "Ready"
		}
	}

	hint := m.theme.Hint.Render("enter send · pgup/pgdn scroll · esc quit")
	return m.theme.StatusBar.Width(m.width).Render(left + "  " + hint)
}
