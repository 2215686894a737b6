package tui

import (
	"fmt"
	"strings"

	"github.com/divverma2003/convo-app/internal/channel/domain"
	"github.com/divverma2003/convo-app/internal/search"
)

// View renders the picker.
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(m.styles.Title.Render(m.title()))
	b.WriteString("\n")

	if m.mode == ModeCreate {
		b.WriteString(m.styles.Label.Render("Name "))
		b.WriteString(m.name.View())
		b.WriteString("\n")
		b.WriteString(m.styles.Label.Render("Visibility "))
		b.WriteString(m.visibilityLabel())
		b.WriteString("\n\n")
	}

	b.WriteString(m.query.View())
	b.WriteString("\n\n")

	b.WriteString(m.renderList())
	b.WriteString("\n")
	b.WriteString(m.renderStatus())
	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView(m.keys.forMode(m.mode)))
	b.WriteString("\n")

	return b.String()
}

func (m *Model) title() string {
	switch m.mode {
	case ModeInvite:
		return fmt.Sprintf("Invite users to #%s", m.channelID)
	case ModeCreate:
		return "Create a new channel"
	default:
		return "Users"
	}
}

func (m *Model) visibilityLabel() string {
	if m.visibility == domain.VisibilityPrivate {
		return "private (invite only)"
	}
	return "public (everyone can join)"
}

func (m *Model) renderList() string {
	if len(m.snap.Entries) == 0 {
		switch m.snap.State {
		case search.StateIdle, search.StateLoading:
			return m.styles.Dim.Render("Loading users...")
		case search.StateFailed:
			return ""
		default:
			return m.styles.Dim.Render("No users found")
		}
	}

	selected := make(map[string]bool, len(m.snap.Selected))
	for _, id := range m.snap.Selected {
		selected[id] = true
	}

	var b strings.Builder
	for i, e := range m.snap.Entries {
		pointer := "  "
		if i == m.cursor {
			pointer = m.styles.Cursor.Render("> ")
		}
		b.WriteString(pointer)

		if m.mode != ModeUsers {
			if selected[e.ID] {
				b.WriteString(m.styles.Selected.Render("[x] "))
			} else {
				b.WriteString("[ ] ")
			}
		}

		b.WriteString(e.DisplayName())
		if e.Online {
			b.WriteString(" ")
			b.WriteString(m.styles.Online.Render("●"))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m *Model) renderStatus() string {
	var parts []string

	switch m.snap.State {
	case search.StateLoading:
		parts = append(parts, m.styles.Dim.Render("searching..."))
	case search.StateLoadingMore:
		parts = append(parts, m.styles.Dim.Render("loading more..."))
	case search.StateFailed:
		if msg := search.Message(m.snap.Err); msg != "" {
			parts = append(parts, m.styles.Error.Render(msg+" (ctrl+r to retry)"))
		}
	case search.StateReady:
		if m.snap.HasMore {
			parts = append(parts, m.styles.Dim.Render("ctrl+n for more"))
		}
	}

	if m.mode != ModeUsers {
		parts = append(parts, m.styles.Label.Render(fmt.Sprintf("%d selected", len(m.snap.Selected))))
	}
	if m.notice != "" {
		parts = append(parts, m.styles.Notice.Render(m.notice))
	}
	if m.failure != "" {
		parts = append(parts, m.styles.Error.Render(m.failure))
	}
	if m.submitting {
		parts = append(parts, m.styles.Dim.Render("working..."))
	}
	if m.result != nil {
		parts = append(parts, m.styles.Success.Render("Opened #"+m.result.ID))
	}

	return strings.Join(parts, "  ")
}
