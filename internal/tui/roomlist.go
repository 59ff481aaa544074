package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"

	"github.com/tOgg1/mxview/internal/rooms"
	"github.com/tOgg1/mxview/internal/tui/styles"
)

// renderRoomList draws the room selector. The open room is marked and the
// cursor row is highlighted.
func renderRoomList(theme styles.Theme, entries []rooms.Entry, cursor int, openID string, width, height int) string {
	if width < 4 {
		width = 4
	}
	if len(entries) == 0 {
		return theme.Muted().Render("no rooms")
	}

	start := 0
	if cursor >= height {
		start = cursor - height + 1
	}
	end := start + height
	if end > len(entries) {
		end = len(entries)
	}

	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		lines = append(lines, renderRoomEntry(theme, entries[i], i == cursor, entries[i].RoomID == openID, width))
	}
	return strings.Join(lines, "\n")
}

func renderRoomEntry(theme styles.Theme, e rooms.Entry, cursor, open bool, width int) string {
	sigil := "#"
	switch {
	case e.IsDirect:
		sigil = "@"
	case e.IsSpace:
		sigil = "+"
	case e.JoinRule == "invite":
		sigil = "🔒"
	}

	badge := ""
	if e.Badge != "" {
		color := theme.Notification.Unread
		switch {
		case e.Muted:
			color = theme.Notification.Muted
		case e.Alert:
			color = theme.Notification.Highlight
		}
		badge = lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render(e.Badge)
	}

	nameWidth := width - lipgloss.Width(sigil) - 1
	if badge != "" {
		nameWidth -= lipgloss.Width(badge) + 1
	}
	if nameWidth < 1 {
		nameWidth = 1
	}
	name := truncate.StringWithTail(e.Name.Display(), uint(nameWidth), "…")

	style := lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Base.Foreground))
	switch {
	case e.Muted:
		style = style.Foreground(lipgloss.Color(theme.Notification.Muted))
	case e.Unread:
		style = style.Bold(true)
	}
	if open {
		style = style.Underline(true)
	}
	if cursor {
		style = style.Foreground(lipgloss.Color(theme.Chrome.SelectedItem))
	}

	line := style.Render(sigil + " " + name)
	if badge != "" {
		pad := width - lipgloss.Width(line) - lipgloss.Width(badge)
		if pad < 1 {
			pad = 1
		}
		line += strings.Repeat(" ", pad) + badge
	}
	return line
}
