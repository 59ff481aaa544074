package styles

import "github.com/charmbracelet/lipgloss"

const (
	// LayoutGap is the default space between columns.
	LayoutGap = 2

	// LayoutInnerPadding is the default panel content padding.
	LayoutInnerPadding = 1
)

const (
	minRoomsWidth    = 18
	maxRoomsWidth    = 32
	minTimelineWidth = 40
)

// ColumnWidths defines the widths of the room list and timeline panes.
type ColumnWidths struct {
	Rooms    int
	Timeline int
}

// ComputeColumnWidths splits totalWidth between the room list and the
// timeline. Narrow terminals drop the room list.
func ComputeColumnWidths(totalWidth int) ColumnWidths {
	if totalWidth <= 0 {
		return ColumnWidths{}
	}

	rooms := clampInt(totalWidth/4, minRoomsWidth, maxRoomsWidth)
	timeline := totalWidth - rooms - LayoutGap
	if timeline < minTimelineWidth {
		return ColumnWidths{Rooms: 0, Timeline: totalWidth}
	}
	return ColumnWidths{Rooms: rooms, Timeline: timeline}
}

// PanelStyle returns a focused/unfocused border style for panes.
func PanelStyle(theme Theme, focused bool) lipgloss.Style {
	return lipgloss.NewStyle().
		BorderStyle(panelBorderStyle(theme)).
		BorderForeground(lipgloss.Color(panelBorderColor(theme, focused))).
		PaddingLeft(LayoutInnerPadding).
		PaddingRight(LayoutInnerPadding)
}

func panelBorderColor(theme Theme, focused bool) string {
	if focused {
		return theme.Borders.ActivePane
	}
	return theme.Borders.InactivePane
}

func panelBorderStyle(theme Theme) lipgloss.Border {
	switch theme.BorderStyle {
	case "double":
		return lipgloss.DoubleBorder()
	case "sharp":
		return lipgloss.NormalBorder()
	case "hidden":
		return lipgloss.HiddenBorder()
	default:
		return lipgloss.RoundedBorder()
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
