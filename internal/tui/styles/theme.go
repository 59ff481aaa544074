// Package styles holds the lipgloss themes and pre-built styles of the room
// view.
package styles

import "github.com/charmbracelet/lipgloss"

// BaseColors defines global UI colors.
type BaseColors struct {
	Background string
	Foreground string
	Muted      string
	Accent     string
	Border     string
}

// MessageColors defines colors for message kinds.
type MessageColors struct {
	Own       string
	Other     string
	System    string
	Encrypted string
	Edited    string
}

// ReactionColors defines reaction pill colors.
type ReactionColors struct {
	Active   string
	Inactive string
}

// NotificationColors defines room list badge colors.
type NotificationColors struct {
	Unread    string
	Highlight string
	Muted     string
}

// ChromeColors defines non-content UI colors.
type ChromeColors struct {
	Header       string
	Footer       string
	Breadcrumb   string
	SelectedItem string
	Scrollbar    string
}

// BorderColors defines border colors for pane state.
type BorderColors struct {
	ActivePane   string
	InactivePane string
	Divider      string
}

// Theme defines the room view style tokens.
type Theme struct {
	Name          string
	BorderStyle   string   // "rounded", "sharp", "double", "hidden"
	SenderPalette []string // optional override for sender identity colors (ANSI-256 codes)

	Base         BaseColors
	Message      MessageColors
	Reaction     ReactionColors
	Notification NotificationColors
	Chrome       ChromeColors
	Borders      BorderColors
}

// Themes lists available palettes by name.
var Themes = map[string]Theme{
	"default":       DefaultTheme,
	"high-contrast": HighContrastTheme,
}

// ThemeByName returns the named theme, falling back to the default.
func ThemeByName(name string) Theme {
	if t, ok := Themes[name]; ok {
		return t
	}
	return DefaultTheme
}

// Muted returns the style for secondary text.
func (t Theme) Muted() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(t.Base.Muted))
}

// Accent returns the style for highlighted text.
func (t Theme) Accent() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(t.Base.Accent))
}
