package styles

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wordwrap"
)

const quotePrefix = "│ "

// MessageStyles contains pre-built styles for timeline rows.
type MessageStyles struct {
	Theme        Theme
	SenderColors *SenderColorMapper

	Timestamp     lipgloss.Style
	Body          lipgloss.Style
	Edited        lipgloss.Style
	Encrypted     lipgloss.Style
	QuoteBar      lipgloss.Style
	QuoteSender   lipgloss.Style
	System        lipgloss.Style
	Divider       lipgloss.Style
	IntroHeading  lipgloss.Style
	Placeholder   lipgloss.Style
	ReactionOn    lipgloss.Style
	ReactionOff   lipgloss.Style
	Media         lipgloss.Style
	Selected      lipgloss.Style
	NewMessageBar lipgloss.Style
}

// NewMessageStyles builds a reusable style set for theme.
func NewMessageStyles(theme Theme) MessageStyles {
	return MessageStyles{
		Theme:        theme,
		SenderColors: NewSenderColorMapper(theme.SenderPalette),
		Timestamp:    lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Base.Muted)),
		Body:         lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Base.Foreground)),
		Edited:       lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Message.Edited)).Italic(true),
		Encrypted:    lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Message.Encrypted)).Italic(true),
		QuoteBar:     lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Base.Muted)).Bold(true),
		QuoteSender:  lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Base.Muted)).Bold(true),
		System:       lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Message.System)),
		Divider:      lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Borders.Divider)),
		IntroHeading: lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Chrome.Header)).Bold(true),
		Placeholder:  lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Base.Border)).Faint(true),
		ReactionOn: lipgloss.NewStyle().
			Foreground(lipgloss.Color(theme.Reaction.Active)).
			Bold(true),
		ReactionOff: lipgloss.NewStyle().
			Foreground(lipgloss.Color(theme.Reaction.Inactive)),
		Media:    lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Base.Accent)).Underline(true),
		Selected: lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Chrome.SelectedItem)).Bold(true),
		NewMessageBar: lipgloss.NewStyle().
			Foreground(lipgloss.Color(theme.Base.Accent)).
			Bold(true),
	}
}

// RenderHeader renders the first line of a message group: avatar badge,
// sender name and time.
func (s MessageStyles) RenderHeader(senderID, name string, ts time.Time, showTime bool) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = senderID
	}
	badge := s.SenderColors.Background(senderID).Render(" " + Initial(name) + " ")
	head := badge + " " + s.SenderColors.Foreground(senderID).Render(name)
	if showTime && !ts.IsZero() {
		head += " " + s.Timestamp.Render(ts.Format("15:04"))
	}
	return head
}

// RenderBody renders wrapped body text, marking edited bodies.
func (s MessageStyles) RenderBody(body string, edited bool, width int) string {
	out := s.Body.Render(Wrap(body, width))
	if edited {
		out += " " + s.Edited.Render("(edited)")
	}
	return out
}

// RenderEncrypted renders the placeholder for an undecryptable message.
func (s MessageStyles) RenderEncrypted() string {
	return s.Encrypted.Render("🔒 Unable to decrypt message")
}

// RenderQuote renders a reply preview: the quoted sender then the quoted
// text behind a vertical bar, limited to maxLines.
func (s MessageStyles) RenderQuote(sender, quoted string, width, maxLines int) string {
	renderWidth := width - lipgloss.Width(quotePrefix)
	if renderWidth < 1 {
		renderWidth = 1
	}

	lines := []string{s.QuoteBar.Render(quotePrefix) + s.QuoteSender.Render(sender)}
	wrapped := strings.Split(Wrap(quoted, renderWidth), "\n")
	if maxLines > 0 && len(wrapped) > maxLines {
		wrapped = append(wrapped[:maxLines], "…")
	}
	for _, line := range wrapped {
		lines = append(lines, s.QuoteBar.Render(quotePrefix)+s.Timestamp.Render(line))
	}
	return strings.Join(lines, "\n")
}

// Reaction is the data a reaction pill shows.
type Reaction struct {
	Key    string
	Count  int
	Active bool
}

// RenderReactions renders reaction pills; pills the viewer takes part in
// are highlighted.
func (s MessageStyles) RenderReactions(reactions []Reaction, width int) string {
	if len(reactions) == 0 {
		return ""
	}
	pills := make([]string, 0, len(reactions))
	for _, r := range reactions {
		label := fmt.Sprintf("[%s %d]", r.Key, r.Count)
		if r.Active {
			pills = append(pills, s.ReactionOn.Render(label))
		} else {
			pills = append(pills, s.ReactionOff.Render(label))
		}
	}
	return Wrap(strings.Join(pills, " "), width)
}

// RenderMedia renders a file-like message as a labelled link.
func (s MessageStyles) RenderMedia(kind, name, url string, width int) string {
	label := fmt.Sprintf("%s %s", mediaIcon(kind), name)
	line := s.Media.Render(truncate.StringWithTail(label, uint(maxInt(width, 1)), "…"))
	if url != "" {
		line += "\n" + s.Timestamp.Render(truncate.StringWithTail(url, uint(maxInt(width, 1)), "…"))
	}
	return line
}

// RenderSystem renders a membership or state line.
func (s MessageStyles) RenderSystem(text string, width int) string {
	return s.System.Render(Wrap("• "+text, width))
}

// RenderDivider renders a centered day divider.
func (s MessageStyles) RenderDivider(label string, width int) string {
	label = " " + label + " "
	side := (width - lipgloss.Width(label)) / 2
	if side < 1 {
		return s.Divider.Render(label)
	}
	return s.Divider.Render(strings.Repeat("─", side) + label + strings.Repeat("─", width-side-lipgloss.Width(label)))
}

// RenderIntro renders the room introduction shown at the start of history.
func (s MessageStyles) RenderIntro(heading, description string, width int) string {
	out := s.IntroHeading.Render(Wrap(heading, width))
	if description != "" {
		out += "\n" + s.Timestamp.Render(Wrap(description, width))
	}
	return out
}

// RenderPlaceholder renders one loading row.
func (s MessageStyles) RenderPlaceholder(width int) string {
	return s.Placeholder.Render(strings.Repeat("░", maxInt(1, minInt(width, 24))))
}

// Initial returns the uppercase first letter of a display name, skipping
// Matrix sigils.
func Initial(name string) string {
	name = strings.TrimLeft(strings.TrimSpace(name), "@#!+")
	for _, r := range name {
		return strings.ToUpper(string(r))
	}
	return "?"
}

// Wrap word-wraps every line of text to width.
func Wrap(text string, width int) string {
	if width <= 0 {
		return text
	}

	parts := strings.Split(text, "\n")
	for i := range parts {
		parts[i] = wordwrap.String(parts[i], width)
	}
	return strings.Join(parts, "\n")
}

func mediaIcon(kind string) string {
	switch kind {
	case "m.image":
		return "🖼"
	case "m.video":
		return "🎞"
	case "m.audio":
		return "🔊"
	default:
		return "📎"
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
