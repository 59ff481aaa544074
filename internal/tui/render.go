// Package tui is the interactive terminal front end: a room list beside the
// projected timeline of the focused room.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/tOgg1/mxview/internal/matrix"
	"github.com/tOgg1/mxview/internal/timeline"
	"github.com/tOgg1/mxview/internal/tui/styles"
)

const (
	bodyIndent    = "    "
	quoteMaxLines = 3
	dividerLayout = "Monday, January 2, 2006"
)

// Anchor records the first line of a message row.
type Anchor struct {
	EventID string
	Line    int
}

// Rendered is a flattened timeline ready for the viewport.
type Rendered struct {
	Lines   []string
	Anchors []Anchor
}

// LineOf returns the first line of eventID, or -1.
func (r Rendered) LineOf(eventID string) int {
	for _, a := range r.Anchors {
		if a.EventID == eventID {
			return a.Line
		}
	}
	return -1
}

// Renderer turns projected rows into terminal lines.
type Renderer struct {
	Styles         styles.MessageStyles
	Session        matrix.Session
	Names          timeline.NameFunc
	Location       *time.Location
	ShowTimestamps bool
	Compact        bool
}

// Render lays out items for width columns. The message whose id equals
// selected gets a gutter marker.
func (r Renderer) Render(items []timeline.Item, width int, selected string) Rendered {
	if width < 10 {
		width = 10
	}
	var out Rendered
	for i, item := range items {
		var block string
		switch item.Kind {
		case timeline.ItemPlaceholder:
			block = r.Styles.RenderPlaceholder(width)
		case timeline.ItemIntro:
			block = r.renderIntro(item.Intro, width)
		case timeline.ItemDayDivider:
			block = r.Styles.RenderDivider(item.Time.In(r.location()).Format(dividerLayout), width)
		case timeline.ItemMembership:
			if item.Membership == nil {
				continue
			}
			block = r.Styles.RenderSystem(item.Membership.Content, width)
		case timeline.ItemMessage:
			if item.Message == nil {
				continue
			}
			if !item.Message.IsGrouped && !r.Compact && i > 0 {
				out.Lines = append(out.Lines, "")
			}
			out.Anchors = append(out.Anchors, Anchor{EventID: item.Message.EventID, Line: len(out.Lines)})
			block = r.renderMessage(item.Message, width-1)
			block = r.gutter(block, item.Message.EventID == selected)
		default:
			continue
		}
		out.Lines = append(out.Lines, strings.Split(block, "\n")...)
	}
	return out
}

func (r Renderer) renderIntro(intro *timeline.Intro, width int) string {
	if intro == nil {
		return ""
	}
	desc := intro.Description
	if intro.CreatedAt != nil {
		desc += fmt.Sprintf(" Created at %s.", intro.CreatedAt.In(r.location()).Format("2006-01-02"))
	}
	return r.Styles.RenderIntro(intro.Heading, desc, width)
}

func (r Renderer) renderMessage(m *timeline.MessageBlock, width int) string {
	inner := width - len(bodyIndent)
	if inner < 1 {
		inner = 1
	}

	var parts []string
	if !m.IsGrouped {
		parts = append(parts, r.Styles.RenderHeader(m.SenderID, r.name(m.SenderID), m.Timestamp, r.ShowTimestamps))
	}

	var body []string
	if m.Body.IsReply && m.Body.ReplyPreview != nil {
		body = append(body, r.Styles.RenderQuote(r.name(m.Body.ReplyPreview.SenderID), m.Body.ReplyPreview.QuotedText, inner, quoteMaxLines))
	}
	switch {
	case m.Encrypted:
		body = append(body, r.Styles.RenderEncrypted())
	case m.Media != nil:
		body = append(body, r.Styles.RenderMedia(m.MsgType, m.Media.Name, r.Session.MXCToHTTP(m.Media.URL), inner))
	case m.MsgType == matrix.MsgEmote:
		body = append(body, r.Styles.RenderBody("* "+r.name(m.SenderID)+" "+m.Body.DisplayBody, m.Body.IsEdited, inner))
	default:
		body = append(body, r.Styles.RenderBody(m.Body.DisplayBody, m.Body.IsEdited, inner))
	}
	if pills := r.Styles.RenderReactions(reactionPills(m.Reactions), inner); pills != "" {
		body = append(body, pills)
	}

	for _, b := range body {
		parts = append(parts, indent(b, bodyIndent))
	}
	return strings.Join(parts, "\n")
}

func (r Renderer) gutter(block string, selected bool) string {
	mark := " "
	if selected {
		mark = r.Styles.Selected.Render("▌")
	}
	lines := strings.Split(block, "\n")
	for i := range lines {
		lines[i] = mark + lines[i]
	}
	return strings.Join(lines, "\n")
}

func (r Renderer) name(userID string) string {
	if r.Names != nil {
		if n := r.Names(userID); n != "" {
			return n
		}
	}
	return matrix.Localpart(userID)
}

func (r Renderer) location() *time.Location {
	if r.Location == nil {
		return time.Local
	}
	return r.Location
}

func reactionPills(groups []timeline.ReactionGroup) []styles.Reaction {
	if len(groups) == 0 {
		return nil
	}
	out := make([]styles.Reaction, 0, len(groups))
	for _, g := range groups {
		out = append(out, styles.Reaction{Key: g.Key, Count: g.Count(), Active: g.ViewerParticipates})
	}
	return out
}

func indent(block, prefix string) string {
	lines := strings.Split(block, "\n")
	for i := range lines {
		lines[i] = prefix + lines[i]
	}
	return strings.Join(lines, "\n")
}

// MemberNames resolves display names from the member events loaded in tl,
// falling back to the localpart.
func MemberNames(tl interface{ Events() []*matrix.Event }) timeline.NameFunc {
	return func(userID string) string {
		evs := tl.Events()
		for i := len(evs) - 1; i >= 0; i-- {
			ev := evs[i]
			if ev == nil || ev.Type != matrix.EventRoomMember || ev.Target() != userID {
				continue
			}
			if dn := strings.TrimSpace(ev.DisplayName()); dn != "" {
				return dn
			}
			break
		}
		return matrix.Localpart(userID)
	}
}
