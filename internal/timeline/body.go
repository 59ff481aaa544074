package timeline

import (
	"strings"

	"github.com/tOgg1/mxview/internal/matrix"
)

// ReplyPreview is the quoted part of a reply fallback body.
type ReplyPreview struct {
	SenderID   string
	QuotedText string
}

// Body is the resolved, displayable content of a message.
type Body struct {
	DisplayBody  string
	Format       string
	IsEdited     bool
	IsReply      bool
	ReplyPreview *ReplyPreview
}

// ResolveBody picks the body to display for ev. The last entry of edits (in
// arrival order) replaces the original body; a malformed latest edit falls
// back to the original rather than to an earlier edit. The selected body is
// then split into reply preview and remainder when it carries a reply
// fallback.
func ResolveBody(ev *matrix.Event, edits []*matrix.Event) Body {
	raw, _ := ev.Body()
	out := Body{Format: ev.Format()}

	if len(edits) > 0 {
		if nc, ok := edits[len(edits)-1].NewContent(); ok {
			raw = nc.Body
			out.Format = nc.Format
			out.IsEdited = true
		}
	}

	out.DisplayBody = raw
	if preview, rest, ok := ParseReplyFallback(raw); ok {
		out.ReplyPreview = &preview
		out.DisplayBody = rest
	}
	out.IsReply = out.ReplyPreview != nil || ev.InReplyTo() != ""
	return out
}

// ParseReplyFallback splits a body of the form
//
//	> <@alice:example.org> quoted line
//	> more quoted text
//
//	actual reply
//
// into the quoted sender/text and the remainder. Emote quotes
// ("> * <@alice:example.org> waves") are accepted too. ok is false when body
// carries no well-formed fallback; body is then meant to be shown unchanged.
func ParseReplyFallback(body string) (ReplyPreview, string, bool) {
	if !strings.HasPrefix(body, "> ") {
		return ReplyPreview{}, "", false
	}
	lines := strings.Split(body, "\n")

	head := strings.TrimPrefix(lines[0], "> ")
	head = strings.TrimPrefix(head, "* ")
	if !strings.HasPrefix(head, "<") {
		return ReplyPreview{}, "", false
	}
	end := strings.Index(head, ">")
	if end < 0 {
		return ReplyPreview{}, "", false
	}
	sender := head[1:end]
	if !looksLikeUserID(sender) {
		return ReplyPreview{}, "", false
	}

	quoted := []string{strings.TrimPrefix(head[end+1:], " ")}
	i := 1
	for ; i < len(lines) && strings.HasPrefix(lines[i], ">"); i++ {
		line := strings.TrimPrefix(lines[i], ">")
		quoted = append(quoted, strings.TrimPrefix(line, " "))
	}

	rest := ""
	switch {
	case i == len(lines):
	case lines[i] == "":
		rest = strings.Join(lines[i+1:], "\n")
	default:
		return ReplyPreview{}, "", false
	}

	return ReplyPreview{SenderID: sender, QuotedText: strings.Join(quoted, "\n")}, rest, true
}

func looksLikeUserID(s string) bool {
	if !strings.HasPrefix(s, "@") || strings.ContainsAny(s, " \t") {
		return false
	}
	colon := strings.Index(s, ":")
	return colon > 1 && colon < len(s)-1
}
