package tui

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tOgg1/mxview/internal/matrix"
	"github.com/tOgg1/mxview/internal/timeline"
	"github.com/tOgg1/mxview/internal/tui/styles"
)

func testRenderer() Renderer {
	return Renderer{
		Styles:   styles.NewMessageStyles(styles.DefaultTheme),
		Session:  matrix.Session{UserID: "@alice:hs", HomeserverURL: "https://hs.example"},
		Names:    func(id string) string { return map[string]string{"@bob:hs": "Bob"}[id] },
		Location: time.UTC,
	}
}

func joined(r Rendered) string {
	return strings.Join(r.Lines, "\n")
}

func TestRenderer_MessageBlocks(t *testing.T) {
	at := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	items := []timeline.Item{
		{Kind: timeline.ItemMessage, Key: "$a", Time: at, Message: &timeline.MessageBlock{
			EventID: "$a", SenderID: "@bob:hs", Timestamp: at, MsgType: matrix.MsgText,
			Body: timeline.Body{DisplayBody: "hello", IsEdited: true},
			Reactions: []timeline.ReactionGroup{
				{Key: "👍", Senders: []string{"@alice:hs", "@bob:hs"}, ViewerParticipates: true},
			},
		}},
		{Kind: timeline.ItemMessage, Key: "$b", Time: at, Message: &timeline.MessageBlock{
			EventID: "$b", SenderID: "@bob:hs", Timestamp: at, IsGrouped: true, MsgType: matrix.MsgText,
			Body: timeline.Body{
				DisplayBody:  "yes",
				IsReply:      true,
				ReplyPreview: &timeline.ReplyPreview{SenderID: "@carol:hs", QuotedText: "anyone?"},
			},
		}},
	}

	out := testRenderer().Render(items, 60, "$b")
	text := joined(out)

	require.Contains(t, text, "Bob")
	require.Contains(t, text, "hello")
	require.Contains(t, text, "(edited)")
	require.Contains(t, text, "[👍 2]")
	require.Contains(t, text, "│ carol")
	require.Contains(t, text, "anyone?")
	require.Equal(t, 1, strings.Count(text, "Bob"), "grouped block repeats no header")

	require.Len(t, out.Anchors, 2)
	require.Equal(t, 0, out.LineOf("$a"))
	require.Greater(t, out.LineOf("$b"), 0)
	require.Equal(t, -1, out.LineOf("$missing"))
	require.True(t, strings.HasPrefix(out.Lines[out.LineOf("$b")], "▌"))
}

func TestRenderer_OtherRows(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	items := []timeline.Item{
		{Kind: timeline.ItemPlaceholder, Key: "placeholder-0"},
		{Kind: timeline.ItemIntro, Key: "intro", Intro: &timeline.Intro{Heading: "Welcome to General", Description: "This is the beginning of General channel."}},
		{Kind: timeline.ItemDayDivider, Key: "divider-$x", Time: day},
		{Kind: timeline.ItemMembership, Key: "$j", Membership: &timeline.MembershipLine{Variant: timeline.VariantJoin, Content: "Bob joined the room"}},
		{Kind: timeline.ItemMessage, Key: "$f", Message: &timeline.MessageBlock{
			EventID: "$f", SenderID: "@bob:hs", MsgType: matrix.MsgFile,
			Media: &matrix.Media{MsgType: matrix.MsgFile, Name: "notes.pdf", URL: "mxc://hs/notes"},
		}},
		{Kind: timeline.ItemMessage, Key: "$enc", Message: &timeline.MessageBlock{EventID: "$enc", SenderID: "@bob:hs", IsGrouped: true, Encrypted: true}},
	}

	text := joined(testRenderer().Render(items, 80, ""))
	require.Contains(t, text, "░")
	require.Contains(t, text, "Welcome to General")
	require.Contains(t, text, "Monday, March 2, 2026")
	require.Contains(t, text, "Bob joined the room")
	require.Contains(t, text, "notes.pdf")
	require.Contains(t, text, "https://hs.example/_matrix/media/v3/download/hs/notes")
	require.Contains(t, text, "Unable to decrypt")
}

func TestMemberNames_UsesLatestDisplayName(t *testing.T) {
	bob := "@bob:hs"
	member := func(id, name string) *matrix.Event {
		return &matrix.Event{
			ID: id, Type: matrix.EventRoomMember, Sender: bob, StateKey: &bob,
			Content: []byte(`{"membership":"join","displayname":"` + name + `"}`),
		}
	}
	src := stubEvents{member("$1", "Bob"), member("$2", "Robert")}

	names := MemberNames(src)
	require.Equal(t, "Robert", names(bob))
	require.Equal(t, "carol", names("@carol:hs"))
}

type stubEvents []*matrix.Event

func (s stubEvents) Events() []*matrix.Event { return s }
