package timeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tOgg1/mxview/internal/matrix"
)

func TestProject_PlaceholdersUntilStartReached(t *testing.T) {
	src := newFakeSource(textEvent("$1", "@a:hs", 0, "hello"))

	items := Project(src, Options{RoomName: "General", Location: time.UTC})
	require.Len(t, items, 4)
	for i := 0; i < 3; i++ {
		require.Equal(t, ItemPlaceholder, items[i].Kind)
	}
	require.Equal(t, []string{"$1"}, messageKeys(items))

	items = Project(src, Options{RoomName: "General", ReachedStart: true, Location: time.UTC})
	require.Equal(t, ItemIntro, items[0].Kind)
	require.Equal(t, "intro", items[0].Key)
	require.Equal(t, "Welcome to General", items[0].Intro.Heading)
	require.Nil(t, items[0].Intro.CreatedAt)
}

func TestProject_CreateEventBecomesIntro(t *testing.T) {
	src := newFakeSource(
		createEvent("$c", "@a:hs"),
		memberEvent("$j", "@a:hs", "@a:hs", "join", time.Second),
		textEvent("$1", "@a:hs", 2*time.Second, "first"),
	)

	items := Project(src, Options{RoomName: "General", RoomTopic: "chat", Location: time.UTC})
	require.Equal(t, "134", kinds(items))

	intro := items[0].Intro
	require.Equal(t, "$c", items[0].Key)
	require.Equal(t, "This is the beginning of General channel. Topic: chat", intro.Description)
	require.NotNil(t, intro.CreatedAt)
	require.Equal(t, "a joined the room", items[1].Membership.Content)

	// A membership change breaks grouping even for the same sender.
	require.False(t, items[2].Message.IsGrouped)
}

func TestProject_GroupingAndDayDivider(t *testing.T) {
	src := newFakeSource(
		createEvent("$c", "@a:hs"),
		textEvent("$1", "@a:hs", time.Hour, "one"),
		textEvent("$2", "@a:hs", time.Hour+4*time.Minute, "two"),
		textEvent("$3", "@a:hs", time.Hour+10*time.Minute, "three"),
		textEvent("$4", "@a:hs", 26*time.Hour, "next day"),
	)

	items := Project(src, Options{Location: time.UTC})
	require.Equal(t, []string{"$1", "$2", "$3", "$4"}, messageKeys(items))

	var grouped []bool
	for _, it := range items {
		if it.Kind == ItemMessage {
			grouped = append(grouped, it.Message.IsGrouped)
		}
	}
	require.Equal(t, []bool{false, true, false, false}, grouped)

	require.Equal(t, ItemDayDivider, items[len(items)-2].Kind)
	require.Equal(t, "divider-$4", items[len(items)-2].Key)
}

func TestProject_EditsAndReactionsFoldIntoTarget(t *testing.T) {
	src := newFakeSource(
		createEvent("$c", "@a:hs"),
		textEvent("$1", "@a:hs", time.Minute, "typo"),
		editEvent("$e", "@a:hs", "$1", 2*time.Minute, "fixed"),
		reactionEvent("$r", "@b:hs", "$1", "👍"),
	)

	items := Project(src, Options{ViewerID: "@b:hs", Location: time.UTC})
	require.Equal(t, []string{"$1"}, messageKeys(items))

	msg := items[len(items)-1].Message
	require.Equal(t, "fixed", msg.Body.DisplayBody)
	require.True(t, msg.Body.IsEdited)
	require.Len(t, msg.Reactions, 1)
	require.True(t, msg.Reactions[0].ViewerParticipates)
}

func TestProject_EncryptedAndBodilessEvents(t *testing.T) {
	enc := &matrix.Event{
		ID:        "$enc",
		Type:      matrix.EventRoomEncrypted,
		Sender:    "@a:hs",
		Timestamp: base.Add(time.Minute),
		Content:   content(map[string]any{"algorithm": "m.megolm.v1.aes-sha2"}),
	}
	bodiless := &matrix.Event{
		ID:        "$nobody",
		Type:      matrix.EventRoomMessage,
		Sender:    "@a:hs",
		Timestamp: base.Add(2 * time.Minute),
		Content:   content(map[string]any{"msgtype": "m.text"}),
	}
	src := newFakeSource(createEvent("$c", "@a:hs"), enc, bodiless, textEvent("$1", "@a:hs", 3*time.Minute, "ok"))

	items := Project(src, Options{Location: time.UTC})
	require.Equal(t, []string{"$enc", "$1"}, messageKeys(items))
	require.True(t, items[1].Message.Encrypted)
	require.True(t, items[2].Message.IsGrouped)
}

func TestProject_ReplyPreviewInBlock(t *testing.T) {
	src := newFakeSource(
		createEvent("$c", "@a:hs"),
		textEvent("$1", "@b:hs", time.Minute, "> <@a:hs> hi\n\nhello back"),
	)

	items := Project(src, Options{Location: time.UTC})
	body := items[len(items)-1].Message.Body
	require.True(t, body.IsReply)
	require.Equal(t, "hello back", body.DisplayBody)
	require.Equal(t, "@a:hs", body.ReplyPreview.SenderID)
}
