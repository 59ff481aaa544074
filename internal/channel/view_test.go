package channel

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tOgg1/mxview/internal/events"
	"github.com/tOgg1/mxview/internal/matrix"
	"github.com/tOgg1/mxview/internal/timeline"
)

const roomID = "!room:hs"

type harness struct {
	view     *View
	timeline *fakeTimeline
	room     *fakeRoom
	scroll   *fakeScroll
	bus      *events.InMemoryBus
	cmds     *fakeCommands
	renders  int
	confirm  bool
}

func newHarness(t *testing.T, tl *fakeTimeline, scrollableAfter int) *harness {
	t.Helper()
	h := &harness{
		timeline: tl,
		room:     &fakeRoom{id: roomID, name: "General"},
		scroll:   &fakeScroll{scrollableAfter: scrollableAfter, timeline: tl},
		bus:      events.NewInMemoryBus(),
		cmds:     &fakeCommands{},
	}
	view, err := New(Config{
		Session:  matrix.Session{UserID: "@me:hs"},
		Timeline: tl,
		Room:     h.room,
		Scroll:   h.scroll,
		Bus:      h.bus,
		Commands: h.cmds,
		Confirm:  func(context.Context, string, string) bool { return h.confirm },
		Location: time.UTC,
		OnChange: func() { h.renders++ },
	})
	require.NoError(t, err)
	h.view = view
	t.Cleanup(view.Stop)
	return h
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)

	tl := newFakeTimeline(roomID)
	_, err = New(Config{Timeline: tl, Room: &fakeRoom{}, Scroll: &fakeScroll{timeline: tl}, Bus: events.NewInMemoryBus(), Commands: &fakeCommands{}})
	require.Error(t, err, "session user id is required")
}

func TestStart_ScrollsToBottomAndAutoLoads(t *testing.T) {
	tl := newFakeTimeline(roomID, text("$3", "@a:hs", 3*time.Minute, "three"))
	tl.pages = [][]*matrix.Event{
		{text("$2", "@a:hs", 2*time.Minute, "two")},
		{text("$1", "@a:hs", time.Minute, "one")},
		{text("$0", "@a:hs", 0, "zero")},
	}
	h := newHarness(t, tl, 3)

	require.NoError(t, h.view.Start(context.Background()))
	require.Equal(t, 1, h.scroll.bottoms)
	require.Equal(t, 2, tl.paginated)
	require.Equal(t, 2, h.scroll.restores)
	require.False(t, h.view.ReachedStart())

	require.ErrorIs(t, h.view.Start(context.Background()), ErrAlreadyStarted)
}

func TestReachedTop_PaginatesUntilStart(t *testing.T) {
	tl := newFakeTimeline(roomID, text("$2", "@a:hs", 2*time.Minute, "two"))
	tl.pages = [][]*matrix.Event{{text("$1", "@a:hs", time.Minute, "one")}}
	h := newHarness(t, tl, 1)
	require.NoError(t, h.view.Start(context.Background()))
	require.Equal(t, 0, tl.paginated)

	h.bus.Emit(context.Background(), &events.Signal{Type: events.SignalReachedTop, RoomID: roomID})
	require.Equal(t, 1, tl.paginated)
	require.True(t, h.view.ReachedStart())

	// Start of history reached: further signals are ignored.
	h.bus.Emit(context.Background(), &events.Signal{Type: events.SignalReachedTop, RoomID: roomID})
	require.Equal(t, 1, tl.paginated)

	items := h.view.Render()
	require.Equal(t, timeline.ItemIntro, items[0].Kind)
	require.Equal(t, "Welcome to General", items[0].Intro.Heading)
}

func TestReachedTop_IgnoredWhilePaginatingOrForOtherRooms(t *testing.T) {
	tl := newFakeTimeline(roomID, text("$2", "@a:hs", 0, "two"))
	tl.pages = [][]*matrix.Event{{text("$1", "@a:hs", 0, "one")}}
	h := newHarness(t, tl, 1)
	require.NoError(t, h.view.Start(context.Background()))

	h.bus.Emit(context.Background(), &events.Signal{Type: events.SignalReachedTop, RoomID: "!other:hs"})
	require.Equal(t, 0, tl.paginated)

	tl.paginating = true
	h.bus.Emit(context.Background(), &events.Signal{Type: events.SignalReachedTop, RoomID: roomID})
	require.Equal(t, 0, tl.paginated)
}

func TestReadReceipts_FollowScrollPosition(t *testing.T) {
	tl := newFakeTimeline(roomID, text("$1", "@a:hs", 0, "one"))
	h := newHarness(t, tl, 0)
	h.room.notif = matrix.Notifications{Total: 2}

	var unread []bool
	require.NoError(t, h.bus.Subscribe("test", events.Filter{Types: []events.SignalType{events.SignalUnreadChanged}}, func(sig *events.Signal) {
		unread = append(unread, sig.Unread)
	}))

	require.NoError(t, h.view.Start(context.Background()))
	require.Equal(t, []string{"$1"}, h.cmds.receipts)
	require.Equal(t, []bool{false}, unread)

	// Scrolled away: new events neither mark read nor scroll.
	h.bus.Emit(context.Background(), &events.Signal{Type: events.SignalToggleReachedBottom, RoomID: roomID, AtBottom: false})
	require.False(t, h.view.AtBottom())
	bottoms := h.scroll.bottoms
	tl.append(text("$2", "@b:hs", time.Minute, "two"))
	require.Equal(t, []string{"$1"}, h.cmds.receipts)
	require.Equal(t, bottoms, h.scroll.bottoms)
	require.Positive(t, h.renders)

	// Back at the bottom: the last event is acknowledged.
	h.bus.Emit(context.Background(), &events.Signal{Type: events.SignalToggleReachedBottom, RoomID: roomID, AtBottom: true})
	require.Equal(t, []string{"$1", "$2"}, h.cmds.receipts)

	tl.append(text("$3", "@b:hs", 2*time.Minute, "three"))
	require.Equal(t, []string{"$1", "$2", "$3"}, h.cmds.receipts)
	require.Equal(t, bottoms+1, h.scroll.bottoms)
}

func TestReadReceipts_SkippedWithoutUnread(t *testing.T) {
	tl := newFakeTimeline(roomID, text("$1", "@a:hs", 0, "one"))
	h := newHarness(t, tl, 0)

	require.NoError(t, h.view.Start(context.Background()))
	tl.append(text("$2", "@a:hs", time.Minute, "two"))
	require.Empty(t, h.cmds.receipts)
}

func TestStop_DetachesSubscriptions(t *testing.T) {
	tl := newFakeTimeline(roomID, text("$1", "@a:hs", 0, "one"))
	tl.pages = [][]*matrix.Event{{text("$0", "@a:hs", 0, "zero")}}
	h := newHarness(t, tl, 0)
	require.NoError(t, h.view.Start(context.Background()))

	h.view.Stop()
	h.view.Stop()
	require.Equal(t, 0, h.bus.SubscriberCount())

	h.bus.Emit(context.Background(), &events.Signal{Type: events.SignalReachedTop, RoomID: roomID})
	require.Equal(t, 0, tl.paginated)
}

func TestRequestReply_EmitsResolvedBody(t *testing.T) {
	replyTo := text("$q", "@a:hs", 0, "> <@b:hs> original\n\nthe answer")
	media := &matrix.Event{
		ID:        "$img",
		RoomID:    roomID,
		Type:      matrix.EventRoomMessage,
		Sender:    "@b:hs",
		Timestamp: base,
		Content:   mustJSON(map[string]any{"msgtype": "m.image", "body": "cat.png", "url": "mxc://hs/cat"}),
	}
	tl := newFakeTimeline(roomID, replyTo, media)
	h := newHarness(t, tl, 0)

	var got []*events.ReplyRequest
	require.NoError(t, h.bus.Subscribe("composer", events.Filter{Types: []events.SignalType{events.SignalReplyRequested}}, func(sig *events.Signal) {
		got = append(got, sig.Reply)
	}))

	_, err := h.view.RequestReply(context.Background(), "$q")
	require.NoError(t, err)
	_, err = h.view.RequestReply(context.Background(), "$img")
	require.NoError(t, err)

	require.Len(t, got, 2)
	require.Equal(t, events.ReplyRequest{SenderID: "@a:hs", EventID: "$q", QuotedBody: "the answer"}, *got[0])
	require.Equal(t, "cat.png", got[1].QuotedBody)

	_, err = h.view.RequestReply(context.Background(), "$missing")
	require.ErrorIs(t, err, ErrEventNotFound)
}

func TestRedact_RequiresPermissionAndConfirmation(t *testing.T) {
	tl := newFakeTimeline(roomID,
		text("$theirs", "@a:hs", 0, "theirs"),
		text("$mine", "@me:hs", time.Minute, "mine"),
	)
	h := newHarness(t, tl, 0)

	sent, err := h.view.Redact(context.Background(), "$theirs")
	require.False(t, sent)
	require.True(t, errors.Is(err, matrix.ErrNotPermitted))

	sent, err = h.view.Redact(context.Background(), "$mine")
	require.NoError(t, err)
	require.False(t, sent, "declined confirmation must not redact")
	require.Empty(t, h.cmds.redacted)

	h.confirm = true
	sent, err = h.view.Redact(context.Background(), "$mine")
	require.NoError(t, err)
	require.True(t, sent)

	h.room.canRedact = true
	sent, err = h.view.Redact(context.Background(), "$theirs")
	require.NoError(t, err)
	require.True(t, sent)
	require.Equal(t, []string{"$mine", "$theirs"}, h.cmds.redacted)
}

func TestToggleReaction_UsesViewerReactions(t *testing.T) {
	tl := newFakeTimeline(roomID,
		text("$m", "@a:hs", 0, "hello"),
		reaction("$r1", "@me:hs", "$m", "👍"),
	)
	h := newHarness(t, tl, 0)

	action, err := h.view.ToggleReaction(context.Background(), "$m", "👍")
	require.NoError(t, err)
	require.Equal(t, timeline.ToggleRetract, action.Kind)
	require.Equal(t, []string{"$r1"}, h.cmds.redacted)

	require.NoError(t, h.view.PickReaction(context.Background(), "$m", "🎉"))
	require.Equal(t, []string{"$m/🎉"}, h.cmds.sent)

	require.NoError(t, h.view.PickReaction(context.Background(), "$m", ""))
	require.Len(t, h.cmds.sent, 1)

	_, err = h.view.ToggleReaction(context.Background(), "$nope", "👍")
	require.ErrorIs(t, err, ErrEventNotFound)
}

func TestToggleReaction_PendingEchoIgnoresRepeatToggle(t *testing.T) {
	tl := newFakeTimeline(roomID, text("$m", "@a:hs", 0, "hello"))
	h := newHarness(t, tl, 0)
	ctx := context.Background()

	action, err := h.view.ToggleReaction(ctx, "$m", "🎉")
	require.NoError(t, err)
	require.Equal(t, timeline.ToggleSend, action.Kind)
	require.Equal(t, "$sent", action.EventID)
	require.Equal(t, []string{"~echo-0->$sent"}, tl.settled)

	// The echo stays until the committed reaction is loaded.
	pending := tl.ReactionsOf("$m")
	require.Len(t, pending, 1)
	require.True(t, matrix.IsProvisional(pending[0].ID))

	action, err = h.view.ToggleReaction(ctx, "$m", "🎉")
	require.NoError(t, err)
	require.Equal(t, timeline.ToggleIgnore, action.Kind)
	require.Equal(t, pending[0].ID, action.EventID)
	require.Equal(t, []string{"$m/🎉"}, h.cmds.sent)
	require.Empty(t, h.cmds.redacted)
}

func TestToggleReaction_FailedSendDropsEcho(t *testing.T) {
	tl := newFakeTimeline(roomID, text("$m", "@a:hs", 0, "hello"))
	h := newHarness(t, tl, 0)
	h.cmds.sendErr = errors.New("offline")

	_, err := h.view.ToggleReaction(context.Background(), "$m", "👍")
	require.ErrorContains(t, err, "offline")
	require.Equal(t, []string{"~echo-0->"}, tl.settled)
	require.Empty(t, tl.ReactionsOf("$m"))
}
