package store

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tOgg1/mxview/internal/matrix"
)

func eventIDs(events []*matrix.Event) []string {
	out := make([]string, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.ID)
	}
	return out
}

func TestTimeline_PaginatesBackToStart(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)
	loadSandbox(t, c)

	tl, err := c.Timeline(ctx, "!general:hs", 4)
	require.NoError(t, err)
	require.Equal(t, []string{"$m3", "$r1", "$m4"}, eventIDs(tl.Events())[1:])
	require.False(t, tl.ReachedStart())

	var mu sync.Mutex
	var changes []matrix.TimelineChange
	cancel := tl.Subscribe(func(ch matrix.TimelineChange) {
		mu.Lock()
		changes = append(changes, ch)
		mu.Unlock()
	})
	defer cancel()

	more, err := tl.PaginateBack(ctx)
	require.NoError(t, err)
	require.True(t, more)
	require.Len(t, tl.Events(), 8)

	more, err = tl.PaginateBack(ctx)
	require.NoError(t, err)
	require.False(t, more)
	require.True(t, tl.ReachedStart())
	require.Equal(t, "$create", tl.Events()[0].ID)
	require.False(t, tl.IsPaginating())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, changes, 2)
	require.Equal(t, matrix.ChangePaginated, changes[1].Kind)
	require.False(t, changes[1].CanPaginateMore)
}

func TestTimeline_IndexesEditsAndReactions(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)
	loadSandbox(t, c)

	tl, err := c.Timeline(ctx, "!general:hs", 50)
	require.NoError(t, err)
	require.True(t, tl.ReachedStart())

	require.Equal(t, []string{"$m2-edit"}, eventIDs(tl.EditsOf("$m2")))
	require.Equal(t, []string{"$r1"}, eventIDs(tl.ReactionsOf("$m3")))
	require.Empty(t, tl.ReactionsOf("$m1"))
}

func TestTimeline_RefreshDeliversNewEventsAndRedactions(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)
	loadSandbox(t, c)

	tl, err := c.Timeline(ctx, "!general:hs", 50)
	require.NoError(t, err)

	var got []string
	cancel := tl.Subscribe(func(ch matrix.TimelineChange) {
		got = append(got, fmt.Sprintf("%d:%s", ch.Kind, ch.Event.Type))
	})
	defer cancel()

	n, err := tl.Refresh(ctx)
	require.NoError(t, err)
	require.Zero(t, n)

	reaction, err := c.SendReaction(ctx, "!general:hs", "$m1", "🎉")
	require.NoError(t, err)
	n, err = tl.Refresh(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Len(t, tl.ReactionsOf("$m1"), 1)

	require.NoError(t, c.RedactEvent(ctx, "!general:hs", reaction))
	n, err = tl.Refresh(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Empty(t, tl.ReactionsOf("$m1"))

	require.Equal(t, []string{"0:m.reaction", "0:m.room.redaction"}, got)

	cancel()
	_, err = c.SendText(ctx, "!general:hs", "after cancel", nil)
	require.NoError(t, err)
	_, err = tl.Refresh(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
}

func TestTimeline_RequiresJoinedRoom(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)
	loadSandbox(t, c)

	require.NoError(t, c.LeaveRoom(ctx, "!dm:hs"))
	_, err := c.Timeline(ctx, "!dm:hs", 10)
	require.ErrorIs(t, err, ErrNotJoined)
}

func TestTimeline_ReactionEchoLastsUntilCommitLoads(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)
	loadSandbox(t, c)

	tl, err := c.Timeline(ctx, "!general:hs", 50)
	require.NoError(t, err)

	echo := &matrix.Event{
		Type:    matrix.EventReaction,
		Sender:  testSession.UserID,
		Content: []byte(`{"m.relates_to":{"rel_type":"m.annotation","event_id":"$m1","key":"🎉"}}`),
	}
	require.Empty(t, tl.Echo(&matrix.Event{Type: matrix.EventRoomMessage}))

	echoID := tl.Echo(echo)
	require.True(t, matrix.IsProvisional(echoID))
	require.Equal(t, []string{echoID}, eventIDs(tl.ReactionsOf("$m1")))
	require.NotContains(t, eventIDs(tl.Events()), echoID)

	committed, err := c.SendReaction(ctx, "!general:hs", "$m1", "🎉")
	require.NoError(t, err)
	tl.Settle(echoID, committed)
	require.Equal(t, 1, tl.PendingEchoes())

	_, err = tl.Refresh(ctx)
	require.NoError(t, err)
	require.Zero(t, tl.PendingEchoes())
	require.Equal(t, []string{committed}, eventIDs(tl.ReactionsOf("$m1")))

	// A failed send drops the echo at once.
	failed := tl.Echo(echo)
	tl.Settle(failed, "")
	require.Zero(t, tl.PendingEchoes())

	// A commit that is already loaded drops the echo at once too.
	late := tl.Echo(echo)
	tl.Settle(late, committed)
	require.Zero(t, tl.PendingEchoes())
}
