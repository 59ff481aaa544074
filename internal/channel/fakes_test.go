package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/tOgg1/mxview/internal/matrix"
)

var base = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type fakeTimeline struct {
	mu         sync.Mutex
	roomID     string
	events     []*matrix.Event
	pages      [][]*matrix.Event
	paginating bool
	paginated  int
	subs       map[int]func(matrix.TimelineChange)
	nextSub    int
	settled    []string
}

func newFakeTimeline(roomID string, events ...*matrix.Event) *fakeTimeline {
	return &fakeTimeline{roomID: roomID, events: events, subs: make(map[int]func(matrix.TimelineChange))}
}

func (t *fakeTimeline) RoomID() string { return t.roomID }

func (t *fakeTimeline) Events() []*matrix.Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*matrix.Event(nil), t.events...)
}

func (t *fakeTimeline) EditsOf(id string) []*matrix.Event {
	return t.related(id, matrix.RelReplace)
}

func (t *fakeTimeline) ReactionsOf(id string) []*matrix.Event {
	return t.related(id, matrix.RelAnnotation)
}

func (t *fakeTimeline) related(id string, rel matrix.RelationType) []*matrix.Event {
	var out []*matrix.Event
	for _, ev := range t.Events() {
		if r := ev.Relation(); r != nil && r.Type == rel && r.EventID == id {
			out = append(out, ev)
		}
	}
	return out
}

func (t *fakeTimeline) PaginateBack(context.Context) (bool, error) {
	t.mu.Lock()
	t.paginated++
	if len(t.pages) > 0 {
		page := t.pages[0]
		t.pages = t.pages[1:]
		t.events = append(append([]*matrix.Event(nil), page...), t.events...)
	}
	more := len(t.pages) > 0
	t.mu.Unlock()

	t.notify(matrix.TimelineChange{Kind: matrix.ChangePaginated, CanPaginateMore: more})
	return more, nil
}

func (t *fakeTimeline) IsPaginating() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.paginating
}

func (t *fakeTimeline) Subscribe(fn func(matrix.TimelineChange)) func() {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.nextSub
	t.nextSub++
	t.subs[id] = fn
	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		delete(t.subs, id)
	}
}

func (t *fakeTimeline) append(ev *matrix.Event) {
	t.mu.Lock()
	t.events = append(t.events, ev)
	t.mu.Unlock()
	t.notify(matrix.TimelineChange{Kind: matrix.ChangeEvent, Event: ev})
}

func (t *fakeTimeline) notify(change matrix.TimelineChange) {
	t.mu.Lock()
	subs := make([]func(matrix.TimelineChange), 0, len(t.subs))
	for _, fn := range t.subs {
		subs = append(subs, fn)
	}
	t.mu.Unlock()
	for _, fn := range subs {
		fn(change)
	}
}

func (t *fakeTimeline) Echo(ev *matrix.Event) string {
	echo := *ev
	t.mu.Lock()
	echo.ID = fmt.Sprintf("%secho-%d", matrix.ProvisionalPrefix, len(t.settled))
	t.mu.Unlock()
	t.append(&echo)
	return echo.ID
}

func (t *fakeTimeline) Settle(provisionalID, committedID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.settled = append(t.settled, provisionalID+"->"+committedID)
	if committedID != "" {
		return
	}
	for i, ev := range t.events {
		if ev.ID == provisionalID {
			t.events = append(t.events[:i], t.events[i+1:]...)
			return
		}
	}
}

type fakeRoom struct {
	id        string
	name      string
	canRedact bool
	notif     matrix.Notifications
}

func (r *fakeRoom) ID() string                                 { return r.id }
func (r *fakeRoom) Name() string                               { return r.name }
func (r *fakeRoom) Topic() string                              { return "" }
func (r *fakeRoom) AvatarURL() string                          { return "" }
func (r *fakeRoom) JoinRule() string                           { return "invite" }
func (r *fakeRoom) IsEncrypted() bool                          { return false }
func (r *fakeRoom) IsDirect() bool                             { return false }
func (r *fakeRoom) IsSpace() bool                              { return false }
func (r *fakeRoom) MaySendState(matrix.EventType, string) bool { return false }
func (r *fakeRoom) CanRedact(string) bool                      { return r.canRedact }
func (r *fakeRoom) CanInvite(string) bool                      { return false }
func (r *fakeRoom) Notifications() matrix.Notifications        { return r.notif }

type fakeScroll struct {
	scrollableAfter int
	timeline        *fakeTimeline
	bottoms         int
	restores        int
}

func (s *fakeScroll) IsScrollable() bool {
	return len(s.timeline.Events()) >= s.scrollableAfter
}
func (s *fakeScroll) ReachBottom()        { s.bottoms++ }
func (s *fakeScroll) TryRestoringScroll() { s.restores++ }

type fakeCommands struct {
	mu       sync.Mutex
	receipts []string
	redacted []string
	sent     []string
	sendErr  error
}

func (c *fakeCommands) SendReaction(_ context.Context, _, targetID, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return "", c.sendErr
	}
	c.sent = append(c.sent, targetID+"/"+key)
	return "$sent", nil
}

func (c *fakeCommands) RedactEvent(_ context.Context, _, eventID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.redacted = append(c.redacted, eventID)
	return nil
}

func (c *fakeCommands) SendReadReceipt(_ context.Context, ev *matrix.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.receipts = append(c.receipts, ev.ID)
	return nil
}

func mustJSON(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}

func text(id, sender string, at time.Duration, body string) *matrix.Event {
	return &matrix.Event{
		ID:        id,
		RoomID:    "!room:hs",
		Type:      matrix.EventRoomMessage,
		Sender:    sender,
		Timestamp: base.Add(at),
		Content:   mustJSON(map[string]any{"msgtype": "m.text", "body": body}),
	}
}

func reaction(id, sender, target, key string) *matrix.Event {
	return &matrix.Event{
		ID:        id,
		RoomID:    "!room:hs",
		Type:      matrix.EventReaction,
		Sender:    sender,
		Timestamp: base,
		Content:   mustJSON(map[string]any{"m.relates_to": map[string]any{"rel_type": "m.annotation", "event_id": target, "key": key}}),
	}
}
