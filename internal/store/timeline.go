package store

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
	"go.uber.org/atomic"

	"github.com/tOgg1/mxview/internal/db"
	"github.com/tOgg1/mxview/internal/logging"
	"github.com/tOgg1/mxview/internal/matrix"
)

// Timeline is a windowed view of one stored room timeline. It starts with the
// newest page loaded, grows backwards on PaginateBack and forwards on
// Refresh.
type Timeline struct {
	roomID   string
	repo     *db.EventRepository
	pageSize int
	logger   zerolog.Logger

	mu           sync.RWMutex
	events       []*matrix.Event
	oldestSeq    int64
	newestSeq    int64
	reachedStart bool
	edits        map[string][]*matrix.Event
	reactions    map[string][]*matrix.Event
	// echoes are provisional reactions in send order; settled maps a
	// committed event id to the echo it replaces.
	echoes  []*matrix.Event
	settled map[string]string

	paginating atomic.Bool

	subMu   sync.Mutex
	subs    map[int]func(matrix.TimelineChange)
	nextSub int
}

var (
	_ matrix.Timeline  = (*Timeline)(nil)
	_ matrix.LocalEcho = (*Timeline)(nil)
)

func openTimeline(ctx context.Context, repo *db.EventRepository, roomID string, pageSize int) (*Timeline, error) {
	if pageSize <= 0 {
		pageSize = db.DefaultPageSize
	}
	t := &Timeline{
		roomID:   roomID,
		repo:     repo,
		pageSize: pageSize,
		logger:   logging.WithRoom(roomID).With().Str("component", "timeline").Logger(),
		subs:     make(map[int]func(matrix.TimelineChange)),
		settled:  make(map[string]string),
	}

	page, err := repo.Latest(ctx, roomID, pageSize)
	if err != nil {
		return nil, err
	}
	t.events = unwrap(page)
	if len(page) > 0 {
		t.oldestSeq = page[0].Seq
		t.newestSeq = page[len(page)-1].Seq
	}
	t.reachedStart = len(page) < pageSize
	t.reindex()
	return t, nil
}

func (t *Timeline) RoomID() string { return t.roomID }

// Events returns a copy of the loaded events, oldest first.
func (t *Timeline) Events() []*matrix.Event {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*matrix.Event, len(t.events))
	copy(out, t.events)
	return out
}

func (t *Timeline) EditsOf(id string) []*matrix.Event {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]*matrix.Event(nil), t.edits[id]...)
}

// ReactionsOf returns the loaded reactions on id followed by pending echoes.
func (t *Timeline) ReactionsOf(id string) []*matrix.Event {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := append([]*matrix.Event(nil), t.reactions[id]...)
	for _, ev := range t.echoes {
		if rel := ev.Relation(); rel != nil && rel.EventID == id {
			out = append(out, ev)
		}
	}
	return out
}

// Echo shows a reaction the viewer is sending. Only reactions are echoed;
// other events are ignored and get an empty id.
func (t *Timeline) Echo(ev *matrix.Event) string {
	if ev == nil || ev.Type != matrix.EventReaction {
		return ""
	}
	echo := *ev
	echo.ID = matrix.ProvisionalPrefix + uuid.NewString()
	echo.RoomID = t.roomID

	t.mu.Lock()
	t.echoes = append(t.echoes, &echo)
	t.mu.Unlock()

	t.logger.Debug().Str("event_id", echo.ID).Msg("reaction echoed")
	t.notify(matrix.TimelineChange{Kind: matrix.ChangeEvent, Event: &echo})
	return echo.ID
}

// Settle ends the echo provisionalID. A failed send drops it at once; a
// committed one is dropped when committedID is loaded.
func (t *Timeline) Settle(provisionalID, committedID string) {
	t.mu.Lock()
	dropNow := committedID == "" || t.loaded(committedID)
	if dropNow {
		t.dropEcho(provisionalID)
	} else {
		t.settled[committedID] = provisionalID
	}
	t.mu.Unlock()

	if dropNow {
		t.notify(matrix.TimelineChange{Kind: matrix.ChangeEvent})
	}
}

// PendingEchoes returns how many echoes are still shown.
func (t *Timeline) PendingEchoes() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.echoes)
}

// loaded reports whether id is in the loaded window. Caller holds t.mu.
func (t *Timeline) loaded(id string) bool {
	for i := len(t.events) - 1; i >= 0; i-- {
		if t.events[i].ID == id {
			return true
		}
	}
	return false
}

// dropEcho removes one echo. Caller holds t.mu.
func (t *Timeline) dropEcho(provisionalID string) {
	for i, ev := range t.echoes {
		if ev.ID == provisionalID {
			t.echoes = append(t.echoes[:i], t.echoes[i+1:]...)
			return
		}
	}
}

func (t *Timeline) IsPaginating() bool {
	return t.paginating.Load()
}

// ReachedStart reports whether the oldest stored event is loaded.
func (t *Timeline) ReachedStart() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.reachedStart
}

// PaginateBack loads the previous page and reports whether more history
// exists. Concurrent calls while one is in flight return immediately.
func (t *Timeline) PaginateBack(ctx context.Context) (bool, error) {
	if !t.paginating.CAS(false, true) {
		return !t.ReachedStart(), nil
	}
	defer t.paginating.Store(false)

	t.mu.RLock()
	oldest, done := t.oldestSeq, t.reachedStart
	t.mu.RUnlock()
	if done {
		t.notify(matrix.TimelineChange{Kind: matrix.ChangePaginated})
		return false, nil
	}

	page, err := t.repo.Before(ctx, t.roomID, oldest, t.pageSize)
	if err != nil {
		return false, err
	}

	t.mu.Lock()
	if len(page) > 0 {
		t.events = append(unwrap(page), t.events...)
		t.oldestSeq = page[0].Seq
		if t.newestSeq == 0 {
			t.newestSeq = page[len(page)-1].Seq
		}
	}
	t.reachedStart = len(page) < t.pageSize
	more := !t.reachedStart
	t.reindex()
	t.mu.Unlock()

	t.logger.Debug().Int("loaded", len(page)).Bool("more", more).Msg("paginated back")
	t.notify(matrix.TimelineChange{Kind: matrix.ChangePaginated, CanPaginateMore: more})
	return more, nil
}

// Refresh appends events stored since the last load and notifies
// subscribers once per event. It returns how many events arrived.
func (t *Timeline) Refresh(ctx context.Context) (int, error) {
	t.mu.RLock()
	newest := t.newestSeq
	t.mu.RUnlock()

	fresh, err := t.repo.After(ctx, t.roomID, newest)
	if err != nil {
		return 0, err
	}
	if len(fresh) == 0 {
		return 0, nil
	}

	t.mu.Lock()
	for _, stored := range fresh {
		if stored.Event.Type == matrix.EventRedaction {
			t.applyRedaction(stored.Event)
		}
		t.events = append(t.events, stored.Event)
		if echoID, ok := t.settled[stored.Event.ID]; ok {
			delete(t.settled, stored.Event.ID)
			t.dropEcho(echoID)
		}
	}
	t.newestSeq = fresh[len(fresh)-1].Seq
	if t.oldestSeq == 0 {
		t.oldestSeq = fresh[0].Seq
	}
	t.reindex()
	t.mu.Unlock()

	for _, stored := range fresh {
		t.notify(matrix.TimelineChange{Kind: matrix.ChangeEvent, Event: stored.Event})
	}
	return len(fresh), nil
}

// Subscribe registers fn for change notifications.
func (t *Timeline) Subscribe(fn func(matrix.TimelineChange)) func() {
	t.subMu.Lock()
	id := t.nextSub
	t.nextSub++
	t.subs[id] = fn
	t.subMu.Unlock()

	return func() {
		t.subMu.Lock()
		delete(t.subs, id)
		t.subMu.Unlock()
	}
}

func (t *Timeline) notify(change matrix.TimelineChange) {
	t.subMu.Lock()
	handlers := make([]func(matrix.TimelineChange), 0, len(t.subs))
	for _, fn := range t.subs {
		handlers = append(handlers, fn)
	}
	t.subMu.Unlock()

	for _, fn := range handlers {
		fn(change)
	}
}

// applyRedaction replaces the loaded target of a redaction with a stripped
// copy. Caller holds t.mu.
func (t *Timeline) applyRedaction(redaction *matrix.Event) {
	target := redactsOf(redaction)
	if target == "" {
		return
	}
	for i, ev := range t.events {
		if ev.ID != target {
			continue
		}
		stripped := *ev
		stripped.Redacted = true
		stripped.Content = json.RawMessage(`{}`)
		t.events[i] = &stripped
		return
	}
}

// reindex rebuilds the edit and reaction indexes. Caller holds t.mu.
func (t *Timeline) reindex() {
	t.edits = make(map[string][]*matrix.Event)
	t.reactions = make(map[string][]*matrix.Event)
	for _, ev := range t.events {
		if ev.Redacted {
			continue
		}
		rel := ev.Relation()
		if rel == nil || rel.EventID == "" {
			continue
		}
		switch {
		case rel.Type == matrix.RelReplace:
			t.edits[rel.EventID] = append(t.edits[rel.EventID], ev)
		case rel.Type == matrix.RelAnnotation && ev.Type == matrix.EventReaction:
			t.reactions[rel.EventID] = append(t.reactions[rel.EventID], ev)
		}
	}
}

func redactsOf(ev *matrix.Event) string {
	return gjson.GetBytes(ev.Content, "redacts").String()
}

func unwrap(page []db.StoredEvent) []*matrix.Event {
	out := make([]*matrix.Event, 0, len(page))
	for _, stored := range page {
		out = append(out, stored.Event)
	}
	return out
}
