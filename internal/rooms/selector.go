package rooms

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/tOgg1/mxview/internal/events"
	"github.com/tOgg1/mxview/internal/matrix"
)

// Entry is one row of the room list.
type Entry struct {
	RoomID    string
	Name      Name
	JoinRule  string
	IsDirect  bool
	IsSpace   bool
	AvatarURL string
	Muted     bool
	Unread    bool
	Alert     bool
	// Badge is the abbreviated notification count, empty when zero.
	Badge string
}

// NewEntry derives the list row for room.
func NewEntry(room matrix.Room, session matrix.Session) Entry {
	n := Name{Original: room.Name(), Name: room.Name()}
	if !room.IsDirect() {
		n = ParseName(room.Name())
	}
	notif := room.Notifications()
	e := Entry{
		RoomID:   room.ID(),
		Name:     n,
		JoinRule: room.JoinRule(),
		IsDirect: room.IsDirect(),
		IsSpace:  room.IsSpace(),
		Muted:    notif.Muted,
		Unread:   !notif.Muted && notif.HasUnread(),
		Alert:    notif.Highlight != 0,
	}
	if room.IsDirect() && room.AvatarURL() != "" {
		e.AvatarURL = session.MXCToHTTP(room.AvatarURL())
	}
	if notif.Total > 0 {
		e.Badge = AbbreviateCount(notif.Total)
	}
	return e
}

// BuildList returns the entries for rooms ordered by index, then display
// name. Rooms without an index sort after indexed ones.
func BuildList(rooms []matrix.Room, session matrix.Session) []Entry {
	entries := make([]Entry, 0, len(rooms))
	for _, r := range rooms {
		if r == nil {
			continue
		}
		entries = append(entries, NewEntry(r, session))
	}
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i].Name, entries[j].Name
		if a.HasIndex != b.HasIndex {
			return a.HasIndex
		}
		if a.Index != b.Index {
			return a.Index < b.Index
		}
		return strings.ToLower(a.Display()) < strings.ToLower(b.Display())
	})
	return entries
}

// AbbreviateCount renders counts like 999, 1.2K, 3M.
func AbbreviateCount(n int) string {
	if n < 1000 {
		return strconv.Itoa(n)
	}
	div, unit := 1, ""
	for _, u := range []string{"K", "M", "B"} {
		if n/div < 1000 {
			break
		}
		div *= 1000
		unit = u
	}
	tenths := n * 10 / div
	if tenths%10 == 0 {
		return strconv.Itoa(tenths/10) + unit
	}
	return fmt.Sprintf("%d.%d%s", tenths/10, tenths%10, unit)
}

// WatchList calls refresh with the room id whenever a selector-changed or
// unread-changed signal arrives. The returned func cancels the watch.
func WatchList(bus events.Bus, id string, refresh func(roomID string)) (func(), error) {
	filter := events.Filter{Types: []events.SignalType{events.SignalSelectorChanged, events.SignalUnreadChanged}}
	if err := bus.Subscribe(id, filter, func(sig *events.Signal) { refresh(sig.RoomID) }); err != nil {
		return nil, err
	}
	return func() { _ = bus.Unsubscribe(id) }, nil
}

// NotifySelectorChanged tells list watchers that a room's row changed.
func NotifySelectorChanged(ctx context.Context, bus events.Bus, roomID string) {
	bus.Emit(ctx, &events.Signal{Type: events.SignalSelectorChanged, RoomID: roomID})
}
