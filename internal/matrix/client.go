package matrix

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNotPermitted is returned when the viewer lacks the power level for an
// action.
var ErrNotPermitted = errors.New("not permitted")

// ChangeKind distinguishes timeline change notifications.
type ChangeKind int

const (
	// ChangeEvent means an event was appended or updated.
	ChangeEvent ChangeKind = iota
	// ChangePaginated means a back-pagination finished.
	ChangePaginated
)

// TimelineChange is delivered to timeline subscribers.
type TimelineChange struct {
	Kind  ChangeKind
	Event *Event
	// CanPaginateMore is set on ChangePaginated.
	CanPaginateMore bool
}

// Timeline is the live, mutable timeline handle of one room. The room view
// only reads it and asks it to paginate.
type Timeline interface {
	RoomID() string
	// Events returns the ordered timeline (oldest first).
	Events() []*Event
	// EditsOf returns replacement events for id in arrival order.
	EditsOf(id string) []*Event
	// ReactionsOf returns annotation events targeting id in arrival order.
	ReactionsOf(id string) []*Event
	// PaginateBack loads older history and reports whether more exists.
	PaginateBack(ctx context.Context) (bool, error)
	IsPaginating() bool
	// Subscribe registers fn for change notifications and returns a cancel
	// function.
	Subscribe(fn func(TimelineChange)) func()
}

// LocalEcho is implemented by timelines that show the viewer's own reactions
// before the server acknowledges them.
type LocalEcho interface {
	// Echo shows ev under a provisional id and returns that id.
	Echo(ev *Event) string
	// Settle ends an echo. committedID is the id the server assigned, or
	// empty when the send failed. The echo stays until the committed event
	// is loaded.
	Settle(provisionalID, committedID string)
}

// Room exposes the room state the views read.
type Room interface {
	ID() string
	Name() string
	Topic() string
	AvatarURL() string
	JoinRule() string
	IsEncrypted() bool
	IsDirect() bool
	IsSpace() bool
	// MaySendState reports whether userID may send the given state event.
	MaySendState(eventType EventType, userID string) bool
	// CanRedact reports whether userID has the power level to redact
	// other users' events.
	CanRedact(userID string) bool
	CanInvite(userID string) bool
	Notifications() Notifications
}

// Notifications holds unread counters for a room.
type Notifications struct {
	Total     int
	Highlight int
	Muted     bool
}

// HasUnread reports whether the room has any unread notification.
func (n Notifications) HasUnread() bool {
	return n.Total > 0 || n.Highlight > 0
}

// ReactionCommands are the timeline commands the channel view issues.
type ReactionCommands interface {
	SendReaction(ctx context.Context, roomID, targetID, key string) (string, error)
	RedactEvent(ctx context.Context, roomID, eventID string) error
}

// ReceiptSender acknowledges read position.
type ReceiptSender interface {
	SendReadReceipt(ctx context.Context, ev *Event) error
}

// RoomAdmin changes room state.
type RoomAdmin interface {
	SetRoomName(ctx context.Context, roomID, name string) error
	SetRoomTopic(ctx context.Context, roomID, topic string) error
	SendStateEvent(ctx context.Context, roomID string, eventType EventType, content any) error
	InviteUser(ctx context.Context, roomID, userID string) error
	LeaveRoom(ctx context.Context, roomID string) error
	MarkAsRead(ctx context.Context, roomID string) error
}

// ProfileAdmin changes the viewer's global profile.
type ProfileAdmin interface {
	SetDisplayName(ctx context.Context, name string) error
	SetAvatarURL(ctx context.Context, url string) error
}

// AccountData reads and writes per-account data such as m.push_rules.
type AccountData interface {
	AccountData(ctx context.Context, eventType string) (json.RawMessage, error)
	SetAccountData(ctx context.Context, eventType string, content any) error
}

// Session identifies the signed-in viewer. It is passed explicitly instead of
// living in a process-wide client handle.
type Session struct {
	UserID        string
	HomeserverURL string
}

// MXCToHTTP converts an mxc:// URI into a media download URL on the
// session's homeserver. Non-mxc values are returned unchanged.
func (s Session) MXCToHTTP(mxc string) string {
	const scheme = "mxc://"
	if !strings.HasPrefix(mxc, scheme) || s.HomeserverURL == "" {
		return mxc
	}
	rest := strings.TrimPrefix(mxc, scheme)
	if rest == "" || !strings.Contains(rest, "/") {
		return mxc
	}
	return fmt.Sprintf("%s/_matrix/media/v3/download/%s", strings.TrimRight(s.HomeserverURL, "/"), rest)
}
