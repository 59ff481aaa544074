// Package events carries cross-component signals between the room view,
// the room list and the settings screens.
package events

// SignalType names a cross-component signal.
type SignalType string

const (
	SignalReplyRequested      SignalType = "reply-requested"
	SignalReachedTop          SignalType = "reached-top"
	SignalToggleReachedBottom SignalType = "toggle-reached-bottom"
	SignalRoomProfileUpdated  SignalType = "room-profile-updated"
	SignalSelectorChanged     SignalType = "selector-changed"
	SignalUnreadChanged       SignalType = "unread-changed"
)

// ReplyRequest is the payload of a reply-requested signal.
type ReplyRequest struct {
	SenderID   string
	EventID    string
	QuotedBody string
}

// Signal is one emitted signal. Only the payload matching Type is set.
type Signal struct {
	Type   SignalType
	RoomID string

	Reply *ReplyRequest
	// AtBottom is the new scroll state for toggle-reached-bottom.
	AtBottom bool
	// Unread is the new unread state for unread-changed.
	Unread bool
}
