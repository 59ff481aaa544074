// Package timeline projects a room's event timeline into the rows the room
// view renders. Every function here is pure: the projection is recomputed
// from the live timeline on each update and never mutated in place.
package timeline

import "github.com/tOgg1/mxview/internal/matrix"

// Class is the rendering decision for one timeline event.
type Class int

const (
	Skip Class = iota
	ChannelIntro
	MembershipChange
	Message
)

func (c Class) String() string {
	switch c {
	case ChannelIntro:
		return "channel-intro"
	case MembershipChange:
		return "membership-change"
	case Message:
		return "message"
	default:
		return "skip"
	}
}

// Classify decides whether ev produces visible output. prev is the
// immediately preceding visible event, or nil for the first one; the result
// does not depend on it.
func Classify(ev, prev *matrix.Event) Class {
	if ev == nil || ev.Redacted {
		return Skip
	}
	switch ev.Type {
	case matrix.EventRoomCreate:
		return ChannelIntro
	case matrix.EventRoomMember:
		return MembershipChange
	case matrix.EventRoomMessage, matrix.EventRoomEncrypted:
	default:
		return Skip
	}
	// Edits are folded into their target.
	if rel := ev.Relation(); rel != nil && rel.Type == matrix.RelReplace {
		return Skip
	}
	return Message
}
