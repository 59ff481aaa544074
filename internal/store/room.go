package store

import (
	"github.com/tidwall/gjson"

	"github.com/tOgg1/mxview/internal/db"
	"github.com/tOgg1/mxview/internal/matrix"
)

// Default power level requirements when m.room.power_levels omits them.
const (
	defaultStateLevel  = 50
	defaultRedactLevel = 50
	defaultInviteLevel = 0
)

// Room is a snapshot of a stored room. It is refreshed by reloading it from
// the Client.
type Room struct {
	rec *db.RoomRecord
}

var _ matrix.Room = (*Room)(nil)

func newRoom(rec *db.RoomRecord) *Room {
	return &Room{rec: rec}
}

func (r *Room) ID() string        { return r.rec.ID }
func (r *Room) Name() string      { return r.rec.Name }
func (r *Room) Topic() string     { return r.rec.Topic }
func (r *Room) AvatarURL() string { return r.rec.AvatarURL }
func (r *Room) JoinRule() string  { return r.rec.JoinRule }
func (r *Room) IsEncrypted() bool { return r.rec.IsEncrypted }
func (r *Room) IsDirect() bool    { return r.rec.IsDirect }
func (r *Room) IsSpace() bool     { return r.rec.IsSpace }

// Notifications returns the stored unread counters.
func (r *Room) Notifications() matrix.Notifications {
	return matrix.Notifications{
		Total:     r.rec.NotifTotal,
		Highlight: r.rec.NotifHighlight,
		Muted:     r.rec.Muted,
	}
}

// PowerLevel returns userID's power level.
func (r *Room) PowerLevel(userID string) int64 {
	if lvl := r.power(`users.` + escapePath(userID)); lvl.Exists() {
		return lvl.Int()
	}
	return r.power("users_default").Int()
}

// MaySendState reports whether userID may send a state event of eventType.
func (r *Room) MaySendState(eventType matrix.EventType, userID string) bool {
	required := r.level("state_default", defaultStateLevel)
	if lvl := r.power(`events.` + escapePath(string(eventType))); lvl.Exists() {
		required = lvl.Int()
	}
	return r.PowerLevel(userID) >= required
}

// CanRedact reports whether userID may redact other users' events.
func (r *Room) CanRedact(userID string) bool {
	return r.PowerLevel(userID) >= r.level("redact", defaultRedactLevel)
}

// CanInvite reports whether userID may invite users.
func (r *Room) CanInvite(userID string) bool {
	return r.PowerLevel(userID) >= r.level("invite", defaultInviteLevel)
}

func (r *Room) level(path string, fallback int64) int64 {
	if lvl := r.power(path); lvl.Exists() {
		return lvl.Int()
	}
	return fallback
}

func (r *Room) power(path string) gjson.Result {
	if len(r.rec.PowerLevels) == 0 {
		return gjson.Result{}
	}
	return gjson.GetBytes(r.rec.PowerLevels, path)
}

// escapePath escapes gjson path metacharacters in Matrix identifiers, which
// routinely contain dots and colons.
func escapePath(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '.', '*', '?', '|', '#', '@', '\\':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}
