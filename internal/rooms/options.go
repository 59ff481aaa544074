package rooms

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/tOgg1/mxview/internal/events"
	"github.com/tOgg1/mxview/internal/logging"
	"github.com/tOgg1/mxview/internal/matrix"
	"github.com/tOgg1/mxview/internal/prompt"
)

// Options is the per-room context menu.
type Options struct {
	room    matrix.Room
	session matrix.Session
	admin   matrix.RoomAdmin
	bus     events.Bus
	confirm prompt.ConfirmFunc
	logger  zerolog.Logger
}

// NewOptions builds the menu for room. A nil confirm declines every
// destructive action.
func NewOptions(room matrix.Room, session matrix.Session, admin matrix.RoomAdmin, bus events.Bus, confirm prompt.ConfirmFunc) *Options {
	if confirm == nil {
		confirm = prompt.Deny
	}
	return &Options{
		room:    room,
		session: session,
		admin:   admin,
		bus:     bus,
		confirm: confirm,
		logger:  logging.WithRoom(room.ID()).With().Str("component", "room-options").Logger(),
	}
}

// Title is the menu header.
func (o *Options) Title() string {
	return "Options for " + o.room.Name()
}

// MarkAsRead clears the room's notifications.
func (o *Options) MarkAsRead(ctx context.Context) error {
	if err := o.admin.MarkAsRead(ctx, o.room.ID()); err != nil {
		return fmt.Errorf("mark %s as read: %w", o.room.ID(), err)
	}
	if o.bus != nil {
		o.bus.Emit(ctx, &events.Signal{Type: events.SignalUnreadChanged, RoomID: o.room.ID(), Unread: false})
	}
	return nil
}

// CanInvite reports whether the invite item is enabled.
func (o *Options) CanInvite() bool {
	return o.room.CanInvite(o.session.UserID)
}

// Invite invites userID into the room.
func (o *Options) Invite(ctx context.Context, userID string) error {
	if !o.CanInvite() {
		return fmt.Errorf("invite to %s: %w", o.room.ID(), matrix.ErrNotPermitted)
	}
	userID = strings.TrimSpace(userID)
	if !strings.HasPrefix(userID, "@") || !strings.Contains(userID, ":") {
		return fmt.Errorf("invalid user id %q", userID)
	}
	if err := o.admin.InviteUser(ctx, o.room.ID(), userID); err != nil {
		return fmt.Errorf("invite %s: %w", userID, err)
	}
	o.logger.Info().Str("user_id", userID).Msg("user invited")
	return nil
}

// Leave leaves the room after confirmation and reports whether it did.
func (o *Options) Leave(ctx context.Context) (bool, error) {
	msg := fmt.Sprintf("Are you sure that you want to leave %q room?", o.room.Name())
	if !o.confirm(ctx, "Leave room", msg) {
		return false, nil
	}
	if err := o.admin.LeaveRoom(ctx, o.room.ID()); err != nil {
		return false, fmt.Errorf("leave %s: %w", o.room.ID(), err)
	}
	o.logger.Info().Msg("left room")
	if o.bus != nil {
		NotifySelectorChanged(ctx, o.bus, o.room.ID())
	}
	return true, nil
}
