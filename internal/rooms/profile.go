package rooms

import (
	"context"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/tOgg1/mxview/internal/events"
	"github.com/tOgg1/mxview/internal/logging"
	"github.com/tOgg1/mxview/internal/matrix"
	"github.com/tOgg1/mxview/internal/prompt"
)

// StatusKind is the progress of a profile save.
type StatusKind int

const (
	StatusPreFlight StatusKind = iota
	StatusInFlight
	StatusSuccess
	StatusError
)

// Status is reported while a profile form is saved.
type Status struct {
	Kind StatusKind
	Msg  string
}

// ProfileForm holds the editable room profile fields.
type ProfileForm struct {
	Name     string
	Index    string
	Category string
	Topic    string
}

// Profile edits a room's name, topic and avatar.
type Profile struct {
	room    matrix.Room
	session matrix.Session
	admin   matrix.RoomAdmin
	bus     events.Bus
	confirm prompt.ConfirmFunc
	logger  zerolog.Logger
}

// NewProfile creates the profile editor for room.
func NewProfile(room matrix.Room, session matrix.Session, admin matrix.RoomAdmin, bus events.Bus, confirm prompt.ConfirmFunc) *Profile {
	if confirm == nil {
		confirm = prompt.Deny
	}
	return &Profile{
		room:    room,
		session: session,
		admin:   admin,
		bus:     bus,
		confirm: confirm,
		logger:  logging.WithRoom(room.ID()).With().Str("component", "room-profile").Logger(),
	}
}

func (p *Profile) CanChangeName() bool {
	return p.room.MaySendState(matrix.EventRoomName, p.session.UserID)
}

func (p *Profile) CanChangeTopic() bool {
	return p.room.MaySendState(matrix.EventRoomTopic, p.session.UserID)
}

func (p *Profile) CanChangeAvatar() bool {
	return p.room.MaySendState(matrix.EventRoomAvatar, p.session.UserID)
}

// Form returns the current values to prefill the editor.
func (p *Profile) Form() ProfileForm {
	n := ParseName(p.room.Name())
	form := ProfileForm{Name: n.Name, Category: n.Category, Topic: p.room.Topic()}
	if n.HasIndex {
		form.Index = strconv.Itoa(n.Index)
	}
	return form
}

// PermissionNote explains a partial permission, or is empty.
func (p *Profile) PermissionNote() string {
	name, topic := p.CanChangeName(), p.CanChangeTopic()
	if name == topic {
		return ""
	}
	kind := "room"
	if p.room.IsSpace() {
		kind = "space"
	}
	field := "topic"
	if name {
		field = "name"
	}
	return "You have permission to change " + kind + " " + field + " only."
}

// Save writes the changed fields the viewer may change. progress receives
// every status transition; the final status is also returned.
func (p *Profile) Save(ctx context.Context, form ProfileForm, progress func(Status)) Status {
	report := func(s Status) Status {
		if progress != nil {
			progress(s)
		}
		return s
	}

	changed := false
	if p.CanChangeName() {
		newName := ComposeName(form.Index, form.Category, form.Name)
		if newName != p.room.Name() && strings.TrimSpace(newName) != "" {
			report(Status{Kind: StatusInFlight, Msg: "Saving room name..."})
			if err := p.admin.SetRoomName(ctx, p.room.ID(), newName); err != nil {
				return report(p.failure(err))
			}
			changed = true
		}
	}
	if p.CanChangeTopic() && form.Topic != p.room.Topic() {
		report(Status{Kind: StatusInFlight, Msg: "Saving room topic..."})
		if err := p.admin.SetRoomTopic(ctx, p.room.ID(), form.Topic); err != nil {
			return report(p.failure(err))
		}
		changed = true
	}

	if changed && p.bus != nil {
		p.bus.Emit(ctx, &events.Signal{Type: events.SignalRoomProfileUpdated, RoomID: p.room.ID()})
		NotifySelectorChanged(ctx, p.bus, p.room.ID())
	}
	return report(Status{Kind: StatusSuccess, Msg: "Saved successfully"})
}

func (p *Profile) failure(err error) Status {
	p.logger.Warn().Err(err).Msg("room profile save failed")
	msg := err.Error()
	if msg == "" {
		msg = "Unable to save."
	}
	return Status{Kind: StatusError, Msg: msg}
}

// SetAvatar sets the room avatar to an mxc url. An empty url removes the
// avatar after confirmation. It reports whether the state event was sent.
func (p *Profile) SetAvatar(ctx context.Context, url string) (bool, error) {
	if !p.CanChangeAvatar() {
		return false, matrix.ErrNotPermitted
	}
	if url == "" && !p.confirm(ctx, "Remove avatar", "Are you sure that you want to remove room avatar?") {
		return false, nil
	}
	if err := p.admin.SendStateEvent(ctx, p.room.ID(), matrix.EventRoomAvatar, map[string]string{"url": url}); err != nil {
		return false, err
	}
	return true, nil
}
