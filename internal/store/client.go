// Package store is the offline sandbox homeserver. It keeps rooms and
// timelines in SQLite and implements the client interfaces the views depend
// on, so the room view can run without a network connection.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/tOgg1/mxview/internal/db"
	"github.com/tOgg1/mxview/internal/logging"
	"github.com/tOgg1/mxview/internal/matrix"
	"github.com/tOgg1/mxview/internal/timeline"
)

// Client errors.
var (
	ErrInvalidUserID = errors.New("invalid user id")
	ErrNotJoined     = errors.New("not joined to room")
)

// Client serves the signed-in viewer from the sandbox database.
type Client struct {
	db      *db.DB
	events  *db.EventRepository
	rooms   *db.RoomRepository
	account *db.AccountRepository
	session matrix.Session
	logger  zerolog.Logger
	now     func() time.Time
}

var (
	_ matrix.ReactionCommands = (*Client)(nil)
	_ matrix.ReceiptSender    = (*Client)(nil)
	_ matrix.RoomAdmin        = (*Client)(nil)
	_ matrix.ProfileAdmin     = (*Client)(nil)
	_ matrix.AccountData      = (*Client)(nil)
)

// New creates a Client for session over an open, migrated database.
func New(database *db.DB, session matrix.Session) *Client {
	return &Client{
		db:      database,
		events:  db.NewEventRepository(database),
		rooms:   db.NewRoomRepository(database),
		account: db.NewAccountRepository(database),
		session: session,
		logger:  logging.WithUser(session.UserID).With().Str("component", "store").Logger(),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Session returns the viewer session.
func (c *Client) Session() matrix.Session {
	return c.session
}

// Room loads the current state of a joined room.
func (c *Client) Room(ctx context.Context, roomID string) (*Room, error) {
	rec, err := c.rooms.Get(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if rec.Membership != db.MembershipJoin {
		return nil, fmt.Errorf("%s: %w", roomID, ErrNotJoined)
	}
	return newRoom(rec), nil
}

// Rooms loads every joined room.
func (c *Client) Rooms(ctx context.Context) ([]*Room, error) {
	recs, err := c.rooms.ListJoined(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*Room, 0, len(recs))
	for _, rec := range recs {
		out = append(out, newRoom(rec))
	}
	return out, nil
}

// Timeline opens the timeline of a joined room with the newest page loaded.
func (c *Client) Timeline(ctx context.Context, roomID string, pageSize int) (*Timeline, error) {
	if _, err := c.Room(ctx, roomID); err != nil {
		return nil, err
	}
	return openTimeline(ctx, c.events, roomID, pageSize)
}

// SendText sends a text message. When replyTo is set the body carries the
// quoted reply fallback and the relation points at replyTo.
func (c *Client) SendText(ctx context.Context, roomID, body string, replyTo *matrix.Event) (string, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return "", fmt.Errorf("message body is required")
	}
	content := map[string]any{"msgtype": matrix.MsgText, "body": body}
	if replyTo != nil {
		content["body"] = replyFallback(replyTo) + body
		content["m.relates_to"] = map[string]any{
			"m.in_reply_to": map[string]string{"event_id": replyTo.ID},
		}
	}
	return c.send(ctx, roomID, matrix.EventRoomMessage, nil, content)
}

// SendReaction annotates targetID with key.
func (c *Client) SendReaction(ctx context.Context, roomID, targetID, key string) (string, error) {
	target, err := c.events.Get(ctx, targetID)
	if err != nil {
		return "", err
	}
	if target.Event.RoomID != roomID {
		return "", db.ErrEventNotFound
	}
	return c.send(ctx, roomID, matrix.EventReaction, nil, map[string]any{
		"m.relates_to": map[string]string{
			"rel_type": string(matrix.RelAnnotation),
			"event_id": targetID,
			"key":      key,
		},
	})
}

// RedactEvent redacts an event. Other users' events need the redact power
// level.
func (c *Client) RedactEvent(ctx context.Context, roomID, eventID string) error {
	room, err := c.Room(ctx, roomID)
	if err != nil {
		return err
	}
	target, err := c.events.Get(ctx, eventID)
	if err != nil {
		return err
	}
	if target.Event.RoomID != roomID {
		return db.ErrEventNotFound
	}
	if target.Event.Sender != c.session.UserID && !room.CanRedact(c.session.UserID) {
		return fmt.Errorf("redact %s: %w", eventID, matrix.ErrNotPermitted)
	}

	redaction := c.newEvent(roomID, matrix.EventRedaction, nil)
	redaction.Content, err = json.Marshal(map[string]string{"redacts": eventID})
	if err != nil {
		return err
	}
	return c.db.Write(ctx, func(tx *sql.Tx) error {
		if _, err := c.events.AppendWithTx(ctx, tx, redaction); err != nil {
			return err
		}
		return c.events.Redact(ctx, tx, eventID, redaction)
	})
}

// SendReadReceipt marks ev as read and clears the room's unread counters.
func (c *Client) SendReadReceipt(ctx context.Context, ev *matrix.Event) error {
	if ev == nil || ev.RoomID == "" {
		return db.ErrInvalidEvent
	}
	return c.markRead(ctx, ev.RoomID, ev.ID)
}

// MarkAsRead marks the newest event of a room as read.
func (c *Client) MarkAsRead(ctx context.Context, roomID string) error {
	latest, err := c.events.Latest(ctx, roomID, 1)
	if err != nil {
		return err
	}
	eventID := ""
	if len(latest) > 0 {
		eventID = latest[0].Event.ID
	}
	return c.markRead(ctx, roomID, eventID)
}

func (c *Client) markRead(ctx context.Context, roomID, eventID string) error {
	return c.db.Write(ctx, func(tx *sql.Tx) error {
		if eventID != "" {
			if err := c.account.SetReceipt(ctx, tx, roomID, c.session.UserID, eventID, c.now()); err != nil {
				return err
			}
		}
		return c.rooms.Update(ctx, tx, roomID, func(r *db.RoomRecord) error {
			r.NotifTotal = 0
			r.NotifHighlight = 0
			return nil
		})
	})
}

// SetRoomName changes the room name.
func (c *Client) SetRoomName(ctx context.Context, roomID, name string) error {
	return c.SendStateEvent(ctx, roomID, matrix.EventRoomName, map[string]string{"name": name})
}

// SetRoomTopic changes the room topic.
func (c *Client) SetRoomTopic(ctx context.Context, roomID, topic string) error {
	return c.SendStateEvent(ctx, roomID, matrix.EventRoomTopic, map[string]string{"topic": topic})
}

// SendStateEvent sends a room state event and applies it to the stored
// room when it is one the views read.
func (c *Client) SendStateEvent(ctx context.Context, roomID string, eventType matrix.EventType, content any) error {
	room, err := c.Room(ctx, roomID)
	if err != nil {
		return err
	}
	if !room.MaySendState(eventType, c.session.UserID) {
		return fmt.Errorf("send %s: %w", eventType, matrix.ErrNotPermitted)
	}

	raw, err := json.Marshal(content)
	if err != nil {
		return fmt.Errorf("encode %s: %w", eventType, err)
	}
	empty := ""
	ev := c.newEvent(roomID, eventType, &empty)
	ev.Content = raw

	return c.db.Write(ctx, func(tx *sql.Tx) error {
		if _, err := c.events.AppendWithTx(ctx, tx, ev); err != nil {
			return err
		}
		return c.rooms.Update(ctx, tx, roomID, func(r *db.RoomRecord) error {
			applyState(r, ev)
			return nil
		})
	})
}

// InviteUser invites userID to a room.
func (c *Client) InviteUser(ctx context.Context, roomID, userID string) error {
	if !validUserID(userID) {
		return fmt.Errorf("%q: %w", userID, ErrInvalidUserID)
	}
	room, err := c.Room(ctx, roomID)
	if err != nil {
		return err
	}
	if !room.CanInvite(c.session.UserID) {
		return fmt.Errorf("invite %s: %w", userID, matrix.ErrNotPermitted)
	}
	_, err = c.send(ctx, roomID, matrix.EventRoomMember, &userID, map[string]string{"membership": "invite"})
	return err
}

// LeaveRoom leaves a room. Its history stays in the database.
func (c *Client) LeaveRoom(ctx context.Context, roomID string) error {
	if _, err := c.Room(ctx, roomID); err != nil {
		return err
	}
	userID := c.session.UserID
	ev := c.newEvent(roomID, matrix.EventRoomMember, &userID)
	ev.Content = json.RawMessage(`{"membership":"leave"}`)

	return c.db.Write(ctx, func(tx *sql.Tx) error {
		if _, err := c.events.AppendWithTx(ctx, tx, ev); err != nil {
			return err
		}
		return c.rooms.Update(ctx, tx, roomID, func(r *db.RoomRecord) error {
			r.Membership = db.MembershipLeave
			return nil
		})
	})
}

// Profile returns the viewer's global profile.
func (c *Client) Profile(ctx context.Context) (*db.Profile, error) {
	return c.account.GetProfile(ctx, c.session.UserID)
}

// SetDisplayName changes the viewer's display name and announces it in
// every joined room.
func (c *Client) SetDisplayName(ctx context.Context, name string) error {
	return c.updateProfile(ctx, func(p *db.Profile) { p.DisplayName = name })
}

// SetAvatarURL changes the viewer's avatar. An empty url removes it.
func (c *Client) SetAvatarURL(ctx context.Context, url string) error {
	return c.updateProfile(ctx, func(p *db.Profile) { p.AvatarURL = url })
}

func (c *Client) updateProfile(ctx context.Context, edit func(*db.Profile)) error {
	profile, err := c.account.GetProfile(ctx, c.session.UserID)
	if err != nil {
		return err
	}
	prev := *profile
	edit(profile)
	if err := c.account.SaveProfile(ctx, profile); err != nil {
		return err
	}

	rooms, err := c.rooms.ListJoined(ctx)
	if err != nil {
		return err
	}
	userID := c.session.UserID
	for _, rec := range rooms {
		ev := c.newEvent(rec.ID, matrix.EventRoomMember, &userID)
		ev.Content, _ = json.Marshal(map[string]string{
			"membership":  "join",
			"displayname": profile.DisplayName,
			"avatar_url":  profile.AvatarURL,
		})
		ev.Unsigned, _ = json.Marshal(map[string]any{
			"prev_content": map[string]string{
				"membership":  "join",
				"displayname": prev.DisplayName,
				"avatar_url":  prev.AvatarURL,
			},
		})
		if _, err := c.events.Append(ctx, ev); err != nil {
			return err
		}
	}
	c.logger.Info().Int("rooms", len(rooms)).Msg("profile updated")
	return nil
}

// AccountData returns the viewer's account data of eventType, or nil.
func (c *Client) AccountData(ctx context.Context, eventType string) (json.RawMessage, error) {
	return c.account.AccountData(ctx, eventType)
}

// SetAccountData replaces the viewer's account data of eventType.
func (c *Client) SetAccountData(ctx context.Context, eventType string, content any) error {
	raw, err := json.Marshal(content)
	if err != nil {
		return fmt.Errorf("encode %s: %w", eventType, err)
	}
	return c.account.SetAccountData(ctx, eventType, raw)
}

func (c *Client) send(ctx context.Context, roomID string, eventType matrix.EventType, stateKey *string, content any) (string, error) {
	if _, err := c.Room(ctx, roomID); err != nil {
		return "", err
	}
	ev := c.newEvent(roomID, eventType, stateKey)
	raw, err := json.Marshal(content)
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", eventType, err)
	}
	ev.Content = raw
	if _, err := c.events.Append(ctx, ev); err != nil {
		return "", err
	}
	c.logger.Debug().Str("room_id", roomID).Str("event_id", ev.ID).Str("type", string(eventType)).Msg("event sent")
	return ev.ID, nil
}

func (c *Client) newEvent(roomID string, eventType matrix.EventType, stateKey *string) *matrix.Event {
	return &matrix.Event{
		ID:        db.NewEventID(),
		RoomID:    roomID,
		Type:      eventType,
		Sender:    c.session.UserID,
		Timestamp: c.now(),
		StateKey:  stateKey,
	}
}

// applyState folds a state event into the stored room record.
func applyState(r *db.RoomRecord, ev *matrix.Event) {
	var content map[string]json.RawMessage
	if err := json.Unmarshal(ev.Content, &content); err != nil {
		return
	}
	str := func(key string) string {
		var s string
		_ = json.Unmarshal(content[key], &s)
		return s
	}
	switch ev.Type {
	case matrix.EventRoomName:
		r.Name = str("name")
	case matrix.EventRoomTopic:
		r.Topic = str("topic")
	case matrix.EventRoomAvatar:
		r.AvatarURL = str("url")
	case matrix.EventRoomEncryption:
		r.IsEncrypted = str("algorithm") != ""
	case "m.room.join_rules":
		r.JoinRule = str("join_rule")
	case "m.room.power_levels":
		r.PowerLevels = ev.Content
	}
}

// replyFallback builds the quoted reply prefix for a reply to ev.
func replyFallback(ev *matrix.Event) string {
	body, _ := ev.Body()
	if _, rest, ok := timeline.ParseReplyFallback(body); ok {
		body = rest
	}
	lines := strings.Split(body, "\n")
	var b strings.Builder
	for i, line := range lines {
		if i == 0 {
			fmt.Fprintf(&b, "> <%s> %s\n", ev.Sender, line)
			continue
		}
		fmt.Fprintf(&b, "> %s\n", line)
	}
	b.WriteString("\n")
	return b.String()
}

func validUserID(id string) bool {
	if !strings.HasPrefix(id, "@") {
		return false
	}
	local, server, ok := strings.Cut(id[1:], ":")
	return ok && local != "" && server != ""
}
