// Package matrix models the Matrix events and client capabilities consumed by
// the room view. The live client is never reimplemented here: it is reached
// only through the small interfaces declared in this package.
package matrix

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// EventType is the Matrix event type string.
type EventType string

const (
	EventRoomCreate     EventType = "m.room.create"
	EventRoomMessage    EventType = "m.room.message"
	EventRoomEncrypted  EventType = "m.room.encrypted"
	EventRoomMember     EventType = "m.room.member"
	EventRoomName       EventType = "m.room.name"
	EventRoomTopic      EventType = "m.room.topic"
	EventRoomAvatar     EventType = "m.room.avatar"
	EventRoomEncryption EventType = "m.room.encryption"
	EventReaction       EventType = "m.reaction"
	EventRedaction      EventType = "m.room.redaction"
)

// RelationType identifies how an event points at another event.
type RelationType string

const (
	RelReplace    RelationType = "m.replace"
	RelAnnotation RelationType = "m.annotation"
	RelReply      RelationType = "m.in_reply_to"
)

// Message formats and msgtypes used by the renderer.
const (
	FormatHTML = "org.matrix.custom.html"

	MsgText   = "m.text"
	MsgNotice = "m.notice"
	MsgEmote  = "m.emote"
	MsgFile   = "m.file"
	MsgImage  = "m.image"
	MsgAudio  = "m.audio"
	MsgVideo  = "m.video"
)

// ContentKind is the decoded shape of an event's content.
type ContentKind int

const (
	ContentUnknown ContentKind = iota
	ContentText
	ContentMedia
	ContentMembership
	ContentReaction
	ContentRedaction
	ContentEdit
	ContentEncrypted
	ContentState
)

func (k ContentKind) String() string {
	switch k {
	case ContentText:
		return "text"
	case ContentMedia:
		return "media"
	case ContentMembership:
		return "membership"
	case ContentReaction:
		return "reaction"
	case ContentRedaction:
		return "redaction"
	case ContentEdit:
		return "edit"
	case ContentEncrypted:
		return "encrypted"
	case ContentState:
		return "state"
	default:
		return "unknown"
	}
}

// Event is one immutable timeline entry as reported by the client.
type Event struct {
	ID        string          `json:"event_id"`
	RoomID    string          `json:"room_id,omitempty"`
	Type      EventType       `json:"type"`
	Sender    string          `json:"sender"`
	Timestamp time.Time       `json:"-"`
	StateKey  *string         `json:"state_key,omitempty"`
	Content   json.RawMessage `json:"content,omitempty"`
	Unsigned  json.RawMessage `json:"unsigned,omitempty"`
	Redacted  bool            `json:"redacted,omitempty"`
}

// Relation is the decoded m.relates_to block of an event.
type Relation struct {
	Type    RelationType
	EventID string
	Key     string
}

// NewContent is the replacement payload carried by an edit.
type NewContent struct {
	Body   string
	Format string
}

// Media describes a file-like message. URL holds the plain mxc:// URI, or the
// encrypted file URI when the upload is encrypted.
type Media struct {
	MsgType      string
	Name         string
	URL          string
	MimeType     string
	Width        int
	Height       int
	ThumbnailURL string
	Encrypted    bool
}

func (e *Event) field(path string) gjson.Result {
	if e == nil || len(e.Content) == 0 {
		return gjson.Result{}
	}
	return gjson.GetBytes(e.Content, path)
}

// Body returns content.body and whether it was present.
func (e *Event) Body() (string, bool) {
	res := e.field("body")
	if !res.Exists() || res.Type != gjson.String {
		return "", false
	}
	return res.String(), true
}

// MsgType returns content.msgtype.
func (e *Event) MsgType() string {
	return e.field("msgtype").String()
}

// Format returns content.format.
func (e *Event) Format() string {
	return e.field("format").String()
}

// Relation returns the decoded m.relates_to block, or nil when the event has
// none. A reply is reported as RelReply with the replied-to event id.
func (e *Event) Relation() *Relation {
	rel := e.field(`m\.relates_to`)
	if !rel.Exists() || !rel.IsObject() {
		return nil
	}
	if relType := rel.Get("rel_type").String(); relType != "" {
		return &Relation{
			Type:    RelationType(relType),
			EventID: rel.Get("event_id").String(),
			Key:     rel.Get("key").String(),
		}
	}
	if replyTo := rel.Get(`m\.in_reply_to.event_id`).String(); replyTo != "" {
		return &Relation{Type: RelReply, EventID: replyTo}
	}
	return nil
}

// InReplyTo returns the event id this event replies to, or "".
func (e *Event) InReplyTo() string {
	return e.field(`m\.relates_to.m\.in_reply_to.event_id`).String()
}

// NewContent returns the m.new_content of an edit. ok is false when the edit
// is malformed (no replacement content or no replacement body).
func (e *Event) NewContent() (NewContent, bool) {
	nc := e.field(`m\.new_content`)
	if !nc.Exists() || !nc.IsObject() {
		return NewContent{}, false
	}
	body := nc.Get("body")
	if !body.Exists() || body.Type != gjson.String {
		return NewContent{}, false
	}
	return NewContent{Body: body.String(), Format: nc.Get("format").String()}, true
}

// IsMedia reports whether the event is a file, image, audio or video message.
func (e *Event) IsMedia() bool {
	switch e.MsgType() {
	case MsgFile, MsgImage, MsgAudio, MsgVideo:
		return true
	}
	return false
}

// Media decodes the media reference of a file-like message.
func (e *Event) Media() *Media {
	if !e.IsMedia() {
		return nil
	}
	m := &Media{
		MsgType:  e.MsgType(),
		Name:     e.field("body").String(),
		URL:      e.field("url").String(),
		MimeType: e.field("info.mimetype").String(),
		Width:    int(e.field("info.w").Int()),
		Height:   int(e.field("info.h").Int()),
	}
	if m.URL == "" {
		m.URL = e.field("file.url").String()
		m.Encrypted = m.URL != ""
	}
	if m.MsgType == MsgVideo {
		m.ThumbnailURL = e.field("info.thumbnail_url").String()
		if m.ThumbnailURL == "" {
			m.ThumbnailURL = e.field("info.thumbnail_file.url").String()
		}
	}
	return m
}

// Membership returns content.membership for m.room.member events.
func (e *Event) Membership() string {
	return e.field("membership").String()
}

// DisplayName returns content.displayname.
func (e *Event) DisplayName() string {
	return e.field("displayname").String()
}

// AvatarURL returns content.avatar_url.
func (e *Event) AvatarURL() string {
	return e.field("avatar_url").String()
}

// PrevContent returns unsigned.prev_content as raw JSON, or nil.
func (e *Event) PrevContent() json.RawMessage {
	if e == nil || len(e.Unsigned) == 0 {
		return nil
	}
	res := gjson.GetBytes(e.Unsigned, "prev_content")
	if !res.Exists() {
		return nil
	}
	return json.RawMessage(res.Raw)
}

// Target returns the state key, which names the affected user for
// membership events.
func (e *Event) Target() string {
	if e == nil || e.StateKey == nil {
		return ""
	}
	return *e.StateKey
}

// Kind classifies the content union of the event.
func (e *Event) Kind() ContentKind {
	if e == nil {
		return ContentUnknown
	}
	switch e.Type {
	case EventRoomMember:
		return ContentMembership
	case EventReaction:
		return ContentReaction
	case EventRedaction:
		return ContentRedaction
	case EventRoomEncrypted:
		return ContentEncrypted
	case EventRoomMessage:
		if rel := e.Relation(); rel != nil && rel.Type == RelReplace {
			return ContentEdit
		}
		if e.IsMedia() {
			return ContentMedia
		}
		return ContentText
	case EventRoomCreate, EventRoomName, EventRoomTopic, EventRoomAvatar, EventRoomEncryption:
		return ContentState
	}
	return ContentUnknown
}

// ProvisionalPrefix marks locally echoed events that the server has not
// acknowledged yet.
const ProvisionalPrefix = "~"

// IsProvisional reports whether id belongs to an event still in flight.
func IsProvisional(id string) bool {
	return strings.HasPrefix(id, ProvisionalPrefix)
}

// Localpart extracts "alice" from "@alice:example.org". Ids that do not look
// like user ids are returned unchanged.
func Localpart(userID string) string {
	trimmed := strings.TrimPrefix(userID, "@")
	idx := strings.Index(trimmed, ":")
	if idx <= 0 || idx == len(trimmed)-1 || strings.ContainsAny(trimmed, " \t\n") {
		return userID
	}
	return trimmed[:idx]
}
