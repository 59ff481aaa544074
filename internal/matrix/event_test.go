package matrix

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEventRelation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    *Relation
	}{
		{
			name:    "no relation",
			content: `{"msgtype":"m.text","body":"hi"}`,
			want:    nil,
		},
		{
			name:    "edit",
			content: `{"body":"* fixed","m.new_content":{"body":"fixed"},"m.relates_to":{"rel_type":"m.replace","event_id":"$orig"}}`,
			want:    &Relation{Type: RelReplace, EventID: "$orig"},
		},
		{
			name:    "annotation",
			content: `{"m.relates_to":{"rel_type":"m.annotation","event_id":"$msg","key":"👍"}}`,
			want:    &Relation{Type: RelAnnotation, EventID: "$msg", Key: "👍"},
		},
		{
			name:    "reply",
			content: `{"body":"yes","m.relates_to":{"m.in_reply_to":{"event_id":"$q"}}}`,
			want:    &Relation{Type: RelReply, EventID: "$q"},
		},
		{
			name:    "relates_to not an object",
			content: `{"m.relates_to":"nope"}`,
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := &Event{Type: EventRoomMessage, Content: json.RawMessage(tt.content)}
			require.Equal(t, tt.want, ev.Relation())
		})
	}
}

func TestEventNewContent(t *testing.T) {
	edit := &Event{Content: json.RawMessage(`{"m.new_content":{"body":"v2","format":"org.matrix.custom.html"}}`)}
	nc, ok := edit.NewContent()
	require.True(t, ok)
	require.Equal(t, "v2", nc.Body)
	require.Equal(t, FormatHTML, nc.Format)

	malformed := &Event{Content: json.RawMessage(`{"body":"* v2"}`)}
	_, ok = malformed.NewContent()
	require.False(t, ok)

	noBody := &Event{Content: json.RawMessage(`{"m.new_content":{"msgtype":"m.text"}}`)}
	_, ok = noBody.NewContent()
	require.False(t, ok)
}

func TestEventMediaEncryptedFallback(t *testing.T) {
	ev := &Event{
		Type:    EventRoomMessage,
		Content: json.RawMessage(`{"msgtype":"m.video","body":"clip.mp4","file":{"url":"mxc://hs/enc"},"info":{"mimetype":"video/mp4","w":640,"h":480,"thumbnail_file":{"url":"mxc://hs/thumb"}}}`),
	}
	require.Equal(t, ContentMedia, ev.Kind())
	m := ev.Media()
	require.NotNil(t, m)
	require.True(t, m.Encrypted)
	require.Equal(t, "mxc://hs/enc", m.URL)
	require.Equal(t, "mxc://hs/thumb", m.ThumbnailURL)
	require.Equal(t, 640, m.Width)
	require.Equal(t, "clip.mp4", m.Name)
}

func TestEventKind(t *testing.T) {
	require.Equal(t, ContentEdit, (&Event{Type: EventRoomMessage, Content: json.RawMessage(`{"m.relates_to":{"rel_type":"m.replace","event_id":"$x"}}`)}).Kind())
	require.Equal(t, ContentText, (&Event{Type: EventRoomMessage, Content: json.RawMessage(`{"msgtype":"m.text","body":"x"}`)}).Kind())
	require.Equal(t, ContentMembership, (&Event{Type: EventRoomMember}).Kind())
	require.Equal(t, ContentReaction, (&Event{Type: EventReaction}).Kind())
	require.Equal(t, ContentUnknown, (&Event{Type: "com.example.custom"}).Kind())
}

func TestEventJSONRoundTripKeepsTimestampAndRedaction(t *testing.T) {
	raw := `{"event_id":"$a","type":"m.room.message","sender":"@alice:hs","origin_server_ts":1700000000000,"content":{},"unsigned":{"redacted_because":{"type":"m.room.redaction"}}}`
	var ev Event
	require.NoError(t, json.Unmarshal([]byte(raw), &ev))
	require.True(t, ev.Redacted)
	require.Equal(t, time.UnixMilli(1700000000000).UTC(), ev.Timestamp)

	out, err := json.Marshal(ev)
	require.NoError(t, err)
	require.Contains(t, string(out), `"origin_server_ts":1700000000000`)
}

func TestLocalpartAndProvisional(t *testing.T) {
	require.Equal(t, "alice", Localpart("@alice:example.org"))
	require.Equal(t, "not an id", Localpart("not an id"))
	require.True(t, IsProvisional("~txn1"))
	require.False(t, IsProvisional("$event"))
}

func TestSessionMXCToHTTP(t *testing.T) {
	s := Session{HomeserverURL: "https://hs.example/"}
	require.Equal(t, "https://hs.example/_matrix/media/v3/download/hs/abc", s.MXCToHTTP("mxc://hs/abc"))
	require.Equal(t, "https://cdn/x.png", s.MXCToHTTP("https://cdn/x.png"))
	require.Equal(t, "mxc://broken", s.MXCToHTTP("mxc://broken"))
}
