package timeline

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/tOgg1/mxview/internal/matrix"
)

var base = time.Date(2026, 2, 9, 8, 0, 0, 0, time.UTC)

type fakeSource struct {
	events    []*matrix.Event
	edits     map[string][]*matrix.Event
	reactions map[string][]*matrix.Event
}

func newFakeSource(events ...*matrix.Event) *fakeSource {
	src := &fakeSource{
		edits:     make(map[string][]*matrix.Event),
		reactions: make(map[string][]*matrix.Event),
	}
	for _, ev := range events {
		src.add(ev)
	}
	return src
}

func (s *fakeSource) add(ev *matrix.Event) {
	s.events = append(s.events, ev)
	rel := ev.Relation()
	if rel == nil {
		return
	}
	switch rel.Type {
	case matrix.RelReplace:
		s.edits[rel.EventID] = append(s.edits[rel.EventID], ev)
	case matrix.RelAnnotation:
		s.reactions[rel.EventID] = append(s.reactions[rel.EventID], ev)
	}
}

func (s *fakeSource) Events() []*matrix.Event               { return s.events }
func (s *fakeSource) EditsOf(id string) []*matrix.Event     { return s.edits[id] }
func (s *fakeSource) ReactionsOf(id string) []*matrix.Event { return s.reactions[id] }

func content(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}

func textEvent(id, sender string, at time.Duration, body string) *matrix.Event {
	return &matrix.Event{
		ID:        id,
		Type:      matrix.EventRoomMessage,
		Sender:    sender,
		Timestamp: base.Add(at),
		Content:   content(map[string]any{"msgtype": "m.text", "body": body}),
	}
}

func editEvent(id, sender, target string, at time.Duration, newBody string) *matrix.Event {
	return &matrix.Event{
		ID:        id,
		Type:      matrix.EventRoomMessage,
		Sender:    sender,
		Timestamp: base.Add(at),
		Content: content(map[string]any{
			"msgtype":       "m.text",
			"body":          "* " + newBody,
			"m.new_content": map[string]any{"msgtype": "m.text", "body": newBody},
			"m.relates_to":  map[string]any{"rel_type": "m.replace", "event_id": target},
		}),
	}
}

func reactionEvent(id, sender, target, key string) *matrix.Event {
	return &matrix.Event{
		ID:        id,
		Type:      matrix.EventReaction,
		Sender:    sender,
		Timestamp: base,
		Content: content(map[string]any{
			"m.relates_to": map[string]any{"rel_type": "m.annotation", "event_id": target, "key": key},
		}),
	}
}

func memberEvent(id, sender, target, membership string, at time.Duration) *matrix.Event {
	key := target
	return &matrix.Event{
		ID:        id,
		Type:      matrix.EventRoomMember,
		Sender:    sender,
		StateKey:  &key,
		Timestamp: base.Add(at),
		Content:   content(map[string]any{"membership": membership}),
	}
}

func createEvent(id, sender string) *matrix.Event {
	empty := ""
	return &matrix.Event{
		ID:        id,
		Type:      matrix.EventRoomCreate,
		Sender:    sender,
		StateKey:  &empty,
		Timestamp: base,
		Content:   content(map[string]any{"creator": sender}),
	}
}

func messageKeys(items []Item) []string {
	var out []string
	for _, it := range items {
		if it.Kind == ItemMessage {
			out = append(out, it.Key)
		}
	}
	return out
}

func kinds(items []Item) string {
	out := ""
	for _, it := range items {
		out += fmt.Sprintf("%d", it.Kind)
	}
	return out
}
