package matrix

import (
	"encoding/json"
	"time"
)

type wireEvent struct {
	ID             string          `json:"event_id"`
	RoomID         string          `json:"room_id,omitempty"`
	Type           EventType       `json:"type"`
	Sender         string          `json:"sender"`
	OriginServerTS int64           `json:"origin_server_ts"`
	StateKey       *string         `json:"state_key,omitempty"`
	Content        json.RawMessage `json:"content,omitempty"`
	Unsigned       json.RawMessage `json:"unsigned,omitempty"`
	Redacted       bool            `json:"redacted,omitempty"`
}

// MarshalJSON encodes the event in client-server API shape, with the
// timestamp as origin_server_ts milliseconds.
func (e Event) MarshalJSON() ([]byte, error) {
	w := wireEvent{
		ID:       e.ID,
		RoomID:   e.RoomID,
		Type:     e.Type,
		Sender:   e.Sender,
		StateKey: e.StateKey,
		Content:  e.Content,
		Unsigned: e.Unsigned,
		Redacted: e.Redacted,
	}
	if !e.Timestamp.IsZero() {
		w.OriginServerTS = e.Timestamp.UnixMilli()
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes a client-server API event. An event whose unsigned
// block carries redacted_because is marked redacted.
func (e *Event) UnmarshalJSON(data []byte) error {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*e = Event{
		ID:       w.ID,
		RoomID:   w.RoomID,
		Type:     w.Type,
		Sender:   w.Sender,
		StateKey: w.StateKey,
		Content:  w.Content,
		Unsigned: w.Unsigned,
		Redacted: w.Redacted,
	}
	if w.OriginServerTS > 0 {
		e.Timestamp = time.UnixMilli(w.OriginServerTS).UTC()
	}
	if !e.Redacted && len(w.Unsigned) > 0 {
		var unsigned struct {
			RedactedBecause json.RawMessage `json:"redacted_because"`
		}
		if err := json.Unmarshal(w.Unsigned, &unsigned); err == nil && len(unsigned.RedactedBecause) > 0 && string(unsigned.RedactedBecause) != "null" {
			e.Redacted = true
		}
	}
	return nil
}
