package store

import (
	"encoding/json"
	"testing"

	"github.com/tOgg1/mxview/internal/db"
	"github.com/tOgg1/mxview/internal/matrix"
)

func TestRoomPowerLevels(t *testing.T) {
	room := newRoom(&db.RoomRecord{
		ID: "!r:hs",
		PowerLevels: json.RawMessage(`{
			"users": {"@admin:hs": 100, "@mod:hs": 50},
			"users_default": 0,
			"events": {"m.room.topic": 0},
			"state_default": 50,
			"redact": 50,
			"invite": 50
		}`),
	})

	tests := []struct {
		name string
		got  bool
		want bool
	}{
		{"admin sends name", room.MaySendState(matrix.EventRoomName, "@admin:hs"), true},
		{"member sends name", room.MaySendState(matrix.EventRoomName, "@pleb:hs"), false},
		{"member sends topic override", room.MaySendState(matrix.EventRoomTopic, "@pleb:hs"), true},
		{"mod redacts", room.CanRedact("@mod:hs"), true},
		{"member redacts", room.CanRedact("@pleb:hs"), false},
		{"member invites", room.CanInvite("@pleb:hs"), false},
		{"mod invites", room.CanInvite("@mod:hs"), true},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestRoomDefaultsWithoutPowerLevels(t *testing.T) {
	room := newRoom(&db.RoomRecord{ID: "!r:hs"})
	if room.MaySendState(matrix.EventRoomName, "@a:hs") {
		t.Error("state events need level 50 by default")
	}
	if !room.CanInvite("@a:hs") {
		t.Error("invites are open by default")
	}
	if room.PowerLevel("@a:hs") != 0 {
		t.Errorf("PowerLevel = %d, want 0", room.PowerLevel("@a:hs"))
	}
}
