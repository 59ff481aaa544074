package db

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/tOgg1/mxview/internal/matrix"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	database, err := OpenInMemory()
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if _, err := database.MigrateUp(context.Background()); err != nil {
		database.Close()
		t.Fatalf("migrate: %v", err)
	}
	return database
}

func createTestRoom(t *testing.T, database *DB, id string) {
	t.Helper()
	if err := NewRoomRepository(database).Upsert(context.Background(), &RoomRecord{ID: id, Name: "General"}); err != nil {
		t.Fatalf("create room: %v", err)
	}
}

func textMessage(roomID, sender, body string, ts time.Time) *matrix.Event {
	content, _ := json.Marshal(map[string]string{"msgtype": matrix.MsgText, "body": body})
	return &matrix.Event{
		RoomID:    roomID,
		Type:      matrix.EventRoomMessage,
		Sender:    sender,
		Timestamp: ts,
		Content:   content,
	}
}
