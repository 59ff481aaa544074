package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoomRepositoryUpsertAndList(t *testing.T) {
	ctx := context.Background()
	database := setupTestDB(t)
	defer database.Close()

	repo := NewRoomRepository(database)
	require.ErrorIs(t, repo.Upsert(ctx, &RoomRecord{}), ErrInvalidRoom)

	require.NoError(t, repo.Upsert(ctx, &RoomRecord{
		ID:          "!b:hs",
		Name:        "1-dev-backend",
		IsEncrypted: true,
		PowerLevels: json.RawMessage(`{"users":{"@a:hs":100}}`),
	}))
	require.NoError(t, repo.Upsert(ctx, &RoomRecord{ID: "!a:hs", Name: "random", Membership: MembershipLeave}))

	got, err := repo.Get(ctx, "!b:hs")
	require.NoError(t, err)
	require.Equal(t, "invite", got.JoinRule)
	require.True(t, got.IsEncrypted)
	require.JSONEq(t, `{"users":{"@a:hs":100}}`, string(got.PowerLevels))

	joined, err := repo.ListJoined(ctx)
	require.NoError(t, err)
	require.Len(t, joined, 1)
	require.Equal(t, "!b:hs", joined[0].ID)

	_, err = repo.Get(ctx, "!missing:hs")
	require.ErrorIs(t, err, ErrRoomNotFound)
}

func TestRoomRepositoryUpdateAndUnread(t *testing.T) {
	ctx := context.Background()
	database := setupTestDB(t)
	defer database.Close()
	createTestRoom(t, database, "!r:hs")

	repo := NewRoomRepository(database)
	err := database.Transaction(ctx, func(tx *sql.Tx) error {
		if err := repo.Update(ctx, tx, "!r:hs", func(r *RoomRecord) error {
			r.Topic = "chat"
			return nil
		}); err != nil {
			return err
		}
		if err := repo.IncrementUnread(ctx, tx, "!r:hs", false); err != nil {
			return err
		}
		return repo.IncrementUnread(ctx, tx, "!r:hs", true)
	})
	require.NoError(t, err)

	got, err := repo.Get(ctx, "!r:hs")
	require.NoError(t, err)
	require.Equal(t, "chat", got.Topic)
	require.Equal(t, "General", got.Name)
	require.Equal(t, 2, got.NotifTotal)
	require.Equal(t, 1, got.NotifHighlight)

	err = database.Transaction(ctx, func(tx *sql.Tx) error {
		return repo.Update(ctx, tx, "!missing:hs", func(*RoomRecord) error { return nil })
	})
	require.ErrorIs(t, err, ErrRoomNotFound)
}
