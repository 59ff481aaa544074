package db

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tOgg1/mxview/internal/matrix"
)

func TestEventRepositoryAppendAndGet(t *testing.T) {
	ctx := context.Background()
	database := setupTestDB(t)
	defer database.Close()
	createTestRoom(t, database, "!r:hs")

	repo := NewEventRepository(database)
	base := time.Now().UTC().Truncate(time.Millisecond)

	ev := textMessage("!r:hs", "@a:hs", "hello", base)
	seq, err := repo.Append(ctx, ev)
	require.NoError(t, err)
	require.Positive(t, seq)
	require.True(t, strings.HasPrefix(ev.ID, "$"), "Append must assign an event id")

	got, err := repo.Get(ctx, ev.ID)
	require.NoError(t, err)
	require.Equal(t, seq, got.Seq)
	require.Equal(t, matrix.EventRoomMessage, got.Event.Type)
	require.True(t, base.Equal(got.Event.Timestamp))
	body, ok := got.Event.Body()
	require.True(t, ok)
	require.Equal(t, "hello", body)

	_, err = repo.Get(ctx, "$missing")
	require.ErrorIs(t, err, ErrEventNotFound)
}

func TestEventRepositoryAppendRejectsInvalid(t *testing.T) {
	database := setupTestDB(t)
	defer database.Close()

	_, err := NewEventRepository(database).Append(context.Background(), &matrix.Event{Type: matrix.EventRoomMessage})
	require.ErrorIs(t, err, ErrInvalidEvent)
}

func TestEventRepositoryPaging(t *testing.T) {
	ctx := context.Background()
	database := setupTestDB(t)
	defer database.Close()
	createTestRoom(t, database, "!r:hs")

	repo := NewEventRepository(database)
	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		_, err := repo.Append(ctx, textMessage("!r:hs", "@a:hs", string(rune('a'+i)), base.Add(time.Duration(i)*time.Second)))
		require.NoError(t, err)
	}

	latest, err := repo.Latest(ctx, "!r:hs", 2)
	require.NoError(t, err)
	require.Equal(t, []string{"d", "e"}, bodies(latest))

	older, err := repo.Before(ctx, "!r:hs", latest[0].Seq, 10)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"}, bodies(older))

	newer, err := repo.After(ctx, "!r:hs", older[2].Seq)
	require.NoError(t, err)
	require.Equal(t, []string{"d", "e"}, bodies(newer))

	count, err := repo.Count(ctx, "!r:hs")
	require.NoError(t, err)
	require.EqualValues(t, 5, count)
}

func TestEventRepositoryRedact(t *testing.T) {
	ctx := context.Background()
	database := setupTestDB(t)
	defer database.Close()
	createTestRoom(t, database, "!r:hs")

	repo := NewEventRepository(database)
	ev := textMessage("!r:hs", "@a:hs", "secret", time.Now())
	_, err := repo.Append(ctx, ev)
	require.NoError(t, err)

	because := &matrix.Event{ID: "$why", Type: matrix.EventRedaction, Sender: "@a:hs"}
	err = database.Transaction(ctx, func(tx *sql.Tx) error {
		return repo.Redact(ctx, tx, ev.ID, because)
	})
	require.NoError(t, err)

	got, err := repo.Get(ctx, ev.ID)
	require.NoError(t, err)
	require.True(t, got.Event.Redacted)
	_, ok := got.Event.Body()
	require.False(t, ok)

	err = database.Transaction(ctx, func(tx *sql.Tx) error {
		return repo.Redact(ctx, tx, "$missing", because)
	})
	require.True(t, errors.Is(err, ErrEventNotFound))
}

func bodies(events []StoredEvent) []string {
	out := make([]string, 0, len(events))
	for _, ev := range events {
		body, _ := ev.Event.Body()
		out = append(out, body)
	}
	return out
}
