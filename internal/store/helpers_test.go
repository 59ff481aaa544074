package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tOgg1/mxview/internal/db"
	"github.com/tOgg1/mxview/internal/matrix"
)

var testSession = matrix.Session{UserID: "@alice:hs", HomeserverURL: "https://hs.example"}

func newTestClient(t *testing.T) *Client {
	t.Helper()

	database, err := db.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	_, err = database.MigrateUp(context.Background())
	require.NoError(t, err)

	c := New(database, testSession)
	clock := time.Unix(1800000000, 0).UTC()
	c.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return c
}

func loadSandbox(t *testing.T, c *Client) {
	t.Helper()

	f, err := os.Open("testdata/sandbox.json")
	require.NoError(t, err)
	defer f.Close()

	fixture, err := DecodeFixture(f)
	require.NoError(t, err)
	_, err = c.Import(context.Background(), fixture)
	require.NoError(t, err)
}
