package pgstore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hearth/internal/progression"
)

// Runs only against a real database: HEARTH_TEST_POSTGRES_URL=postgres://...
func newTestStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("HEARTH_TEST_POSTGRES_URL")
	if url == "" {
		t.Skip("HEARTH_TEST_POSTGRES_URL not set")
	}
	ctx := context.Background()
	store, err := New(ctx, url, 2)
	require.NoError(t, err)
	t.Cleanup(store.Close)
	require.NoError(t, store.Migrate(ctx))
	_, err = store.pool.Exec(ctx, `DELETE FROM progression WHERE guild_id LIKE 'pgtest-%'`)
	require.NoError(t, err)
	return store
}

func TestStoreRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	grant := time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, store.SetProgress(ctx, progression.Record{GuildID: "pgtest-g1", UserID: "u2", XP: 10}))
	require.NoError(t, store.SetProgress(ctx, progression.Record{GuildID: "pgtest-g1", UserID: "u1", XP: 20, LastGrantAt: grant}))
	require.NoError(t, store.SetProgress(ctx, progression.Record{GuildID: "pgtest-g1", UserID: "u2", XP: 30}))

	record, found, err := store.GetProgress(ctx, "pgtest-g1", "u1")
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, grant.Equal(record.LastGrantAt))

	records, err := store.ListProgress(ctx, "pgtest-g1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "u2", records[0].UserID)
	assert.Equal(t, int64(30), records[0].XP)

	require.NoError(t, store.DeleteProgress(ctx, "pgtest-g1", "u2"))
	_, found, err = store.GetProgress(ctx, "pgtest-g1", "u2")
	require.NoError(t, err)
	assert.False(t, found)
}
