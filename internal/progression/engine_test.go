package progression

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

type failingStore struct {
	*MemoryStore
	failSet bool
	failGet bool
}

func (f *failingStore) GetProgress(ctx context.Context, guildID, userID string) (Record, bool, error) {
	if f.failGet {
		return Record{}, false, errors.New("connection reset")
	}
	return f.MemoryStore.GetProgress(ctx, guildID, userID)
}

func (f *failingStore) SetProgress(ctx context.Context, record Record) error {
	if f.failSet {
		return errors.New("disk full")
	}
	return f.MemoryStore.SetProgress(ctx, record)
}

func newTestEngine() (*Engine, *MemoryStore, *fakeClock) {
	store := NewMemoryStore()
	engine := NewEngine(store, 60*time.Second)
	clock := &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	engine.WithClock(clock)
	return engine, store, clock
}

func TestLevelOf(t *testing.T) {
	cases := map[int64]int64{
		0:     0,
		99:    0,
		100:   1,
		399:   1,
		400:   2,
		899:   2,
		900:   3,
		10000: 10,
		-50:   0,
	}
	for xp, want := range cases {
		assert.Equal(t, want, LevelOf(xp), "xp=%d", xp)
	}
}

func TestXPForLevel(t *testing.T) {
	assert.Equal(t, int64(100), XPForLevel(0))
	assert.Equal(t, int64(400), XPForLevel(1))
	assert.Equal(t, int64(900), XPForLevel(2))
	for level := int64(0); level < 50; level++ {
		assert.Equal(t, level+1, LevelOf(XPForLevel(level)))
		assert.Equal(t, level, LevelOf(XPForLevel(level)-1))
	}
}

func TestAddXPCooldown(t *testing.T) {
	engine, _, clock := newTestEngine()
	ctx := context.Background()

	result, err := engine.AddXP(ctx, "g1", "u1", 5, SourceMessage)
	require.NoError(t, err)
	assert.Equal(t, int64(5), result.XP)
	assert.False(t, result.LeveledUp)

	clock.Advance(30 * time.Second)
	_, err = engine.AddXP(ctx, "g1", "u1", 5, SourceMessage)
	require.ErrorIs(t, err, ErrCooldown)
	var cooldown *CooldownError
	require.True(t, errors.As(err, &cooldown))
	assert.Equal(t, 30*time.Second, cooldown.Remaining)

	clock.Advance(31 * time.Second)
	result, err = engine.AddXP(ctx, "g1", "u1", 5, SourceMessage)
	require.NoError(t, err)
	assert.Equal(t, int64(10), result.XP)
}

func TestAddXPUngatedSourcesSkipCooldown(t *testing.T) {
	engine, store, _ := newTestEngine()
	ctx := context.Background()

	_, err := engine.AddXP(ctx, "g1", "u1", 10, SourceMessage)
	require.NoError(t, err)
	before, _, _ := store.GetProgress(ctx, "g1", "u1")

	for _, source := range []Source{SourceAdmin, SourceVoice, SourceGiveaway} {
		_, err := engine.AddXP(ctx, "g1", "u1", 10, source)
		require.NoError(t, err, string(source))
	}

	after, _, _ := store.GetProgress(ctx, "g1", "u1")
	assert.Equal(t, int64(40), after.XP)
	assert.True(t, before.LastGrantAt.Equal(after.LastGrantAt))

	_, err = engine.AddXP(ctx, "g1", "u1", 10, SourceMessage)
	require.ErrorIs(t, err, ErrCooldown)
}

func TestAddXPLevelUp(t *testing.T) {
	engine, _, _ := newTestEngine()
	ctx := context.Background()

	result, err := engine.AddXP(ctx, "g1", "u1", 90, SourceAdmin)
	require.NoError(t, err)
	assert.Equal(t, int64(0), result.NewLevel)

	result, err = engine.AddXP(ctx, "g1", "u1", 320, SourceAdmin)
	require.NoError(t, err)
	assert.Equal(t, Result{OldLevel: 0, NewLevel: 2, XP: 410, LeveledUp: true}, result)
}

func TestAddXPInvalidAmount(t *testing.T) {
	engine, store, _ := newTestEngine()
	ctx := context.Background()

	for _, amount := range []int64{0, -3} {
		_, err := engine.AddXP(ctx, "g1", "u1", amount, SourceAdmin)
		require.ErrorIs(t, err, ErrInvalidArgument)
	}
	_, found, _ := store.GetProgress(ctx, "g1", "u1")
	assert.False(t, found)
}

func TestAddXPSaturatesInsteadOfWrapping(t *testing.T) {
	engine, _, _ := newTestEngine()
	ctx := context.Background()

	_, err := engine.AddXP(ctx, "g1", "u1", math.MaxInt64-10, SourceAdmin)
	require.NoError(t, err)

	result, err := engine.AddXP(ctx, "g1", "u1", 1000, SourceAdmin)
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), result.XP)
	assert.GreaterOrEqual(t, result.NewLevel, result.OldLevel)

	result, err = engine.AddXP(ctx, "g1", "u1", math.MaxInt64, SourceGiveaway)
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), result.XP)
}

func TestAddXPStoreFailure(t *testing.T) {
	store := &failingStore{MemoryStore: NewMemoryStore(), failSet: true}
	engine := NewEngine(store, time.Minute)

	_, err := engine.AddXP(context.Background(), "g1", "u1", 5, SourceMessage)
	require.ErrorIs(t, err, ErrDependency)

	store.failSet = false
	store.failGet = true
	_, err = engine.AddXP(context.Background(), "g1", "u1", 5, SourceMessage)
	require.ErrorIs(t, err, ErrDependency)

	store.failGet = false
	result, err := engine.AddXP(context.Background(), "g1", "u1", 5, SourceMessage)
	require.NoError(t, err)
	assert.Equal(t, int64(5), result.XP)
}

func TestReset(t *testing.T) {
	engine, store, _ := newTestEngine()
	ctx := context.Background()

	_, err := engine.AddXP(ctx, "g1", "u1", 500, SourceAdmin)
	require.NoError(t, err)
	require.NoError(t, engine.Reset(ctx, "g1", "u1"))

	_, found, _ := store.GetProgress(ctx, "g1", "u1")
	assert.False(t, found)

	result, err := engine.AddXP(ctx, "g1", "u1", 5, SourceMessage)
	require.NoError(t, err)
	assert.Equal(t, int64(5), result.XP)
}

func TestLeaderboardOrdering(t *testing.T) {
	engine, _, _ := newTestEngine()
	ctx := context.Background()

	grants := []struct {
		user string
		xp   int64
	}{
		{"alice", 300},
		{"bob", 500},
		{"carol", 300},
		{"dave", 100},
		{"erin", 500},
	}
	for _, grant := range grants {
		_, err := engine.AddXP(ctx, "g1", grant.user, grant.xp, SourceAdmin)
		require.NoError(t, err)
	}
	_, err := engine.AddXP(ctx, "g2", "zed", 9000, SourceAdmin)
	require.NoError(t, err)

	board, err := engine.Leaderboard(ctx, "g1", 10)
	require.NoError(t, err)

	var users []string
	for _, record := range board {
		users = append(users, record.UserID)
	}
	assert.Equal(t, []string{"bob", "erin", "alice", "carol", "dave"}, users)

	board, err = engine.Leaderboard(ctx, "g1", 2)
	require.NoError(t, err)
	assert.Len(t, board, 2)

	_, err = engine.Leaderboard(ctx, "g1", 0)
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestStanding(t *testing.T) {
	engine, _, _ := newTestEngine()
	ctx := context.Background()

	_, _ = engine.AddXP(ctx, "g1", "u1", 150, SourceAdmin)
	_, _ = engine.AddXP(ctx, "g1", "u2", 450, SourceAdmin)

	standing, err := engine.Standing(ctx, "g1", "u1")
	require.NoError(t, err)
	assert.Equal(t, Standing{XP: 150, Level: 1, Rank: 2, Members: 2, NextLevelXP: 400}, standing)

	standing, err = engine.Standing(ctx, "g1", "nobody")
	require.NoError(t, err)
	assert.Equal(t, 0, standing.Rank)
	assert.Equal(t, int64(100), standing.NextLevelXP)
}

func TestAddXPConcurrent(t *testing.T) {
	store := NewMemoryStore()
	engine := NewEngine(store, time.Minute)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = engine.AddXP(ctx, "g1", "u1", 2, SourceVoice)
		}()
	}
	wg.Wait()

	record, found, err := store.GetProgress(ctx, "g1", "u1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int64(100), record.XP)
	assert.Equal(t, 0, engine.locks.size())
}
