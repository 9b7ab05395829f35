package progression

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

const DefaultCooldown = 60 * time.Second

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrCooldown        = errors.New("xp grant on cooldown")
	ErrDependency      = errors.New("progression store failure")
)

// CooldownError reports how long a gated source still has to wait.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("xp grant on cooldown for %s", e.Remaining.Round(time.Second))
}

func (e *CooldownError) Is(target error) bool { return target == ErrCooldown }

type Source string

const (
	SourceMessage  Source = "message"
	SourceVoice    Source = "voice"
	SourceAdmin    Source = "admin"
	SourceGiveaway Source = "giveaway"
)

// Gated reports whether grants from the source are subject to the cooldown window.
func (s Source) Gated() bool { return s == SourceMessage }

type Record struct {
	GuildID     string
	UserID      string
	XP          int64
	LastGrantAt time.Time
}

func (r Record) Level() int64 { return LevelOf(r.XP) }

type Store interface {
	GetProgress(ctx context.Context, guildID, userID string) (Record, bool, error)
	SetProgress(ctx context.Context, record Record) error
	DeleteProgress(ctx context.Context, guildID, userID string) error
	// ListProgress returns a guild's records in insertion order.
	ListProgress(ctx context.Context, guildID string) ([]Record, error)
}

type Result struct {
	OldLevel  int64
	NewLevel  int64
	XP        int64
	LeveledUp bool
}

type Standing struct {
	XP          int64
	Level       int64
	Rank        int
	Members     int
	NextLevelXP int64
}

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type Engine struct {
	store    Store
	cooldown time.Duration
	clock    Clock
	locks    *keyLocks
}

func NewEngine(store Store, cooldown time.Duration) *Engine {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Engine{
		store:    store,
		cooldown: cooldown,
		clock:    realClock{},
		locks:    newKeyLocks(),
	}
}

func (e *Engine) WithClock(clock Clock) {
	e.clock = clock
}

func (e *Engine) Cooldown() time.Duration { return e.cooldown }

func (e *Engine) AddXP(ctx context.Context, guildID, userID string, amount int64, source Source) (Result, error) {
	if amount <= 0 {
		return Result{}, fmt.Errorf("%w: amount must be positive, got %d", ErrInvalidArgument, amount)
	}
	if guildID == "" || userID == "" {
		return Result{}, fmt.Errorf("%w: guild and user are required", ErrInvalidArgument)
	}

	unlock := e.locks.lock(guildID + ":" + userID)
	defer unlock()

	record, found, err := e.store.GetProgress(ctx, guildID, userID)
	if err != nil {
		return Result{}, fmt.Errorf("%w: get progress: %v", ErrDependency, err)
	}
	if !found {
		record = Record{GuildID: guildID, UserID: userID}
	}

	now := e.clock.Now()
	if source.Gated() && !record.LastGrantAt.IsZero() {
		if elapsed := now.Sub(record.LastGrantAt); elapsed < e.cooldown {
			return Result{}, &CooldownError{Remaining: e.cooldown - elapsed}
		}
	}

	oldLevel := LevelOf(record.XP)
	record.XP = addSaturating(record.XP, amount)
	if source.Gated() {
		record.LastGrantAt = now
	}
	if err := e.store.SetProgress(ctx, record); err != nil {
		return Result{}, fmt.Errorf("%w: set progress: %v", ErrDependency, err)
	}

	newLevel := LevelOf(record.XP)
	return Result{
		OldLevel:  oldLevel,
		NewLevel:  newLevel,
		XP:        record.XP,
		LeveledUp: newLevel > oldLevel,
	}, nil
}

func (e *Engine) Reset(ctx context.Context, guildID, userID string) error {
	unlock := e.locks.lock(guildID + ":" + userID)
	defer unlock()

	if err := e.store.DeleteProgress(ctx, guildID, userID); err != nil {
		return fmt.Errorf("%w: delete progress: %v", ErrDependency, err)
	}
	return nil
}

// Leaderboard orders by xp descending. Equal xp keeps store order.
func (e *Engine) Leaderboard(ctx context.Context, guildID string, limit int) ([]Record, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", ErrInvalidArgument, limit)
	}
	records, err := e.ranked(ctx, guildID)
	if err != nil {
		return nil, err
	}
	if len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func (e *Engine) Standing(ctx context.Context, guildID, userID string) (Standing, error) {
	records, err := e.ranked(ctx, guildID)
	if err != nil {
		return Standing{}, err
	}

	standing := Standing{Members: len(records), NextLevelXP: XPForLevel(0)}
	for i, record := range records {
		if record.UserID != userID {
			continue
		}
		level := LevelOf(record.XP)
		standing.XP = record.XP
		standing.Level = level
		standing.Rank = i + 1
		standing.NextLevelXP = XPForLevel(level)
		break
	}
	return standing, nil
}

func (e *Engine) ranked(ctx context.Context, guildID string) ([]Record, error) {
	records, err := e.store.ListProgress(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("%w: list progress: %v", ErrDependency, err)
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].XP > records[j].XP
	})
	return records, nil
}

// addSaturating adds a positive amount, clamping at math.MaxInt64.
func addSaturating(xp, amount int64) int64 {
	if xp > math.MaxInt64-amount {
		return math.MaxInt64
	}
	return xp + amount
}
