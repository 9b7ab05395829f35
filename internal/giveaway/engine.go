package giveaway

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultSweepInterval = 5 * time.Second
	DefaultArchiveSize   = 100
)

var (
	ErrNotFound          = errors.New("giveaway not found")
	ErrEnded             = errors.New("giveaway has ended")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrRequirementNotMet = errors.New("requirement not met")
	ErrDependency        = errors.New("dependency failure")
)

type AnnounceKind int

const (
	AnnounceOpen AnnounceKind = iota
	AnnounceResult
	AnnounceReroll
)

type Announcement struct {
	Kind        AnnounceKind
	GiveawayID  string
	GuildID     string
	Prize       string
	HostID      string
	WinnerCount int
	EndsAt      time.Time
	Winners     []string
	Entrants    int
}

// Publisher delivers giveaway messages. For AnnounceOpen the returned id identifies the giveaway.
type Publisher interface {
	Publish(ctx context.Context, destination string, announcement Announcement) (string, error)
}

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type CreateParams struct {
	GuildID     string
	Destination string
	Prize       string
	WinnerCount int
	Duration    time.Duration
	HostID      string
}

type Summary struct {
	ID          string
	GuildID     string
	Destination string
	Prize       string
	HostID      string
	WinnerCount int
	EndsAt      time.Time
	Entrants    int
}

type EnterResult struct {
	GiveawayID     string
	AlreadyEntered bool
	Entrants       int
}

type ClosureResult struct {
	GiveawayID  string
	GuildID     string
	Destination string
	Prize       string
	HostID      string
	Winners     []string
	Entrants    int
	ClosedAt    time.Time
}

type giveaway struct {
	Summary
	entrants map[string]struct{}
	order    []string
}

type closed struct {
	result ClosureResult
	pool   []string
	drawn  map[string]struct{}
}

type Engine struct {
	mu           sync.Mutex
	active       map[string]*giveaway
	archive      map[string]*closed
	archiveOrder []string
	archiveSize  int

	publisher    Publisher
	requirements RequirementsStore
	logger       *zap.Logger
	clock        Clock
	intn         func(n int) int
}

func NewEngine(publisher Publisher, requirements RequirementsStore, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		active:       make(map[string]*giveaway),
		archive:      make(map[string]*closed),
		archiveSize:  DefaultArchiveSize,
		publisher:    publisher,
		requirements: requirements,
		logger:       logger,
		clock:        realClock{},
		intn:         rand.IntN,
	}
}

func (e *Engine) WithClock(clock Clock) {
	e.clock = clock
}

// WithRand replaces the draw source; intn must return a value in [0, n).
func (e *Engine) WithRand(intn func(n int) int) {
	e.intn = intn
}

func (e *Engine) WithArchiveSize(size int) {
	if size > 0 {
		e.archiveSize = size
	}
}

func (e *Engine) Create(ctx context.Context, params CreateParams) (Summary, error) {
	switch {
	case params.WinnerCount < 1:
		return Summary{}, fmt.Errorf("%w: winner count must be at least 1", ErrInvalidArgument)
	case params.Duration <= 0:
		return Summary{}, fmt.Errorf("%w: duration must be positive", ErrInvalidArgument)
	case params.Prize == "":
		return Summary{}, fmt.Errorf("%w: prize is required", ErrInvalidArgument)
	case params.Destination == "":
		return Summary{}, fmt.Errorf("%w: destination is required", ErrInvalidArgument)
	}

	endsAt := e.clock.Now().Add(params.Duration)
	id, err := e.publisher.Publish(ctx, params.Destination, Announcement{
		Kind:        AnnounceOpen,
		GuildID:     params.GuildID,
		Prize:       params.Prize,
		HostID:      params.HostID,
		WinnerCount: params.WinnerCount,
		EndsAt:      endsAt,
	})
	if err != nil {
		return Summary{}, fmt.Errorf("%w: publish giveaway: %v", ErrDependency, err)
	}
	if id == "" {
		return Summary{}, fmt.Errorf("%w: publisher returned no message id", ErrDependency)
	}

	item := &giveaway{
		Summary: Summary{
			ID:          id,
			GuildID:     params.GuildID,
			Destination: params.Destination,
			Prize:       params.Prize,
			HostID:      params.HostID,
			WinnerCount: params.WinnerCount,
			EndsAt:      endsAt,
		},
		entrants: make(map[string]struct{}),
	}

	e.mu.Lock()
	e.active[id] = item
	e.mu.Unlock()

	e.logger.Info("giveaway created",
		zap.String("giveaway_id", id),
		zap.String("guild_id", params.GuildID),
		zap.String("destination", params.Destination),
		zap.Int("winners", params.WinnerCount),
		zap.Time("ends_at", endsAt),
	)
	return item.Summary, nil
}

func (e *Engine) Enter(ctx context.Context, giveawayID string, entrant Entrant) (EnterResult, error) {
	if entrant.UserID == "" {
		return EnterResult{}, fmt.Errorf("%w: entrant user id is required", ErrInvalidArgument)
	}

	destination, err := e.openDestination(giveawayID)
	if err != nil {
		return EnterResult{}, err
	}

	var req Requirements
	if e.requirements != nil {
		req, err = e.requirements.GetRequirements(ctx, destination)
		if err != nil {
			return EnterResult{}, fmt.Errorf("%w: load requirements: %v", ErrDependency, err)
		}
	}
	now := e.clock.Now()
	if err := CheckRequirements(entrant, req, now); err != nil {
		return EnterResult{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	// The giveaway may have closed while requirements were loading.
	item := e.active[giveawayID]
	if item == nil {
		return EnterResult{}, ErrNotFound
	}
	if !now.Before(item.EndsAt) {
		return EnterResult{}, ErrEnded
	}
	result := EnterResult{GiveawayID: giveawayID}
	if _, ok := item.entrants[entrant.UserID]; ok {
		result.AlreadyEntered = true
	} else {
		item.entrants[entrant.UserID] = struct{}{}
		item.order = append(item.order, entrant.UserID)
		item.Entrants = len(item.order)
	}
	result.Entrants = item.Entrants
	return result, nil
}

func (e *Engine) openDestination(giveawayID string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	item := e.active[giveawayID]
	if item == nil {
		return "", ErrNotFound
	}
	if !e.clock.Now().Before(item.EndsAt) {
		return "", ErrEnded
	}
	return item.Destination, nil
}

// Close returns the result even when the announcement fails.
func (e *Engine) Close(ctx context.Context, giveawayID string) (ClosureResult, error) {
	e.mu.Lock()
	item := e.active[giveawayID]
	if item == nil {
		e.mu.Unlock()
		return ClosureResult{}, ErrNotFound
	}
	delete(e.active, giveawayID)

	pool := append([]string(nil), item.order...)
	winners := e.draw(pool, item.WinnerCount)
	result := ClosureResult{
		GiveawayID:  item.ID,
		GuildID:     item.GuildID,
		Destination: item.Destination,
		Prize:       item.Prize,
		HostID:      item.HostID,
		Winners:     winners,
		Entrants:    len(item.order),
		ClosedAt:    e.clock.Now(),
	}
	e.archiveLocked(result, item.order)
	e.mu.Unlock()

	e.logger.Info("giveaway closed",
		zap.String("giveaway_id", giveawayID),
		zap.Int("entrants", result.Entrants),
		zap.Strings("winners", winners),
	)

	if _, err := e.publisher.Publish(ctx, result.Destination, Announcement{
		Kind:        AnnounceResult,
		GiveawayID:  result.GiveawayID,
		GuildID:     result.GuildID,
		Prize:       result.Prize,
		HostID:      result.HostID,
		WinnerCount: item.WinnerCount,
		EndsAt:      item.EndsAt,
		Winners:     winners,
		Entrants:    result.Entrants,
	}); err != nil {
		return result, fmt.Errorf("%w: announce winners: %v", ErrDependency, err)
	}
	return result, nil
}

func (e *Engine) Reroll(ctx context.Context, guildID, giveawayID string, count int) (ClosureResult, error) {
	if count < 1 {
		return ClosureResult{}, fmt.Errorf("%w: reroll count must be at least 1", ErrInvalidArgument)
	}

	e.mu.Lock()
	entry := e.archive[giveawayID]
	if entry == nil || entry.result.GuildID != guildID {
		e.mu.Unlock()
		return ClosureResult{}, ErrNotFound
	}
	remaining := make([]string, 0, len(entry.pool))
	for _, userID := range entry.pool {
		if _, ok := entry.drawn[userID]; !ok {
			remaining = append(remaining, userID)
		}
	}
	winners := e.draw(remaining, count)
	for _, userID := range winners {
		entry.drawn[userID] = struct{}{}
	}
	result := entry.result
	result.Winners = winners
	result.ClosedAt = e.clock.Now()
	e.mu.Unlock()

	if _, err := e.publisher.Publish(ctx, result.Destination, Announcement{
		Kind:        AnnounceReroll,
		GiveawayID:  result.GiveawayID,
		GuildID:     result.GuildID,
		Prize:       result.Prize,
		HostID:      result.HostID,
		WinnerCount: count,
		Winners:     winners,
		Entrants:    result.Entrants,
	}); err != nil {
		return result, fmt.Errorf("%w: announce reroll: %v", ErrDependency, err)
	}
	return result, nil
}

func (e *Engine) Sweep(ctx context.Context) int {
	now := e.clock.Now()

	e.mu.Lock()
	var due []string
	for id, item := range e.active {
		if !now.Before(item.EndsAt) {
			due = append(due, id)
		}
	}
	e.mu.Unlock()
	sort.Strings(due)

	closedCount := 0
	for _, id := range due {
		if e.closeIsolated(ctx, id) {
			closedCount++
		}
	}
	return closedCount
}

func (e *Engine) closeIsolated(ctx context.Context, id string) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("giveaway closure panicked", zap.String("giveaway_id", id), zap.Any("panic", r))
			ok = false
		}
	}()

	_, err := e.Close(ctx, id)
	switch {
	case err == nil:
		return true
	case errors.Is(err, ErrNotFound):
		return false
	default:
		e.logger.Warn("giveaway closure failed", zap.String("giveaway_id", id), zap.Error(err))
		return true
	}
}

func (e *Engine) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.Sweep(ctx)
		}
	}
}

func (e *Engine) Get(giveawayID string) (Summary, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	item := e.active[giveawayID]
	if item == nil {
		return Summary{}, false
	}
	return item.Summary, true
}

func (e *Engine) List(destination string) []Summary {
	e.mu.Lock()
	out := make([]Summary, 0, len(e.active))
	for _, item := range e.active {
		if destination == "" || item.Destination == destination {
			out = append(out, item.Summary)
		}
	}
	e.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].EndsAt.Equal(out[j].EndsAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].EndsAt.Before(out[j].EndsAt)
	})
	return out
}

// draw reorders pool in place.
func (e *Engine) draw(pool []string, count int) []string {
	if count > len(pool) {
		count = len(pool)
	}
	for i := 0; i < count; i++ {
		j := i + e.intn(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return append([]string{}, pool[:count]...)
}

func (e *Engine) archiveLocked(result ClosureResult, entrants []string) {
	drawn := make(map[string]struct{}, len(result.Winners))
	for _, userID := range result.Winners {
		drawn[userID] = struct{}{}
	}
	e.archive[result.GiveawayID] = &closed{result: result, pool: entrants, drawn: drawn}
	e.archiveOrder = append(e.archiveOrder, result.GiveawayID)
	for len(e.archiveOrder) > e.archiveSize {
		delete(e.archive, e.archiveOrder[0])
		e.archiveOrder = e.archiveOrder[1:]
	}
}
