package audit

import (
	"context"
	"sync"
	"time"

	"hearth/internal/storage"

	"go.uber.org/zap"
)

const (
	LevelInfo = "INFO"
	LevelWarn = "WARN"
	LevelCrit = "CRIT"
)

type Destination interface {
	Name() string
	Write(ctx context.Context, entry storage.AuditLog) error
}

type Logger struct {
	mu           sync.RWMutex
	destinations []Destination
	logger       *zap.Logger
	ring         *ring
	now          func() time.Time
}

func NewLogger(logger *zap.Logger, ringSize int, destinations ...Destination) *Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Logger{
		destinations: destinations,
		logger:       logger,
		ring:         newRing(ringSize),
		now:          time.Now,
	}
}

func (l *Logger) AddDestination(destination Destination) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.destinations = append(l.destinations, destination)
}

func (l *Logger) Destinations() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	names := make([]string, 0, len(l.destinations))
	for _, destination := range l.destinations {
		names = append(names, destination.Name())
	}
	return names
}

// Log never fails; destination errors are only logged.
func (l *Logger) Log(ctx context.Context, level, guildID, userID, event, details string) {
	entry := storage.AuditLog{
		GuildID:   guildID,
		UserID:    userID,
		Level:     level,
		Event:     event,
		Details:   details,
		CreatedAt: l.now(),
	}
	l.ring.push(entry)

	l.mu.RLock()
	destinations := append([]Destination(nil), l.destinations...)
	l.mu.RUnlock()

	for _, destination := range destinations {
		if err := destination.Write(ctx, entry); err != nil {
			l.logger.Warn("activity destination failed",
				zap.String("destination", destination.Name()),
				zap.String("event", event),
				zap.Error(err),
			)
		}
	}
	l.logger.Info("activity", zap.String("level", level), zap.String("guild_id", guildID), zap.String("user_id", userID), zap.String("event", event), zap.String("details", details))
}

func (l *Logger) Recent(guildID string, n int) []storage.AuditLog {
	return l.ring.recent(guildID, n)
}

type ring struct {
	mu      sync.Mutex
	entries []storage.AuditLog
	next    int
	full    bool
}

func newRing(size int) *ring {
	if size <= 0 {
		size = 100
	}
	return &ring{entries: make([]storage.AuditLog, size)}
}

func (r *ring) push(entry storage.AuditLog) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[r.next] = entry
	r.next = (r.next + 1) % len(r.entries)
	if r.next == 0 {
		r.full = true
	}
}

func (r *ring) recent(guildID string, n int) []storage.AuditLog {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := r.next
	if r.full {
		count = len(r.entries)
	}
	var out []storage.AuditLog
	for i := 1; i <= count && len(out) < n; i++ {
		idx := (r.next - i + len(r.entries)) % len(r.entries)
		if entry := r.entries[idx]; guildID == "" || entry.GuildID == guildID {
			out = append(out, entry)
		}
	}
	return out
}
