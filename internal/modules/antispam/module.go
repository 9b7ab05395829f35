package antispam

import (
	"context"
	"fmt"
	"sync"
	"time"

	"hearth/internal/config"
	"hearth/internal/modules/audit"
	"hearth/internal/utils"
)

// Module tracks message bursts per member. A member inside a burst earns no message xp.
type Module struct {
	mu      sync.Mutex
	windows map[string]*utils.SlidingWindow
	config  config.SpamConfig
	audit   *audit.Logger
}

func New(cfg config.SpamConfig, auditLogger *audit.Logger) *Module {
	return &Module{
		windows: make(map[string]*utils.SlidingWindow),
		config:  cfg,
		audit:   auditLogger,
	}
}

// HandleMessage records a message and reports whether the member is bursting.
func (m *Module) HandleMessage(ctx context.Context, guildID, userID string, now time.Time) bool {
	if m.config.Messages <= 0 {
		return false
	}
	window := m.getWindow(guildID + ":" + userID)
	count := window.Add(now)
	if count < m.config.Messages {
		return false
	}

	if count == m.config.Messages && m.audit != nil {
		m.audit.Log(ctx, audit.LevelWarn, guildID, userID, "message_burst",
			fmt.Sprintf("%d messages in %ds, xp paused", count, m.config.WindowSeconds))
	}
	return true
}

// Prune drops windows that have been idle for a full window.
func (m *Module) Prune(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key, window := range m.windows {
		if window.Count(now) == 0 {
			delete(m.windows, key)
			removed++
		}
	}
	return removed
}

func (m *Module) getWindow(key string) *utils.SlidingWindow {
	m.mu.Lock()
	defer m.mu.Unlock()
	window := m.windows[key]
	if window == nil {
		window = utils.NewSlidingWindow(time.Duration(m.config.WindowSeconds) * time.Second)
		m.windows[key] = window
	}
	return window
}
