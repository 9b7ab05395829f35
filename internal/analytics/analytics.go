package analytics

import (
	"context"
	"sort"
	"time"

	"hearth/internal/storage"
)

type LogSource interface {
	ListAuditLogs(ctx context.Context, guildID string, since time.Time) ([]storage.AuditLog, error)
}

type Service struct {
	store LogSource
}

func New(store LogSource) *Service {
	return &Service{store: store}
}

type EventCount struct {
	Event string
	Count int
}

type Report struct {
	Since       time.Time
	Total       int
	ByLevel     map[string]int
	TopEvents   []EventCount
	ActiveUsers int
}

// Report summarises the activity log of a guild since the given time. topN bounds TopEvents.
func (s *Service) Report(ctx context.Context, guildID string, since time.Time, topN int) (Report, error) {
	logs, err := s.store.ListAuditLogs(ctx, guildID, since)
	if err != nil {
		return Report{}, err
	}

	report := Report{Since: since, ByLevel: make(map[string]int)}
	byEvent := make(map[string]int)
	users := make(map[string]struct{})
	for _, log := range logs {
		report.Total++
		report.ByLevel[log.Level]++
		byEvent[log.Event]++
		if log.UserID != "" {
			users[log.UserID] = struct{}{}
		}
	}
	report.ActiveUsers = len(users)

	for event, count := range byEvent {
		report.TopEvents = append(report.TopEvents, EventCount{Event: event, Count: count})
	}
	sort.Slice(report.TopEvents, func(i, j int) bool {
		if report.TopEvents[i].Count == report.TopEvents[j].Count {
			return report.TopEvents[i].Event < report.TopEvents[j].Event
		}
		return report.TopEvents[i].Count > report.TopEvents[j].Count
	})
	if topN > 0 && len(report.TopEvents) > topN {
		report.TopEvents = report.TopEvents[:topN]
	}
	return report, nil
}
