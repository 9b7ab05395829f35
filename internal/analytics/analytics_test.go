package analytics

import (
	"context"
	"testing"
	"time"

	"hearth/internal/storage"
)

func TestReport(t *testing.T) {
	store, err := storage.New(":memory:")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer store.Close()
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	ctx := context.Background()
	now := time.Now()
	for _, entry := range []storage.AuditLog{
		{GuildID: "g1", UserID: "u1", Level: "INFO", Event: "level_up", CreatedAt: now},
		{GuildID: "g1", UserID: "u2", Level: "INFO", Event: "level_up", CreatedAt: now},
		{GuildID: "g1", UserID: "u1", Level: "WARN", Event: "spam", CreatedAt: now},
		{GuildID: "g1", Level: "INFO", Event: "giveaway_closed", CreatedAt: now},
		{GuildID: "g1", UserID: "u3", Level: "INFO", Event: "member_join", CreatedAt: now.AddDate(0, 0, -10)},
	} {
		if err := store.AddAuditLog(ctx, entry); err != nil {
			t.Fatalf("add log: %v", err)
		}
	}

	report, err := New(store).Report(ctx, "g1", now.Add(-24*time.Hour), 2)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if report.Total != 4 {
		t.Fatalf("expected 4 entries, got %d", report.Total)
	}
	if report.ByLevel["WARN"] != 1 || report.ByLevel["INFO"] != 3 {
		t.Fatalf("unexpected levels: %v", report.ByLevel)
	}
	if report.ActiveUsers != 2 {
		t.Fatalf("expected 2 active users, got %d", report.ActiveUsers)
	}
	if len(report.TopEvents) != 2 || report.TopEvents[0].Event != "level_up" || report.TopEvents[1].Event != "giveaway_closed" {
		t.Fatalf("unexpected top events: %+v", report.TopEvents)
	}
}
