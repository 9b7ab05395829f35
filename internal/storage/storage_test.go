package storage

import (
	"context"
	"testing"
	"time"

	"hearth/internal/giveaway"
	"hearth/internal/progression"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(":memory:")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(store.Close)

	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func TestMigrateTwice(t *testing.T) {
	store := newTestStore(t)
	if err := store.Migrate(); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}

func TestUpsertGuildSettings(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	settings := GuildSettings{
		GuildID:        "g1",
		LogChannel:     "c1",
		WelcomeChannel: "welcome",
		WelcomeMessage: "hi {user}",
		LevelUpEnabled: true,
		RetentionDays:  30,
	}
	if err := store.UpsertGuildSettings(ctx, settings); err != nil {
		t.Fatalf("upsert guild settings: %v", err)
	}

	settings.LogChannel = "c2"
	settings.LevelUpEnabled = false
	if err := store.UpsertGuildSettings(ctx, settings); err != nil {
		t.Fatalf("update guild settings: %v", err)
	}

	got, err := store.GetGuildSettings(ctx, "g1", GuildSettings{})
	if err != nil {
		t.Fatalf("get guild settings: %v", err)
	}
	if got.LogChannel != "c2" {
		t.Fatalf("expected channel c2, got %q", got.LogChannel)
	}
	if got.LevelUpEnabled {
		t.Fatalf("expected level up disabled")
	}

	defaults := GuildSettings{LogChannel: "fallback", LevelUpEnabled: true, RetentionDays: 7}
	missing, err := store.GetGuildSettings(ctx, "g2", defaults)
	if err != nil {
		t.Fatalf("get missing settings: %v", err)
	}
	if missing.GuildID != "g2" || missing.LogChannel != "fallback" || !missing.LevelUpEnabled {
		t.Fatalf("expected defaults, got %+v", missing)
	}
}

func TestAuditLogs(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	entries := []AuditLog{
		{GuildID: "g1", UserID: "u1", Level: "INFO", Event: "member_join", CreatedAt: now.Add(-2 * time.Hour)},
		{GuildID: "g1", UserID: "u2", Level: "WARN", Event: "spam", CreatedAt: now.Add(-time.Minute)},
		{GuildID: "g1", UserID: "u3", Level: "INFO", Event: "old", CreatedAt: now.AddDate(0, 0, -40)},
		{GuildID: "g2", UserID: "u4", Level: "INFO", Event: "other", CreatedAt: now},
	}
	for _, entry := range entries {
		if err := store.AddAuditLog(ctx, entry); err != nil {
			t.Fatalf("add audit log: %v", err)
		}
	}

	logs, err := store.ListAuditLogs(ctx, "g1", now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("list audit logs: %v", err)
	}
	if len(logs) != 2 || logs[0].Event != "spam" {
		t.Fatalf("unexpected logs: %+v", logs)
	}

	removed, err := store.CleanupAuditLogs(ctx, 30)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
}

func TestProgressStore(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, found, err := store.GetProgress(ctx, "g1", "u1"); err != nil || found {
		t.Fatalf("expected missing record, found=%v err=%v", found, err)
	}

	grant := time.UnixMilli(1_700_000_000_500)
	for _, record := range []progression.Record{
		{GuildID: "g1", UserID: "b", XP: 10},
		{GuildID: "g1", UserID: "a", XP: 20, LastGrantAt: grant},
		{GuildID: "g1", UserID: "b", XP: 30},
	} {
		if err := store.SetProgress(ctx, record); err != nil {
			t.Fatalf("set progress: %v", err)
		}
	}

	got, found, err := store.GetProgress(ctx, "g1", "a")
	if err != nil || !found {
		t.Fatalf("get progress: found=%v err=%v", found, err)
	}
	if !got.LastGrantAt.Equal(grant) {
		t.Fatalf("expected last grant %v, got %v", grant, got.LastGrantAt)
	}

	records, err := store.ListProgress(ctx, "g1")
	if err != nil {
		t.Fatalf("list progress: %v", err)
	}
	if len(records) != 2 || records[0].UserID != "b" || records[0].XP != 30 {
		t.Fatalf("unexpected order: %+v", records)
	}

	if err := store.DeleteProgress(ctx, "g1", "b"); err != nil {
		t.Fatalf("delete progress: %v", err)
	}
	if _, found, _ := store.GetProgress(ctx, "g1", "b"); found {
		t.Fatalf("expected record deleted")
	}
}

func TestProgressEngineOverSQLite(t *testing.T) {
	store := newTestStore(t)
	engine := progression.NewEngine(store, time.Minute)
	ctx := context.Background()

	for _, user := range []string{"x", "y", "z"} {
		if _, err := engine.AddXP(ctx, "g1", user, 100, progression.SourceAdmin); err != nil {
			t.Fatalf("add xp: %v", err)
		}
	}
	board, err := engine.Leaderboard(ctx, "g1", 3)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if board[0].UserID != "x" || board[2].UserID != "z" {
		t.Fatalf("expected insertion order on ties, got %+v", board)
	}
}

func TestGiveawayRequirements(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	req, err := store.GetRequirements(ctx, "c1")
	if err != nil {
		t.Fatalf("get requirements: %v", err)
	}
	if !req.Empty() {
		t.Fatalf("expected empty requirements, got %+v", req)
	}

	if err := store.SetRequirements(ctx, "c1", giveaway.Requirements{
		MinAccountAgeDays: 14,
		MustBeInGuild:     "partner",
		RequiredRoleIDs:   []string{"r2", "r1", "r2", " "},
	}); err != nil {
		t.Fatalf("set requirements: %v", err)
	}

	req, err = store.GetRequirements(ctx, "c1")
	if err != nil {
		t.Fatalf("get requirements: %v", err)
	}
	if req.MinAccountAgeDays != 14 || req.MustBeInGuild != "partner" {
		t.Fatalf("unexpected requirements: %+v", req)
	}
	if len(req.RequiredRoleIDs) != 2 || req.RequiredRoleIDs[0] != "r1" || req.RequiredRoleIDs[1] != "r2" {
		t.Fatalf("unexpected roles: %v", req.RequiredRoleIDs)
	}

	if err := store.ClearRequirements(ctx, "c1"); err != nil {
		t.Fatalf("clear requirements: %v", err)
	}
	req, _ = store.GetRequirements(ctx, "c1")
	if !req.Empty() {
		t.Fatalf("expected cleared requirements")
	}
}

func TestLevelRoles(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for level, role := range map[int64]string{5: "r5", 1: "r1", 10: "r10"} {
		if err := store.SetLevelRole(ctx, "g1", level, role); err != nil {
			t.Fatalf("set level role: %v", err)
		}
	}
	if err := store.SetLevelRole(ctx, "g1", 5, "r5b"); err != nil {
		t.Fatalf("replace level role: %v", err)
	}

	roles, err := store.RolesUpTo(ctx, "g1", 1, 5)
	if err != nil {
		t.Fatalf("roles up to: %v", err)
	}
	if len(roles) != 1 || roles[0].RoleID != "r5b" {
		t.Fatalf("unexpected roles: %+v", roles)
	}

	removed, err := store.RemoveLevelRole(ctx, "g1", 10)
	if err != nil || !removed {
		t.Fatalf("remove level role: removed=%v err=%v", removed, err)
	}
	all, _ := store.ListLevelRoles(ctx, "g1")
	if len(all) != 2 || all[0].Level != 1 {
		t.Fatalf("unexpected list: %+v", all)
	}
}

func TestPartnersOrderedByTierThenName(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, partner := range []Partner{
		{GuildID: "g1", Name: "zeta", InviteURL: "https://discord.gg/z", Tier: TierBronze},
		{GuildID: "g1", Name: "alpha", InviteURL: "https://discord.gg/a", Tier: TierBronze},
		{GuildID: "g1", Name: "mid", InviteURL: "https://discord.gg/m", Tier: TierGold},
		{GuildID: "g1", Name: "beta", InviteURL: "https://discord.gg/b", Tier: "SILVER"},
	} {
		if err := store.UpsertPartner(ctx, partner); err != nil {
			t.Fatalf("upsert partner: %v", err)
		}
	}

	partners, err := store.ListPartners(ctx, "g1")
	if err != nil {
		t.Fatalf("list partners: %v", err)
	}
	var names []string
	for _, partner := range partners {
		names = append(names, partner.Name)
	}
	want := []string{"mid", "beta", "alpha", "zeta"}
	if len(names) != len(want) {
		t.Fatalf("expected %v, got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, names)
		}
	}

	removed, err := store.RemovePartner(ctx, "g1", "mid")
	if err != nil || !removed {
		t.Fatalf("remove partner: removed=%v err=%v", removed, err)
	}
	removed, _ = store.RemovePartner(ctx, "g1", "mid")
	if removed {
		t.Fatalf("expected second remove to report nothing")
	}
}

func TestIncrementInfraction(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for want := 1; want <= 3; want++ {
		count, err := store.IncrementInfraction(ctx, "g1", "u1", InfractionWarn, "warn", time.Hour)
		if err != nil {
			t.Fatalf("increment: %v", err)
		}
		if count != want {
			t.Fatalf("expected %d, got %d", want, count)
		}
	}

	inf, err := store.GetInfraction(ctx, "g1", "u1", InfractionWarn)
	if err != nil {
		t.Fatalf("get infraction: %v", err)
	}
	if inf.CountTotal != 3 || inf.ResetAt == nil {
		t.Fatalf("unexpected infraction: %+v", inf)
	}

	if _, err := store.IncrementInfraction(ctx, "g1", "u1", InfractionKick, "kick", 0); err != nil {
		t.Fatalf("increment kick: %v", err)
	}
	list, err := store.ListInfractions(ctx, "g1", "u1")
	if err != nil {
		t.Fatalf("list infractions: %v", err)
	}
	if len(list) != 2 || list[0].Category != InfractionKick {
		t.Fatalf("unexpected list: %+v", list)
	}

	if err := store.ClearInfractions(ctx, "g1", "u1"); err != nil {
		t.Fatalf("clear infractions: %v", err)
	}
	list, _ = store.ListInfractions(ctx, "g1", "u1")
	if len(list) != 0 {
		t.Fatalf("expected no infractions, got %+v", list)
	}
}
