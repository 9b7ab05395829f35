package bot

import (
	"fmt"
	"image/color"
	"testing"
	"time"

	"hearth/internal/analytics"
	"hearth/internal/giveaway"
	"hearth/internal/progression"
	"hearth/internal/storage"

	"github.com/stretchr/testify/assert"
)

func TestRenderWelcome(t *testing.T) {
	got := renderWelcome("Hi {user}, welcome to {server}! #{count}", "u1", "Hearth", 42)
	assert.Equal(t, "Hi <@u1>, welcome to Hearth! #42", got)

	got = renderWelcome(defaultWelcome, "u1", "Hearth", 0)
	assert.Equal(t, "Welcome to Hearth, <@u1>! You are member #?.", got)
}

func TestLevelUpMessage(t *testing.T) {
	assert.Equal(t, "<@u1> reached level **3**!", levelUpMessage("u1", 3, 0))
	assert.Equal(t, "<@u1> reached level **3**! A new role was unlocked.", levelUpMessage("u1", 3, 1))
	assert.Equal(t, "<@u1> reached level **5**! 2 new roles were unlocked.", levelUpMessage("u1", 5, 2))
}

func TestLevelFloor(t *testing.T) {
	for level := int64(0); level < 6; level++ {
		floor := levelFloor(level)
		assert.Equal(t, level*level*100, floor)
		assert.Equal(t, level, progression.LevelOf(floor))
	}
}

func TestRGBA(t *testing.T) {
	assert.Equal(t, color.RGBA{R: 0x58, G: 0x65, B: 0xf2, A: 0xff}, rgba(0x5865f2))
}

func TestFormatLeaderboard(t *testing.T) {
	assert.Equal(t, "Nobody has earned xp yet.", formatLeaderboard(nil))
	got := formatLeaderboard([]progression.Record{
		{UserID: "a", XP: 450},
		{UserID: "b", XP: 100},
	})
	assert.Equal(t, "**1.** <@a> level 2 (450 xp)\n**2.** <@b> level 1 (100 xp)", got)
}

func TestFormatPartners(t *testing.T) {
	got := formatPartners([]storage.Partner{
		{Name: "Alpha", InviteURL: "https://discord.gg/alpha", Tier: storage.TierGold},
		{Name: "Beta", InviteURL: "https://discord.gg/beta", Tier: "unknown"},
	})
	assert.Equal(t, "[gold] **Alpha** https://discord.gg/alpha\n[bronze] **Beta** https://discord.gg/beta", got)
}

func TestNormalizePartnerInvite(t *testing.T) {
	got, err := normalizePartnerInvite("discord.gg/hearth")
	assert.NoError(t, err)
	assert.Equal(t, "https://discord.gg/hearth", got)

	_, err = normalizePartnerInvite("https://example.com/hearth")
	assert.Error(t, err)
}

func TestFormatTopEvents(t *testing.T) {
	got := formatTopEvents([]analytics.EventCount{{Event: "member_join", Count: 4}, {Event: "level_up", Count: 2}})
	assert.Equal(t, "member join: 4\nlevel up: 2", got)
	assert.Empty(t, formatTopEvents(nil))
}

func TestActivityEmbed(t *testing.T) {
	embed := activityEmbed(storage.AuditLog{
		Level:     "WARN",
		UserID:    "u1",
		Event:     "message_burst",
		Details:   "6 messages in 5s",
		CreatedAt: time.Unix(1700000000, 0).UTC(),
	}, 0xff0000)
	assert.Equal(t, "message burst", embed.Title)
	assert.Equal(t, "6 messages in 5s", embed.Description)
	assert.Equal(t, 0xff0000, embed.Color)
	assert.Len(t, embed.Fields, 2)
	assert.Equal(t, "2023-11-14T22:13:20Z", embed.Timestamp)
}

func TestGiveawayErrorMessage(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{err: &giveaway.RequirementError{Reason: giveaway.ReasonMissingRole, Detail: "r1"}, want: "You need the <@&r1> role to enter."},
		{err: &giveaway.RequirementError{Reason: giveaway.ReasonGuildMembership, Detail: "g1"}, want: "You must be a member of the partner server to enter."},
		{err: fmt.Errorf("wrapped: %w", giveaway.ErrEnded), want: "This giveaway has ended."},
		{err: giveaway.ErrNotFound, want: "That giveaway does not exist or has already ended."},
		{err: fmt.Errorf("%w: prize is required", giveaway.ErrInvalidArgument), want: "prize is required"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, giveawayErrorMessage(tc.err))
	}
}

func TestDescribeRequirements(t *testing.T) {
	assert.Equal(t, "No requirements.", describeRequirements(giveaway.Requirements{}))
	got := describeRequirements(giveaway.Requirements{MinAccountAgeDays: 7, MustBeInGuild: "g1", RequiredRoleIDs: []string{"r1"}})
	assert.Equal(t, "Account at least 7 days old\nMember of server g1\nHolds <@&r1>", got)
}

func TestFormatInfractions(t *testing.T) {
	assert.Equal(t, "<@u1> has a clean record.", formatInfractions("u1", nil))
	got := formatInfractions("u1", []storage.UserInfraction{
		{Category: storage.InfractionWarn, CountTotal: 2, LastAt: time.Unix(100, 0), LastAction: "spam"},
	})
	assert.Equal(t, "<@u1>\n**warn** x2, last <t:100:R>: spam", got)
}
