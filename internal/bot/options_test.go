package bot

import (
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDuration(t *testing.T) {
	cases := []struct {
		raw  string
		want time.Duration
		ok   bool
	}{
		{raw: "90m", want: 90 * time.Minute, ok: true},
		{raw: "1d12h", want: 36 * time.Hour, ok: true},
		{raw: " 2H ", want: 2 * time.Hour, ok: true},
		{raw: "1h 30m", want: 90 * time.Minute, ok: true},
		{raw: "5s", ok: false},
		{raw: "8d", ok: false},
		{raw: "soon", ok: false},
		{raw: "", ok: false},
	}

	for _, tc := range cases {
		got, err := parseDuration(tc.raw, 10*time.Second, 7*24*time.Hour)
		if !tc.ok {
			assert.True(t, errors.Is(err, errBadDuration), "raw %q", tc.raw)
			continue
		}
		require.NoError(t, err, "raw %q", tc.raw)
		assert.Equal(t, tc.want, got, "raw %q", tc.raw)
	}
}

func TestParseRoleIDs(t *testing.T) {
	got := parseRoleIDs("<@&123456789012345678>, 234567890123456789 and 42")
	assert.Equal(t, []string{"123456789012345678", "234567890123456789"}, got)
	assert.Empty(t, parseRoleIDs("none"))
}

func TestSubcommandOf(t *testing.T) {
	list := []*discordgo.ApplicationCommandInteractionDataOption{{
		Name: "start",
		Type: discordgo.ApplicationCommandOptionSubCommand,
		Options: []*discordgo.ApplicationCommandInteractionDataOption{
			{Name: "prize", Type: discordgo.ApplicationCommandOptionString, Value: "  Nitro "},
			{Name: "winners", Type: discordgo.ApplicationCommandOptionInteger, Value: float64(3)},
			{Name: "clear", Type: discordgo.ApplicationCommandOptionBoolean, Value: true},
			{Name: "channel", Type: discordgo.ApplicationCommandOptionChannel, Value: "c-9"},
		},
	}}

	name, opts := subcommandOf(list)
	assert.Equal(t, "start", name)
	assert.Equal(t, "Nitro", opts.str("prize"))
	assert.Equal(t, int64(3), opts.integer("winners", 1))
	assert.Equal(t, int64(1), opts.integer("missing", 1))
	assert.Equal(t, "c-9", opts.channelID("channel"))
	assert.Empty(t, opts.channelID("missing"))

	value, present := opts.flag("clear")
	assert.True(t, value)
	assert.True(t, present)
	_, present = opts.flag("missing")
	assert.False(t, present)

	name, opts = subcommandOf([]*discordgo.ApplicationCommandInteractionDataOption{
		{Name: "days", Type: discordgo.ApplicationCommandOptionInteger, Value: float64(14)},
	})
	assert.Empty(t, name)
	assert.Equal(t, int64(14), opts.integer("days", 7))
}

func TestCommandListNames(t *testing.T) {
	seen := make(map[string]bool)
	for _, cmd := range commandList() {
		assert.False(t, seen[cmd.Name], "duplicate command %s", cmd.Name)
		seen[cmd.Name] = true
		assert.NotEmpty(t, cmd.Description, cmd.Name)

		sub := make(map[string]bool)
		for _, opt := range cmd.Options {
			assert.False(t, sub[opt.Name], "duplicate option %s/%s", cmd.Name, opt.Name)
			sub[opt.Name] = true
			assert.LessOrEqual(t, len(opt.Name), 32)
		}
	}
	for _, name := range []string{"giveaway", "rank", "leaderboard", "xp", "config", "partner", "mod", "report"} {
		assert.True(t, seen[name], name)
	}
}
