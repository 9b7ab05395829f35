package bot

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/xhit/go-str2duration/v2"
)

type optionSet map[string]*discordgo.ApplicationCommandInteractionDataOption

func options(list []*discordgo.ApplicationCommandInteractionDataOption) optionSet {
	set := make(optionSet, len(list))
	for _, opt := range list {
		set[opt.Name] = opt
	}
	return set
}

// subcommandOf returns the invoked subcommand and its options.
func subcommandOf(list []*discordgo.ApplicationCommandInteractionDataOption) (string, optionSet) {
	if len(list) == 0 || list[0].Type != discordgo.ApplicationCommandOptionSubCommand {
		return "", options(list)
	}
	return list[0].Name, options(list[0].Options)
}

func (o optionSet) str(name string) string {
	if opt, ok := o[name]; ok {
		return strings.TrimSpace(opt.StringValue())
	}
	return ""
}

func (o optionSet) integer(name string, fallback int64) int64 {
	if opt, ok := o[name]; ok {
		return opt.IntValue()
	}
	return fallback
}

func (o optionSet) flag(name string) (bool, bool) {
	if opt, ok := o[name]; ok {
		return opt.BoolValue(), true
	}
	return false, false
}

func (o optionSet) user(session *discordgo.Session, name string) *discordgo.User {
	if opt, ok := o[name]; ok {
		return opt.UserValue(session)
	}
	return nil
}

func (o optionSet) channelID(name string) string {
	if opt, ok := o[name]; ok {
		if id, ok := opt.Value.(string); ok {
			return id
		}
	}
	return ""
}

func (o optionSet) roleID(name string) string {
	return o.channelID(name)
}

var snowflakePattern = regexp.MustCompile(`\d{15,21}`)

// parseRoleIDs accepts role mentions or raw ids separated by anything.
func parseRoleIDs(raw string) []string {
	return snowflakePattern.FindAllString(raw, -1)
}

var errBadDuration = errors.New("invalid duration")

// parseDuration accepts compound durations such as "1d12h" or "90m" and enforces [lower, upper].
func parseDuration(raw string, lower, upper time.Duration) (time.Duration, error) {
	raw = strings.ToLower(strings.ReplaceAll(strings.TrimSpace(raw), " ", ""))
	if raw == "" {
		return 0, errBadDuration
	}
	d, err := str2duration.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", errBadDuration, raw)
	}
	if d < lower {
		return 0, fmt.Errorf("%w: must be at least %s", errBadDuration, lower)
	}
	if upper > 0 && d > upper {
		return 0, fmt.Errorf("%w: must be at most %s", errBadDuration, upper)
	}
	return d, nil
}
