package bot

import (
	"context"
	"strconv"
	"strings"

	"hearth/internal/modules/audit"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const defaultWelcome = "Welcome to {server}, {user}! You are member #{count}."

func (b *Bot) onGuildMemberAdd(session *discordgo.Session, event *discordgo.GuildMemberAdd) {
	if event.Member == nil || event.GuildID == "" || event.User == nil || event.User.Bot {
		return
	}
	ctx := context.Background()
	b.audit.Log(ctx, audit.LevelInfo, event.GuildID, event.User.ID, "member_join", event.User.Username)

	settings := b.guildSettings(ctx, event.GuildID)
	if settings.WelcomeChannel == "" {
		return
	}

	serverName := event.GuildID
	memberCount := 0
	if guild, err := session.State.Guild(event.GuildID); err == nil {
		serverName = guild.Name
		memberCount = guild.MemberCount
	}
	template := settings.WelcomeMessage
	if template == "" {
		template = defaultWelcome
	}

	_, err := b.publisher.deliver(ctx, settings.WelcomeChannel, &discordgo.MessageSend{
		Content: renderWelcome(template, event.User.ID, serverName, memberCount),
	})
	if err != nil {
		b.logger.Warn("welcome failed", zap.String("guild_id", event.GuildID), zap.Error(err))
	}
}

func (b *Bot) onGuildMemberRemove(session *discordgo.Session, event *discordgo.GuildMemberRemove) {
	if event.Member == nil || event.GuildID == "" || event.User == nil {
		return
	}
	b.audit.Log(context.Background(), audit.LevelInfo, event.GuildID, event.User.ID, "member_leave", event.User.Username)
}

// renderWelcome fills {user}, {server} and {count}. An unknown count renders as "?".
func renderWelcome(template, userID, serverName string, memberCount int) string {
	count := "?"
	if memberCount > 0 {
		count = strconv.Itoa(memberCount)
	}
	return strings.NewReplacer(
		"{user}", mention(userID),
		"{server}", serverName,
		"{count}", count,
	).Replace(template)
}
