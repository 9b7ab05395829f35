package bot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/color"
	"strings"
	"time"

	"hearth/internal/modules/audit"
	"hearth/internal/progression"
	"hearth/internal/rankcard"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const (
	defaultLeaderboard = 10
	maxLeaderboard     = 25
)

func (b *Bot) onMessageCreate(session *discordgo.Session, msg *discordgo.MessageCreate) {
	if msg.Author == nil || msg.Author.Bot {
		return
	}
	if msg.GuildID == "" {
		return
	}

	ctx := context.Background()
	if b.antispam.HandleMessage(ctx, msg.GuildID, msg.Author.ID, time.Now()) {
		return
	}

	result, err := b.progression.AddXP(ctx, msg.GuildID, msg.Author.ID, b.messageXP(), progression.SourceMessage)
	if err != nil {
		if !errors.Is(err, progression.ErrCooldown) {
			b.logger.Warn("message xp failed", zap.String("guild_id", msg.GuildID), zap.String("user_id", msg.Author.ID), zap.Error(err))
		}
		return
	}
	if result.LeveledUp {
		b.handleLevelUp(ctx, msg.GuildID, msg.Author.ID, msg.ChannelID, result)
	}
}

// handleLevelUp grants every reward role between the old and new level and announces the change.
func (b *Bot) handleLevelUp(ctx context.Context, guildID, userID, channelID string, result progression.Result) {
	roles, err := b.store.RolesUpTo(ctx, guildID, result.OldLevel, result.NewLevel)
	if err != nil {
		b.logger.Warn("level roles lookup failed", zap.Error(err))
	}
	for _, role := range roles {
		if err := b.session.GuildMemberRoleAdd(guildID, userID, role.RoleID); err != nil {
			b.logger.Warn("level role grant failed", zap.String("role_id", role.RoleID), zap.Error(err))
		}
	}

	b.audit.Log(ctx, audit.LevelInfo, guildID, userID, "level_up",
		fmt.Sprintf("level %d -> %d (%d xp)", result.OldLevel, result.NewLevel, result.XP))

	settings := b.guildSettings(ctx, guildID)
	if !settings.LevelUpEnabled {
		return
	}
	target := settings.LevelUpChannel
	if target == "" {
		target = channelID
	}
	if target == "" {
		return
	}
	_, err = b.publisher.deliver(ctx, target, &discordgo.MessageSend{
		Content: levelUpMessage(userID, result.NewLevel, len(roles)),
	})
	if err != nil {
		b.logger.Warn("level up announcement failed", zap.String("channel_id", target), zap.Error(err))
	}
}

func levelUpMessage(userID string, level int64, rewards int) string {
	message := fmt.Sprintf("%s reached level **%d**!", mention(userID), level)
	if rewards == 1 {
		message += " A new role was unlocked."
	} else if rewards > 1 {
		message += fmt.Sprintf(" %d new roles were unlocked.", rewards)
	}
	return message
}

func (b *Bot) handleRankCommand(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, opts optionSet) {
	const title = "Rank"
	user := opts.user(session, "user")
	if user == nil {
		user = interactionUser(interaction)
	}
	if user == nil {
		b.respondError(session, interaction, title, "Unknown member.")
		return
	}

	standing, err := b.progression.Standing(ctx, interaction.GuildID, user.ID)
	if err != nil {
		b.logger.Warn("standing failed", zap.Error(err))
		b.respondError(session, interaction, title, "Could not load the rank.")
		return
	}

	card := rankcard.Card{
		Username:    user.Username,
		Rank:        standing.Rank,
		Level:       standing.Level,
		XP:          standing.XP,
		LevelFloor:  levelFloor(standing.Level),
		NextLevelXP: standing.NextLevelXP,
		Accent:      rgba(b.cfg.Notifications.EmbedColors.Info),
	}
	png, err := rankcard.Encode(card)
	if err != nil {
		b.logger.Warn("rank card render failed", zap.Error(err))
		b.respondEmbed(session, interaction, b.commandEmbed(title, describeStanding(user, standing), b.cfg.Notifications.EmbedColors.Info, nil), false)
		return
	}

	embed := b.commandEmbed(title, describeStanding(user, standing), b.cfg.Notifications.EmbedColors.Info, nil)
	embed.Image = &discordgo.MessageEmbedImage{URL: "attachment://rank.png"}
	_ = session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
			Files: []*discordgo.File{{
				Name:        "rank.png",
				ContentType: "image/png",
				Reader:      bytes.NewReader(png),
			}},
		},
	})
}

func describeStanding(user *discordgo.User, standing progression.Standing) string {
	if standing.Rank == 0 {
		return fmt.Sprintf("%s has not earned any xp yet.", mention(user.ID))
	}
	return fmt.Sprintf("%s is **#%d** of %d at level **%d** (%d / %d xp).",
		mention(user.ID), standing.Rank, standing.Members, standing.Level, standing.XP, standing.NextLevelXP)
}

// levelFloor is the xp at which the given level starts.
func levelFloor(level int64) int64 {
	if level <= 0 {
		return 0
	}
	return progression.XPForLevel(level - 1)
}

func rgba(value int) color.RGBA {
	return color.RGBA{R: uint8(value >> 16), G: uint8(value >> 8), B: uint8(value), A: 0xff}
}

func (b *Bot) handleLeaderboardCommand(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, opts optionSet) {
	const title = "Leaderboard"
	limit := int(opts.integer("limit", defaultLeaderboard))
	if limit < 1 {
		limit = defaultLeaderboard
	}
	if limit > maxLeaderboard {
		limit = maxLeaderboard
	}

	records, err := b.progression.Leaderboard(ctx, interaction.GuildID, limit)
	if err != nil {
		b.logger.Warn("leaderboard failed", zap.Error(err))
		b.respondError(session, interaction, title, "Could not load the leaderboard.")
		return
	}
	b.respondEmbed(session, interaction, b.commandEmbed(title, formatLeaderboard(records), b.cfg.Notifications.EmbedColors.Info, nil), false)
}

func (b *Bot) handleXPCommand(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, list []*discordgo.ApplicationCommandInteractionDataOption) {
	const title = "XP"
	name, opts := subcommandOf(list)
	actor := interactionUser(interaction)

	switch name {
	case "give":
		user := opts.user(session, "user")
		if user == nil {
			b.respondError(session, interaction, title, "Unknown member.")
			return
		}
		amount := opts.integer("amount", 0)
		result, err := b.progression.AddXP(ctx, interaction.GuildID, user.ID, amount, progression.SourceAdmin)
		if err != nil {
			if errors.Is(err, progression.ErrInvalidArgument) {
				b.respondError(session, interaction, title, "The amount must be positive.")
				return
			}
			b.logger.Warn("xp grant failed", zap.Error(err))
			b.respondError(session, interaction, title, "Could not grant xp.")
			return
		}
		b.audit.Log(ctx, audit.LevelInfo, interaction.GuildID, actor.ID, "xp_granted",
			fmt.Sprintf("%d xp to %s", amount, user.ID))
		if result.LeveledUp {
			b.handleLevelUp(ctx, interaction.GuildID, user.ID, interaction.ChannelID, result)
		}
		b.respondOK(session, interaction, title,
			fmt.Sprintf("%s now has %d xp (level %d).", mention(user.ID), result.XP, result.NewLevel), nil, true)
	case "reset":
		user := opts.user(session, "user")
		if user == nil {
			b.respondError(session, interaction, title, "Unknown member.")
			return
		}
		if err := b.progression.Reset(ctx, interaction.GuildID, user.ID); err != nil {
			b.logger.Warn("xp reset failed", zap.Error(err))
			b.respondError(session, interaction, title, "Could not reset xp.")
			return
		}
		b.audit.Log(ctx, audit.LevelWarn, interaction.GuildID, actor.ID, "xp_reset", user.ID)
		b.respondOK(session, interaction, title, fmt.Sprintf("Reset %s.", mention(user.ID)), nil, true)
	case "role-add":
		level := opts.integer("level", 0)
		roleID := opts.roleID("role")
		if level < 1 || roleID == "" {
			b.respondError(session, interaction, title, "Give a level of at least 1 and a role.")
			return
		}
		if err := b.store.SetLevelRole(ctx, interaction.GuildID, level, roleID); err != nil {
			b.logger.Warn("level role save failed", zap.Error(err))
			b.respondError(session, interaction, title, "Could not save the reward.")
			return
		}
		b.audit.Log(ctx, audit.LevelInfo, interaction.GuildID, actor.ID, "level_role_set", fmt.Sprintf("level %d -> %s", level, roleID))
		b.respondOK(session, interaction, title, fmt.Sprintf("Level %d now grants <@&%s>.", level, roleID), nil, true)
	case "role-remove":
		level := opts.integer("level", 0)
		removed, err := b.store.RemoveLevelRole(ctx, interaction.GuildID, level)
		if err != nil {
			b.logger.Warn("level role remove failed", zap.Error(err))
			b.respondError(session, interaction, title, "Could not remove the reward.")
			return
		}
		if !removed {
			b.respondError(session, interaction, title, fmt.Sprintf("Level %d has no reward.", level))
			return
		}
		b.audit.Log(ctx, audit.LevelInfo, interaction.GuildID, actor.ID, "level_role_removed", fmt.Sprintf("level %d", level))
		b.respondOK(session, interaction, title, fmt.Sprintf("Removed the level %d reward.", level), nil, true)
	case "roles":
		roles, err := b.store.ListLevelRoles(ctx, interaction.GuildID)
		if err != nil {
			b.respondError(session, interaction, title, "Could not load the rewards.")
			return
		}
		if len(roles) == 0 {
			b.respondEmbed(session, interaction, b.commandEmbed("Level rewards", "No level rewards yet.", b.cfg.Notifications.EmbedColors.Info, nil), true)
			return
		}
		lines := make([]string, 0, len(roles))
		for _, role := range roles {
			lines = append(lines, fmt.Sprintf("Level %d: <@&%s>", role.Level, role.RoleID))
		}
		b.respondEmbed(session, interaction, b.commandEmbed("Level rewards", strings.Join(lines, "\n"), b.cfg.Notifications.EmbedColors.Info, nil), true)
	default:
		b.respondError(session, interaction, title, "Unknown option.")
	}
}
