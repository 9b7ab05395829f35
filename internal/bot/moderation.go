package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"hearth/internal/modules/audit"
	"hearth/internal/storage"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const maxTimeout = 28 * 24 * time.Hour

func (b *Bot) handleModCommand(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, list []*discordgo.ApplicationCommandInteractionDataOption) {
	const title = "Moderation"
	name, opts := subcommandOf(list)
	actor := interactionUser(interaction)

	target := opts.user(session, "user")
	if target == nil {
		b.respondError(session, interaction, title, "Unknown member.")
		return
	}
	if target.ID == actor.ID && name != "history" {
		b.respondError(session, interaction, title, "You cannot moderate yourself.")
		return
	}
	reason := opts.str("reason")
	if reason == "" {
		reason = "No reason given"
	}

	switch name {
	case "warn":
		forgive := time.Duration(b.cfg.Moderation.WarnForgiveDays) * 24 * time.Hour
		count, err := b.store.IncrementInfraction(ctx, interaction.GuildID, target.ID, storage.InfractionWarn, reason, forgive)
		if err != nil {
			b.logger.Warn("warn failed", zap.Error(err))
			b.respondError(session, interaction, title, "Could not record the warning.")
			return
		}
		b.audit.Log(ctx, audit.LevelWarn, interaction.GuildID, target.ID, "member_warned",
			fmt.Sprintf("by %s (#%d): %s", actor.ID, count, reason))

		message := fmt.Sprintf("Warned %s. Active warnings: %d.", mention(target.ID), count)
		if threshold := b.cfg.Moderation.WarnTimeoutAtCount; threshold > 0 && count >= threshold {
			timeout := time.Duration(b.cfg.Moderation.TimeoutMinutes) * time.Minute
			if err := b.timeoutMember(ctx, interaction.GuildID, target.ID, actor.ID, timeout, "warning threshold reached"); err != nil {
				message += " The automatic timeout failed."
			} else {
				message += fmt.Sprintf(" Timed out for %s.", timeout)
			}
		}
		b.respondOK(session, interaction, title, message, nil, true)
	case "timeout":
		timeout := time.Duration(b.cfg.Moderation.TimeoutMinutes) * time.Minute
		if raw := opts.str("duration"); raw != "" {
			parsed, err := parseDuration(raw, time.Minute, maxTimeout)
			if err != nil {
				b.respondError(session, interaction, title, err.Error())
				return
			}
			timeout = parsed
		}
		if err := b.timeoutMember(ctx, interaction.GuildID, target.ID, actor.ID, timeout, reason); err != nil {
			b.respondError(session, interaction, title, "Could not time the member out.")
			return
		}
		b.respondOK(session, interaction, title, fmt.Sprintf("Timed out %s for %s.", mention(target.ID), timeout), nil, true)
	case "kick":
		if err := b.session.GuildMemberDeleteWithReason(interaction.GuildID, target.ID, reason); err != nil {
			b.logger.Warn("kick failed", zap.String("user_id", target.ID), zap.Error(err))
			b.respondError(session, interaction, title, "Could not kick the member.")
			return
		}
		b.recordAction(ctx, interaction.GuildID, target.ID, storage.InfractionKick, reason)
		b.audit.Log(ctx, audit.LevelWarn, interaction.GuildID, target.ID, "member_kicked", fmt.Sprintf("by %s: %s", actor.ID, reason))
		b.respondOK(session, interaction, title, fmt.Sprintf("Kicked %s.", mention(target.ID)), nil, true)
	case "ban":
		if err := b.session.GuildBanCreateWithReason(interaction.GuildID, target.ID, reason, b.cfg.Moderation.BanDeleteDays); err != nil {
			b.logger.Warn("ban failed", zap.String("user_id", target.ID), zap.Error(err))
			b.respondError(session, interaction, title, "Could not ban the member.")
			return
		}
		b.recordAction(ctx, interaction.GuildID, target.ID, storage.InfractionBan, reason)
		b.audit.Log(ctx, audit.LevelCrit, interaction.GuildID, target.ID, "member_banned", fmt.Sprintf("by %s: %s", actor.ID, reason))
		b.respondOK(session, interaction, title, fmt.Sprintf("Banned %s.", mention(target.ID)), nil, true)
	case "history":
		infractions, err := b.store.ListInfractions(ctx, interaction.GuildID, target.ID)
		if err != nil {
			b.respondError(session, interaction, title, "Could not load the history.")
			return
		}
		b.respondEmbed(session, interaction, b.commandEmbed("History", formatInfractions(target.ID, infractions), b.cfg.Notifications.EmbedColors.Info, nil), true)
	case "pardon":
		if err := b.store.ClearInfractions(ctx, interaction.GuildID, target.ID); err != nil {
			b.logger.Warn("pardon failed", zap.Error(err))
			b.respondError(session, interaction, title, "Could not clear the record.")
			return
		}
		b.audit.Log(ctx, audit.LevelInfo, interaction.GuildID, target.ID, "member_pardoned", "by "+actor.ID)
		b.respondOK(session, interaction, title, fmt.Sprintf("Cleared the record of %s.", mention(target.ID)), nil, true)
	default:
		b.respondError(session, interaction, title, "Unknown option.")
	}
}

func (b *Bot) timeoutMember(ctx context.Context, guildID, userID, actorID string, duration time.Duration, reason string) error {
	until := time.Now().Add(duration)
	if err := b.session.GuildMemberTimeout(guildID, userID, &until); err != nil {
		b.logger.Warn("timeout failed", zap.String("user_id", userID), zap.Error(err))
		return err
	}
	b.recordAction(ctx, guildID, userID, storage.InfractionTimeout, reason)
	b.audit.Log(ctx, audit.LevelWarn, guildID, userID, "member_timed_out",
		fmt.Sprintf("by %s for %s: %s", actorID, duration, reason))
	return nil
}

func (b *Bot) recordAction(ctx context.Context, guildID, userID, category, reason string) {
	if _, err := b.store.IncrementInfraction(ctx, guildID, userID, category, reason, 0); err != nil {
		b.logger.Warn("infraction record failed", zap.String("category", category), zap.Error(err))
	}
}

func formatInfractions(userID string, infractions []storage.UserInfraction) string {
	if len(infractions) == 0 {
		return mention(userID) + " has a clean record."
	}
	lines := []string{mention(userID)}
	for _, inf := range infractions {
		line := fmt.Sprintf("**%s** x%d, last <t:%d:R>", inf.Category, inf.CountTotal, inf.LastAt.Unix())
		if inf.LastAction != "" {
			line += ": " + inf.LastAction
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
