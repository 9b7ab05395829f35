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

func (b *Bot) onInteractionCreate(session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	ctx := context.Background()

	switch interaction.Type {
	case discordgo.InteractionMessageComponent:
		if interaction.MessageComponentData().CustomID == enterButtonID {
			b.handleGiveawayEntry(ctx, session, interaction)
		}
		return
	case discordgo.InteractionApplicationCommand:
	default:
		return
	}

	if interaction.GuildID == "" {
		b.respondError(session, interaction, "Unavailable", "This command only works inside a server.")
		return
	}

	data := interaction.ApplicationCommandData()
	switch data.Name {
	case "giveaway":
		b.handleGiveawayCommand(ctx, session, interaction, data.Options)
	case "rank":
		b.handleRankCommand(ctx, session, interaction, options(data.Options))
	case "leaderboard":
		b.handleLeaderboardCommand(ctx, session, interaction, options(data.Options))
	case "xp":
		b.handleXPCommand(ctx, session, interaction, data.Options)
	case "config":
		b.handleConfigCommand(ctx, session, interaction, data.Options)
	case "partner":
		b.handlePartnerCommand(ctx, session, interaction, data.Options)
	case "mod":
		b.handleModCommand(ctx, session, interaction, data.Options)
	case "report":
		b.handleReportCommand(ctx, session, interaction, options(data.Options))
	}
}

func (b *Bot) handleConfigCommand(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, list []*discordgo.ApplicationCommandInteractionDataOption) {
	const title = "Configuration"
	name, opts := subcommandOf(list)
	settings := b.guildSettings(ctx, interaction.GuildID)

	switch name {
	case "logs":
		channelID := opts.channelID("channel")
		if channelID == "" {
			fields := []*discordgo.MessageEmbedField{{Name: "Channel", Value: channelMention(settings.LogChannel), Inline: true}}
			b.respondEmbed(session, interaction, b.commandEmbed(title, "Current activity log channel.", b.cfg.Notifications.EmbedColors.Info, fields), true)
			return
		}
		settings.LogChannel = channelID
	case "welcome":
		if channelID := opts.channelID("channel"); channelID != "" {
			settings.WelcomeChannel = channelID
		}
		if message := opts.str("message"); message != "" {
			settings.WelcomeMessage = message
		}
	case "levelup":
		if enabled, ok := opts.flag("enabled"); ok {
			settings.LevelUpEnabled = enabled
		}
		if channelID := opts.channelID("channel"); channelID != "" {
			settings.LevelUpChannel = channelID
		}
	default:
		b.respondError(session, interaction, title, "Unknown option.")
		return
	}

	if err := b.store.UpsertGuildSettings(ctx, settings); err != nil {
		b.logger.Warn("settings update failed", zap.String("guild_id", interaction.GuildID), zap.Error(err))
		b.respondError(session, interaction, title, "Could not save the configuration.")
		return
	}

	fields := []*discordgo.MessageEmbedField{
		{Name: "Log channel", Value: channelMention(settings.LogChannel), Inline: true},
		{Name: "Welcome channel", Value: channelMention(settings.WelcomeChannel), Inline: true},
		{Name: "Level-up channel", Value: channelMention(settings.LevelUpChannel), Inline: true},
		{Name: "Level-up announcements", Value: fmt.Sprintf("%t", settings.LevelUpEnabled), Inline: true},
	}
	if settings.WelcomeMessage != "" {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Welcome message", Value: settings.WelcomeMessage})
	}
	b.audit.Log(ctx, audit.LevelInfo, interaction.GuildID, interactionUser(interaction).ID, "config_updated", name)
	b.respondOK(session, interaction, title, "Configuration updated.", fields, true)
}

func (b *Bot) handleReportCommand(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, opts optionSet) {
	const title = "Activity report"
	days := opts.integer("days", 7)
	if days < 1 {
		days = 1
	}
	since := time.Now().AddDate(0, 0, -int(days))

	report, err := b.analytics.Report(ctx, interaction.GuildID, since, 5)
	if err != nil {
		b.logger.Warn("report failed", zap.Error(err))
		b.respondError(session, interaction, title, "Could not build the report.")
		return
	}

	fields := []*discordgo.MessageEmbedField{
		{Name: "Entries", Value: fmt.Sprintf("%d", report.Total), Inline: true},
		{Name: "Active members", Value: fmt.Sprintf("%d", report.ActiveUsers), Inline: true},
		{Name: "By level", Value: formatLevels(report.ByLevel), Inline: true},
	}
	if top := formatTopEvents(report.TopEvents); top != "" {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Top events", Value: top})
	}
	if recent := formatRecent(b.audit.Recent(interaction.GuildID, 5)); recent != "" {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Latest", Value: recent})
	}
	b.respondEmbed(session, interaction, b.commandEmbed(title, fmt.Sprintf("Last %d days.", days), b.cfg.Notifications.EmbedColors.Info, fields), true)
}

func (b *Bot) handlePartnerCommand(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, list []*discordgo.ApplicationCommandInteractionDataOption) {
	const title = "Partners"
	name, opts := subcommandOf(list)
	actor := interactionUser(interaction)

	if name != "list" && !hasPermission(interaction.Member, int64(discordgo.PermissionManageServer)) {
		b.respondError(session, interaction, title, "You need the Manage Server permission.")
		return
	}

	switch name {
	case "add":
		invite, err := normalizePartnerInvite(opts.str("invite"))
		if err != nil {
			b.respondError(session, interaction, title, "That is not a Discord invite link.")
			return
		}
		partner := storage.Partner{
			GuildID:   interaction.GuildID,
			Name:      opts.str("name"),
			InviteURL: invite,
			Tier:      opts.str("tier"),
			AddedBy:   actor.ID,
		}
		if partner.Name == "" {
			b.respondError(session, interaction, title, "A partner needs a name.")
			return
		}
		if err := b.store.UpsertPartner(ctx, partner); err != nil {
			b.logger.Warn("partner upsert failed", zap.Error(err))
			b.respondError(session, interaction, title, "Could not save the partner.")
			return
		}
		b.audit.Log(ctx, audit.LevelInfo, interaction.GuildID, actor.ID, "partner_added", partner.Name+" "+invite)
		b.respondOK(session, interaction, title, fmt.Sprintf("**%s** saved.", partner.Name), nil, true)
	case "remove":
		partnerName := opts.str("name")
		removed, err := b.store.RemovePartner(ctx, interaction.GuildID, partnerName)
		if err != nil {
			b.logger.Warn("partner remove failed", zap.Error(err))
			b.respondError(session, interaction, title, "Could not remove the partner.")
			return
		}
		if !removed {
			b.respondError(session, interaction, title, fmt.Sprintf("No partner named **%s**.", partnerName))
			return
		}
		b.audit.Log(ctx, audit.LevelInfo, interaction.GuildID, actor.ID, "partner_removed", partnerName)
		b.respondOK(session, interaction, title, fmt.Sprintf("**%s** removed.", partnerName), nil, true)
	case "list":
		partners, err := b.store.ListPartners(ctx, interaction.GuildID)
		if err != nil {
			b.logger.Warn("partner list failed", zap.Error(err))
			b.respondError(session, interaction, title, "Could not load partners.")
			return
		}
		if len(partners) == 0 {
			b.respondEmbed(session, interaction, b.commandEmbed(title, "No partners yet.", b.cfg.Notifications.EmbedColors.Info, nil), false)
			return
		}
		b.respondEmbed(session, interaction, b.commandEmbed(title, formatPartners(partners), b.cfg.Notifications.EmbedColors.Info, nil), false)
	default:
		b.respondError(session, interaction, title, "Unknown option.")
	}
}

func hasPermission(member *discordgo.Member, permission int64) bool {
	if member == nil {
		return false
	}
	return member.Permissions&permission == permission || member.Permissions&int64(discordgo.PermissionAdministrator) != 0
}

func channelMention(channelID string) string {
	if channelID == "" {
		return "not set"
	}
	return "<#" + channelID + ">"
}

func formatLevels(byLevel map[string]int) string {
	return fmt.Sprintf("INFO %d / WARN %d / CRIT %d", byLevel[audit.LevelInfo], byLevel[audit.LevelWarn], byLevel[audit.LevelCrit])
}

func formatRecent(entries []storage.AuditLog) string {
	lines := make([]string, 0, len(entries))
	for _, entry := range entries {
		lines = append(lines, fmt.Sprintf("<t:%d:R> %s", entry.CreatedAt.Unix(), strings.ReplaceAll(entry.Event, "_", " ")))
	}
	return strings.Join(lines, "\n")
}
