package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"hearth/internal/giveaway"
	"hearth/internal/modules/audit"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const minGiveawayDuration = 10 * time.Second

func (b *Bot) handleGiveawayCommand(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, list []*discordgo.ApplicationCommandInteractionDataOption) {
	const title = "Giveaway"
	name, opts := subcommandOf(list)
	host := interactionUser(interaction)

	switch name {
	case "start":
		maxDuration := time.Duration(b.cfg.Giveaway.MaxDurationHours) * time.Hour
		duration, err := parseDuration(opts.str("duration"), minGiveawayDuration, maxDuration)
		if err != nil {
			b.respondError(session, interaction, title, err.Error())
			return
		}
		winners := int(opts.integer("winners", 1))
		if b.cfg.Giveaway.MaxWinners > 0 && winners > b.cfg.Giveaway.MaxWinners {
			b.respondError(session, interaction, title, fmt.Sprintf("At most %d winners.", b.cfg.Giveaway.MaxWinners))
			return
		}
		destination := opts.channelID("channel")
		if destination == "" {
			destination = interaction.ChannelID
		}

		summary, err := b.giveaways.Create(ctx, giveaway.CreateParams{
			GuildID:     interaction.GuildID,
			Destination: destination,
			Prize:       opts.str("prize"),
			WinnerCount: winners,
			Duration:    duration,
			HostID:      host.ID,
		})
		if err != nil {
			b.respondError(session, interaction, title, giveawayErrorMessage(err))
			return
		}
		b.audit.Log(ctx, audit.LevelInfo, interaction.GuildID, host.ID, "giveaway_started",
			fmt.Sprintf("%s in %s, %d winner(s), ends %s", summary.Prize, channelMention(destination), summary.WinnerCount, summary.EndsAt.Format(time.RFC3339)))
		fields := []*discordgo.MessageEmbedField{
			{Name: "Id", Value: summary.ID, Inline: true},
			{Name: "Ends", Value: fmt.Sprintf("<t:%d:R>", summary.EndsAt.Unix()), Inline: true},
		}
		b.respondOK(session, interaction, title, "Giveaway started in "+channelMention(destination)+".", fields, true)
	case "end":
		id := opts.str("id")
		if summary, ok := b.giveaways.Get(id); !ok || summary.GuildID != interaction.GuildID {
			b.respondError(session, interaction, title, giveawayErrorMessage(giveaway.ErrNotFound))
			return
		}
		result, err := b.giveaways.Close(ctx, id)
		if err != nil && !errors.Is(err, giveaway.ErrDependency) {
			b.respondError(session, interaction, title, giveawayErrorMessage(err))
			return
		}
		b.audit.Log(ctx, audit.LevelInfo, interaction.GuildID, host.ID, "giveaway_ended",
			fmt.Sprintf("%s: %d entrants, winners %s", result.Prize, result.Entrants, strings.Join(result.Winners, ",")))
		message := fmt.Sprintf("Ended with %d winner(s) from %d entrants.", len(result.Winners), result.Entrants)
		if err != nil {
			message += " The announcement could not be posted."
		}
		b.respondOK(session, interaction, title, message, nil, true)
	case "reroll":
		id := opts.str("id")
		result, err := b.giveaways.Reroll(ctx, interaction.GuildID, id, int(opts.integer("count", 1)))
		if err != nil && !errors.Is(err, giveaway.ErrDependency) {
			b.respondError(session, interaction, title, giveawayErrorMessage(err))
			return
		}
		b.audit.Log(ctx, audit.LevelInfo, interaction.GuildID, host.ID, "giveaway_rerolled",
			fmt.Sprintf("%s: new winners %s", result.Prize, strings.Join(result.Winners, ",")))
		b.respondOK(session, interaction, title, fmt.Sprintf("Drew %d new winner(s).", len(result.Winners)), nil, true)
	case "list":
		open := b.giveaways.List(opts.channelID("channel"))
		var guildOpen []giveaway.Summary
		for _, item := range open {
			if item.GuildID == interaction.GuildID {
				guildOpen = append(guildOpen, item)
			}
		}
		b.respondEmbed(session, interaction, b.commandEmbed("Open giveaways", formatGiveaways(guildOpen), b.cfg.Notifications.EmbedColors.Info, nil), true)
	case "requirements":
		b.handleRequirements(ctx, session, interaction, opts)
	default:
		b.respondError(session, interaction, title, "Unknown option.")
	}
}

func (b *Bot) handleRequirements(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, opts optionSet) {
	const title = "Giveaway requirements"
	destination := opts.channelID("channel")
	actor := interactionUser(interaction)

	if wipe, _ := opts.flag("clear"); wipe {
		if err := b.store.ClearRequirements(ctx, destination); err != nil {
			b.logger.Warn("clear requirements failed", zap.Error(err))
			b.respondError(session, interaction, title, "Could not clear the requirements.")
			return
		}
		b.audit.Log(ctx, audit.LevelInfo, interaction.GuildID, actor.ID, "giveaway_requirements", "cleared for "+destination)
		b.respondOK(session, interaction, title, "Requirements cleared for "+channelMention(destination)+".", nil, true)
		return
	}

	req, err := b.store.GetRequirements(ctx, destination)
	if err != nil {
		b.respondError(session, interaction, title, "Could not load the requirements.")
		return
	}
	if _, ok := opts["min_account_age_days"]; ok {
		req.MinAccountAgeDays = int(opts.integer("min_account_age_days", 0))
		if req.MinAccountAgeDays < 0 {
			req.MinAccountAgeDays = 0
		}
	}
	if _, ok := opts["guild_id"]; ok {
		req.MustBeInGuild = opts.str("guild_id")
	}
	if _, ok := opts["roles"]; ok {
		req.RequiredRoleIDs = parseRoleIDs(opts.str("roles"))
	}

	if err := b.store.SetRequirements(ctx, destination, req); err != nil {
		b.logger.Warn("set requirements failed", zap.Error(err))
		b.respondError(session, interaction, title, "Could not save the requirements.")
		return
	}
	b.audit.Log(ctx, audit.LevelInfo, interaction.GuildID, actor.ID, "giveaway_requirements", destination+": "+describeRequirements(req))
	b.respondOK(session, interaction, title, channelMention(destination)+"\n"+describeRequirements(req), nil, true)
}

func (b *Bot) handleGiveawayEntry(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	const title = "Giveaway"
	if interaction.Message == nil || interaction.Member == nil || interaction.Member.User == nil {
		return
	}

	entrant := b.entrantFromMember(interaction.Member)
	result, err := b.giveaways.Enter(ctx, interaction.Message.ID, entrant)
	if err != nil {
		b.respondError(session, interaction, title, giveawayErrorMessage(err))
		return
	}
	if result.AlreadyEntered {
		b.respond(session, interaction, "You are already entered.", true)
		return
	}
	b.respond(session, interaction, fmt.Sprintf("You are in! %d entrants so far.", result.Entrants), true)
}

func (b *Bot) entrantFromMember(member *discordgo.Member) giveaway.Entrant {
	userID := member.User.ID
	created, err := discordgo.SnowflakeTimestamp(userID)
	if err != nil {
		created = time.Time{}
	}
	return giveaway.Entrant{
		UserID:           userID,
		AccountCreatedAt: created,
		RoleIDs:          member.Roles,
		IsMember: func(guildID string) bool {
			return b.isGuildMember(guildID, userID)
		},
	}
}

func (b *Bot) isGuildMember(guildID, userID string) bool {
	if member, err := b.session.State.Member(guildID, userID); err == nil && member != nil {
		return true
	}
	member, err := b.session.GuildMember(guildID, userID)
	return err == nil && member != nil
}

func giveawayErrorMessage(err error) string {
	var reqErr *giveaway.RequirementError
	switch {
	case errors.As(err, &reqErr):
		switch reqErr.Reason {
		case giveaway.ReasonAccountAge:
			return "Your account is too new to enter: " + reqErr.Detail + "."
		case giveaway.ReasonGuildMembership:
			return "You must be a member of the partner server to enter."
		case giveaway.ReasonMissingRole:
			return fmt.Sprintf("You need the <@&%s> role to enter.", reqErr.Detail)
		}
		return reqErr.Error()
	case errors.Is(err, giveaway.ErrNotFound):
		return "That giveaway does not exist or has already ended."
	case errors.Is(err, giveaway.ErrEnded):
		return "This giveaway has ended."
	case errors.Is(err, giveaway.ErrInvalidArgument):
		return strings.TrimPrefix(err.Error(), giveaway.ErrInvalidArgument.Error()+": ")
	case errors.Is(err, giveaway.ErrDependency):
		return "Something went wrong talking to Discord. Try again shortly."
	default:
		return "Unexpected error."
	}
}

func describeRequirements(req giveaway.Requirements) string {
	if req.Empty() {
		return "No requirements."
	}
	var lines []string
	if req.MinAccountAgeDays > 0 {
		lines = append(lines, fmt.Sprintf("Account at least %d days old", req.MinAccountAgeDays))
	}
	if req.MustBeInGuild != "" {
		lines = append(lines, "Member of server "+req.MustBeInGuild)
	}
	for _, roleID := range req.RequiredRoleIDs {
		lines = append(lines, "Holds <@&"+roleID+">")
	}
	return strings.Join(lines, "\n")
}

func formatGiveaways(items []giveaway.Summary) string {
	if len(items) == 0 {
		return "No open giveaways."
	}
	lines := make([]string, 0, len(items))
	for _, item := range items {
		lines = append(lines, fmt.Sprintf("**%s** in %s, %d winner(s), %d entrants, ends <t:%d:R> (id %s)",
			item.Prize, channelMention(item.Destination), item.WinnerCount, item.Entrants, item.EndsAt.Unix(), item.ID))
	}
	return strings.Join(lines, "\n")
}
