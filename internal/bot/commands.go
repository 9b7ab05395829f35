package bot

import "github.com/bwmarrin/discordgo"

func subcommand(name, description string, options ...*discordgo.ApplicationCommandOption) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionSubCommand,
		Name:        name,
		Description: description,
		Options:     options,
	}
}

func option(kind discordgo.ApplicationCommandOptionType, name, description string, required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        kind,
		Name:        name,
		Description: description,
		Required:    required,
	}
}

func commandList() []*discordgo.ApplicationCommand {
	manageServer := int64(discordgo.PermissionManageServer)
	moderate := int64(discordgo.PermissionKickMembers)
	dmAllowed := false

	return []*discordgo.ApplicationCommand{
		{
			Name:                     "giveaway",
			Description:              "Run giveaways",
			DefaultMemberPermissions: &manageServer,
			DMPermission:             &dmAllowed,
			Options: []*discordgo.ApplicationCommandOption{
				subcommand("start", "Start a giveaway",
					option(discordgo.ApplicationCommandOptionString, "prize", "What is being given away", true),
					option(discordgo.ApplicationCommandOptionString, "duration", "How long it runs, e.g. 30m, 2h, 1d12h", true),
					option(discordgo.ApplicationCommandOptionInteger, "winners", "Number of winners", false),
					option(discordgo.ApplicationCommandOptionChannel, "channel", "Channel to post in", false),
				),
				subcommand("end", "End a giveaway now and draw winners",
					option(discordgo.ApplicationCommandOptionString, "id", "Giveaway message id", true),
				),
				subcommand("reroll", "Draw replacement winners for an ended giveaway",
					option(discordgo.ApplicationCommandOptionString, "id", "Giveaway message id", true),
					option(discordgo.ApplicationCommandOptionInteger, "count", "How many new winners", false),
				),
				subcommand("list", "List open giveaways",
					option(discordgo.ApplicationCommandOptionChannel, "channel", "Only this channel", false),
				),
				subcommand("requirements", "Set entry requirements for a channel",
					option(discordgo.ApplicationCommandOptionChannel, "channel", "Giveaway channel", true),
					option(discordgo.ApplicationCommandOptionInteger, "min_account_age_days", "Minimum account age in days", false),
					option(discordgo.ApplicationCommandOptionString, "guild_id", "Server entrants must also be in", false),
					option(discordgo.ApplicationCommandOptionString, "roles", "Roles entrants must hold (mentions or ids)", false),
					option(discordgo.ApplicationCommandOptionBoolean, "clear", "Remove all requirements", false),
				),
			},
		},
		{
			Name:         "rank",
			Description:  "Show a member's level card",
			DMPermission: &dmAllowed,
			Options: []*discordgo.ApplicationCommandOption{
				option(discordgo.ApplicationCommandOptionUser, "user", "Member to look up", false),
			},
		},
		{
			Name:         "leaderboard",
			Description:  "Top members by xp",
			DMPermission: &dmAllowed,
			Options: []*discordgo.ApplicationCommandOption{
				option(discordgo.ApplicationCommandOptionInteger, "limit", "How many members to show", false),
			},
		},
		{
			Name:                     "xp",
			Description:              "Manage member xp",
			DefaultMemberPermissions: &manageServer,
			DMPermission:             &dmAllowed,
			Options: []*discordgo.ApplicationCommandOption{
				subcommand("give", "Grant xp to a member",
					option(discordgo.ApplicationCommandOptionUser, "user", "Member", true),
					option(discordgo.ApplicationCommandOptionInteger, "amount", "Amount of xp", true),
				),
				subcommand("reset", "Reset a member's xp",
					option(discordgo.ApplicationCommandOptionUser, "user", "Member", true),
				),
				subcommand("role-add", "Reward a role at a level",
					option(discordgo.ApplicationCommandOptionInteger, "level", "Level", true),
					option(discordgo.ApplicationCommandOptionRole, "role", "Role to grant", true),
				),
				subcommand("role-remove", "Stop rewarding a role at a level",
					option(discordgo.ApplicationCommandOptionInteger, "level", "Level", true),
				),
				subcommand("roles", "List level rewards"),
			},
		},
		{
			Name:                     "config",
			Description:              "Configure the bot for this server",
			DefaultMemberPermissions: &manageServer,
			DMPermission:             &dmAllowed,
			Options: []*discordgo.ApplicationCommandOption{
				subcommand("logs", "Set the activity log channel",
					option(discordgo.ApplicationCommandOptionChannel, "channel", "Log channel", false),
				),
				subcommand("welcome", "Set the welcome channel and message",
					option(discordgo.ApplicationCommandOptionChannel, "channel", "Welcome channel", false),
					option(discordgo.ApplicationCommandOptionString, "message", "Use {user}, {server} and {count}", false),
				),
				subcommand("levelup", "Configure level-up announcements",
					option(discordgo.ApplicationCommandOptionBoolean, "enabled", "Announce level-ups", false),
					option(discordgo.ApplicationCommandOptionChannel, "channel", "Announcement channel", false),
				),
			},
		},
		{
			Name:         "partner",
			Description:  "Partner servers",
			DMPermission: &dmAllowed,
			Options: []*discordgo.ApplicationCommandOption{
				subcommand("add", "Add or update a partner",
					option(discordgo.ApplicationCommandOptionString, "name", "Partner name", true),
					option(discordgo.ApplicationCommandOptionString, "invite", "Invite link", true),
					&discordgo.ApplicationCommandOption{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "tier",
						Description: "Partner tier",
						Choices: []*discordgo.ApplicationCommandOptionChoice{
							{Name: "gold", Value: "gold"},
							{Name: "silver", Value: "silver"},
							{Name: "bronze", Value: "bronze"},
						},
					},
				),
				subcommand("remove", "Remove a partner",
					option(discordgo.ApplicationCommandOptionString, "name", "Partner name", true),
				),
				subcommand("list", "List partners"),
			},
		},
		{
			Name:                     "mod",
			Description:              "Moderation actions",
			DefaultMemberPermissions: &moderate,
			DMPermission:             &dmAllowed,
			Options: []*discordgo.ApplicationCommandOption{
				subcommand("warn", "Warn a member",
					option(discordgo.ApplicationCommandOptionUser, "user", "Member", true),
					option(discordgo.ApplicationCommandOptionString, "reason", "Reason", false),
				),
				subcommand("timeout", "Time a member out",
					option(discordgo.ApplicationCommandOptionUser, "user", "Member", true),
					option(discordgo.ApplicationCommandOptionString, "duration", "Length, e.g. 10m or 1h", false),
					option(discordgo.ApplicationCommandOptionString, "reason", "Reason", false),
				),
				subcommand("kick", "Kick a member",
					option(discordgo.ApplicationCommandOptionUser, "user", "Member", true),
					option(discordgo.ApplicationCommandOptionString, "reason", "Reason", false),
				),
				subcommand("ban", "Ban a member",
					option(discordgo.ApplicationCommandOptionUser, "user", "Member", true),
					option(discordgo.ApplicationCommandOptionString, "reason", "Reason", false),
				),
				subcommand("history", "Show a member's infractions",
					option(discordgo.ApplicationCommandOptionUser, "user", "Member", true),
				),
				subcommand("pardon", "Clear a member's infractions",
					option(discordgo.ApplicationCommandOptionUser, "user", "Member", true),
				),
			},
		},
		{
			Name:                     "report",
			Description:              "Activity summary",
			DefaultMemberPermissions: &manageServer,
			DMPermission:             &dmAllowed,
			Options: []*discordgo.ApplicationCommandOption{
				option(discordgo.ApplicationCommandOptionInteger, "days", "How many days back", false),
			},
		},
	}
}

func (b *Bot) registerCommands() error {
	commands := commandList()

	appID := b.session.State.User.ID
	existing, err := b.session.ApplicationCommands(appID, "")
	if err != nil {
		for _, cmd := range commands {
			if _, err := b.session.ApplicationCommandCreate(appID, "", cmd); err != nil {
				return err
			}
		}
		return nil
	}

	existingByName := make(map[string]*discordgo.ApplicationCommand)
	for _, cmd := range existing {
		existingByName[cmd.Name] = cmd
	}

	desired := make(map[string]struct{})
	for _, cmd := range commands {
		desired[cmd.Name] = struct{}{}
		if current, ok := existingByName[cmd.Name]; ok {
			if _, err := b.session.ApplicationCommandEdit(appID, "", current.ID, cmd); err != nil {
				return err
			}
			continue
		}
		if _, err := b.session.ApplicationCommandCreate(appID, "", cmd); err != nil {
			return err
		}
	}

	for _, cmd := range existing {
		if _, ok := desired[cmd.Name]; ok {
			continue
		}
		_ = b.session.ApplicationCommandDelete(appID, "", cmd.ID)
	}
	return nil
}
