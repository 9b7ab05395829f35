package bot

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"hearth/internal/analytics"
	"hearth/internal/config"
	"hearth/internal/giveaway"
	"hearth/internal/modules/antispam"
	"hearth/internal/modules/audit"
	"hearth/internal/progression"
	"hearth/internal/storage"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const maintenanceInterval = time.Hour

type Bot struct {
	cfg         config.Config
	logger      *zap.Logger
	store       *storage.Store
	audit       *audit.Logger
	analytics   *analytics.Service
	progression *progression.Engine
	giveaways   *giveaway.Engine
	antispam    *antispam.Module
	session     *discordgo.Session
	publisher   *discordPublisher

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(cfg config.Config, logger *zap.Logger, store *storage.Store, progressionEngine *progression.Engine, auditLogger *audit.Logger, analyticsEngine *analytics.Service) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, err
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsMessageContent

	b := &Bot{
		cfg:         cfg,
		logger:      logger,
		store:       store,
		audit:       auditLogger,
		analytics:   analyticsEngine,
		progression: progressionEngine,
		session:     session,
	}

	b.publisher = newDiscordPublisher(func(channelID string, data *discordgo.MessageSend) (*discordgo.Message, error) {
		return session.ChannelMessageSendComplex(channelID, data)
	}, cfg.Notifications.SendsPerSecond, cfg.Notifications.EmbedColors)

	b.giveaways = giveaway.NewEngine(b.publisher, store, logger.Named("giveaway"))
	b.giveaways.WithArchiveSize(cfg.Giveaway.ArchiveSize)
	b.antispam = antispam.New(cfg.Spam, auditLogger)

	if b.audit != nil && containsString(cfg.Activity.Destinations, config.DestinationDiscord) {
		b.audit.AddDestination(audit.NewNotifyDestination(b.notifyActivity))
	}

	return b, nil
}

func (b *Bot) Start() error {
	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onMessageCreate)
	b.session.AddHandler(b.onGuildMemberAdd)
	b.session.AddHandler(b.onGuildMemberRemove)
	b.session.AddHandler(b.onInteractionCreate)

	if err := b.session.Open(); err != nil {
		return err
	}

	if err := b.registerCommands(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel

	sweep := time.Duration(b.cfg.Giveaway.SweepSeconds) * time.Second
	b.wg.Add(2)
	go func() {
		defer b.wg.Done()
		b.giveaways.Run(ctx, sweep)
	}()
	go func() {
		defer b.wg.Done()
		b.runMaintenance(ctx)
	}()

	return nil
}

func (b *Bot) Close(ctx context.Context) {
	if b.cancel != nil {
		b.cancel()
	}

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		b.logger.Warn("background loops did not stop in time")
	}

	if open := b.giveaways.List(""); len(open) > 0 {
		b.logger.Warn("open giveaways dropped at shutdown", zap.Int("count", len(open)))
	}
	if b.session != nil {
		_ = b.session.Close()
	}
}

func (b *Bot) onReady(session *discordgo.Session, event *discordgo.Ready) {
	b.logger.Info("discord ready", zap.String("user", session.State.User.Username), zap.Int("guilds", len(event.Guilds)))
}

func (b *Bot) runMaintenance(ctx context.Context) {
	ticker := time.NewTicker(maintenanceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			pruned := b.antispam.Prune(now)
			removed, err := b.store.CleanupAuditLogs(ctx, b.cfg.RetentionDays)
			if err != nil {
				b.logger.Warn("activity cleanup failed", zap.Error(err))
				continue
			}
			b.logger.Debug("maintenance", zap.Int("spam_windows_pruned", pruned), zap.Int64("activity_removed", removed))
		}
	}
}

func (b *Bot) guildSettings(ctx context.Context, guildID string) storage.GuildSettings {
	defaults := storage.GuildSettings{
		GuildID:        guildID,
		LogChannel:     b.cfg.DefaultLogChannel,
		LevelUpEnabled: b.cfg.Progression.AnnounceLevelUp,
		RetentionDays:  b.cfg.RetentionDays,
	}

	settings, err := b.store.GetGuildSettings(ctx, guildID, defaults)
	if err != nil {
		b.logger.Warn("guild settings fallback", zap.Error(err))
		return defaults
	}
	return settings
}

func (b *Bot) notifyActivity(ctx context.Context, entry storage.AuditLog) error {
	if entry.GuildID == "" {
		return nil
	}
	channelID := b.guildSettings(ctx, entry.GuildID).LogChannel
	if channelID == "" {
		return nil
	}
	_, err := b.publisher.deliver(ctx, channelID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{activityEmbed(entry, b.levelColor(entry.Level))},
	})
	return err
}

func (b *Bot) levelColor(level string) int {
	switch level {
	case audit.LevelWarn:
		return b.cfg.Notifications.EmbedColors.Warning
	case audit.LevelCrit:
		return b.cfg.Notifications.EmbedColors.Error
	default:
		return b.cfg.Notifications.EmbedColors.Info
	}
}

func (b *Bot) messageXP() int64 {
	low := b.cfg.Progression.MessageXPMin
	high := b.cfg.Progression.MessageXPMax
	if low <= 0 {
		low = 1
	}
	if high <= low {
		return int64(low)
	}
	return int64(low + rand.IntN(high-low+1))
}

func (b *Bot) respond(session *discordgo.Session, interaction *discordgo.InteractionCreate, content string, ephemeral bool) {
	flags := discordgo.MessageFlags(0)
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	_ = session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   flags,
		},
	})
}

func (b *Bot) respondEmbed(session *discordgo.Session, interaction *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, ephemeral bool) {
	if embed == nil {
		b.respond(session, interaction, "No response available.", ephemeral)
		return
	}
	flags := discordgo.MessageFlags(0)
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	_ = session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
			Flags:  flags,
		},
	})
}

func (b *Bot) respondError(session *discordgo.Session, interaction *discordgo.InteractionCreate, title, message string) {
	b.respondEmbed(session, interaction, b.commandEmbed(title, message, b.cfg.Notifications.EmbedColors.Error, nil), true)
}

func (b *Bot) respondOK(session *discordgo.Session, interaction *discordgo.InteractionCreate, title, message string, fields []*discordgo.MessageEmbedField, ephemeral bool) {
	b.respondEmbed(session, interaction, b.commandEmbed(title, message, b.cfg.Notifications.EmbedColors.Success, fields), ephemeral)
}

func (b *Bot) commandEmbed(title, description string, color int, fields []*discordgo.MessageEmbedField) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       color,
		Timestamp:   time.Now().Format(time.RFC3339),
		Fields:      fields,
	}
}

func interactionUser(interaction *discordgo.InteractionCreate) *discordgo.User {
	if interaction.Member != nil && interaction.Member.User != nil {
		return interaction.Member.User
	}
	return interaction.User
}

func containsString(values []string, target string) bool {
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}

func mention(userID string) string {
	return fmt.Sprintf("<@%s>", userID)
}
