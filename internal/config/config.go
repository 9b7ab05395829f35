package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

const (
	DestinationDiscord = "discord"
	DestinationFile    = "file"
	DestinationDB      = "db"
)

type Config struct {
	DiscordToken      string            `yaml:"discord_token"`
	DatabasePath      string            `yaml:"database_path"`
	LogLevel          string            `yaml:"log_level"`
	DefaultLogChannel string            `yaml:"default_log_channel"`
	RetentionDays     int               `yaml:"retention_days"`
	Health            HealthConfig      `yaml:"health"`
	Progression       ProgressionConfig `yaml:"progression"`
	Giveaway          GiveawayConfig    `yaml:"giveaway"`
	Activity          ActivityConfig    `yaml:"activity"`
	Spam              SpamConfig        `yaml:"spam"`
	Moderation        ModerationConfig  `yaml:"moderation"`
	Notifications     NotifyConfig      `yaml:"notifications"`
}

type HealthConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

type ProgressionConfig struct {
	Backend         string         `yaml:"backend"`
	CooldownSeconds int            `yaml:"cooldown_seconds"`
	MessageXPMin    int            `yaml:"message_xp_min"`
	MessageXPMax    int            `yaml:"message_xp_max"`
	AnnounceLevelUp bool           `yaml:"announce_level_up"`
	Redis           RedisConfig    `yaml:"redis"`
	Postgres        PostgresConfig `yaml:"postgres"`
}

type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
}

type PostgresConfig struct {
	URL      string `yaml:"url"`
	MaxConns int    `yaml:"max_conns"`
}

type GiveawayConfig struct {
	SweepSeconds     int `yaml:"sweep_seconds"`
	MaxWinners       int `yaml:"max_winners"`
	MaxDurationHours int `yaml:"max_duration_hours"`
	ArchiveSize      int `yaml:"archive_size"`
}

type ActivityConfig struct {
	Destinations []string `yaml:"destinations"`
	FilePath     string   `yaml:"file_path"`
	RingSize     int      `yaml:"ring_size"`
}

type SpamConfig struct {
	Messages      int `yaml:"messages"`
	WindowSeconds int `yaml:"window_seconds"`
}

type ModerationConfig struct {
	TimeoutMinutes     int `yaml:"timeout_minutes"`
	WarnForgiveDays    int `yaml:"warn_forgive_days"`
	BanDeleteDays      int `yaml:"ban_delete_days"`
	WarnTimeoutAtCount int `yaml:"warn_timeout_at_count"`
}

type NotifyConfig struct {
	SendsPerSecond float64     `yaml:"sends_per_second"`
	EmbedColors    EmbedColors `yaml:"embed_colors"`
}

type EmbedColors struct {
	Info    int `yaml:"info"`
	Success int `yaml:"success"`
	Warning int `yaml:"warning"`
	Error   int `yaml:"error"`
}

func DefaultConfig() Config {
	return Config{
		DatabasePath:  "/data/hearth.db",
		LogLevel:      "info",
		RetentionDays: 30,
		Health:        HealthConfig{Enabled: false, Addr: ":8080"},
		Progression: ProgressionConfig{
			Backend:         BackendSQLite,
			CooldownSeconds: 60,
			MessageXPMin:    15,
			MessageXPMax:    25,
			AnnounceLevelUp: true,
			Redis:           RedisConfig{Addr: "localhost:6379", KeyPrefix: "hearth"},
			Postgres:        PostgresConfig{MaxConns: 4},
		},
		Giveaway: GiveawayConfig{
			SweepSeconds:     5,
			MaxWinners:       20,
			MaxDurationHours: 24 * 30,
			ArchiveSize:      100,
		},
		Activity: ActivityConfig{
			Destinations: []string{DestinationDiscord, DestinationDB},
			FilePath:     "/data/activity.log",
			RingSize:     200,
		},
		Spam: SpamConfig{Messages: 6, WindowSeconds: 8},
		Moderation: ModerationConfig{
			TimeoutMinutes:     10,
			WarnForgiveDays:    30,
			BanDeleteDays:      0,
			WarnTimeoutAtCount: 3,
		},
		Notifications: NotifyConfig{
			SendsPerSecond: 4,
			EmbedColors: EmbedColors{
				Info:    0x5865F2,
				Success: 0x57F287,
				Warning: 0xFEE75C,
				Error:   0xED4245,
			},
		},
	}
}

func Load() (Config, error) {
	cfg := DefaultConfig()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, err
		}
	}

	applyEnv(&cfg)
	if cfg.DiscordToken == "" {
		return Config{}, errors.New("DISCORD_TOKEN is required")
	}

	cfg.Progression.Backend = normalizeBackend(cfg.Progression.Backend)
	cfg.Activity.Destinations = normalizeDestinations(cfg.Activity.Destinations)
	if cfg.Progression.MessageXPMax < cfg.Progression.MessageXPMin {
		cfg.Progression.MessageXPMax = cfg.Progression.MessageXPMin
	}
	if cfg.Progression.Backend == BackendPostgres && cfg.Progression.Postgres.URL == "" {
		return Config{}, errors.New("POSTGRES_URL is required for the postgres backend")
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.DiscordToken = envString("DISCORD_TOKEN", cfg.DiscordToken)
	cfg.DatabasePath = envString("DATABASE_PATH", cfg.DatabasePath)
	cfg.LogLevel = envString("LOG_LEVEL", cfg.LogLevel)
	cfg.DefaultLogChannel = envString("DEFAULT_LOG_CHANNEL", cfg.DefaultLogChannel)
	cfg.RetentionDays = envInt("RETENTION_DAYS", cfg.RetentionDays)
	cfg.Health.Enabled = envBool("HEALTH_ENABLED", cfg.Health.Enabled)
	cfg.Health.Addr = envString("HEALTH_ADDR", cfg.Health.Addr)
	cfg.Progression.Backend = envString("PROGRESSION_BACKEND", cfg.Progression.Backend)
	cfg.Progression.CooldownSeconds = envInt("XP_COOLDOWN_SECONDS", cfg.Progression.CooldownSeconds)
	cfg.Progression.MessageXPMin = envInt("MESSAGE_XP_MIN", cfg.Progression.MessageXPMin)
	cfg.Progression.MessageXPMax = envInt("MESSAGE_XP_MAX", cfg.Progression.MessageXPMax)
	cfg.Progression.AnnounceLevelUp = envBool("ANNOUNCE_LEVEL_UP", cfg.Progression.AnnounceLevelUp)
	cfg.Progression.Redis.Addr = envString("REDIS_ADDR", cfg.Progression.Redis.Addr)
	cfg.Progression.Redis.Password = envString("REDIS_PASSWORD", cfg.Progression.Redis.Password)
	cfg.Progression.Redis.DB = envInt("REDIS_DB", cfg.Progression.Redis.DB)
	cfg.Progression.Postgres.URL = envString("POSTGRES_URL", cfg.Progression.Postgres.URL)
	cfg.Giveaway.SweepSeconds = envInt("GIVEAWAY_SWEEP_SECONDS", cfg.Giveaway.SweepSeconds)
	cfg.Giveaway.MaxWinners = envInt("GIVEAWAY_MAX_WINNERS", cfg.Giveaway.MaxWinners)
	cfg.Activity.Destinations = envList("ACTIVITY_DESTINATIONS", cfg.Activity.Destinations)
	cfg.Activity.FilePath = envString("ACTIVITY_FILE_PATH", cfg.Activity.FilePath)
	cfg.Activity.RingSize = envInt("ACTIVITY_RING_SIZE", cfg.Activity.RingSize)
	cfg.Spam.Messages = envInt("SPAM_MESSAGES", cfg.Spam.Messages)
	cfg.Spam.WindowSeconds = envInt("SPAM_WINDOW_SECONDS", cfg.Spam.WindowSeconds)
	cfg.Moderation.TimeoutMinutes = envInt("MOD_TIMEOUT_MINUTES", cfg.Moderation.TimeoutMinutes)
	cfg.Moderation.WarnForgiveDays = envInt("MOD_WARN_FORGIVE_DAYS", cfg.Moderation.WarnForgiveDays)
	cfg.Notifications.EmbedColors.Info = envInt("EMBED_COLOR_INFO", cfg.Notifications.EmbedColors.Info)
	cfg.Notifications.EmbedColors.Success = envInt("EMBED_COLOR_SUCCESS", cfg.Notifications.EmbedColors.Success)
	cfg.Notifications.EmbedColors.Warning = envInt("EMBED_COLOR_WARNING", cfg.Notifications.EmbedColors.Warning)
	cfg.Notifications.EmbedColors.Error = envInt("EMBED_COLOR_ERROR", cfg.Notifications.EmbedColors.Error)
}

func BuildLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(strings.ToLower(level)))

	return cfg.Build()
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func envString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		lower := strings.ToLower(value)
		return lower == "1" || lower == "true" || lower == "yes"
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func normalizeBackend(value string) string {
	switch strings.ToLower(value) {
	case BackendPostgres, BackendRedis, BackendMemory:
		return strings.ToLower(value)
	default:
		return BackendSQLite
	}
}

func normalizeDestinations(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, value := range values {
		lower := strings.ToLower(strings.TrimSpace(value))
		switch lower {
		case DestinationDiscord, DestinationFile, DestinationDB:
		default:
			continue
		}
		if _, ok := seen[lower]; ok {
			continue
		}
		seen[lower] = struct{}{}
		out = append(out, lower)
	}
	return out
}
