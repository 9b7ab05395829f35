package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRequiresToken(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("DISCORD_TOKEN", "")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`
discord_token: file-token
progression:
  backend: REDIS
  cooldown_seconds: 90
  message_xp_min: 30
  message_xp_max: 10
activity:
  destinations: [file, bogus, FILE, db]
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("DISCORD_TOKEN", "")
	t.Setenv("SPAM_MESSAGES", "9")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "file-token", cfg.DiscordToken)
	assert.Equal(t, BackendRedis, cfg.Progression.Backend)
	assert.Equal(t, 90, cfg.Progression.CooldownSeconds)
	assert.Equal(t, 30, cfg.Progression.MessageXPMax)
	assert.Equal(t, []string{DestinationFile, DestinationDB}, cfg.Activity.Destinations)
	assert.Equal(t, 9, cfg.Spam.Messages)
	assert.Equal(t, 5, cfg.Giveaway.SweepSeconds)
}

func TestLoadPostgresNeedsURL(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("PROGRESSION_BACKEND", "postgres")
	t.Setenv("POSTGRES_URL", "")

	_, err := Load()
	require.Error(t, err)
}

func TestEnvList(t *testing.T) {
	t.Setenv("ACTIVITY_DESTINATIONS", " discord , ,file")
	assert.Equal(t, []string{"discord", "file"}, envList("ACTIVITY_DESTINATIONS", nil))
}
