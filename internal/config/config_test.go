package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DISCORD_BOT_TOKEN", "token")
	t.Setenv("RIOT_API_KEY", "RGAPI-test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "euw1", cfg.RiotPlatform)
	assert.Equal(t, 10*time.Second, cfg.Monitor.PollInterval)
	assert.Equal(t, 5, cfg.Monitor.FinalizeAttempts)
	assert.Equal(t, []time.Duration{30 * time.Second, 40 * time.Second, 50 * time.Second, time.Minute}, cfg.Monitor.FinalizeDelays)
}

func TestLoadOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DISCORD_BOT_TOKEN", "token")
	t.Setenv("RIOT_API_KEY", "RGAPI-test")
	t.Setenv("POLL_INTERVAL", "2s")
	t.Setenv("FINALIZE_ATTEMPTS", "3")
	t.Setenv("FINALIZE_DELAYS", "1s,2s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, cfg.Monitor.PollInterval)
	assert.Equal(t, 3, cfg.Monitor.FinalizeAttempts)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, cfg.Monitor.FinalizeDelays)
}

func TestLoadRequiresTokens(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DISCORD_BOT_TOKEN", "")
	t.Setenv("RIOT_API_KEY", "RGAPI-test")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DISCORD_BOT_TOKEN")
}

func TestLoadRejectsZeroAttempts(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DISCORD_BOT_TOKEN", "token")
	t.Setenv("RIOT_API_KEY", "RGAPI-test")
	t.Setenv("FINALIZE_ATTEMPTS", "0")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadRulesMissingFile(t *testing.T) {
	rules, err := LoadRules(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultRules(), rules)
}

func TestLoadRulesOverridesOneGame(t *testing.T) {
	path := filepath.Join(t.TempDir(), "games.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
games:
  lol:
    min_duration: 4m
    supported_maps: [11]
`), 0o644))

	rules, err := LoadRules(path)
	require.NoError(t, err)

	lol := rules["lol"]
	assert.Equal(t, 4*time.Minute, lol.MinDuration)
	assert.True(t, lol.AllowsMap(11))
	assert.False(t, lol.AllowsMap(12))
	assert.True(t, lol.AllowsQueue(1700))

	assert.Equal(t, DefaultRules()["tft"], rules["tft"])
}

func TestLoadRulesInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "games.yaml")
	require.NoError(t, os.WriteFile(path, []byte("games: ["), 0o644))

	_, err := LoadRules(path)
	require.Error(t, err)
}
