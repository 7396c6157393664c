package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "server.hcl")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 10*time.Second, cfg.Game.MatchmakingTimeout)
	assert.Equal(t, 30*time.Second, cfg.Game.DisconnectGrace)
	assert.Equal(t, "BOT", cfg.Game.BotName)
	assert.Equal(t, ":8080", cfg.Address())
}

func TestLoadConfigMissingFileFallsBack(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.hcl"))
	require.NoError(t, err)
	assert.Equal(t, Default().Game, cfg.Game)
}

func TestFileThenEnvPrecedence(t *testing.T) {
	path := writeFile(t, `
server {
  port      = 9090
  log_level = "debug"
}

game {
  matchmaking_timeout = "15s"
  disconnect_grace    = "45s"
  bot_name            = "Robo"
}
`)
	t.Setenv("DISCONNECT_GRACE_SECONDS", "20")
	t.Setenv("BOT_THINK_DELAY_MS", "250")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 15*time.Second, cfg.Game.MatchmakingTimeout)
	assert.Equal(t, 20*time.Second, cfg.Game.DisconnectGrace)
	assert.Equal(t, 250*time.Millisecond, cfg.Game.BotThinkDelay)
	assert.Equal(t, "Robo", cfg.Game.BotName)
}

func TestLoadConfigRejectsBadFile(t *testing.T) {
	_, err := LoadConfig(writeFile(t, `game { matchmaking_timeout = "soon" }`))
	assert.Error(t, err)

	_, err = LoadConfig(writeFile(t, `server { port = `))
	assert.Error(t, err)
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("SOME_INT", "nope")
	assert.Equal(t, 7, GetEnvAsInt("SOME_INT", 7))

	t.Setenv("SOME_INT", "12")
	assert.Equal(t, 12, GetEnvAsInt("SOME_INT", 7))

	t.Setenv("SOME_WAIT", "-3")
	assert.Equal(t, time.Second, GetEnvAsDuration("SOME_WAIT", time.Second, time.Second))

	t.Setenv("ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
}

func TestDatabaseURLGetsSimpleProtocol(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost:5432/game")
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Contains(t, cfg.DatabaseURL, "default_query_exec_mode=simple_protocol")
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Port = "0"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Game.BotName = "  "
	assert.Error(t, cfg.Validate())
}
