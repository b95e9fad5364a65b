package server

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lox/chiptracker/internal/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "0.0.0.0:5001", cfg.Addr())
	assert.Equal(t, engine.DefaultRules(), cfg.EngineRules())

	ttl, err := cfg.StoreTTL()
	require.NoError(t, err)
	assert.Zero(t, ttl)
}

func TestParseConfig(t *testing.T) {
	t.Parallel()
	src := `
server {
  host      = "127.0.0.1"
  port      = 6001
  log_level = "debug"
}

store {
  url = "redis://localhost:6379/0"
  ttl = "24h"
}

rules {
  starting_chips = 250
  max_players    = 6
}
`
	cfg, err := ParseConfig([]byte(src), "test.hcl")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "127.0.0.1:6001", cfg.Addr())
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Store.URL)

	ttl, err := cfg.StoreTTL()
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, ttl)

	assert.Equal(t, engine.Rules{StartingChips: 250, MaxPlayers: 6, MinBet: 10}, cfg.EngineRules())
}

func TestParseConfigPartial(t *testing.T) {
	t.Parallel()
	cfg, err := ParseConfig([]byte("server {\n  port = 7000\n}\n"), "partial.hcl")
	require.NoError(t, err)

	assert.Equal(t, DefaultHost, cfg.Server.Host)
	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, DefaultLogLevel, cfg.Server.LogLevel)
	assert.Empty(t, cfg.Store.URL)
}

func TestParseConfigErrors(t *testing.T) {
	t.Parallel()
	tests := map[string]string{
		"syntax":        "server {",
		"unknown block": "tables {\n}\n",
		"unknown attr":  "server {\n  address = \"x\"\n}\n",
		"wrong type":    "server {\n  port = \"high\"\n}\n",
	}
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseConfig([]byte(src), "bad.hcl")
			assert.Error(t, err)
		})
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port zero", func(c *Config) { c.Server.Port = 0 }},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }},
		{"log level", func(c *Config) { c.Server.LogLevel = "verbose" }},
		{"ttl syntax", func(c *Config) { c.Store.TTL = "soon" }},
		{"ttl negative", func(c *Config) { c.Store.TTL = "-1h" }},
		{"no chips", func(c *Config) { c.Rules.StartingChips = 0 }},
		{"no seats", func(c *Config) { c.Rules.MaxPlayers = 0 }},
		{"negative min bet", func(c *Config) { c.Rules.MinBet = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	path := filepath.Join(t.TempDir(), "chiptracker.hcl")
	require.NoError(t, os.WriteFile(path, []byte("rules {\n  min_bet = 25\n}\n"), 0o600))
	cfg, err = LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.Rules.MinBet)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.hcl"))
	assert.Error(t, err)
}
