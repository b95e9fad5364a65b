package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/lox/chiptracker/internal/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveConfigDefaults(t *testing.T) {
	t.Parallel()
	cfg, err := (&ServerCmd{}).resolveConfig(&Globals{})
	require.NoError(t, err)
	assert.Equal(t, server.DefaultConfig(), cfg)
}

func TestResolveConfigFlagsOverrideFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "chiptracker.hcl")
	src := "server {\n  host = \"127.0.0.1\"\n  port = 6001\n}\nstore {\n  url = \"memory://\"\n}\n"
	require.NoError(t, os.WriteFile(path, []byte(src), 0o600))

	port := 7001
	cmd := &ServerCmd{Config: path, Port: &port, Store: "sqlite:///tmp/rooms.db"}
	cfg, err := cmd.resolveConfig(&Globals{LogLevel: "debug"})
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:7001", cfg.Addr())
	assert.Equal(t, "sqlite:///tmp/rooms.db", cfg.Store.URL)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
}

func TestResolveConfigRejectsBadOverride(t *testing.T) {
	t.Parallel()
	port := 0
	_, err := (&ServerCmd{Port: &port}).resolveConfig(&Globals{})
	assert.Error(t, err)

	_, err = (&ServerCmd{}).resolveConfig(&Globals{LogLevel: "loud"})
	assert.Error(t, err)

	_, err = (&ServerCmd{Config: filepath.Join(t.TempDir(), "missing.hcl")}).resolveConfig(&Globals{})
	assert.Error(t, err)
}

func TestPlayerName(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "client.hcl")
	require.NoError(t, os.WriteFile(path, []byte("player {\n  name = \"Alice\"\n}\n"), 0o600))

	cfg, _, err := (&Globals{ClientConfig: path, LogLevel: "error"}).clientSetup()
	require.NoError(t, err)

	name, err := playerName("  Bob ", cfg)
	require.NoError(t, err)
	assert.Equal(t, "Bob", name)

	name, err = playerName("", cfg)
	require.NoError(t, err)
	assert.Equal(t, "Alice", name)

	cfg.Player = nil
	_, err = playerName(" ", cfg)
	assert.Error(t, err)
}

func TestClientSetupServerOverride(t *testing.T) {
	t.Parallel()
	missing := filepath.Join(t.TempDir(), "none.hcl")

	cfg, _, err := (&Globals{ClientConfig: missing, ServerURL: "https://chips.example.com", LogLevel: "error"}).clientSetup()
	require.NoError(t, err)
	assert.Equal(t, "https://chips.example.com", cfg.Server.URL)

	_, _, err = (&Globals{ClientConfig: missing, ServerURL: "ftp://x", LogLevel: "error"}).clientSetup()
	assert.Error(t, err)
}
