package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/lox/chiptracker/cmd/chiptracker/shared"
	"github.com/lox/chiptracker/internal/client"
)

const (
	// clientLogLevel keeps connection chatter out of the table output
	clientLogLevel = "warn"

	healthPollInterval = 250 * time.Millisecond
)

// clientSetup loads the client defaults and applies the global overrides
func (g *Globals) clientSetup() (*client.Config, *log.Logger, error) {
	level := g.LogLevel
	if level == "" {
		level = clientLogLevel
	}
	logger, err := shared.SetupLogger(level, g.NoColor)
	if err != nil {
		return nil, nil, err
	}

	cfg, err := client.LoadConfig(g.ClientConfig)
	if err != nil {
		return nil, nil, err
	}
	if g.ServerURL != "" {
		cfg.Server.URL = g.ServerURL
		if err := cfg.Validate(); err != nil {
			return nil, nil, err
		}
	}
	return cfg, logger, nil
}

// playerName prefers the argument and falls back to the saved name
func playerName(arg string, cfg *client.Config) (string, error) {
	name := strings.TrimSpace(arg)
	if name == "" {
		name = strings.TrimSpace(cfg.PlayerName())
	}
	if name == "" {
		return "", errors.New("a player name is required (pass one or set player.name in the client config)")
	}
	return name, nil
}

// admissionAPI returns the HTTP client, first waiting up to wait for the
// server to report healthy
func admissionAPI(ctx context.Context, serverURL string, wait time.Duration) (*client.API, error) {
	api := client.NewAPI(serverURL, nil)
	if wait <= 0 {
		return api, nil
	}
	ctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()
	if err := api.WaitForHealthy(ctx, quartz.NewReal(), healthPollInterval); err != nil {
		return nil, err
	}
	return api, nil
}

// CreateCmd opens a new room hosted by the caller
type CreateCmd struct {
	Name string        `arg:"" optional:"" help:"Display name (defaults to player.name from the client config)"`
	Play bool          `help:"Take the seat and play once the room exists"`
	Wait time.Duration `help:"Wait up to this long for the server to come up"`
}

func (c *CreateCmd) Run(g *Globals) error {
	cfg, logger, err := g.clientSetup()
	if err != nil {
		return err
	}
	name, err := playerName(c.Name, cfg)
	if err != nil {
		return err
	}

	ctx := shared.SetupSignalHandler(logger)
	api, err := admissionAPI(ctx, cfg.Server.URL, c.Wait)
	if err != nil {
		return err
	}
	resp, err := api.CreateRoom(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to create room: %w", err)
	}

	v := newView(os.Stdout, g.NoColor)
	fmt.Println(v.Seat(resp.RoomCode, resp.PlayerID))
	if !c.Play {
		return nil
	}
	return runTable(ctx, logger, cfg.Server.URL, resp.RoomCode, resp.PlayerID, os.Stdin, os.Stdout, v)
}

// JoinCmd takes a seat in an existing room
type JoinCmd struct {
	Code string        `arg:"" help:"Room code"`
	Name string        `arg:"" optional:"" help:"Display name (defaults to player.name from the client config)"`
	Play bool          `help:"Take the seat and play once admitted"`
	Wait time.Duration `help:"Wait up to this long for the server to come up"`
}

func (c *JoinCmd) Run(g *Globals) error {
	cfg, logger, err := g.clientSetup()
	if err != nil {
		return err
	}
	name, err := playerName(c.Name, cfg)
	if err != nil {
		return err
	}

	ctx := shared.SetupSignalHandler(logger)
	api, err := admissionAPI(ctx, cfg.Server.URL, c.Wait)
	if err != nil {
		return err
	}
	resp, err := api.JoinRoom(ctx, c.Code, name)
	if err != nil {
		return fmt.Errorf("failed to join room: %w", err)
	}

	code := strings.ToUpper(strings.TrimSpace(c.Code))
	v := newView(os.Stdout, g.NoColor)
	fmt.Println(v.Seat(code, resp.PlayerID))
	if !c.Play {
		return nil
	}
	return runTable(ctx, logger, cfg.Server.URL, code, resp.PlayerID, os.Stdin, os.Stdout, v)
}

// PlayCmd binds an admitted player and reads table commands from stdin
type PlayCmd struct {
	Code   string `arg:"" help:"Room code"`
	Player string `arg:"" help:"Player id returned by create or join"`
}

func (c *PlayCmd) Run(g *Globals) error {
	cfg, logger, err := g.clientSetup()
	if err != nil {
		return err
	}
	ctx := shared.SetupSignalHandler(logger)
	v := newView(os.Stdout, g.NoColor)
	fmt.Println(v.Help())
	return runTable(ctx, logger, cfg.Server.URL, c.Code, c.Player, os.Stdin, os.Stdout, v)
}

// WatchCmd binds an admitted player and prints updates until interrupted
type WatchCmd struct {
	Code   string `arg:"" help:"Room code"`
	Player string `arg:"" help:"Player id returned by create or join"`
}

func (c *WatchCmd) Run(g *Globals) error {
	cfg, logger, err := g.clientSetup()
	if err != nil {
		return err
	}
	ctx := shared.SetupSignalHandler(logger)
	return runTable(ctx, logger, cfg.Server.URL, c.Code, c.Player, nil, os.Stdout, newView(os.Stdout, g.NoColor))
}
