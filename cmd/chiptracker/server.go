package main

import (
	"context"
	"errors"
	"time"

	"github.com/lox/chiptracker/cmd/chiptracker/shared"
	"github.com/lox/chiptracker/internal/roomcode"
	"github.com/lox/chiptracker/internal/server"
	"github.com/lox/chiptracker/internal/store"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

// ServerCmd runs the HTTP and websocket server
type ServerCmd struct {
	Config string `kong:"help='HCL config file',type='path',env='CHIPTRACKER_CONFIG'"`
	Host   string `kong:"help='Listen host (overrides config)'"`
	Port   *int   `kong:"help='Listen port (overrides config)',env='PORT'"`
	Store  string `kong:"help='Room store URL: memory://, redis://, sqlite://',env='STORE_URL'"`
	Seed   *int64 `kong:"help='Deterministic seed for room codes (optional)'"`
}

// resolveConfig layers command line flags over the config file
func (c *ServerCmd) resolveConfig(g *Globals) (*server.Config, error) {
	cfg, err := server.LoadConfig(c.Config)
	if err != nil {
		return nil, err
	}

	if c.Host != "" {
		cfg.Server.Host = c.Host
	}
	if c.Port != nil {
		cfg.Server.Port = *c.Port
	}
	if c.Store != "" {
		cfg.Store.URL = c.Store
	}
	if g.LogLevel != "" {
		cfg.Server.LogLevel = g.LogLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *ServerCmd) Run(g *Globals) error {
	cfg, err := c.resolveConfig(g)
	if err != nil {
		return err
	}

	logger, err := shared.SetupLogger(cfg.Server.LogLevel, g.NoColor)
	if err != nil {
		return err
	}

	var seed int64
	if c.Seed != nil {
		seed = *c.Seed
		logger.Info("Using deterministic seed", "seed", seed)
	} else {
		seed = time.Now().UnixNano()
		logger.Info("Using random seed", "seed", seed)
	}

	ttl, err := cfg.StoreTTL()
	if err != nil {
		return err
	}

	ctx := shared.SetupSignalHandler(logger)

	rooms, err := store.Open(ctx, cfg.Store.URL, store.Options{TTL: ttl}, logger)
	if err != nil {
		return err
	}
	defer func() { _ = rooms.Close() }() // Ignore close errors on exit

	rules := cfg.EngineRules()
	s := server.NewServer(rooms, roomcode.NewSeeded(seed), logger, server.WithRules(rules))

	logger.Info("Starting chiptracker server",
		"addr", cfg.Addr(),
		"starting_chips", rules.StartingChips,
		"max_players", rules.MaxPlayers,
		"min_bet", rules.MinBet,
		"version", version)

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return s.Start(cfg.Addr())
	})
	group.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
