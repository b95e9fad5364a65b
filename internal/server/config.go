package server

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/lox/chiptracker/internal/engine"
	"github.com/lox/chiptracker/internal/room"
)

const (
	DefaultHost     = "0.0.0.0"
	DefaultPort     = 5001
	DefaultLogLevel = "info"
)

// Config represents the complete server configuration
type Config struct {
	Server ServerSettings
	Store  StoreSettings
	Rules  RulesSettings
}

// ServerSettings contains listener and logging settings
type ServerSettings struct {
	Host     string `hcl:"host,optional"`
	Port     int    `hcl:"port,optional"`
	LogLevel string `hcl:"log_level,optional"`
}

// StoreSettings selects the room store backend
type StoreSettings struct {
	URL string `hcl:"url,optional"`
	TTL string `hcl:"ttl,optional"`
}

// RulesSettings are the house rules applied to every room
type RulesSettings struct {
	StartingChips int `hcl:"starting_chips,optional"`
	MaxPlayers    int `hcl:"max_players,optional"`
	MinBet        int `hcl:"min_bet,optional"`
}

// configFile mirrors the HCL layout. Every block is optional and unknown
// settings are rejected by the decoder.
type configFile struct {
	Server *ServerSettings `hcl:"server,block"`
	Store  *StoreSettings  `hcl:"store,block"`
	Rules  *RulesSettings  `hcl:"rules,block"`
}

// DefaultConfig returns default server configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerSettings{
			Host:     DefaultHost,
			Port:     DefaultPort,
			LogLevel: DefaultLogLevel,
		},
		Rules: RulesSettings{
			StartingChips: room.DefaultStartingChips,
			MaxPlayers:    room.DefaultMaxPlayers,
			MinBet:        room.DefaultMinBet,
		},
	}
}

// LoadConfig loads configuration from an HCL file. An empty filename yields
// the defaults.
func LoadConfig(filename string) (*Config, error) {
	if filename == "" {
		return DefaultConfig(), nil
	}

	src, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return ParseConfig(src, filename)
}

// ParseConfig decodes HCL source. Settings absent from src keep their
// defaults.
func ParseConfig(src []byte, filename string) (*Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var raw configFile
	diags = gohcl.DecodeBody(file.Body, nil, &raw)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	config := DefaultConfig()
	if s := raw.Server; s != nil {
		if s.Host != "" {
			config.Server.Host = s.Host
		}
		if s.Port != 0 {
			config.Server.Port = s.Port
		}
		if s.LogLevel != "" {
			config.Server.LogLevel = s.LogLevel
		}
	}
	if s := raw.Store; s != nil {
		config.Store = *s
	}
	if r := raw.Rules; r != nil {
		if r.StartingChips != 0 {
			config.Rules.StartingChips = r.StartingChips
		}
		if r.MaxPlayers != 0 {
			config.Rules.MaxPlayers = r.MaxPlayers
		}
		if r.MinBet != 0 {
			config.Rules.MinBet = r.MinBet
		}
	}

	return config, nil
}

// Validate validates the server configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}

	switch c.Server.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Server.LogLevel)
	}

	if _, err := c.StoreTTL(); err != nil {
		return err
	}

	if c.Rules.StartingChips <= 0 {
		return fmt.Errorf("starting chips must be positive")
	}
	if c.Rules.MaxPlayers < 1 {
		return fmt.Errorf("max players must be at least 1")
	}
	if c.Rules.MinBet < 0 {
		return fmt.Errorf("min bet must not be negative")
	}

	return nil
}

// Addr returns the listen address
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// StoreTTL parses the store expiry. Empty means rooms never expire.
func (c *Config) StoreTTL() (time.Duration, error) {
	if c.Store.TTL == "" {
		return 0, nil
	}
	ttl, err := time.ParseDuration(c.Store.TTL)
	if err != nil {
		return 0, fmt.Errorf("invalid store ttl %q: %w", c.Store.TTL, err)
	}
	if ttl < 0 {
		return 0, fmt.Errorf("store ttl must not be negative")
	}
	return ttl, nil
}

// EngineRules converts the rules block for the engine
func (c *Config) EngineRules() engine.Rules {
	return engine.Rules{
		StartingChips: c.Rules.StartingChips,
		MaxPlayers:    c.Rules.MaxPlayers,
		MinBet:        c.Rules.MinBet,
	}
}
