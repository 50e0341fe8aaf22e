// Package config provides runtime configuration for the ledger server.
// Settings come from an optional YAML file with ${VAR} expansion,
// overridden by well-known environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tixmarket/ledger/internal/ledger"
)

// Config is the root configuration for a server instance.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	Marketplace MarketplaceConfig `yaml:"marketplace"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig holds the PostgreSQL connection. An empty URL selects
// the in-memory ledger instead.
type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// MarketplaceConfig holds the ledger policy knobs.
type MarketplaceConfig struct {
	// RoyaltyBps is the resale royalty directed to the organizer,
	// in basis points. 500 means 5%.
	RoyaltyBps uint64 `yaml:"royalty_bps"`
}

// Load reads the YAML file at path (skipped when path is empty),
// expands ${VAR} references, applies environment overrides and
// defaults, and validates the result.
func Load(path string) (*Config, error) {
	cfg := &Config{Marketplace: MarketplaceConfig{RoyaltyBps: ledger.DefaultRoyaltyBps}}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parse config yaml: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

const (
	defaultAddr            = ":8080"
	defaultReadTimeout     = 15 * time.Second
	defaultWriteTimeout    = 15 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultMaxConns        = 20
	defaultMinConns        = 2
)

func (c *Config) applyEnv() error {
	if port := os.Getenv("PORT"); port != "" {
		c.Server.Addr = ":" + port
	}
	if url := os.Getenv("DATABASE_URL"); url != "" {
		c.Database.URL = url
	}
	if bps := os.Getenv("ROYALTY_BPS"); bps != "" {
		n, err := strconv.ParseUint(bps, 10, 64)
		if err != nil {
			return fmt.Errorf("parse ROYALTY_BPS %q: %w", bps, err)
		}
		c.Marketplace.RoyaltyBps = n
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = defaultAddr
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = defaultReadTimeout
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = defaultWriteTimeout
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = defaultIdleTimeout
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = defaultShutdownTimeout
	}
	if c.Database.MaxConns == 0 {
		c.Database.MaxConns = defaultMaxConns
	}
	if c.Database.MinConns == 0 {
		c.Database.MinConns = defaultMinConns
	}
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	if err := (ledger.RoyaltyPolicy{RateBps: c.Marketplace.RoyaltyBps}).Validate(); err != nil {
		return fmt.Errorf("marketplace.royalty_bps: %w", err)
	}
	if c.Database.MinConns > c.Database.MaxConns {
		return fmt.Errorf("database.min_conns %d exceeds max_conns %d", c.Database.MinConns, c.Database.MaxConns)
	}
	return nil
}
