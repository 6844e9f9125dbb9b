// Package config holds memoryman configuration: defaults, yaml file
// loading, and the environment fallbacks the CLI recognizes.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/memteam/memoryman/internal/engine"
)

// Config holds all memoryman configuration.
type Config struct {
	Storage StorageConfig `yaml:"storage"`
	Buffer  BufferConfig  `yaml:"buffer"`
	Summary SummaryConfig `yaml:"summary"`
	Ranking RankingConfig `yaml:"ranking"`
	Server  ServerConfig  `yaml:"server"`
}

type StorageConfig struct {
	Path string `yaml:"path"` // empty = $MEMORYMAN_DB or ~/.memoryman/memory.db
}

type BufferConfig struct {
	Capacity int `yaml:"capacity"`
	HardCap  int `yaml:"hard_cap"`
}

type SummaryConfig struct {
	Interval int `yaml:"interval"`
}

type RankingConfig struct {
	MatchWeight   float64 `yaml:"match_weight"`
	RecencyWeight float64 `yaml:"recency_weight"`
	PinnedWeight  float64 `yaml:"pinned_weight"`
}

type ServerConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Buffer:  BufferConfig{Capacity: 10, HardCap: 50},
		Summary: SummaryConfig{Interval: 5},
		Ranking: RankingConfig{MatchWeight: 1.0, RecencyWeight: 0.5, PinnedWeight: 2.0},
		Server:  ServerConfig{Bind: "127.0.0.1", Port: 7411},
	}
}

// Load reads a yaml config file over the defaults. A missing path returns
// the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// DBPath resolves the database path: explicit config, then $MEMORYMAN_DB,
// then ~/.memoryman/memory.db.
func (c Config) DBPath() string {
	if c.Storage.Path != "" {
		return c.Storage.Path
	}
	if env := os.Getenv("MEMORYMAN_DB"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".memoryman", "memory.db")
}

// ListenAddr returns the bind:port address string.
func (c Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}

// EngineOptions maps the config onto engine options.
func (c Config) EngineOptions() engine.Options {
	return engine.Options{
		Path:            c.DBPath(),
		BufferCapacity:  c.Buffer.Capacity,
		BufferHardCap:   c.Buffer.HardCap,
		SummaryInterval: c.Summary.Interval,
		Weights: engine.Weights{
			Match:   c.Ranking.MatchWeight,
			Recency: c.Ranking.RecencyWeight,
			Pinned:  c.Ranking.PinnedWeight,
		},
	}
}
