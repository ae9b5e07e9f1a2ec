// Package config loads the orthofix configuration file.
//
// The file is TOML and lives at $XDG_CONFIG_HOME/orthofix/config.toml
// (~/.config/orthofix/config.toml by default):
//
//	[engine]
//	grid_size = 10.0
//	strategy_limit = 200
//	min_corners = false
//	parallelism = 1
//
//	[cache]
//	backend = "file"   # file | redis | none
//	dir = ""           # default: $XDG_CACHE_HOME/orthofix
//	ttl = "24h"
//	redis_addr = "localhost:6379"
//	redis_db = 0
//
//	[server]
//	addr = ":8080"
//	request_timeout = "30s"
//
// A missing default file yields [Default]. Command-line flags override
// whatever the file sets.
package config

import (
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/orthofix/pkg/errors"
	"github.com/matzehuels/orthofix/pkg/pipeline"
)

const appName = "orthofix"

// Cache backends.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendNone  = "none"
)

var validBackends = []string{BackendFile, BackendRedis, BackendNone}

// Config is the whole configuration file.
type Config struct {
	Engine Engine `toml:"engine"`
	Cache  Cache  `toml:"cache"`
	Server Server `toml:"server"`
}

// Engine holds repair defaults.
type Engine struct {
	GridSize      float64 `toml:"grid_size"`
	StrategyLimit int     `toml:"strategy_limit"`
	MinCorners    bool    `toml:"min_corners"`
	Parallelism   int     `toml:"parallelism"`
}

// Cache selects and configures the report cache.
type Cache struct {
	Backend       string   `toml:"backend"`
	Dir           string   `toml:"dir"`
	TTL           Duration `toml:"ttl"`
	RedisAddr     string   `toml:"redis_addr"`
	RedisPassword string   `toml:"redis_password"`
	RedisDB       int      `toml:"redis_db"`
	Prefix        string   `toml:"prefix"`
}

// Server configures `orthofix serve`.
type Server struct {
	Addr           string   `toml:"addr"`
	RequestTimeout Duration `toml:"request_timeout"`
	MaxBodyBytes   int64    `toml:"max_body_bytes"`
}

// Duration is a time.Duration written as a string ("24h", "90s").
type Duration struct {
	time.Duration
}

// UnmarshalText parses a Go duration string.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText formats the duration.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Engine: Engine{
			GridSize:      pipeline.DefaultGridSize,
			StrategyLimit: pipeline.DefaultStrategyLimit,
			Parallelism:   pipeline.DefaultParallelism,
		},
		Cache: Cache{
			Backend:   BackendFile,
			TTL:       Duration{pipeline.DefaultCacheTTL},
			RedisAddr: "localhost:6379",
			Prefix:    "orthofix:",
		},
		Server: Server{
			Addr:           ":8080",
			RequestTimeout: Duration{30 * time.Second},
			MaxBodyBytes:   8 << 20,
		},
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/orthofix/config.toml, falling back
// to ~/.config.
func DefaultPath() (string, error) {
	if home := os.Getenv("XDG_CONFIG_HOME"); home != "" {
		return filepath.Join(home, appName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName, "config.toml"), nil
}

// Load reads the file at path on top of [Default]. An empty path loads
// [DefaultPath] and tolerates its absence; an explicit path must exist.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return Default(), nil
		}
		path = p
	}

	cfg := Default()
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		if !explicit && stderrors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "config %s", path)
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse config %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, errors.New(errors.ErrCodeInvalidInput, "config %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if err := errors.ValidateGridSize(c.Engine.GridSize); err != nil {
		return err
	}
	if err := errors.ValidatePositive("strategy_limit", c.Engine.StrategyLimit, pipeline.MaxStrategyLimit); err != nil {
		return err
	}
	if err := errors.ValidatePositive("parallelism", c.Engine.Parallelism, pipeline.MaxParallelism); err != nil {
		return err
	}
	if !slices.Contains(validBackends, c.Cache.Backend) {
		return errors.New(errors.ErrCodeInvalidOptions, "invalid cache backend: %q (must be one of: %s)",
			c.Cache.Backend, strings.Join(validBackends, ", "))
	}
	if c.Cache.TTL.Duration < 0 {
		return errors.New(errors.ErrCodeInvalidOptions, "cache ttl cannot be negative")
	}
	if c.Server.RequestTimeout.Duration < 0 {
		return errors.New(errors.ErrCodeInvalidOptions, "request_timeout cannot be negative")
	}
	return nil
}

// PipelineOptions returns pipeline options seeded from the engine section.
func (c *Config) PipelineOptions() pipeline.Options {
	return pipeline.Options{
		GridSize:      c.Engine.GridSize,
		StrategyLimit: c.Engine.StrategyLimit,
		MinCorners:    c.Engine.MinCorners,
		Parallelism:   c.Engine.Parallelism,
		CacheTTL:      c.Cache.TTL.Duration,
	}
}

// Encode writes c as TOML.
func (c *Config) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}
