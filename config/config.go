// Package config loads the optional TOML configuration file covering
// cache and logging settings. Nothing in this package is required to
// use resolver.Resolver directly; it exists for callers that prefer a
// config file over constructing resolver.Options by hand.
package config

import (
	"github.com/BurntSushi/toml"
	"github.com/go-kit/log"
	"github.com/pkg/errors"

	"symresolve/cache"
	"symresolve/internal/logging"
	"symresolve/resolver"
)

// CacheConfig configures the disk module cache.
type CacheConfig struct {
	Directory string `toml:"directory"`
	Enabled   bool   `toml:"enabled"`
}

// LogConfig configures the logging collaborator's minimum level.
type LogConfig struct {
	Level string `toml:"level"` // debug|info|warn|error
}

// Config is the root of the TOML configuration file.
type Config struct {
	Cache CacheConfig `toml:"cache"`
	Log   LogConfig   `toml:"log"`
}

// Default returns a Config with caching disabled and info-level
// logging, the same defaults Load fills in for absent sections.
func Default() *Config {
	return &Config{
		Cache: CacheConfig{Directory: "", Enabled: false},
		Log:   LogConfig{Level: "info"},
	}
}

// Load reads and decodes the TOML file at path, filling in defaults
// for any section the file omits.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, errors.Wrapf(err, "loading config %s", path)
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	return cfg, nil
}

// Options builds resolver.Options from c, wrapping baseLogger as the
// resolver's diagnostic sink. A nil baseLogger behaves like
// log.NewNopLogger(); c.Log.Level is informational only here — callers
// that want level filtering apply it to baseLogger before calling
// Options, matching the pattern grafana-pyroscope wires level filters
// at logger construction rather than per-collaborator.
func (c *Config) Options(baseLogger log.Logger) resolver.Options {
	var opts resolver.Options
	if c.Cache.Enabled && c.Cache.Directory != "" {
		opts.Cache = cache.NewDiskModuleCache(c.Cache.Directory)
	}
	opts.Logger = logging.New(baseLogger)
	return opts
}
