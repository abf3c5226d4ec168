// Package config loads the engine's YAML configuration and applies
// environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/narrative-engine/internal/schema"
)

// #region types

// Config is the on-disk configuration of a narrative engine deployment.
type Config struct {
	Seed           uint64   `yaml:"seed"`
	MaxDepth       int      `yaml:"max_depth" validate:"gte=0"`
	WindowCapacity int      `yaml:"window_capacity" validate:"gte=0"`
	Grammars       []string `yaml:"grammars"`
	Voices         []string `yaml:"voices"`
	Corpora        []Corpus `yaml:"corpora" validate:"dive"`
	DefaultVoice   *uint64  `yaml:"default_voice,omitempty"`

	DB          string `yaml:"db"`
	Addr        string `yaml:"addr"`
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`
}

// Corpus names a text file to train into a phrase model. When Cache is set
// the trained model is written there and reused on later runs.
type Corpus struct {
	ID    string `yaml:"id" validate:"required"`
	Path  string `yaml:"path" validate:"required"`
	Order int    `yaml:"order" validate:"gte=1"`
	Cache string `yaml:"cache,omitempty"`
}

// #endregion types

// #region defaults

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Seed:           1,
		WindowCapacity: 10,
		DB:             "narrative.db",
		Addr:           "localhost:50051",
		MetricsAddr:    ":9090",
		LogLevel:       "info",
	}
}

// #endregion defaults

// #region load

var validate = validator.New()

// Load reads path over the defaults, applies environment overrides and
// validates the result. A missing file yields the defaults. Relative content
// paths are resolved against the file's directory.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
		cfg.resolve(filepath.Dir(path))
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) resolve(dir string) {
	for i, p := range c.Grammars {
		c.Grammars[i] = joinRel(dir, p)
	}
	for i, p := range c.Voices {
		c.Voices[i] = joinRel(dir, p)
	}
	for i := range c.Corpora {
		c.Corpora[i].Path = joinRel(dir, c.Corpora[i].Path)
		if c.Corpora[i].Cache != "" {
			c.Corpora[i].Cache = joinRel(dir, c.Corpora[i].Cache)
		}
	}
}

func joinRel(dir, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("NARRATIVE_SEED"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("NARRATIVE_SEED: %w", err)
		}
		c.Seed = seed
	}
	c.DB = envOr("NARRATIVE_DB", c.DB)
	c.Addr = envOr("NARRATIVE_ADDR", c.Addr)
	c.MetricsAddr = envOr("NARRATIVE_METRICS_ADDR", c.MetricsAddr)
	c.LogLevel = envOr("NARRATIVE_LOG_LEVEL", c.LogLevel)
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion load

// DefaultVoiceID converts the configured default voice, if any.
func (c *Config) DefaultVoiceID() *schema.VoiceID {
	if c.DefaultVoice == nil {
		return nil
	}
	id := schema.VoiceID(*c.DefaultVoice)
	return &id
}
