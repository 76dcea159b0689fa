// Package config loads tiebreaker settings from defaults, an optional
// tiebreaker.yaml, TIEBREAKER_* environment variables and bound flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/pable/tiebreaker/internal/model"
)

// ErrInvalid wraps validation failures.
var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	// Feature engine
	LookbackMatches int `mapstructure:"lookback_matches"`
	MinMatches      int `mapstructure:"min_matches"`
	Workers         int `mapstructure:"workers"`

	// Data
	DataRoot string `mapstructure:"data_root"`
	DB       string `mapstructure:"db"`

	// Logging
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"` // "text" or "json"
}

// New returns a viper instance with defaults and environment binding set
// up. Callers bind flags onto it before calling Load.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault("lookback_matches", 20)
	v.SetDefault("min_matches", 10)
	v.SetDefault("workers", 0)
	v.SetDefault("data_root", "data")
	v.SetDefault("db", filepath.Join(userHome(), ".tiebreaker", "tiebreaker.db"))
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")

	v.SetEnvPrefix("TIEBREAKER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the config file (an explicit path, or tiebreaker.yaml in the
// working directory or ~/.tiebreaker when path is empty) and decodes the
// merged settings.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("tiebreaker")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(filepath.Join(userHome(), ".tiebreaker"))
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Engine returns the feature engine settings.
func (c *Config) Engine() model.Config {
	return model.Config{LookbackMatches: c.LookbackMatches, MinMatches: c.MinMatches}
}

// Validate checks the engine window and the logging format.
func (c *Config) Validate() error {
	if err := c.Engine().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must not be negative, got %d", ErrInvalid, c.Workers)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log_format must be text or json, got %q", ErrInvalid, c.LogFormat)
	}
	return nil
}

func userHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
