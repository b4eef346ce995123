// Package config loads the archivelist configuration file.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// LogConfig controls the slog setup.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	MaxBackups int    `mapstructure:"max_backups"`
}

// ValidateConfig tunes the archive validator.
type ValidateConfig struct {
	MaxWorkers  int           `mapstructure:"max_workers"`
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
}

// Config is the root configuration.
type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	Validate ValidateConfig `mapstructure:"validate"`
}

func defaults() *Config {
	return &Config{
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  5,
			MaxAgeDays: 14,
			MaxBackups: 5,
		},
		Validate: ValidateConfig{
			MaxWorkers:  4,
			ReadTimeout: 30 * time.Second,
		},
	}
}

// LoadConfig reads configFile into a Config. A missing file yields the
// defaults; a malformed one is an error.
func LoadConfig(configFile string) (*Config, error) {
	cfg := defaults()
	if configFile == "" {
		return cfg, nil
	}
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		return cfg, nil
	}

	viper.SetConfigFile(configFile)
	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
	}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configFile, err)
	}
	return cfg, nil
}
