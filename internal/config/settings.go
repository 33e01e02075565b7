// Package config loads orchestrator configuration from layered YAML files
// and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the application configuration.
type Config struct {
	Environment string            `mapstructure:"environment"`
	Concurrency ConcurrencyConfig `mapstructure:"concurrency"`
	Storage     StorageConfig     `mapstructure:"storage"`
	API         APIConfig         `mapstructure:"api"`
	Log         LogConfig         `mapstructure:"log"`
}

// ConcurrencyConfig holds worker pool sizing.
type ConcurrencyConfig struct {
	MaxWorkers int `mapstructure:"max_workers"`
}

// StorageConfig holds persistence settings.
type StorageConfig struct {
	Database DatabaseConfig `mapstructure:"database"`
}

// DatabaseConfig holds SQLite database settings.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// APIConfig holds HTTP control-surface settings.
type APIConfig struct {
	Port int `mapstructure:"port"`
}

// LogConfig holds structured-log output settings.
type LogConfig struct {
	Dir string `mapstructure:"dir"`
}

// Load reads configuration from YAML files and environment variables.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (e.g., THORUST_STORAGE_DATABASE_PATH)
//  2. Environment-specific YAML (e.g., config.dev.yaml)
//  3. Base YAML (config.yaml)
//
// Args:
//
//	configPath: Path to base config file (e.g., "./config/config.yaml")
//
// Returns:
//
//	*Config: Loaded configuration
//	error: Any error encountered during loading
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath == "" {
		configPath = filepath.Join("config", "config.yaml")
	}

	v.SetConfigFile(configPath)

	v.SetDefault("environment", "development")
	v.SetDefault("concurrency.max_workers", 10)
	v.SetDefault("storage.database.path", "./data/thorust.db")
	v.SetDefault("api.port", 8080)
	v.SetDefault("log.dir", "./logs")

	if err := v.ReadInConfig(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	configDir := filepath.Dir(configPath)
	configExt := filepath.Ext(configPath)
	configBase := strings.TrimSuffix(filepath.Base(configPath), configExt)

	env := os.Getenv("THORUST_ENV")
	if env == "" {
		env = v.GetString("environment")
	}
	if env == "" {
		env = "development"
	}

	envConfigPath := filepath.Join(configDir, fmt.Sprintf("%s.%s%s", configBase, env, configExt))
	if _, err := os.Stat(envConfigPath); err == nil {
		v.SetConfigFile(envConfigPath)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("failed to merge environment config: %w", err)
		}
	}

	v.SetEnvPrefix("THORUST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Explicitly bind environment variables for nested config fields.
	// AutomaticEnv only works for keys Viper already knows about.
	v.BindEnv("concurrency.max_workers", "THORUST_CONCURRENCY_MAX_WORKERS")
	v.BindEnv("storage.database.path", "THORUST_STORAGE_DATABASE_PATH")
	v.BindEnv("api.port", "THORUST_API_PORT")
	v.BindEnv("log.dir", "THORUST_LOG_DIR")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// validate checks required configuration fields.
func validate(cfg *Config) error {
	if cfg.Concurrency.MaxWorkers <= 0 {
		return fmt.Errorf("concurrency.max_workers must be greater than 0")
	}
	if cfg.Storage.Database.Path == "" {
		return fmt.Errorf("storage.database.path is required")
	}
	if cfg.API.Port <= 0 {
		return fmt.Errorf("api.port must be greater than 0")
	}
	return nil
}
