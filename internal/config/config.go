// Package config provides configuration management for the collection service.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Source    SourceConfig    `mapstructure:"source"`
	Webhook   WebhookConfig   `mapstructure:"webhook"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Log       LogConfig       `mapstructure:"log"`
}

// SourceConfig holds upstream quote and shop-price source settings.
type SourceConfig struct {
	QuoteURL string `mapstructure:"quote_url"`
	ShopURL  string `mapstructure:"shop_url"`
}

// WebhookConfig holds the outbound notification endpoint.
type WebhookConfig struct {
	URL string `mapstructure:"url"`
}

// SchedulerConfig holds the job scheduler settings.
type SchedulerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	RetentionDays int  `mapstructure:"retention_days"`
}

// ServerConfig holds the HTTP API settings.
type ServerConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
}

// DatabaseConfig holds the SQLite settings.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level   string `mapstructure:"level"`
	Console bool   `mapstructure:"console"`
	File    bool   `mapstructure:"file"`
	Path    string `mapstructure:"path"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/goldwatch"
	}
	return filepath.Join(home, ".config", "goldwatch")
}

// Load loads configuration from the specified directory, layering an
// optional config.toml under environment variables. If configDir is empty,
// uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config.toml: %w", err)
		}
	}

	bindEnv(v)

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("source.quote_url", "https://www.huilvbiao.com/api/gold_indexApi")
	v.SetDefault("source.shop_url", "https://www.huilvbiao.com/gold/p")
	v.SetDefault("webhook.url", "")
	v.SetDefault("scheduler.enabled", false)
	v.SetDefault("scheduler.retention_days", 35)
	v.SetDefault("server.listen_addr", ":8080")
	v.SetDefault("database.path", filepath.Join(DefaultConfigDir(), "goldwatch.db"))
	v.SetDefault("log.level", "info")
	v.SetDefault("log.console", true)
	v.SetDefault("log.file", true)
	v.SetDefault("log.path", filepath.Join(DefaultConfigDir(), "logs", "goldwatch.log"))
}

// bindEnv wires the deployment environment variables onto config keys.
func bindEnv(v *viper.Viper) {
	v.BindEnv("source.quote_url", "GOLD_API_URL")
	v.BindEnv("source.shop_url", "GOLD_SHOP_URL")
	v.BindEnv("webhook.url", "WEBHOOK_URL")
	v.BindEnv("scheduler.enabled", "ENABLE_SCHEDULER")
	v.BindEnv("scheduler.retention_days", "DATA_RETENTION_DAYS")
	v.BindEnv("server.listen_addr", "LISTEN_ADDR")
	v.BindEnv("database.path", "DB_PATH")
	v.BindEnv("log.level", "LOG_LEVEL")
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.Source.QuoteURL == "" {
		return fmt.Errorf("source.quote_url must not be empty")
	}
	if c.Source.ShopURL == "" {
		return fmt.Errorf("source.shop_url must not be empty")
	}
	if c.Scheduler.RetentionDays < 1 {
		return fmt.Errorf("scheduler.retention_days must be at least 1, got %d", c.Scheduler.RetentionDays)
	}
	return nil
}
