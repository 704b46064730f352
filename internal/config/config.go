// Package config содержит логику чтения конфигурации сервиса аналитики продаж.
package config

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// ErrNoSnapshotSource возвращается, если не задан ни DATABASE_URI, ни DATA_DIR.
var ErrNoSnapshotSource = errors.New("snapshot source is not configured")

// Config содержит параметры конфигурации сервиса аналитики продаж.
type Config struct {
	RunAddress      string        `env:"RUN_ADDRESS"`
	DatabaseURI     string        `env:"DATABASE_URI"`
	DataDir         string        `env:"DATA_DIR"`
	RefreshInterval time.Duration `env:"REFRESH_INTERVAL"`
	APIKey          string        `env:"API_KEY"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envDataDir := cfg.DataDir
	envRefreshInterval := cfg.RefreshInterval
	envAPIKey := cfg.APIKey

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.DataDir, "f", "", "directory with CSV snapshot files")
	flag.DurationVar(&cfg.RefreshInterval, "i", 0, "snapshot refresh interval, 0 disables refresh")
	flag.StringVar(&cfg.APIKey, "k", "", "API key for administrative routes")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envDataDir != "" {
		cfg.DataDir = envDataDir
	}
	if envRefreshInterval != 0 {
		cfg.RefreshInterval = envRefreshInterval
	}
	if envAPIKey != "" {
		cfg.APIKey = envAPIKey
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}

	return cfg, nil
}

// Validate проверяет, что задан хотя бы один источник снимка.
func (c *Config) Validate() error {
	if c.DatabaseURI == "" && c.DataDir == "" {
		return ErrNoSnapshotSource
	}
	if c.RefreshInterval < 0 {
		return fmt.Errorf("refresh interval %s must not be negative", c.RefreshInterval)
	}
	return nil
}
