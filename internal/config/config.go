// Package config содержит логику чтения конфигурации сервиса магазина.
package config

import (
	"flag"
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config содержит параметры конфигурации сервиса магазина.
type Config struct {
	RunAddress    string `env:"RUN_ADDRESS"`
	DatabaseURI   string `env:"DATABASE_URI"`
	SearchAddress string `env:"SEARCH_ADDRESS"`
	SearchIndex   string `env:"SEARCH_INDEX"`
	AuthSecret    string `env:"AUTH_SECRET"`
	OwnerEmail    string `env:"OWNER_EMAIL"`
	PageSize      int    `env:"PAGE_SIZE"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Значения переменных окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envSearchAddress := cfg.SearchAddress

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.SearchAddress, "s", "", "product search service address")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envSearchAddress != "" {
		cfg.SearchAddress = envSearchAddress
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}
	if cfg.SearchIndex == "" {
		cfg.SearchIndex = "products"
	}
	if cfg.AuthSecret == "" {
		cfg.AuthSecret = "storefront-secret"
	}
	if cfg.OwnerEmail == "" {
		cfg.OwnerEmail = "orders@luckybeepress.com"
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 16
	}

	return cfg, nil
}
