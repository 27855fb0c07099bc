// Package config содержит логику чтения конфигурации сервиса расчёта стоимости.
package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config содержит параметры конфигурации сервиса расчёта стоимости.
// Адрес, строка подключения и секрет задаются флагами или переменными
// окружения, окружение имеет приоритет; остальные параметры — только
// переменными окружения.
type Config struct {
	RunAddress  string `env:"RUN_ADDRESS"`
	DatabaseURI string `env:"DATABASE_URI"`
	AuthSecret  string `env:"AUTH_SECRET"`

	CacheTTL       time.Duration `env:"CACHE_TTL" envDefault:"5m"`
	WarmupDays     int           `env:"WARMUP_DAYS" envDefault:"14"`
	WarmupInterval time.Duration `env:"WARMUP_INTERVAL" envDefault:"30m"`
	MaxConcurrent  int64         `env:"MAX_CONCURRENT" envDefault:"8"`
	QueueTimeout   time.Duration `env:"QUEUE_TIMEOUT" envDefault:"10s"`
	BatchLimit     int           `env:"BATCH_LIMIT" envDefault:"10"`
	RateLimitRPS   float64       `env:"RATE_LIMIT_RPS" envDefault:"10"`
	RateLimitBurst int           `env:"RATE_LIMIT_BURST" envDefault:"20"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envAuthSecret := cfg.AuthSecret

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.AuthSecret, "s", "", "secret key for auth cookies")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envAuthSecret != "" {
		cfg.AuthSecret = envAuthSecret
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}

	return cfg, nil
}
