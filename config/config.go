// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds everything the service needs to start.
type Config struct {
	Addr       string `env:"ADDR" envDefault:":9000"`
	RedisURL   string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	SQLitePath string `env:"SQLITE_PATH" envDefault:"snipvault.db"`

	RPID          string   `env:"RP_ID" envDefault:"localhost"`
	RPDisplayName string   `env:"RP_DISPLAY_NAME" envDefault:"snipvault"`
	RPOrigins     []string `env:"RP_ORIGINS" envDefault:"http://localhost:9000"`

	ChallengeTTL  time.Duration `env:"CHALLENGE_TTL" envDefault:"5m"`
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	RenewInterval time.Duration `env:"RENEW_INTERVAL" envDefault:"6h"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load parses the configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}
