package config

import (
	"fmt"
	"time"
	_ "time/tzdata"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

type Config struct {
	RiotAPIKey    string        `env:"RIOT_API_KEY"`
	DefaultRegion string        `env:"DEFAULT_REGION" envDefault:"euw1"`
	DBPath        string        `env:"DB_PATH" envDefault:"lol-tracker.db"`
	ServerPort    string        `env:"SERVER_PORT" envDefault:"8080"`
	LogLevel      string        `env:"LOG_LEVEL" envDefault:"info"`
	PollInterval  time.Duration `env:"POLL_INTERVAL" envDefault:"45s"`
	PollWorkers   int           `env:"POLL_WORKERS" envDefault:"4"`
	WebhookURL    string        `env:"DISCORD_WEBHOOK_URL"`
	DDragonLocale string        `env:"DDRAGON_LOCALE" envDefault:"en_US"`

	SummaryEnabled  bool   `env:"SUMMARY_ENABLED" envDefault:"true"`
	SummaryHour     int    `env:"SUMMARY_HOUR" envDefault:"9"`
	SummaryMinute   int    `env:"SUMMARY_MINUTE" envDefault:"0"`
	SummaryTimezone string `env:"SUMMARY_TIMEZONE" envDefault:"Europe/Paris"`

	// set by Load when .env was read
	dotenvLoaded bool
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := godotenv.Load(); err == nil {
		cfg.dotenvLoaded = true
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.RiotAPIKey == "" {
		return fmt.Errorf("RIOT_API_KEY is required")
	}
	if c.PollInterval < time.Second {
		return fmt.Errorf("POLL_INTERVAL must be at least 1s, got %s", c.PollInterval)
	}
	if c.PollWorkers < 1 {
		return fmt.Errorf("POLL_WORKERS must be positive, got %d", c.PollWorkers)
	}
	if c.SummaryHour < 0 || c.SummaryHour > 23 || c.SummaryMinute < 0 || c.SummaryMinute > 59 {
		return fmt.Errorf("invalid summary time %02d:%02d", c.SummaryHour, c.SummaryMinute)
	}
	if _, err := time.LoadLocation(c.SummaryTimezone); err != nil {
		return fmt.Errorf("invalid SUMMARY_TIMEZONE %q: %w", c.SummaryTimezone, err)
	}
	return nil
}

// Location returns the summary timezone. validate guarantees it loads.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.SummaryTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) Log(logger zerolog.Logger) {
	if !c.dotenvLoaded {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	logger.Info().
		Str("db_path", c.DBPath).
		Str("server_port", c.ServerPort).
		Str("log_level", c.LogLevel).
		Str("default_region", c.DefaultRegion).
		Dur("poll_interval", c.PollInterval).
		Int("poll_workers", c.PollWorkers).
		Bool("webhook_configured", c.WebhookURL != "").
		Bool("summary_enabled", c.SummaryEnabled).
		Msg("configuration loaded")
}

var Module = fx.Provide(Load)
