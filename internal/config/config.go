// Package config loads the service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

// Config holds every setting of the app and scrape commands.
type Config struct {
	DatabaseURL string `envconfig:"DATABASE_URL"`
	Port        int    `envconfig:"PORT" default:"8080" validate:"min=1,max=65535"`
	Env         string `envconfig:"APP_ENV" default:"development" validate:"oneof=development test staging production"`

	ETFs        []string `envconfig:"ETFS" default:"btc,eth" validate:"min=1,dive,required"`
	CatalogFile string   `envconfig:"CATALOG_FILE"`

	ProxyURL     string        `envconfig:"PROXY_URL" validate:"omitempty,url"`
	UserAgent    string        `envconfig:"USER_AGENT" default:"Mozilla/5.0 (compatible; etf-flows/1.0)"`
	FetchRate    float64       `envconfig:"FETCH_RATE" default:"1" validate:"gte=0"`
	FetchTimeout time.Duration `envconfig:"FETCH_TIMEOUT" default:"30s" validate:"gt=0"`

	RunTimeout     time.Duration `envconfig:"RUN_TIMEOUT" default:"2m" validate:"gt=0"`
	BackfillWindow int           `envconfig:"BACKFILL_WINDOW" default:"1" validate:"min=1"`
	ScrapeInterval time.Duration `envconfig:"SCRAPE_INTERVAL" default:"0s" validate:"gte=0"`

	TelegramBotToken  string `envconfig:"TELEGRAM_BOT_TOKEN"`
	TelegramChannelID string `envconfig:"TELEGRAM_CHANNEL_ID"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=trace debug info warn error"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"console" validate:"oneof=console json"`
}

// ErrNoDatabase is returned by RequireDatabase when DATABASE_URL is unset.
var ErrNoDatabase = errors.New("DATABASE_URL environment variable is required")

var validate = validator.New()

// Load reads an optional .env file and then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, using environment variables")
	}
	return FromEnv()
}

// FromEnv decodes and validates the process environment.
func FromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	for i, id := range cfg.ETFs {
		cfg.ETFs[i] = strings.ToLower(strings.TrimSpace(id))
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

// Production reports whether the service runs in the live deployment.
func (c *Config) Production() bool { return c.Env == "production" }

// TelegramEnabled reports whether both Telegram credentials are set.
func (c *Config) TelegramEnabled() bool {
	return c.TelegramBotToken != "" && c.TelegramChannelID != ""
}

// RequireDatabase fails when no database URL is configured.
func (c *Config) RequireDatabase() error {
	if c.DatabaseURL == "" {
		return ErrNoDatabase
	}
	return nil
}

// Addr is the listen address of the HTTP server.
func (c *Config) Addr() string { return fmt.Sprintf(":%d", c.Port) }
