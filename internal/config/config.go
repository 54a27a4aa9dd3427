package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Port     int    `envconfig:"BTCCONNECT_PORT" default:"8080"`
	LogLevel string `envconfig:"BTCCONNECT_LOG_LEVEL" default:"info"`
	LogDir   string `envconfig:"BTCCONNECT_LOG_DIR" default:"./logs"`
	DBPath   string `envconfig:"BTCCONNECT_DB_PATH" default:"./data/btcconnect.sqlite"`
	Network  string `envconfig:"BTCCONNECT_NETWORK" default:"livenet"`

	InscriptionPageSize int `envconfig:"BTCCONNECT_INSCRIPTION_PAGE_SIZE" default:"20"`
	MaxInscriptionPages int `envconfig:"BTCCONNECT_MAX_INSCRIPTION_PAGES" default:"100"`

	PromptRateLimit int `envconfig:"BTCCONNECT_PROMPT_RATE_LIMIT" default:"2"`
	PromptRateBurst int `envconfig:"BTCCONNECT_PROMPT_RATE_BURST" default:"4"`

	// RelayOrigins lists extra origins allowed to open the wallet bridge socket.
	RelayOrigins []string `envconfig:"BTCCONNECT_RELAY_ORIGINS"`
}

// Load reads configuration from .env file (if present) then from environment variables.
// Environment variables override .env values.
func Load() (*Config, error) {
	envFiles := []string{".env"}
	for _, f := range envFiles {
		if _, err := os.Stat(f); err == nil {
			if err := godotenv.Load(f); err != nil {
				slog.Warn("failed to load .env file", "file", f, "error", err)
			} else {
				slog.Info("loaded .env file", "file", f)
			}
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks configuration values for correctness.
func (c *Config) Validate() error {
	switch c.Network {
	case "livenet", "testnet", "signet":
	default:
		return fmt.Errorf("%w: network must be \"livenet\", \"testnet\" or \"signet\", got %q", ErrInvalidConfig, c.Network)
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%w: port must be 1-65535, got %d", ErrInvalidConfig, c.Port)
	}
	if c.InscriptionPageSize < 1 {
		return fmt.Errorf("%w: inscription page size must be positive, got %d", ErrInvalidConfig, c.InscriptionPageSize)
	}
	if c.MaxInscriptionPages < 1 {
		return fmt.Errorf("%w: max inscription pages must be positive, got %d", ErrInvalidConfig, c.MaxInscriptionPages)
	}
	if c.PromptRateLimit < 1 || c.PromptRateBurst < 1 {
		return fmt.Errorf("%w: prompt rate limit and burst must be positive", ErrInvalidConfig)
	}
	for _, o := range c.RelayOrigins {
		if !strings.HasPrefix(o, "http://") && !strings.HasPrefix(o, "https://") {
			return fmt.Errorf("%w: relay origin %q must be an http(s) URL", ErrInvalidConfig, o)
		}
	}
	return nil
}
