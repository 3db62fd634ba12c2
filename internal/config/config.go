package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all configuration values for the bot
type Config struct {
	// Discord
	DiscordToken         string `env:"DISCORD_BOT_TOKEN"`
	DiscordApplicationID string `env:"DISCORD_APPLICATION_ID"`

	// Riot API
	RiotAPIKey   string `env:"RIOT_API_KEY"`
	RiotPlatform string `env:"RIOT_PLATFORM" envDefault:"euw1"`
	RiotRegion   string `env:"RIOT_REGION" envDefault:"europe"`

	// Storage
	DatabasePath string `env:"DATABASE_PATH" envDefault:"./data/bot.db"`
	RedisURL     string `env:"REDIS_URL"`

	// Observability
	MetricsAddr string `env:"METRICS_ADDR" envDefault:":9090"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat   string `env:"LOG_FORMAT" envDefault:"console"`

	// Per-game classification rules
	GameRulesPath string `env:"GAME_RULES_PATH" envDefault:"./config/games.yaml"`

	Monitor MonitorConfig
}

// MonitorConfig holds the timing of the game session monitor.
type MonitorConfig struct {
	// PollInterval is the pause between two polls while armed or in game.
	PollInterval time.Duration `env:"POLL_INTERVAL" envDefault:"10s"`

	// ArmDelay is waited once before the first poll of a session so that a
	// burst of voice joins does not cost provider calls.
	ArmDelay time.Duration `env:"ARM_DELAY" envDefault:"5s"`

	// LookupSpacing is inserted between consecutive provider calls of a poll.
	LookupSpacing time.Duration `env:"LOOKUP_SPACING" envDefault:"500ms"`

	// FinalizeAttempts is the number of match detail fetches made before a
	// finished match is given up as missing.
	FinalizeAttempts int `env:"FINALIZE_ATTEMPTS" envDefault:"5"`

	// FinalizeDelays are waited between fetch attempts; the last one repeats.
	FinalizeDelays []time.Duration `env:"FINALIZE_DELAYS" envSeparator:"," envDefault:"30s,40s,50s,60s"`

	// DispatchRetryInterval is waited before handing a match to a consumer
	// that failed again.
	DispatchRetryInterval time.Duration `env:"DISPATCH_RETRY_INTERVAL" envDefault:"1m"`
}

// Validate checks the timing values.
func (m MonitorConfig) Validate() error {
	if m.PollInterval <= 0 {
		return errors.New("POLL_INTERVAL must be positive")
	}
	if m.ArmDelay < 0 || m.LookupSpacing < 0 {
		return errors.New("ARM_DELAY and LOOKUP_SPACING cannot be negative")
	}
	if m.FinalizeAttempts < 1 {
		return errors.New("FINALIZE_ATTEMPTS must be at least 1")
	}
	if m.DispatchRetryInterval <= 0 {
		return errors.New("DISPATCH_RETRY_INTERVAL must be positive")
	}
	return nil
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	// Validate required fields
	if cfg.DiscordToken == "" {
		return nil, fmt.Errorf("DISCORD_BOT_TOKEN is required")
	}
	if cfg.RiotAPIKey == "" {
		return nil, fmt.Errorf("RIOT_API_KEY is required")
	}
	if err := cfg.Monitor.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
