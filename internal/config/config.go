package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	BotToken string `envconfig:"BOT_TOKEN" required:"true"`
	DBPath   string `envconfig:"DB_PATH" default:"./data/lawyer-bot.db"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"` // debug|info|warn|error
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`

	// SweepInterval drives the reminder sweep; ExpirySweepInterval the
	// bulk expiry safety net.
	SweepInterval       time.Duration `envconfig:"SWEEP_INTERVAL" default:"1h"`
	ExpirySweepInterval time.Duration `envconfig:"EXPIRY_SWEEP_INTERVAL" default:"24h"`

	// RateLimitPerMinute caps inbound Telegram updates per chat.
	RateLimitPerMinute int `envconfig:"RATE_LIMIT_PER_MINUTE" default:"30"`
}

// Load reads environment variables into Config.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
