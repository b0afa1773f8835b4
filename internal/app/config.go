package app

import (
	"errors"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for the engine.
type Config struct {
	AppEnv          string        `envconfig:"APP_ENV" default:"development"`
	AppAddr         string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout  time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"15s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	RedisAddr string `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`

	// Upstream is the storefront API serving the transfer list and the
	// inventory sync endpoint.
	UpstreamBaseURL string        `envconfig:"UPSTREAM_BASE_URL" default:"http://localhost:3006"`
	UpstreamTimeout time.Duration `envconfig:"UPSTREAM_TIMEOUT" default:"30s"`
	APIKey          string        `envconfig:"API_KEY" default:"test_api_key"`

	SyncInterval time.Duration `envconfig:"SYNC_INTERVAL" default:"30s"`
	SyncEnabled  bool          `envconfig:"SYNC_ENABLED" default:"true"`

	NotificationTTL time.Duration `envconfig:"NOTIFICATION_TTL" default:"5s"`
	NotificationCap int           `envconfig:"NOTIFICATION_CAP" default:"10"`

	TransfersPerPage int `envconfig:"TRANSFERS_PER_PAGE" default:"20"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.UpstreamBaseURL == "" {
		return nil, errors.New("upstream base url must be provided")
	}
	return &cfg, nil
}

// IsProduction returns true when the engine runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}
