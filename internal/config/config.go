// Package config loads the controller's startup configuration from the
// environment. A missing bot token or owner id is fatal: the process
// refuses to start without them.
package config

import (
	"errors"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for the controller.
type Config struct {
	// BotToken is the platform access token. Required.
	BotToken string `envconfig:"BOT_TOKEN" required:"true"`

	// OwnerID is the distinguished owner identity. It always resolves to
	// the Owner role and can never be demoted. Required.
	OwnerID int64 `envconfig:"OWNER_ID" required:"true"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"console"`

	// DBPath is the bbolt database holding admins, bans and mutes.
	DBPath string `envconfig:"SENTINEL_DB_PATH" default:"sentinel.db"`

	// AuditDBPath is the SQLite database holding the audit trail.
	AuditDBPath string `envconfig:"SENTINEL_AUDIT_DB_PATH" default:"sentinel-audit.db"`

	// APIBaseURL overrides the Bot API endpoint. Useful for tests and
	// self-hosted API servers.
	APIBaseURL string `envconfig:"API_BASE_URL" default:"https://api.telegram.org"`

	// PollTimeout is the getUpdates long-poll window in seconds.
	PollTimeout int `envconfig:"POLL_TIMEOUT" default:"30"`

	// MuteScanInterval is how often the expiry scheduler scans.
	MuteScanInterval time.Duration `envconfig:"MUTE_SCAN_INTERVAL" default:"10s"`

	// MuteScanRetryInterval is the shortened interval after a failed scan.
	MuteScanRetryInterval time.Duration `envconfig:"MUTE_SCAN_RETRY_INTERVAL" default:"5s"`

	// MetricsAddr is the Prometheus listener address. Empty disables it.
	MetricsAddr string `envconfig:"METRICS_ADDR" default:":2112"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.BotToken == "" {
		return nil, errors.New("bot token must be provided")
	}
	if cfg.OwnerID == 0 {
		return nil, errors.New("owner id must be provided")
	}
	return &cfg, nil
}
