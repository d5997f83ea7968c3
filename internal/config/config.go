package config

import (
	"fmt"
	"slices"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	DefaultAuditRetentionDays = 14
	DefaultLogLevel           = "info"
)

// RetentionDays lists the retention periods CloudWatch Logs accepts.
var RetentionDays = []int32{
	1, 3, 5, 7, 14, 30, 60, 90, 120, 150, 180, 365, 400, 545,
	731, 1096, 1827, 2192, 2557, 2922, 3288, 3653,
}

// Config holds everything one invocation needs. The mail credentials and the
// inbox are passed through as found in the environment; checking them is left
// to the mail client.
type Config struct {
	// Mail
	Inbox        string `env:"INBOX"`
	ClientID     string `env:"MS_CLIENT_ID"`
	ClientSecret string `env:"MS_CLIENT_SECRET"`
	TenantID     string `env:"MS_TENANT_ID"`

	// Zero values leave the mail client defaults in place
	GraphBaseURL                string `env:"GRAPH_BASE_URL"`
	SubscriptionLifetimeMinutes int    `env:"SUBSCRIPTION_LIFETIME_MINUTES"`

	// Audit (CloudWatch Logs); empty group disables it
	AuditLogGroup      string `env:"AUDIT_LOG_GROUP"`
	AuditRetentionDays int32  `env:"AUDIT_LOG_RETENTION_DAYS" envDefault:"14"`
	Region             string `env:"AWS_REGION"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// AuditEnabled reports whether renewal results should be written to CloudWatch Logs.
func (c Config) AuditEnabled() bool {
	return c.AuditLogGroup != ""
}

// SubscriptionLifetime is how far past "now" renewed subscriptions expire;
// zero means the mail client default.
func (c Config) SubscriptionLifetime() time.Duration {
	return time.Duration(c.SubscriptionLifetimeMinutes) * time.Minute
}

// Load reads the configuration from environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parsing environment: %w", err)
	}

	if cfg.SubscriptionLifetimeMinutes < 0 {
		return cfg, fmt.Errorf("invalid SUBSCRIPTION_LIFETIME_MINUTES %d: must be positive", cfg.SubscriptionLifetimeMinutes)
	}
	if !slices.Contains(RetentionDays, cfg.AuditRetentionDays) {
		return cfg, fmt.Errorf("invalid AUDIT_LOG_RETENTION_DAYS %d: not a CloudWatch Logs retention period", cfg.AuditRetentionDays)
	}

	return cfg, nil
}
