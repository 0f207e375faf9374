package config

import (
	"time"

	"github.com/ecomtrend/ecomtrend/internal/core/ratelimit"
)

// Config represents the complete application configuration. Values are
// resolved in three layers: built-in defaults, the optional config file,
// then ECOMTREND_* environment variables.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Store      StoreConfig      `mapstructure:"store"`
	Data       DataConfig       `mapstructure:"data"`
	RateLimit  ratelimit.Config `mapstructure:"rate_limit"`
	Affiliate  AffiliateConfig  `mapstructure:"affiliate"`
	Distribute DistributeConfig `mapstructure:"distribute"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Health     HealthConfig     `mapstructure:"health"`
	Debug      DebugConfig      `mapstructure:"debug"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// StoreConfig contains database configuration for libsql/Turso
type StoreConfig struct {
	Driver    string `mapstructure:"driver"`
	Path      string `mapstructure:"path"`
	URL       string `mapstructure:"url"`
	AuthToken string `mapstructure:"auth_token"`
}

// DataConfig locates the collected snapshot files and generated reports.
type DataConfig struct {
	// RawDir holds the products_*.csv snapshot files.
	RawDir string `mapstructure:"raw_dir"`

	// ReportsDir receives generated trend reports.
	ReportsDir string `mapstructure:"reports_dir"`

	// PlanOverrides optionally points at a YAML file redefining plan tiers.
	PlanOverrides string `mapstructure:"plan_overrides"`
}

// AffiliateConfig controls affiliate link rewriting.
type AffiliateConfig struct {
	// Tag is the associate tag appended to product URLs.
	Tag string `mapstructure:"tag"`
}

// DistributeConfig contains report distribution channel settings. A channel
// with an empty address/webhook is disabled.
type DistributeConfig struct {
	Email   EmailConfig   `mapstructure:"email"`
	Slack   WebhookConfig `mapstructure:"slack"`
	Discord WebhookConfig `mapstructure:"discord"`
}

// EmailConfig contains SMTP delivery settings.
type EmailConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

// WebhookConfig holds a single webhook endpoint.
type WebhookConfig struct {
	WebhookURL string `mapstructure:"webhook_url"`
}

// LoggingConfig contains logging configuration
// Supports progressive logging profiles:
// - SIMPLE: Console output only, minimal configuration (CLI tools)
// - STRUCTURED: Structured sinks, correlation IDs (API services)
// - ENTERPRISE: Multiple sinks, middleware, throttling, policy enforcement (production)
type LoggingConfig struct {
	// Level controls the minimum log level
	// Valid values: trace, debug, info, warn, error
	Level string `mapstructure:"level"`

	// Profile selects the logging complexity level
	// Valid values: SIMPLE, STRUCTURED, ENTERPRISE
	Profile string `mapstructure:"profile"`
}

// MetricsConfig contains Prometheus metrics configuration
type MetricsConfig struct {
	// Enabled controls whether metrics are exposed
	Enabled bool `mapstructure:"enabled"`

	// Port is the dedicated metrics endpoint port (Prometheus format)
	// Metrics are also available at the main HTTP port in JSON format
	Port int `mapstructure:"port"`
}

// HealthConfig contains health check configuration
type HealthConfig struct {
	// Enabled controls whether health endpoints are exposed
	Enabled bool `mapstructure:"enabled"`
}

// DebugConfig contains debug and profiling configuration
type DebugConfig struct {
	// Enabled controls whether debug mode is active
	Enabled bool `mapstructure:"enabled"`

	// PprofEnabled controls whether pprof endpoints are exposed
	// WARNING: Only enable in development/staging environments
	PprofEnabled bool `mapstructure:"pprof_enabled"`
}
