package ratelimit

import "time"

// Config holds the fixed thresholds for a Limiter. All windows are sliding
// windows measured back from the moment of each check.
type Config struct {
	// Global limits applied across all client IPs.
	GlobalRequestsPerMinute int `mapstructure:"global_requests_per_minute"`
	GlobalRequestsPerSecond int `mapstructure:"global_requests_per_second"`

	// Per-IP limits for unauthenticated requests.
	IPRequestsPerMinute int `mapstructure:"ip_requests_per_minute"`
	IPRequestsPerSecond int `mapstructure:"ip_requests_per_second"`

	// Per-IP limits for authenticated requests (looser).
	AuthRequestsPerMinute int `mapstructure:"auth_requests_per_minute"`
	AuthRequestsPerSecond int `mapstructure:"auth_requests_per_second"`

	// Brute-force defenses.
	LoginAttemptsPerMinute    int `mapstructure:"login_attempts_per_minute"`
	RegisterAttemptsPerMinute int `mapstructure:"register_attempts_per_minute"`

	// BlockDuration applied when a tight threshold is exceeded.
	BlockDuration time.Duration `mapstructure:"block_duration"`

	// WhitelistIPs are always admitted and never blocked.
	WhitelistIPs []string `mapstructure:"whitelist_ips"`

	// BlacklistIPs are always rejected.
	BlacklistIPs []string `mapstructure:"blacklist_ips"`
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() Config {
	return Config{
		GlobalRequestsPerMinute:   1000,
		GlobalRequestsPerSecond:   50,
		IPRequestsPerMinute:       100,
		IPRequestsPerSecond:       10,
		AuthRequestsPerMinute:     300,
		AuthRequestsPerSecond:     30,
		LoginAttemptsPerMinute:    5,
		RegisterAttemptsPerMinute: 3,
		BlockDuration:             5 * time.Minute,
		WhitelistIPs:              []string{"127.0.0.1", "::1"},
	}
}
