// Package ratelimit implements the in-memory sliding-window rate limiter
// that gates every inbound API request.
//
// The limiter keeps all state in process memory behind one mutex. It is not
// usable across multiple processes or hosts; a distributed deployment needs a
// shared store (e.g. Redis) behind the same decision logic.
package ratelimit

import (
	"sync"
	"time"
)

// Category classifies the endpoint a request targets. Login covers every
// credential-bearing endpoint, including API key issuance.
type Category int

const (
	CategoryGeneric Category = iota
	CategoryLogin
	CategoryRegister
)

// Fixed retry hints for decisions that are not tied to a window length.
const (
	blacklistRetryAfter = 3600 * time.Second
	overloadRetryAfter  = 5 * time.Second
)

// Retention horizon for recorded timestamps and the minimum interval between
// cleanup passes.
const (
	retentionWindow = 300 * time.Second
	cleanupInterval = 60 * time.Second
)

// Decision is the outcome of a rate limit check. A denial is a normal
// result, not an error: Reason is human-readable and RetryAfter is the
// advised wait in seconds.
type Decision struct {
	Allowed    bool
	Reason     string
	RetryAfter int
}

// Stats is an observability snapshot of limiter state.
type Stats struct {
	ActiveIPs               int `json:"active_ips"`
	BlockedIPs              int `json:"blocked_ips"`
	GlobalRequestsPerMinute int `json:"global_rpm"`
}

// Limiter tracks request timestamps per IP and globally, and temporarily
// blocks abusive IPs. Construct with New; the zero value is not usable.
type Limiter struct {
	cfg Config

	// mu serializes every check-and-record so concurrent bursts from the
	// same IP cannot undercount.
	mu sync.Mutex

	// Clock is injectable for tests; defaults to time.Now.
	clock func() time.Time

	requests         map[string][]time.Time
	loginAttempts    map[string][]time.Time
	registerAttempts map[string][]time.Time
	blocked          map[string]time.Time
	globalRequests   []time.Time
	lastCleanup      time.Time

	whitelist map[string]struct{}
	blacklist map[string]struct{}
}

// Option adjusts a Limiter at construction.
type Option func(*Limiter)

// WithClock overrides the limiter's time source.
func WithClock(clock func() time.Time) Option {
	return func(l *Limiter) {
		l.clock = clock
	}
}

// New constructs a Limiter with the given thresholds.
func New(cfg Config, opts ...Option) *Limiter {
	l := &Limiter{
		cfg:              cfg,
		clock:            time.Now,
		requests:         make(map[string][]time.Time),
		loginAttempts:    make(map[string][]time.Time),
		registerAttempts: make(map[string][]time.Time),
		blocked:          make(map[string]time.Time),
		whitelist:        make(map[string]struct{}, len(cfg.WhitelistIPs)),
		blacklist:        make(map[string]struct{}, len(cfg.BlacklistIPs)),
	}

	for _, ip := range cfg.WhitelistIPs {
		l.whitelist[ip] = struct{}{}
	}
	for _, ip := range cfg.BlacklistIPs {
		l.blacklist[ip] = struct{}{}
	}

	for _, opt := range opts {
		opt(l)
	}

	l.lastCleanup = l.clock()
	return l
}

// Check decides whether to admit a request from ip against the endpoint
// category, using the authenticated thresholds when authenticated is true.
func (l *Limiter) Check(ip string, category Category, authenticated bool) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.cleanup()
	now := l.clock()

	if _, ok := l.whitelist[ip]; ok {
		return Decision{Allowed: true}
	}

	if _, ok := l.blacklist[ip]; ok {
		return Decision{Allowed: false, Reason: "forbidden", RetryAfter: int(blacklistRetryAfter.Seconds())}
	}

	if until, blocked := l.activeBlock(ip, now); blocked {
		return Decision{
			Allowed:    false,
			Reason:     "temporarily blocked",
			RetryAfter: int(until.Sub(now).Seconds()),
		}
	}

	switch category {
	case CategoryRegister:
		l.registerAttempts[ip] = append(l.registerAttempts[ip], now)
		if countRecent(l.registerAttempts[ip], now, time.Minute) > l.cfg.RegisterAttemptsPerMinute {
			l.block(ip, l.cfg.BlockDuration, now)
			return Decision{
				Allowed:    false,
				Reason:     "too many registration attempts",
				RetryAfter: int(l.cfg.BlockDuration.Seconds()),
			}
		}
	case CategoryLogin:
		l.loginAttempts[ip] = append(l.loginAttempts[ip], now)
		if countRecent(l.loginAttempts[ip], now, time.Minute) > l.cfg.LoginAttemptsPerMinute {
			l.block(ip, l.cfg.BlockDuration, now)
			return Decision{
				Allowed:    false,
				Reason:     "too many login attempts",
				RetryAfter: int(l.cfg.BlockDuration.Seconds()),
			}
		}
	}

	l.requests[ip] = append(l.requests[ip], now)
	l.globalRequests = append(l.globalRequests, now)

	rpm, rps := l.cfg.IPRequestsPerMinute, l.cfg.IPRequestsPerSecond
	if authenticated {
		rpm, rps = l.cfg.AuthRequestsPerMinute, l.cfg.AuthRequestsPerSecond
	}

	if countRecent(l.requests[ip], now, time.Second) > rps {
		return Decision{Allowed: false, Reason: "request frequency too high", RetryAfter: 1}
	}

	if countRecent(l.requests[ip], now, time.Minute) > rpm {
		return Decision{Allowed: false, Reason: "too many requests (per-minute limit)", RetryAfter: 60}
	}

	if countRecent(l.globalRequests, now, time.Second) > l.cfg.GlobalRequestsPerSecond {
		return Decision{Allowed: false, Reason: "service overloaded", RetryAfter: int(overloadRetryAfter.Seconds())}
	}

	return Decision{Allowed: true}
}

// BlockIP blocks an IP for the given duration, or the configured default
// when duration is zero. Whitelisted IPs are never blocked.
func (l *Limiter) BlockIP(ip string, duration time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.whitelist[ip]; ok {
		return
	}
	if duration <= 0 {
		duration = l.cfg.BlockDuration
	}
	l.block(ip, duration, l.clock())
}

// IsBlocked reports whether ip is currently blocked. An expired block entry
// is removed on the way out (lazy expiry).
func (l *Limiter) IsBlocked(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, blocked := l.activeBlock(ip, l.clock())
	return blocked
}

// Stats returns a snapshot of limiter state. It never triggers cleanup.
func (l *Limiter) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	return Stats{
		ActiveIPs:               len(l.requests),
		BlockedIPs:              len(l.blocked),
		GlobalRequestsPerMinute: countRecent(l.globalRequests, l.clock(), time.Minute),
	}
}

// AuthLimitPerMinute returns the per-minute limit advertised to a client.
func (l *Limiter) AuthLimitPerMinute(authenticated bool) int {
	if authenticated {
		return l.cfg.AuthRequestsPerMinute
	}
	return l.cfg.IPRequestsPerMinute
}

func (l *Limiter) block(ip string, duration time.Duration, now time.Time) {
	l.blocked[ip] = now.Add(duration)
}

// activeBlock returns the unblock time when ip has a live block. Expired
// entries are deleted.
func (l *Limiter) activeBlock(ip string, now time.Time) (time.Time, bool) {
	until, ok := l.blocked[ip]
	if !ok {
		return time.Time{}, false
	}
	if until.After(now) {
		return until, true
	}
	delete(l.blocked, ip)
	return time.Time{}, false
}

// cleanup drops timestamps older than the retention window and expired
// blocks. It runs at most once per cleanupInterval and is piggybacked on the
// check path rather than a background timer.
func (l *Limiter) cleanup() {
	now := l.clock()
	if now.Sub(l.lastCleanup) < cleanupInterval {
		return
	}
	l.lastCleanup = now

	cutoff := now.Add(-retentionWindow)

	pruneMap(l.requests, cutoff)
	pruneMap(l.loginAttempts, cutoff)
	pruneMap(l.registerAttempts, cutoff)

	for ip, until := range l.blocked {
		if !until.After(now) {
			delete(l.blocked, ip)
		}
	}

	l.globalRequests = pruneList(l.globalRequests, cutoff)
}

// countRecent counts timestamps strictly after now-window.
func countRecent(timestamps []time.Time, now time.Time, window time.Duration) int {
	cutoff := now.Add(-window)
	count := 0
	for _, ts := range timestamps {
		if ts.After(cutoff) {
			count++
		}
	}
	return count
}

func pruneMap(m map[string][]time.Time, cutoff time.Time) {
	for ip, timestamps := range m {
		kept := pruneList(timestamps, cutoff)
		if len(kept) == 0 {
			delete(m, ip)
			continue
		}
		m[ip] = kept
	}
}

// pruneList keeps timestamps after cutoff. Lists are append-only in time
// order, so the survivors are a suffix.
func pruneList(timestamps []time.Time, cutoff time.Time) []time.Time {
	idx := 0
	for idx < len(timestamps) && !timestamps[idx].After(cutoff) {
		idx++
	}
	if idx == 0 {
		return timestamps
	}
	return append([]time.Time(nil), timestamps[idx:]...)
}
