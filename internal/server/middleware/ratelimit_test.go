package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecomtrend/ecomtrend/internal/core/ratelimit"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func limiterConfig() ratelimit.Config {
	cfg := ratelimit.DefaultConfig()
	cfg.WhitelistIPs = nil
	return cfg
}

func TestRateLimitAllowsAndAnnotates(t *testing.T) {
	limiter := ratelimit.New(limiterConfig())
	handler := RateLimit(limiter)(okHandler())

	req := httptest.NewRequest("GET", "/api/v1/trends", nil)
	req.RemoteAddr = "10.0.0.1:54321"
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "100", rec.Header().Get("X-RateLimit-Limit"))
}

func TestRateLimitAuthenticatedLimitHeader(t *testing.T) {
	limiter := ratelimit.New(limiterConfig())
	handler := RateLimit(limiter)(okHandler())

	req := httptest.NewRequest("GET", "/api/v1/trends", nil)
	req.RemoteAddr = "10.0.0.1:54321"
	req.Header.Set(APIKeyHeader, "ect_test")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, "300", rec.Header().Get("X-RateLimit-Limit"))
}

func TestRateLimitDeniesBurst(t *testing.T) {
	cfg := limiterConfig()
	cfg.IPRequestsPerSecond = 2
	limiter := ratelimit.New(cfg)
	handler := RateLimit(limiter)(okHandler())

	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest("GET", "/api/v1/trends", nil)
		req.RemoteAddr = "10.0.0.1:54321"
		last = httptest.NewRecorder()
		handler.ServeHTTP(last, req)
	}

	require.Equal(t, http.StatusTooManyRequests, last.Code)
	assert.Equal(t, "1", last.Header().Get("Retry-After"))
	assert.Contains(t, last.Body.String(), "RATE_LIMITED")
}

func TestRateLimitBlacklistedClient(t *testing.T) {
	cfg := limiterConfig()
	cfg.BlacklistIPs = []string{"10.0.0.66"}
	limiter := ratelimit.New(cfg)
	handler := RateLimit(limiter)(okHandler())

	req := httptest.NewRequest("GET", "/api/v1/trends", nil)
	req.RemoteAddr = "10.0.0.66:54321"
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "FORBIDDEN")
}

func TestRateLimitRegisterCategoryBlocks(t *testing.T) {
	cfg := limiterConfig()
	cfg.RegisterAttemptsPerMinute = 2
	limiter := ratelimit.New(cfg)
	handler := RateLimit(limiter)(okHandler())

	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest("POST", "/api/v1/users/register", nil)
		req.RemoteAddr = "10.0.0.2:54321"
		last = httptest.NewRecorder()
		handler.ServeHTTP(last, req)
	}

	require.Equal(t, http.StatusTooManyRequests, last.Code)
	assert.Contains(t, last.Body.String(), "registration")
	assert.True(t, limiter.IsBlocked("10.0.0.2"))
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name     string
		remote   string
		headers  map[string]string
		expected string
	}{
		{"RemoteAddrOnly", "10.0.0.1:1234", nil, "10.0.0.1"},
		{"XForwardedFor", "127.0.0.1:1234", map[string]string{"X-Forwarded-For": "203.0.113.5, 10.0.0.1"}, "203.0.113.5"},
		{"XRealIP", "127.0.0.1:1234", map[string]string{"X-Real-IP": "203.0.113.9"}, "203.0.113.9"},
		{"NoPort", "10.0.0.7", nil, "10.0.0.7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.expected, ClientIP(req))
		})
	}
}

func TestRawAPIKey(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	assert.Empty(t, RawAPIKey(req))

	req.Header.Set("Authorization", "Bearer ect_abc")
	assert.Equal(t, "ect_abc", RawAPIKey(req))

	// X-API-Key wins over Authorization.
	req.Header.Set(APIKeyHeader, "ect_def")
	assert.Equal(t, "ect_def", RawAPIKey(req))
}

func TestSecurityHeaders(t *testing.T) {
	handler := SecurityHeaders(okHandler())

	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))
	assert.NotEmpty(t, rec.Header().Get("Strict-Transport-Security"))
}
