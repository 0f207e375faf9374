package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/errors"

	"github.com/ecomtrend/ecomtrend/internal/core/ratelimit"
	"github.com/ecomtrend/ecomtrend/internal/metrics"
)

// APIKeyHeader carries the raw API key on authenticated requests. A
// Bearer token in Authorization is accepted as an alternative.
const APIKeyHeader = "X-API-Key"

// RateLimit gates every request through the sliding-window limiter. Denied
// requests get a 429 (403 for blacklisted clients) with Retry-After; allowed
// requests are annotated with the caller's per-minute limit.
func RateLimit(limiter *ratelimit.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ClientIP(r)
			category := classifyEndpoint(r)
			authenticated := HasAPIKey(r)

			decision := limiter.Check(ip, category, authenticated)
			metrics.RecordRateLimitDecision(decision.Allowed, decision.Reason)

			if !decision.Allowed {
				writeRateLimitDenial(w, r, decision)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limiter.AuthLimitPerMinute(authenticated)))
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP resolves the originating client address. chi's RealIP runs
// earlier and already folds X-Forwarded-For / X-Real-IP into RemoteAddr;
// the headers are consulted again here so the limiter works without it.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if real := strings.TrimSpace(r.Header.Get("X-Real-IP")); real != "" {
		return real
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// HasAPIKey reports whether the request carries an API key credential.
func HasAPIKey(r *http.Request) bool {
	return RawAPIKey(r) != ""
}

// RawAPIKey extracts the raw key from the X-API-Key header or a Bearer
// Authorization header. Missing credentials yield an empty string.
func RawAPIKey(r *http.Request) string {
	if key := strings.TrimSpace(r.Header.Get(APIKeyHeader)); key != "" {
		return key
	}
	authz := strings.TrimSpace(r.Header.Get("Authorization"))
	if rest, ok := strings.CutPrefix(authz, "Bearer "); ok {
		return strings.TrimSpace(rest)
	}
	return ""
}

// classifyEndpoint maps the request to a limiter category. Registration and
// key issuance get the tight brute-force thresholds.
func classifyEndpoint(r *http.Request) ratelimit.Category {
	path := r.URL.Path
	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(path, "/users/register"):
		return ratelimit.CategoryRegister
	case r.Method == http.MethodPost && strings.Contains(path, "/api-keys"):
		return ratelimit.CategoryLogin
	default:
		return ratelimit.CategoryGeneric
	}
}

func writeRateLimitDenial(w http.ResponseWriter, r *http.Request, decision ratelimit.Decision) {
	code := "RATE_LIMITED"
	status := http.StatusTooManyRequests
	if decision.Reason == "forbidden" {
		code = "FORBIDDEN"
		status = http.StatusForbidden
	}

	envelope := errors.NewErrorEnvelope(code, decision.Reason).
		WithCorrelationID(GetRequestID(r.Context()))
	envelope, _ = envelope.WithContext(map[string]interface{}{
		"retry_after_seconds": decision.RetryAfter,
	})

	w.Header().Set("Retry-After", strconv.Itoa(decision.RetryAfter))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Unix()+int64(decision.RetryAfter), 10))
	writeErrorResponse(w, envelope, status)
}
