package middleware

import (
	"context"
	"net/http"

	goerrors "errors"

	"github.com/fulmenhq/gofulmen/errors"

	"github.com/ecomtrend/ecomtrend/internal/auth"
	"github.com/ecomtrend/ecomtrend/internal/core"
)

type userContextKey string

// UserContextKey holds the authenticated *core.User on the request context.
const UserContextKey userContextKey = "authenticated_user"

// RequireAPIKey authenticates the request's API key, charges one unit of the
// user's daily quota, and stores the user on the context. Requests without a
// valid key never reach the wrapped handler.
func RequireAPIKey(svc *auth.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := RawAPIKey(r)
			if raw == "" {
				writeAuthDenial(w, r, "UNAUTHORIZED", "api key required", http.StatusUnauthorized)
				return
			}

			user, _, err := svc.Authenticate(r.Context(), raw)
			if err != nil {
				switch {
				case goerrors.Is(err, auth.ErrInvalidAPIKey):
					writeAuthDenial(w, r, "UNAUTHORIZED", "invalid api key", http.StatusUnauthorized)
				case goerrors.Is(err, auth.ErrSubscriptionExpired):
					writeAuthDenial(w, r, "PLAN_UPGRADE_REQUIRED", "subscription expired", http.StatusPaymentRequired)
				default:
					writeAuthDenial(w, r, "INTERNAL_ERROR", "authentication failed", http.StatusInternalServerError)
				}
				return
			}

			if err := svc.AuthorizeAPICall(r.Context(), user); err != nil {
				if goerrors.Is(err, auth.ErrQuotaExceeded) {
					writeAuthDenial(w, r, "QUOTA_EXCEEDED", "daily api call quota exceeded", http.StatusTooManyRequests)
					return
				}
				writeAuthDenial(w, r, "INTERNAL_ERROR", "authentication failed", http.StatusInternalServerError)
				return
			}

			ctx := context.WithValue(r.Context(), UserContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAPIKey authenticates when a key is supplied and passes anonymous
// requests through. A key that is present but invalid is still rejected, so
// callers never silently fall back to anonymous limits.
func OptionalAPIKey(svc *auth.Service) func(http.Handler) http.Handler {
	required := RequireAPIKey(svc)
	return func(next http.Handler) http.Handler {
		wrapped := required(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if RawAPIKey(r) == "" {
				next.ServeHTTP(w, r)
				return
			}
			wrapped.ServeHTTP(w, r)
		})
	}
}

// UserFromContext returns the authenticated user, or nil outside
// RequireAPIKey-wrapped routes.
func UserFromContext(ctx context.Context) *core.User {
	user, _ := ctx.Value(UserContextKey).(*core.User)
	return user
}

func writeAuthDenial(w http.ResponseWriter, r *http.Request, code, message string, status int) {
	envelope := errors.NewErrorEnvelope(code, message).
		WithCorrelationID(GetRequestID(r.Context()))
	writeErrorResponse(w, envelope, status)
}
