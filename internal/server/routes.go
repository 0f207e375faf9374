package server

import (
	"os"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ecomtrend/ecomtrend/internal/observability"
	"github.com/ecomtrend/ecomtrend/internal/server/handlers"
	servermw "github.com/ecomtrend/ecomtrend/internal/server/middleware"
)

// registerRoutes registers all HTTP routes
func (s *Server) registerRoutes() {
	// Standard health endpoints
	s.router.Get("/health", handlers.HealthHandler)
	s.router.Get("/health/live", handlers.LivenessHandler)
	s.router.Get("/health/ready", handlers.ReadinessHandler)
	s.router.Get("/health/startup", handlers.StartupHandler)

	// Version endpoint
	s.router.Get("/version", handlers.VersionHandler)

	// Metrics endpoint (in server package to access HandleError)
	s.router.Get("/metrics", MetricsHandler)

	s.registerAPIRoutes()

	// Admin signal endpoint (optional, requires ECOMTREND_ADMIN_TOKEN)
	s.registerAdminEndpoint()
}

// registerAPIRoutes mounts the versioned product API.
func (s *Server) registerAPIRoutes() {
	trends := handlers.NewTrendsAPI(s.deps.Loader, s.deps.AffiliateTag)
	users := handlers.NewUsersAPI(s.deps.Auth)
	newsletter := handlers.NewNewsletterAPI(s.deps.Store)
	export := handlers.NewExportAPI(trends)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/plans", handlers.PlansHandler)

		// Trend data is readable anonymously at free-tier caps; a supplied
		// API key raises them and charges the daily quota.
		r.Group(func(r chi.Router) {
			r.Use(servermw.OptionalAPIKey(s.deps.Auth))
			r.Get("/trends", trends.List)
			r.Get("/trends/categories", trends.Categories)
			r.Get("/trends/significant", trends.Significant)
		})

		r.Post("/users/register", users.Register)

		r.Group(func(r chi.Router) {
			r.Use(servermw.RequireAPIKey(s.deps.Auth))
			r.Get("/users/me", users.Me)
			r.Get("/users/api-keys", users.ListKeys)
			r.Post("/users/api-keys", users.CreateKey)
			r.Delete("/users/api-keys/{keyID}", users.RevokeKey)
			r.Get("/users/referral-code", users.ReferralCode)
			r.Get("/export", export.Export)
		})

		r.Post("/newsletter/subscribe", newsletter.Subscribe)
		r.Post("/newsletter/confirm", newsletter.Confirm)
		r.Post("/newsletter/unsubscribe", newsletter.Unsubscribe)
	})
}

// registerAdminEndpoint optionally registers the admin signal endpoint
func (s *Server) registerAdminEndpoint() {
	adminToken := os.Getenv("ECOMTREND_ADMIN_TOKEN")
	logger := observability.ServerLogger

	if adminToken == "" {
		if logger != nil {
			logger.Debug("Admin signal endpoint disabled (no ECOMTREND_ADMIN_TOKEN set)")
		}
		return
	}

	// Create HTTP signal handler with bearer token auth and rate limiting
	handler := signals.NewHTTPHandler(signals.HTTPConfig{
		TokenAuth: adminToken,
		RateLimit: 10,  // 10 requests per minute
		RateBurst: 5,   // burst size
		Manager:   nil, // use default global manager
	})

	// Register admin endpoint
	s.router.Post("/admin/signal", handler.ServeHTTP)

	if logger != nil {
		logger.Info("Admin signal endpoint enabled",
			zap.String("path", "/admin/signal"),
			zap.String("auth", "bearer token"),
			zap.String("rate_limit", "10/min, burst 5"))
		logger.Warn("Admin endpoint enabled - ensure this server is not exposed to public internet")
	}
}
