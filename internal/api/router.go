// Package api provides the HTTP API for the CareLink operations core.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/carelink/carelink/internal/alerting"
	"github.com/carelink/carelink/internal/api/handler"
	"github.com/carelink/carelink/internal/api/middleware"
	"github.com/carelink/carelink/internal/config"
	"github.com/carelink/carelink/internal/health"
	"github.com/carelink/carelink/internal/integrity"
	"github.com/carelink/carelink/internal/metrics"
	"github.com/carelink/carelink/internal/provider/resilience"
)

// RouterConfig holds the wiring for the router. Every collaborator is
// injected; the router owns nothing long-lived.
type RouterConfig struct {
	Config      config.Config
	Logger      zerolog.Logger
	ServiceName string

	Metrics         *middleware.Metrics
	RequestCounters *metrics.RequestCounters

	Checker    *health.Checker
	Registry   *integrity.Registry
	Policy     *integrity.Policy
	Dispatcher *alerting.Dispatcher
	Exporter   *metrics.Exporter
	Delivery   *resilience.Registry

	RequireTLS bool
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "carelink-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	if cfg.RequestCounters != nil {
		r.Use(cfg.RequestCounters.Middleware()) // Route-group request accounting
	}
	r.Use(middleware.Logger(cfg.Logger))          // Structured logging
	r.Use(middleware.Recovery(cfg.Logger))        // Panic recovery
	r.Use(chimiddleware.RealIP)                   // Real IP extraction
	r.Use(middleware.SecurityHeaders)             // Security headers (HSTS, CSP, etc.)
	r.Use(middleware.RequireTLS(cfg.RequireTLS))  // TLS enforcement behind the load balancer
	r.Use(middleware.ContentTypeJSON)             // JSON content type

	// Initialize handlers
	opsHandler := handler.NewOpsHandler(cfg.Checker, cfg.Registry, cfg.Policy)
	metricsHandler := handler.NewMetricsHandler(cfg.Exporter)
	diagnosticsHandler := handler.NewDiagnosticsHandler(
		cfg.Checker, cfg.Registry, cfg.Policy, cfg.Dispatcher, cfg.Delivery)

	// Token guards for the operator surfaces
	metricsAuth := middleware.BearerToken(cfg.Config.MetricsToken)
	adminAuth := middleware.BearerToken(cfg.Config.AdminToken)

	// Rate limits per endpoint category
	opsRateLimit := middleware.RateLimitByIP(middleware.OpsRateLimit)       // 120 req/min
	scrapeRateLimit := middleware.RateLimitByIP(middleware.ScrapeRateLimit) // 30 req/min

	// API v1 routes
	r.Route("/v1", func(r chi.Router) {
		// Health endpoints (public)
		r.Route("/health", func(r chi.Router) {
			r.Use(opsRateLimit)
			r.Get("/live", opsHandler.Live)
			r.Get("/ready", opsHandler.Ready)
			r.Get("/status", opsHandler.Status)
			r.Get("/history", opsHandler.History)
		})

		// Metrics endpoint (bearer token)
		r.With(scrapeRateLimit, metricsAuth).Get("/metrics", metricsHandler.Get)

		// Admin diagnostics (separate admin token)
		r.Route("/admin", func(r chi.Router) {
			r.Use(scrapeRateLimit)
			r.Use(adminAuth)
			r.Get("/diagnostics", diagnosticsHandler.Get)
		})
	})

	return r
}
