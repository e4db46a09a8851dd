// Package api provides the HTTP surface of the gateway.
package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/rs/zerolog"

	"github.com/edgegate/edgegate/internal/api/handler"
	"github.com/edgegate/edgegate/internal/api/middleware"
	"github.com/edgegate/edgegate/internal/auth"
	"github.com/edgegate/edgegate/internal/health"
	"github.com/edgegate/edgegate/internal/proxy"
	"github.com/edgegate/edgegate/internal/registry"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	ServiceName string
	Metrics     *middleware.Metrics
	RequireTLS  bool

	Gate        middleware.Authenticator
	AuthService *auth.Service
	UserService handler.ProfileReader

	Registry   *registry.Registry
	Prober     *health.Prober
	Dispatcher *proxy.Dispatcher
	Breakers   *proxy.BreakerSet
	JWKS       jwk.Set

	// Dependencies are pinged by the readiness and status endpoints.
	Dependencies []handler.Dependency

	// ProxyRateLimit is the per-caller request budget per minute on proxied
	// routes. Zero uses middleware.StandardRateLimit.
	ProxyRateLimit int
}

// NewRouter creates a new chi router with all gateway routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "edgegate"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))         // Structured logging
	r.Use(middleware.Recovery(cfg.Logger))       // Panic recovery
	r.Use(chimiddleware.RealIP)                  // Real IP extraction
	r.Use(middleware.SecurityHeaders)            // Security headers (HSTS, CSP, etc.)
	r.Use(middleware.RequireTLS(cfg.RequireTLS)) // TLS enforcement
	r.Use(middleware.ContentTypeJSON)            // JSON content type

	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, cfg.Breakers, cfg.Dependencies...)
	authHandler := handler.NewAuthHandler(cfg.AuthService)
	meHandler := handler.NewMeHandler(cfg.UserService)
	jwksHandler := handler.NewJWKSHandler(cfg.JWKS)
	gatewayHandler := handler.NewGatewayHandler(handler.GatewayHandlerConfig{
		Registry:   cfg.Registry,
		Prober:     cfg.Prober,
		Dispatcher: cfg.Dispatcher,
		Breakers:   cfg.Breakers,
		Logger:     cfg.Logger,
	})

	sessionAuth := middleware.SessionAuth(cfg.Gate)
	authRateLimit := middleware.RateLimitByIP(middleware.AuthRateLimit) // 10 req/min

	proxyLimit := middleware.StandardRateLimit
	if cfg.ProxyRateLimit > 0 {
		proxyLimit = middleware.RateLimitConfig{RequestLimit: cfg.ProxyRateLimit, WindowLength: time.Minute}
	}

	// API v1 routes
	r.Route("/v1", func(r chi.Router) {
		// Ops endpoints (public)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			// Token-only so status stays reachable while the session store is down.
			r.With(middleware.Auth(cfg.Gate)).Get("/status", opsHandler.SystemStatus)
		})

		// Credential endpoints (public) - strict rate limiting
		r.Group(func(r chi.Router) {
			r.Use(authRateLimit)
			r.Use(middleware.RequireJSON)
			r.Post("/login_by_email", authHandler.Login)
			r.Post("/refresh", authHandler.Refresh)
		})

		// Session-bound endpoints - user-based rate limiting
		r.Group(func(r chi.Router) {
			r.Use(sessionAuth)
			r.Use(middleware.RateLimitByUser(middleware.StandardRateLimit))
			r.Get("/me", meHandler.GetMe)
			r.Post("/logout", authHandler.Logout)
		})
	})

	// Gateway routes
	r.Route("/gateway", func(r chi.Router) {
		r.Get("/health", gatewayHandler.Health)
		r.Get("/.well-known/jwks.json", jwksHandler.JWKS)

		r.Route("/services", func(r chi.Router) {
			r.Use(sessionAuth)
			r.Get("/", gatewayHandler.ListServices)
			r.With(middleware.RequireJSON).Post("/", gatewayHandler.RegisterService)
			r.Delete("/{name}", gatewayHandler.RemoveService)
		})

		// Proxied routes. Whether an anonymous caller may pass is decided per
		// service by the dispatcher.
		r.Group(func(r chi.Router) {
			r.Use(middleware.OptionalAuth(cfg.Gate))
			r.Use(middleware.RateLimitPerService(proxyLimit, "segment"))
			r.HandleFunc("/{segment}", gatewayHandler.Proxy)
			r.HandleFunc("/{segment}/*", gatewayHandler.Proxy)
		})
	})

	return r
}
