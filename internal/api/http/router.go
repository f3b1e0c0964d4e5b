package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/login-service/internal/api/http/handlers"
	"github.com/spec-kit/login-service/internal/auth"
	"github.com/spec-kit/login-service/internal/config"
	"github.com/spec-kit/login-service/internal/domain"
	"github.com/spec-kit/login-service/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Debug          *handlers.DebugHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
	DebugConfig    config.DebugConfig
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Metrics.Registry(), promhttp.HandlerOpts{})))
	}

	authGroup := app.Group("/api/auth")
	authGroup.Post("/login", cfg.Auth.Login)

	// The account listing exposes lockout state, so it only exists when asked for.
	if !cfg.DebugConfig.Enabled || cfg.Debug == nil {
		return
	}
	var guards []fiber.Handler
	if cfg.DebugConfig.RequireAdmin {
		guards = append(guards, cfg.AuthMiddleware.Handle, auth.RequireRole(domain.RoleAdmin))
	}
	debugGroup := app.Group("/api/debug", guards...)
	debugGroup.Get("/users", cfg.Debug.ListUsers)
}
