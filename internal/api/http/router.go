package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/authgate/jwt-auth/internal/api/http/handlers"
	"github.com/authgate/jwt-auth/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
// Auth and AuthMiddleware are nil when authentication is disabled.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	if cfg.Auth == nil || cfg.AuthMiddleware == nil {
		return
	}

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/token/introspect", cfg.Auth.Introspect)

	protected := authGroup.Group("", cfg.AuthMiddleware.Handle, auth.RequirePrincipal())
	protected.Get("/me", cfg.Auth.Me)
}
