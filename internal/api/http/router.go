package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/workspace-auth/internal/api/http/handlers"
	"github.com/spec-kit/workspace-auth/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Admin          *handlers.AdminHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        fiber.Handler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", cfg.Metrics)
	}

	authGroup := app.Group("/auth")
	authGroup.Post("/login", cfg.Auth.Login)

	authGroup.Get("/me", cfg.AuthMiddleware.Handle, auth.RequireIdentity(), cfg.Auth.Me)
	authGroup.Post("/password/change", cfg.AuthMiddleware.Handle, auth.RequireIdentity(), cfg.Auth.ChangePassword)

	admin := app.Group("/admin", cfg.AuthMiddleware.Handle, auth.RequireElevated())
	admin.Get("/credentials", cfg.Admin.List)
	admin.Post("/credentials", cfg.Admin.Register)
	admin.Patch("/credentials/:identifier/status", cfg.Admin.SetStatus)
}
