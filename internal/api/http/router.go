package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health     *handlers.HealthHandler
	Auth       *handlers.AuthHandler
	Tickets    *handlers.TicketsHandler
	Tags       *handlers.TagsHandler
	AdminUsers *handlers.AdminUsersHandler
	Sessions   *auth.Middleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", cfg.Health.Metrics)

	// The auth routes resolve the cookie themselves so a failing session
	// lookup never blocks login or logout.
	authGroup := app.Group("/api/auth")
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/logout", cfg.Auth.Logout)
	authGroup.Get("/me", cfg.Auth.Me)

	tickets := app.Group("/api/tickets", cfg.Sessions.Handle, auth.RequireAuth())
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Patch("/:id", cfg.Tickets.UpdateTicket)
	tickets.Get("/:id/comments", cfg.Tickets.ListComments)
	tickets.Post("/:id/comments", cfg.Tickets.AddComment)
	tickets.Get("/:id/audit", cfg.Tickets.AuditTrail)

	tags := app.Group("/api/tags", cfg.Sessions.Handle, auth.RequireAuth())
	tags.Get("/", cfg.Tags.List)
	tags.Post("/", auth.RequireRole(domain.RoleAdmin), cfg.Tags.Create)

	admin := app.Group("/api/admin", cfg.Sessions.Handle, auth.RequireRole(domain.RoleAdmin))
	admin.Get("/ping", cfg.AdminUsers.Ping)
	admin.Get("/users", cfg.AdminUsers.List)
	admin.Post("/users", cfg.AdminUsers.Create)
	admin.Patch("/users/:id", cfg.AdminUsers.Update)
}
