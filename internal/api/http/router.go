package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/fieldops/maintenance-desk/internal/api/http/handlers"
	"github.com/fieldops/maintenance-desk/internal/auth"
	"github.com/fieldops/maintenance-desk/internal/domain"
	"github.com/fieldops/maintenance-desk/internal/observability"
	"github.com/fieldops/maintenance-desk/internal/workflow"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	RMA            *handlers.RMAHandler
	Assets         *handlers.AssetsHandler
	Sites          *handlers.SitesHandler
	Users          *handlers.UsersHandler
	Registrations  *handlers.RegistrationsHandler
	Live           *handlers.LiveHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))

	authGroup := app.Group("/auth")
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/refresh", cfg.Auth.Refresh)
	authGroup.Post("/logout", cfg.Auth.Logout)

	app.Post("/registrations", cfg.Registrations.Submit)

	id := handlers.RequireUUIDParam("id")

	protected := app.Group("", cfg.AuthMiddleware.Handle, auth.RequireAnyRole())
	protected.Get("/me", cfg.Auth.Me)
	protected.Get("/live", cfg.Live.Stream)

	tickets := protected.Group("/tickets")
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Get("/:id", id, cfg.Tickets.GetTicket)
	tickets.Get("/:id/actions", id, cfg.Tickets.AvailableActions)
	tickets.Get("/:id/activities", id, cfg.Tickets.ListActivities)
	tickets.Post("/:id/comments", id, cfg.Tickets.AddComment)
	tickets.Get("/:id/rma", id, cfg.RMA.ListForTicket)
	tickets.Post("/:id/rma", id, cfg.RMA.Request)
	for _, action := range workflow.TransitionActions {
		tickets.Post("/:id/"+handlers.ActionSlug(action), id, cfg.Tickets.Transition(action))
	}

	rma := protected.Group("/rma")
	rma.Get("/:id", id, cfg.RMA.Get)
	for _, route := range handlers.RMAStepRoutes {
		rma.Post("/:id/"+route.Path, id, cfg.RMA.Step(route.Step))
	}

	assets := protected.Group("/assets")
	assets.Post("/", cfg.Assets.Create)
	assets.Get("/", cfg.Assets.List)
	assets.Get("/:id", id, cfg.Assets.Get)
	assets.Put("/:id", id, cfg.Assets.Update)
	assets.Delete("/:id", id, cfg.Assets.Decommission)
	assets.Post("/:id/status", id, cfg.Assets.SetStatus)
	assets.Get("/:id/credentials", id, cfg.Assets.Credentials)

	sites := protected.Group("/sites")
	sites.Post("/", cfg.Sites.Create)
	sites.Get("/", cfg.Sites.List)
	sites.Get("/:id", id, cfg.Sites.Get)
	sites.Put("/:id", id, cfg.Sites.Update)

	users := protected.Group("/users", auth.RequireRole(domain.RoleAdmin))
	users.Post("/", cfg.Users.Create)
	users.Get("/", cfg.Users.List)
	users.Get("/:id", id, cfg.Users.Get)
	users.Put("/:id", id, cfg.Users.Update)

	admin := protected.Group("/admin", auth.RequireRole(domain.RoleAdmin))
	admin.Get("/registrations", cfg.Registrations.List)
	admin.Post("/registrations/:id/approve", id, cfg.Registrations.Approve)
	admin.Post("/registrations/:id/reject", id, cfg.Registrations.Reject)
}
