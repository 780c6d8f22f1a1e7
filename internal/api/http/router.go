package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/reparafacil/repair-service/internal/api/http/handlers"
	"github.com/reparafacil/repair-service/internal/auth"
	"github.com/reparafacil/repair-service/internal/domain"
	"github.com/reparafacil/repair-service/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Tickets        *handlers.RepairTicketsHandler
	Auth           *handlers.AuthHandler
	Users          *handlers.UsersHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	api := app.Group("/api/v1")
	registerTicketRoutes(api.Group("/reparaciones"), cfg)
	registerAuthRoutes(api.Group("/auth"), cfg)
}

func registerTicketRoutes(r fiber.Router, cfg RouteConfig) {
	h := cfg.Tickets
	authenticated := cfg.AuthMiddleware.Handle
	staff := auth.RequireRole(domain.UserRoleAdmin, domain.UserRoleTechnician)
	admin := auth.RequireRole(domain.UserRoleAdmin)

	r.Get("/", h.List)
	r.Post("/", h.Create)

	// static segments first so they are not captured by /:id
	r.Get("/health", cfg.Health.Component("repair tickets"))
	r.Get("/eliminados", authenticated, admin, h.ListDeleted)
	r.Get("/cliente/:email", h.ByEmail)
	r.Get("/cliente/:email/count", h.CountByEmail)
	r.Get("/cliente/:email/fecha/:fecha", h.ByEmailAndDate)
	r.Get("/cliente/:email/fechas", h.ByEmailAndDateRange)
	r.Get("/estado/:estado", h.ByStatus)
	r.Get("/tipo/:tipo", h.ByDeviceType)
	r.Get("/tecnico/:tecnico", h.ByTechnician)
	r.Get("/tecnico/:tecnico/count", h.CountByTechnician)
	r.Get("/tecnico/:tecnico/estado/:estado", h.ByTechnicianAndStatus)
	r.Get("/tecnico/:tecnico/fechas", h.ByTechnicianAndDateRange)
	r.Get("/fecha/:fecha", h.ByDate)
	r.Get("/fechas", h.ByDateRange)
	r.Get("/buscar", h.Search)
	r.Get("/busqueda-avanzada", h.SearchAdvanced)
	r.Get("/estadisticas", h.Statistics)
	r.Get("/estadisticas/detalladas", h.DetailedStatistics)
	r.Get("/estados", h.Statuses)
	r.Get("/tipos-dispositivos", h.DeviceTypes)

	r.Get("/:id", h.Get)
	r.Put("/:id", authenticated, staff, h.Update)
	r.Delete("/:id", authenticated, admin, h.Delete)
	r.Put("/:id/estado", authenticated, staff, h.ChangeStatus)
	r.Put("/:id/tecnico", authenticated, staff, h.AssignTechnician)
	r.Put("/:id/restaurar", authenticated, admin, h.Restore)
	r.Get("/:id/historial", authenticated, staff, h.History)
}

func registerAuthRoutes(r fiber.Router, cfg RouteConfig) {
	authenticated := cfg.AuthMiddleware.Handle
	admin := auth.RequireRole(domain.UserRoleAdmin)

	r.Get("/health", cfg.Health.Component("authentication"))
	r.Post("/register", cfg.Auth.Register)
	r.Post("/login", cfg.Auth.Login)
	r.Get("/check-username/:username", cfg.Auth.UsernameExists)
	r.Get("/check-email/:email", cfg.Auth.EmailExists)
	r.Get("/tecnicos", cfg.Users.Technicians)

	r.Get("/me", authenticated, auth.RequireAnyRole(), cfg.Auth.Me)
	r.Put("/password", authenticated, auth.RequireAnyRole(), cfg.Auth.ChangePassword)
	r.Put("/unlock/:username", authenticated, admin, cfg.Auth.Unlock)

	users := r.Group("/usuarios", authenticated, admin)
	users.Get("/", cfg.Users.List)
	users.Get("/activos", cfg.Users.ListActive)
	users.Get("/estadisticas", cfg.Users.Statistics)
	users.Get("/rol/:rol", cfg.Users.ListByRole)
	users.Get("/rol/:rol/count", cfg.Users.CountByRole)
	users.Get("/:id", cfg.Users.Get)
	users.Put("/:id", cfg.Users.Update)
	users.Delete("/:id", cfg.Users.Delete)
}
