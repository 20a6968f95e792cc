package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Users          *handlers.UsersHandler
	Tickets        *handlers.TicketsHandler
	StaffTickets   *handlers.StaffTicketsHandler
	Knowledge      *handlers.KnowledgeHandler
	AuthMiddleware *auth.AuthMiddleware
}

// AppOptions configures the fiber application.
type AppOptions struct {
	Name        string
	Logger      *zap.Logger
	Metrics     *observability.Metrics
	Timeout     time.Duration
	BodyLimit   int
	CORSOrigins string
}

// NewApp builds a fiber app with the standard middleware chain and routes.
func NewApp(opts AppOptions, routes RouteConfig) *fiber.App {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	// Immutable: handlers pass request strings straight to the repositories,
	// so they must not alias fasthttp's reused buffers.
	app := fiber.New(fiber.Config{
		AppName:               opts.Name,
		BodyLimit:             opts.BodyLimit,
		DisableStartupMessage: true,
		Immutable:             true,
		ErrorHandler:          errorHandler(logger),
	})
	RegisterMiddlewares(app, logger, opts.Metrics, opts.Timeout, opts.CORSOrigins)
	RegisterRoutes(app, routes)
	return app
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Health.Metrics)

	authn := cfg.AuthMiddleware.Handle
	anyRole := auth.RequireAnyRole()
	admin := auth.RequireRoles(domain.RoleAdmin)
	staff := auth.RequireRoles(domain.RoleAgent, domain.RoleAdmin)
	customer := auth.RequireRoles(domain.RoleCustomer)

	api := app.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/register/customer", cfg.Auth.RegisterCustomer)
	authGroup.Post("/register/agent", authn, admin, cfg.Auth.RegisterAgent)
	authGroup.Post("/logout", authn, anyRole, cfg.Auth.Logout)
	authGroup.Get("/me", authn, anyRole, cfg.Auth.Me)
	authGroup.Get("/agents", authn, admin, cfg.Users.ListAgents)
	authGroup.Get("/users/:role", authn, admin, cfg.Users.ListUsers)
	authGroup.Delete("/agent/:id", authn, admin, cfg.Users.DeleteAgent)
	authGroup.Put("/agent/:id", authn, admin, cfg.Users.UpdateAgent)

	// Fixed segments are registered before /:id so they win the match.
	tickets := api.Group("/tickets")
	tickets.Get("/my-tickets", authn, customer, cfg.Tickets.MyTickets)
	tickets.Get("/all", authn, staff, cfg.StaffTickets.ListAll)
	tickets.Post("/raise", authn, customer, cfg.Tickets.RaiseTicket)
	tickets.Get("/file/:id", authn, anyRole, cfg.Tickets.DownloadAttachment)
	tickets.Put("/update/:id", authn, staff, cfg.StaffTickets.UpdateTriage)
	tickets.Get("/:id", authn, anyRole, cfg.Tickets.GetTicket)
	tickets.Get("/:id/messages", authn, anyRole, cfg.Tickets.ListMessages)
	tickets.Get("/:id/history", authn, staff, cfg.StaffTickets.History)
	tickets.Post("/:id/message", authn, anyRole, cfg.Tickets.PostMessage)

	ai := api.Group("/ai")
	ai.Post("/ask", cfg.Knowledge.Ask)
	ai.Get("/faq/all", cfg.Knowledge.ListFAQs)
	ai.Get("/faq/search", cfg.Knowledge.SearchFAQs)
	ai.Get("/files/:type", authn, admin, cfg.Knowledge.ListFiles)
	ai.Delete("/files/:type/:filename", authn, admin, cfg.Knowledge.DeleteFile)
	ai.Post("/admin/upload-knowledge", authn, admin, cfg.Knowledge.UploadKnowledge)
	ai.Post("/admin/upload-faq", authn, admin, cfg.Knowledge.UploadFAQ)
}
