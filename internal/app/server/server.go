package server

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ksavin/snipurl/internal/app/repository"
	"github.com/ksavin/snipurl/internal/app/service"
	inthttp "github.com/ksavin/snipurl/internal/http/handler"
	"github.com/ksavin/snipurl/internal/http/middleware"
	"github.com/ksavin/snipurl/internal/http/util"
	infraprom "github.com/ksavin/snipurl/internal/infra/prometheus"
	"go.uber.org/zap"
)

// Dependencies bundles everything required by the HTTP server.
type Dependencies struct {
	Logger    *zap.Logger
	Postgres  *pgxpool.Pool
	Scopes    *repository.ScopeFactory
	Shortener service.Shortener
	Resolver  *service.Resolver
	Clicks    *service.ClickPublisher
	Tokens    *util.TokenSigner
	Metrics   *infraprom.Metrics
	ErrorPage string
}

// Server wraps the Fiber application and its dependencies.
type Server struct {
	app  *fiber.App
	deps Dependencies
}

// New creates a new HTTP server instance with default routes.
func New(deps Dependencies) *Server {
	app := fiber.New()

	s := &Server{
		app:  app,
		deps: deps,
	}

	s.registerRoutes()
	return s
}

// Listen starts the Fiber server on the given address.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the Fiber server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) registerRoutes() {
	s.app.Use(middleware.RequestID())
	s.app.Use(middleware.Logger(s.deps.Logger))
	s.app.Use(middleware.Recovery(s.deps.Logger))
	s.app.Use(middleware.CORS())
	s.app.Use(middleware.Owner(s.deps.Tokens))

	apiHandler := inthttp.NewAPIHandler(inthttp.APIDeps{
		Logger:    s.deps.Logger,
		Shortener: s.deps.Shortener,
		Scopes:    s.deps.Scopes,
		Tokens:    s.deps.Tokens,
	})
	apiHandler.Register(s.app)

	// Registered last so /:code does not shadow the fixed routes.
	redirectHandler := inthttp.NewRedirectHandler(inthttp.RedirectDeps{
		Logger:    s.deps.Logger,
		Resolver:  s.deps.Resolver,
		Clicks:    s.deps.Clicks,
		Postgres:  s.deps.Postgres,
		ErrorPage: s.deps.ErrorPage,
		Metrics:   s.deps.Metrics,
	})
	redirectHandler.Register(s.app)
}
