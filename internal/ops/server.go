// Package ops exposes the operational HTTP surface: health, metrics, and a
// small authenticated admin API. It only runs when an ops listen address is
// configured.
package ops

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"

	"github.com/Monkestation/Veyra-Vet/internal/config"
	"github.com/Monkestation/Veyra-Vet/internal/middleware"
	"github.com/Monkestation/Veyra-Vet/internal/service"
)

// Server holds the ops API dependencies.
type Server struct {
	config      *config.Config
	app         *fiber.App
	redis       *redis.Client
	vetting     *service.VettingService
	commissions *service.CommissionService

	startedAt time.Time
}

// NewServer creates the ops server with its middleware chain and routes.
func NewServer(cfg *config.Config, vetting *service.VettingService, commissions *service.CommissionService, rdb *redis.Client) *Server {
	s := &Server{
		config:      cfg,
		redis:       rdb,
		vetting:     vetting,
		commissions: commissions,
		startedAt:   time.Now(),
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.ContextMiddleware())

	prom := middleware.InitMetrics("veyravet")
	prom.RegisterAt(app, "/metrics")
	app.Use(middleware.MetricsMiddleware(prom))

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	app.Get("/healthz", s.Health)
	app.Post("/api/auth/login", middleware.RateLimit(rdb, 5, time.Minute, "ops-login"), s.Login)

	api := app.Group("/api", middleware.AuthRequired(cfg.JWTSecret))
	api.Get("/stats", s.Stats)
	api.Post("/cleanup", s.Cleanup)

	s.app = app
	return s
}

// App exposes the underlying Fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen blocks serving the ops API on addr.
func (s *Server) Listen(addr string) error {
	slog.Info("ops server listening", "addr", addr)
	return s.app.Listen(addr)
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
