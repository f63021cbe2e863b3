// Package server contains the HTTP surface: routing, handlers and DTOs.
package server

import (
	"context"
	"time"

	"gatehouse/internal/bootstrap"
	"gatehouse/internal/config"
	"gatehouse/internal/middleware"
	"gatehouse/internal/notifications"
	"gatehouse/internal/repository"
	"gatehouse/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers.
type Server struct {
	config      *config.Config
	db          *gorm.DB
	redis       *redis.Client
	userRepo    repository.UserRepository
	orgRepo     repository.OrgRepository
	catalogRepo repository.CatalogRepository
	requestRepo repository.RequestRepository
	authz       service.Authorizer
	visibility  *service.Visibility
	requests    *service.Requests
	dispatcher  *notifications.Dispatcher
}

// NewServer creates a server instance with all dependencies wired from
// configuration: database, Redis, repositories and services.
func NewServer(cfg *config.Config) (*Server, error) {
	db, redisClient, err := bootstrap.InitRuntime(cfg, bootstrap.Options{})
	if err != nil {
		return nil, err
	}

	mailer := notifications.NewRedisMailer(redisClient)
	return NewServerWithDeps(cfg, db, redisClient, mailer), nil
}

// NewServerWithDeps builds a server over pre-constructed infrastructure.
// Tests use it to swap in sqlite and a fake mailer.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, mailer notifications.Mailer) *Server {
	userRepo := repository.NewUserRepository(db)
	orgRepo := repository.NewOrgRepository(db)
	catalogRepo := repository.NewCatalogRepository(db)
	requestRepo := repository.NewRequestRepository(db)

	authz := service.NewAuthorizer(orgRepo)
	dispatcher := notifications.NewDispatcher(mailer)
	site := service.SiteInfo{Title: cfg.SiteTitle, URL: cfg.SiteURL}

	return &Server{
		config:      cfg,
		db:          db,
		redis:       redisClient,
		userRepo:    userRepo,
		orgRepo:     orgRepo,
		catalogRepo: catalogRepo,
		requestRepo: requestRepo,
		authz:       authz,
		visibility:  service.NewVisibility(authz, catalogRepo),
		requests: service.NewRequests(db, userRepo, orgRepo, catalogRepo,
			requestRepo, authz, dispatcher, site),
		dispatcher: dispatcher,
	}
}

// SetupMiddleware configures middleware for the Fiber app.
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())

	// Request ID for log correlation
	app.Use(requestid.New())

	if s.config.TracingEnabled {
		app.Use(middleware.TracingMiddleware())
	}
	app.Use(middleware.ContextMiddleware())

	prom := middleware.InitMetrics("gatehouse")
	prom.RegisterAt(app, "/metrics")
	app.Use(middleware.MetricsMiddleware(prom))

	// Security headers
	app.Use(helmet.New())

	app.Use(middleware.StructuredLogger())

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
		Next: func(c *fiber.Ctx) bool {
			// The limiter store is in-process; skip it outside production
			// so test suites are not throttled.
			return s.config.Env == "test" || s.config.Env == "development"
		},
	}))

	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           86400,
	}))
}

// SetupRoutes configures all routes for the application.
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.Liveness)
	app.Get("/health/ready", s.Readiness)

	api := app.Group("/api")

	// Runtime monitor and Swagger documentation
	api.Get("/monitor", monitor.New(monitor.Config{
		Title: "Gatehouse Metrics",
	}))
	api.Get("/swagger/*", swagger.HandlerDefault)

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/signup", middleware.RateLimit(s.redis, 3, 10*time.Minute, "signup"), s.Signup)
	auth.Post("/login", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)

	// Public catalog reads. AuthOptional resolves the viewer when a token is
	// present so restricted resources unmask the viewer's own entry.
	packages := api.Group("/packages", middleware.AuthOptional)
	packages.Get("/:slug", s.ShowPackage)

	resources := api.Group("/resources", middleware.AuthOptional)
	resources.Get("/search", middleware.RateLimit(s.redis, 10, time.Minute, "search"), s.SearchResources)
	resources.Get("/:id/access", s.CheckResourceAccess)

	// Protected routes
	protected := api.Group("", middleware.AuthRequired)

	// Editor catalog management
	protectedPackages := protected.Group("/packages")
	protectedPackages.Post("/", s.CreatePackage)
	protectedPackages.Post("/:slug/resources", s.CreateResource)

	protectedResources := protected.Group("/resources")
	protectedResources.Patch("/:id", s.UpdateResource)

	// Requester routes
	accessRequests := protected.Group("/access-requests")
	accessRequests.Post("/", middleware.RateLimit(s.redis, 5, 10*time.Minute, "access_request"), s.SubmitRequest)
	accessRequests.Get("/me", s.MyRequests)
	accessRequests.Get("/:id", s.GetRequest)
	accessRequests.Put("/:id/message", s.UpdateRequestMessage)

	// Reviewer routes
	admin := protected.Group("/admin/access-requests")
	admin.Get("/", s.RequestDashboard)
	admin.Post("/:id/decision", s.DecideRequest)
	admin.Delete("/:id", s.DeleteRequest)
}

// Liveness reports that the process is up.
func (s *Server) Liveness(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "alive", "time": time.Now()})
}

// Readiness checks the database and Redis dependencies.
func (s *Server) Readiness(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		// The service degrades without Redis (no cache, no mail outbox)
		// but stays serviceable.
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	if dbStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
	}

	return c.Status(status).JSON(fiber.Map{
		"status": "ready",
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// App builds a configured Fiber application ready to listen.
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: "Gatehouse API",
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// Start starts the server.
func (s *Server) Start() error {
	app := s.App()
	middleware.Logger.Info("server starting", "port", s.config.Port)
	return app.Listen(":" + s.config.Port)
}

// Shutdown releases the server's connections.
func (s *Server) Shutdown(ctx context.Context) error {
	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", "error", cerr.Error())
		}
	}
	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", "error", rerr.Error())
		}
	}
	middleware.Logger.InfoContext(ctx, "server shutdown complete")
	return nil
}
