// Package server contains the HTML and JSON handlers for the Warbler application.
package server

import (
	"context"
	"errors"
	"strings"
	"time"

	_ "warbler/docs" // swagger docs
	"warbler/internal/bootstrap"
	"warbler/internal/config"
	"warbler/internal/database"
	"warbler/internal/middleware"
	"warbler/internal/models"
	"warbler/internal/repository"
	"warbler/internal/service"
	"warbler/internal/session"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/encryptcookie"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	sessions       *session.Manager
	userRepo       repository.UserRepository
	messageRepo    repository.MessageRepository
	followRepo     repository.FollowRepository
	likeRepo       repository.LikeRepository
	authService    *service.AuthService
	userService    *service.UserService
	followService  *service.FollowService
	likeService    *service.LikeService
	messageService *service.MessageService
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, redisClient, err := bootstrap.InitRuntime(cfg, bootstrap.Options{SeedDemo: cfg.SeedDemo})
	if err != nil {
		return nil, err
	}
	return NewServerWithDeps(cfg, db, redisClient)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	if cfg == nil || db == nil {
		return nil, errors.New("server requires a config and a database")
	}

	// Without Redis, sessions live in process memory.
	var store fiber.Storage
	if redisClient != nil {
		store = session.NewRedisStorage(redisClient)
	}

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("warbler"),
		sessions: session.NewManager(session.Config{
			Expiration:   time.Duration(cfg.SessionTTLHours) * time.Hour,
			CookieSecure: cfg.IsProduction(),
			Storage:      store,
		}),
		userRepo:    repository.NewUserRepository(db),
		messageRepo: repository.NewMessageRepository(db),
		followRepo:  repository.NewFollowRepository(db),
		likeRepo:    repository.NewLikeRepository(db),
	}

	s.authService = service.NewAuthService(s.userRepo, cfg.BcryptCost)
	s.userService = service.NewUserService(s.userRepo, s.messageRepo, s.followRepo)
	s.followService = service.NewFollowService(s.followRepo, s.userRepo, service.FollowPolicy(cfg))
	s.likeService = service.NewLikeService(s.likeRepo, s.messageRepo, service.LikePolicy(cfg))
	s.messageService = service.NewMessageService(s.messageRepo)

	return s, nil
}

// NewApp builds the Fiber app with the HTML views and error handler, then
// installs middleware and routes.
func (s *Server) NewApp() (*fiber.App, error) {
	views, err := NewViews()
	if err != nil {
		return nil, err
	}

	app := fiber.New(fiber.Config{
		AppName:      "Warbler",
		Views:        views,
		ViewsLayout:  "layouts/base",
		BodyLimit:    1 * 1024 * 1024,
		ErrorHandler: s.errorHandler,
	})
	s.app = app

	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// Decrypt cookies before anything reads the session cookie
	if s.config.CookieEncryptionKey != "" {
		app.Use(encryptcookie.New(encryptcookie.Config{
			Key: s.config.CookieEncryptionKey,
		}))
	}

	app.Use(middleware.TracingMiddleware())

	// Resolve the logged-in user once per request
	app.Use(s.CurrentUser())

	// Context Middleware to propagate Request ID and User ID
	app.Use(middleware.ContextMiddleware())

	// Prometheus Metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers. User avatars are arbitrary remote URLs, so cross-origin
	// embedding must stay allowed.
	app.Use(helmet.New(helmet.Config{
		CrossOriginEmbedderPolicy: "unsafe-none",
		CrossOriginResourcePolicy: "cross-origin",
	}))

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	// Global rate limiting (100 requests per minute per IP)
	limiterCfg := limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return isStaticPath(c.Path())
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			if isAPIRequest(c) {
				return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
					"error": "Too many requests, please try again later.",
				})
			}
			return c.Status(fiber.StatusTooManyRequests).SendString("Too many requests, please try again later.")
		},
	}
	if s.redis != nil {
		limiterCfg.Storage = session.NewRedisStorageWithPrefix(s.redis, "limiter:")
	}
	app.Use(limiter.New(limiterCfg))

	if s.config.CSRFEnabled {
		csrfCfg := csrf.Config{
			CookieName:     "csrf_",
			CookieSameSite: "Lax",
			CookieHTTPOnly: true,
			CookieSecure:   s.config.IsProduction(),
			Expiration:     1 * time.Hour,
			ContextKey:     csrfContextKey,
			Extractor:      csrfExtractor,
			Next: func(c *fiber.Ctx) bool {
				return isStaticPath(c.Path())
			},
			ErrorHandler: func(c *fiber.Ctx, err error) error {
				if isAPIRequest(c) {
					return models.RespondWithError(c, fiber.StatusForbidden, models.NewUnauthorizedError("Invalid CSRF token"))
				}
				return c.Status(fiber.StatusForbidden).SendString("Invalid CSRF token")
			},
		}
		if s.redis != nil {
			csrfCfg.Storage = session.NewRedisStorageWithPrefix(s.redis, "csrf:")
		}
		app.Use(csrf.New(csrfCfg))
	}
}

// credentialLimitPolicy keeps password guessing throttled in production even
// when the limiter store is down.
func (s *Server) credentialLimitPolicy() middleware.FailPolicy {
	if s.config.IsProduction() {
		return middleware.FailClosed
	}
	return middleware.FailOpen
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	mountStatic(app)

	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	app.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "Warbler Metrics Dashboard",
	}))

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	// Home and auth
	app.Get("/", s.Homepage)
	app.Get("/signup", s.ShowSignup)
	app.Post("/signup", middleware.RateLimitWithPolicy(s.redis, 5, 10*time.Minute, s.credentialLimitPolicy(), "signup"), s.Signup)
	app.Get("/login", s.ShowLogin)
	app.Post("/login", middleware.RateLimitWithPolicy(s.redis, 10, 5*time.Minute, s.credentialLimitPolicy(), "login"), s.Login)
	app.Post("/logout", s.Logout)

	// Users. Static segments are registered before /:id.
	users := app.Group("/users")
	users.Get("/", s.ListUsers)
	users.Get("/profile", s.AuthRequired(), s.ShowEditProfile)
	users.Post("/profile", s.AuthRequired(), s.UpdateProfile)
	users.Post("/delete", s.AuthRequired(), s.DeleteUser)
	users.Post("/follow/:id", s.AuthRequired(), s.Follow)
	users.Post("/stop-following/:id", s.AuthRequired(), s.StopFollowing)
	users.Get("/:id/following", s.AuthRequired(), s.ShowFollowing)
	users.Get("/:id/followers", s.AuthRequired(), s.ShowFollowers)
	users.Get("/:id/likes", s.AuthRequired(), s.ShowLikes)
	users.Get("/:id", s.ShowUser)

	// Messages
	messages := app.Group("/messages")
	messages.Get("/new", s.AuthRequired(), s.ShowNewMessage)
	messages.Post("/new", s.AuthRequired(), middleware.RateLimit(s.redis, 30, time.Minute, "create_message"), s.CreateMessage)
	messages.Post("/:id/delete", s.AuthRequired(), s.DeleteMessage)
	messages.Post("/:id/like", s.AuthRequired(), s.LikeMessage)
	messages.Post("/:id/unlike", s.AuthRequired(), s.UnlikeMessage)
	messages.Get("/:id", s.ShowMessage)

	// JSON API
	api := app.Group("/api")
	api.Get("/users/:id/messages", s.GetUserMessagesAPI)
	api.Get("/users/:id", s.GetUserAPI)
	api.Get("/messages/:id", s.GetMessageAPI)
	api.Post("/messages/:id/like", s.APIAuthRequired(), s.ToggleLikeAPI)

	// Everything else renders the 404 page
	app.Use(func(c *fiber.Ctx) error {
		return fiber.ErrNotFound
	})
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	// Redis is optional: sessions fall back to memory without it.
	redisStatus := "disabled"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// errorHandler renders the 404 page for unknown routes and ids, and the JSON
// envelope under /api.
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}

	if isAPIRequest(c) {
		switch code {
		case fiber.StatusNotFound:
			return models.RespondWithError(c, code, models.NewNotFoundError("Route", c.Path()))
		case fiber.StatusInternalServerError:
			middleware.Logger.ErrorContext(c.UserContext(), "Unhandled error", "error", err)
			return models.RespondWithError(c, code, models.NewInternalError(err))
		default:
			return c.Status(code).JSON(models.ErrorResponse{Error: err.Error()})
		}
	}

	if code == fiber.StatusNotFound {
		return s.renderStatus(c, fiber.StatusNotFound, "errors/404", fiber.Map{})
	}
	if code == fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "Unhandled error", "error", err)
	}
	return c.Status(code).SendString(utils.StatusMessage(code))
}

// Start starts the server
func (s *Server) Start() error {
	app, err := s.NewApp()
	if err != nil {
		return err
	}
	middleware.Logger.Info("Server starting", "port", s.config.Port)
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", "error", err)
		}
	}

	closeDB := func(db *gorm.DB) {
		if db == nil {
			return
		}
		if sqlDB, err := db.DB(); err == nil {
			if cerr := sqlDB.Close(); cerr != nil {
				middleware.Logger.Error("error closing sql DB", "error", cerr)
			}
		}
	}
	closeDB(database.GetReadDB())
	closeDB(s.db)

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", "error", rerr)
		}
	}

	middleware.Logger.Info("Server shutdown complete")
	return nil
}

func isAPIRequest(c *fiber.Ctx) bool {
	return strings.HasPrefix(c.Path(), "/api/")
}

func isStaticPath(path string) bool {
	return strings.HasPrefix(path, "/static/") ||
		strings.HasPrefix(path, "/health") ||
		path == "/metrics"
}
