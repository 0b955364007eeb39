// Package server contains the HTTP handlers and page rendering of the poll site.
package server

import (
	"context"
	"fmt"
	"log"
	"time"

	"pollhub/internal/cache"
	"pollhub/internal/config"
	"pollhub/internal/database"
	"pollhub/internal/featureflags"
	"pollhub/internal/messages"
	"pollhub/internal/middleware"
	"pollhub/internal/notifications"
	"pollhub/internal/repository"
	"pollhub/internal/service"
	"pollhub/internal/session"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// requestTimeout bounds the service calls made by a single handler.
const requestTimeout = 5 * time.Second

// wireableHub is implemented by hubs that fan Redis events out to local
// subscribers and need a graceful stop.
type wireableHub interface {
	Name() string
	StartWiring(ctx context.Context, n *notifications.Notifier) error
	Shutdown(ctx context.Context) error
}

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc
	userRepo       repository.UserRepository
	questionRepo   repository.QuestionRepository
	notifier       *notifications.Notifier
	resultsHub     *notifications.Hub
	hubs           []wireableHub
	featureFlags   *featureflags.Manager
	catalog        *messages.Catalog
	sessions       *session.Manager
	avatars        *service.AvatarService
	authService    *service.AuthService
	userService    *service.UserService
	pollService    *service.PollService
}

// NewServer connects to the database and Redis and returns a ready Server.
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	// Redis is optional; sessions, rate limits and live results degrade without it.
	cache.InitRedis(cfg.RedisURL)

	return NewServerWithDeps(cfg, db, cache.GetClient())
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	var store session.RevocationStore
	if redisClient != nil {
		store = session.NewRedisStore(redisClient)
	}
	sessions, err := session.NewManager(session.Options{
		Secret:       cfg.SessionSecret,
		TTL:          time.Duration(cfg.SessionTTLHours) * time.Hour,
		CookieSecure: cfg.SessionCookieSecure,
	}, store)
	if err != nil {
		return nil, fmt.Errorf("session manager: %w", err)
	}

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("pollhub"),
		userRepo:       repository.NewUserRepository(db),
		questionRepo:   repository.NewQuestionRepository(db),
		resultsHub:     notifications.NewHub(),
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
		catalog:        messages.NewCatalog(cfg.DefaultLocale),
		sessions:       sessions,
		avatars:        service.NewAvatarService(cfg.MediaDir),
	}
	s.hubs = []wireableHub{s.resultsHub}
	s.notifier = notifications.NewNotifier(redisClient, s.resultsHub)

	s.authService = service.NewAuthService(s.userRepo, s.avatars, cfg.AvatarMaxSizeBytes)
	s.userService = service.NewUserService(s.userRepo, s.avatars, cfg.AvatarMaxSizeBytes)
	s.pollService = service.NewPollService(s.questionRepo, s.notifier)

	return s, nil
}

// NewApp builds the Fiber application with views, middleware and routes.
func (s *Server) NewApp() *fiber.App {
	bodyLimit := int(s.config.AvatarMaxSizeBytes) + 1<<20
	if bodyLimit < 4<<20 {
		bodyLimit = 4 << 20
	}

	app := fiber.New(fiber.Config{
		AppName:      "pollhub",
		Views:        newViewEngine(s.catalog),
		ErrorHandler: s.ErrorHandler,
		BodyLimit:    bodyLimit,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.ContextMiddleware())
	app.Use(middleware.TracingMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodGet && isProbePath(c.Path())
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return fiber.NewError(fiber.StatusTooManyRequests)
		},
	}))

	app.Use(s.LocaleMiddleware())
	app.Use(middleware.LoadViewer(s.sessions, s.userRepo))
}

func isProbePath(p string) bool {
	return p == "/health/live" || p == "/health/ready" || p == "/metrics"
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	app.Static("/media", s.config.MediaDir, fiber.Static{Browse: false})

	// Results and the live stream are public and never carry a form.
	app.Get("/polls/:id/results/stream", s.ResultsStream)
	app.Get("/polls/:id/results", s.Results)

	// Everything below may render or accept a form.
	pages := app.Group("", s.csrfMiddleware())
	loginRequired := middleware.LoginRequired()

	accounts := pages.Group("/accounts")
	accounts.Get("/login", s.LoginPage)
	accounts.Post("/login", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)
	accounts.Get("/register", s.RegisterPage)
	accounts.Post("/register", middleware.RateLimit(s.redis, 5, 10*time.Minute, "register"), s.Register)
	accounts.Get("/logout", loginRequired, s.Logout)
	accounts.Get("/profile", loginRequired, s.Profile)
	accounts.Get("/profile/edit", loginRequired, s.EditProfilePage)
	accounts.Post("/profile/edit", loginRequired, s.EditProfile)
	accounts.Get("/profile/delete", loginRequired, s.DeleteProfilePage)
	accounts.Post("/profile/delete", loginRequired, s.DeleteProfile)

	pages.Get("/", s.indexAccess(), s.Index)

	polls := pages.Group("/polls", loginRequired)
	polls.Get("/new", s.NewPollPage)
	polls.Post("/new", middleware.RateLimit(s.redis, 10, time.Minute, "create_poll"), s.CreatePoll)
	polls.Post("/:id/vote", s.Vote)
	polls.Get("/:id", s.Detail)
}

// indexAccess requires a login for the index unless anonymous_index is on.
func (s *Server) indexAccess() fiber.Handler {
	loginRequired := middleware.LoginRequired()
	return func(c *fiber.Ctx) error {
		if s.featureFlags.Enabled(featureflags.AnonymousIndex, middleware.ViewerFrom(c).UserID) {
			return c.Next()
		}
		return loginRequired(c)
	}
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests. Redis is optional, so only
// a configured but unreachable Redis fails the probe.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), requestTimeout)
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
		redisStatus = "disabled"
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

// Start starts the server
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	s.app = s.NewApp()

	if s.redis != nil {
		for _, h := range s.hubs {
			h := h
			go func() {
				if err := h.StartWiring(s.shutdownCtx, s.notifier); err != nil {
					log.Printf("failed to start %s wiring: %v", h.Name(), err)
				}
			}()
		}
	}

	log.Printf("Server starting on port %s...", s.config.Port)
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	// Closing the hubs first ends open result streams so the HTTP server can drain.
	for _, h := range s.hubs {
		if err := h.Shutdown(ctx); err != nil {
			log.Printf("error shutting down %s: %v", h.Name(), err)
		}
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Printf("error shutting down HTTP server: %v", err)
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Printf("error closing sql DB: %v", cerr)
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			log.Printf("error closing redis: %v", rerr)
		}
	}

	log.Println("Server shutdown complete")
	return nil
}
