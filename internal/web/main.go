// Package web assembles the HTTP API: the fiber app, middleware chain
// and route registration for every handler group.
package web

import (
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	storagemysql "github.com/gofiber/storage/mysql/v2"
	storagepostgres "github.com/gofiber/storage/postgres/v3"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/lendkeeper/lendkeeper/internal/audit"
	"github.com/lendkeeper/lendkeeper/internal/auth"
	"github.com/lendkeeper/lendkeeper/internal/config"
	"github.com/lendkeeper/lendkeeper/internal/db/dsn"
	"github.com/lendkeeper/lendkeeper/internal/loans"
	"github.com/lendkeeper/lendkeeper/internal/products"
	"github.com/lendkeeper/lendkeeper/internal/users"
	"github.com/lendkeeper/lendkeeper/internal/volunteers"
	audithandler "github.com/lendkeeper/lendkeeper/internal/web/handler/auditlog"
	authhandler "github.com/lendkeeper/lendkeeper/internal/web/handler/authn"
	loanhandler "github.com/lendkeeper/lendkeeper/internal/web/handler/loan"
	producthandler "github.com/lendkeeper/lendkeeper/internal/web/handler/product"
	userhandler "github.com/lendkeeper/lendkeeper/internal/web/handler/user"
	volunteerhandler "github.com/lendkeeper/lendkeeper/internal/web/handler/volunteer"
)

// Service represents the web service.
type Service struct {
	App          *fiber.App
	cfg          *config.Config
	fastShutDown bool
	alive        atomic.Bool
	db           *gorm.DB
	authService  *auth.Service
}

// Start starts the web service on the given address.
func (s *Service) Start(addr string) error {
	var doneFiber = make(chan bool)

	go func() {
		if err := s.App.Listen(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Msgf("fiber listen error: %v", err)
		}

		doneFiber <- true
	}()

	<-doneFiber // wait for fiber to stop

	return nil
}

// WaitShutdown waits for graceful shutdown of the web service.
func (s *Service) WaitShutdown() {
	irqSig := make(chan os.Signal, 1)
	signal.Notify(irqSig, syscall.SIGINT, syscall.SIGTERM)

	sig := <-irqSig
	log.Info().Msgf("shutdown request (signal: %v)", sig)

	// Graceful shutdown for reverse proxies: report unhealthy first, so
	// the LB removes this pod from active targets before listening stops.
	if !s.fastShutDown {
		log.Info().Msgf(
			"graceful shutdown: return 503 while %d seconds to let LB to remove this pod from active targets",
			s.cfg.Webserver.ShutDownTime,
		)

		s.alive.Store(false)
		time.Sleep(time.Duration(s.cfg.Webserver.ShutDownTime) * time.Second)
	}

	serverShutdown := make(chan struct{})

	go func() {
		log.Info().Msg("stopping http server ...")

		err := s.App.Shutdown()
		if err != nil {
			log.Error().Err(err).Msg("")
		}

		serverShutdown <- struct{}{}
	}()

	<-serverShutdown
	log.Info().Msg("http server was stopped ... good bye...")
}

// rateLimitStorage returns the shared counter store for the login rate
// limiter. MySQL and Postgres keep counters in the database so they
// survive restarts and cover all replicas; sqlite deployments fall back
// to fiber's in-memory store.
func rateLimitStorage(cfg *config.Config) fiber.Storage {
	switch cfg.DB.GormEngine {
	case "mysql":
		return storagemysql.New(storagemysql.Config{
			ConnectionURI: dsn.MySQL(cfg),
			Table:         "rate_limits",
		})
	case "postgres":
		return storagepostgres.New(storagepostgres.Config{
			ConnectionURI: dsn.PostgresURI(cfg),
			Table:         "rate_limits",
		})
	default:
		return nil
	}
}

// New creates a new web service with the given configuration.
func New(cfg *config.Config, db *gorm.DB) *Service {
	if cfg == nil {
		panic("config cannot be nil")
	}

	if db == nil {
		panic("db cannot be nil")
	}

	app := fiber.New(
		fiber.Config{
			ReadBufferSize: 8192,
			AppName:        cfg.Title,
			CaseSensitive:  true,
			Prefork:        false,
			Immutable:      true,
			ErrorHandler:   errorHandler(cfg.Language),
		},
	)

	if !cfg.Webserver.DisableRecover {
		app.Use(recover.New())
	}

	// Domain services.
	auditService := audit.NewService(db, cfg.Audit.RetentionDays)
	authService := auth.NewService(db)
	issuer := auth.NewTokenIssuer(&cfg.Auth)
	provider := auth.NewLocalProvider(db, issuer, auditService)
	userService := users.NewService(db, authService, auditService)
	productService := products.NewService(db, auditService)
	loanService := loans.NewService(db, auditService)
	volunteerService := volunteers.NewService(db, auditService)

	service := &Service{
		cfg:         cfg,
		App:         app,
		db:          db,
		authService: authService,
	}
	service.alive.Store(true)

	healthz := func(c *fiber.Ctx) error {
		if !service.alive.Load() {
			return c.SendStatus(fiber.StatusServiceUnavailable)
		}

		return c.JSON(fiber.Map{"status": "ok"})
	}
	// Both paths serve the probe: /health for load balancers, /api/health
	// for clients that only reach the API prefix.
	app.Get("/health", healthz)
	app.Get("/api/health", healthz)

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Every API request after this point lands in the audit trail.
	app.Use("/api", auditService.Interceptor())

	if cfg.Auth.LoginRateLimit > 0 {
		app.Use("/api/auth", limiter.New(limiter.Config{
			Max:        cfg.Auth.LoginRateLimit,
			Expiration: time.Minute,
			Storage:    rateLimitStorage(cfg),
			Next: func(c *fiber.Ctx) bool {
				// Only credential submissions are limited.
				return c.Method() != fiber.MethodPost
			},
		}))
	}

	// init handlers (they register their own routes with permission checks)
	authhandler.Handler.Init(app, cfg, provider, issuer, authService)
	userhandler.Handler.Init(app, cfg, userService, issuer, authService)
	producthandler.Handler.Init(app, cfg, productService, issuer, authService)
	loanhandler.Handler.Init(app, cfg, loanService, issuer, authService)
	volunteerhandler.Handler.Init(app, cfg, volunteerService, issuer, authService)
	audithandler.Handler.Init(app, cfg, auditService, issuer, authService)

	return service
}
