// Package main is the entry point for the API server.
// It initializes all dependencies, sets up the HTTP server,
// and starts the application.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"finops/internal/config"
	"finops/internal/handlers"
	"finops/internal/metrics"
	"finops/internal/repositories"
	"finops/internal/repositories/cache"
	"finops/internal/routes"
	"finops/internal/services/adjustment"
	"finops/internal/services/auth"
	"finops/internal/services/commission"
	"finops/internal/services/ledger"
	"finops/internal/services/operation"
	"finops/internal/services/recharge"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"
)

const version = "1.0.0"

// main initializes and starts the HTTP server.
// It performs the following setup:
// - Loads configuration
// - Initializes database and redis connections
// - Sets up dependency injection
// - Configures routes
// - Starts the HTTP server and drains it on SIGINT/SIGTERM
func main() {
	cfg := config.Load()
	log := newLogger(cfg)

	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}

	db, err := repositories.InitDB(cfg.DB, log)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize database")
	}
	defer func() {
		if err := repositories.Close(db); err != nil {
			log.WithError(err).Warn("failed to close database connection")
		}
	}()
	store := repositories.NewStore(db)

	redisClient := cache.NewRedisClient(cfg.Redis)
	var cacheService *cache.CacheService
	if redisClient != nil {
		if err := cache.Ping(context.Background(), redisClient); err != nil {
			log.WithError(err).Warn("redis unavailable, Idempotency-Key replay disabled")
			_ = redisClient.Close()
			redisClient = nil
		} else {
			cacheService = cache.NewCacheService(redisClient, cfg.IdempotencyTTL)
			defer func() {
				if err := cacheService.Close(); err != nil {
					log.WithError(err).Warn("failed to close redis connection")
				}
			}()
			log.Info("connected to redis")
		}
	}

	collector := metrics.New()
	ledgerService := ledger.NewService(store, ledger.Config{MaxRetries: cfg.LedgerMaxRetries}, collector, log)

	deps := routes.Dependencies{
		Auth: auth.NewService(store, auth.Config{
			Secret:   cfg.JWTSecret,
			Audience: cfg.JWTAudience,
		}, log),
		Ledger:         ledgerService,
		Recharge:       recharge.NewService(ledgerService, log),
		Commission:     commission.NewService(ledgerService, log),
		Operation:      operation.NewService(ledgerService, log),
		Adjustment:     adjustment.NewService(ledgerService, log),
		Health:         handlers.NewHealthHandler(store, redisClient, version),
		IdempotencyTTL: cfg.IdempotencyTTL,
		Log:            log,
	}
	if cacheService != nil {
		deps.Idempotency = cacheService
	}

	app := fiber.New(fiber.Config{
		AppName:      "finops",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Idempotency-Key",
		AllowMethods:     "GET,POST,HEAD,OPTIONS",
		AllowCredentials: true,
	}))
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
		Output: log.Writer(),
	}))
	app.Use(collector.Middleware())
	app.Use("/api", limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"success": false,
				"error":   "Too many requests. Please try again later.",
			})
		},
	}))

	app.Get("/metrics", adaptor.HTTPHandler(collector.Handler()))
	routes.SetupRoutes(app, deps)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.WithError(err).Fatal("server stopped")
		}
	}()
	log.WithFields(logrus.Fields{"port": cfg.Port, "env": cfg.Env}).Info("server started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
}

func newLogger(cfg config.Config) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)
	if cfg.IsProduction() {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	return log
}
