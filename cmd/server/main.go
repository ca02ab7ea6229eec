package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"

	"github.com/ahmetcoskunkizilkaya/listing-moderation/internal/catalog"
	"github.com/ahmetcoskunkizilkaya/listing-moderation/internal/config"
	"github.com/ahmetcoskunkizilkaya/listing-moderation/internal/database"
	"github.com/ahmetcoskunkizilkaya/listing-moderation/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/listing-moderation/internal/jobs"
	"github.com/ahmetcoskunkizilkaya/listing-moderation/internal/logging"
	"github.com/ahmetcoskunkizilkaya/listing-moderation/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/listing-moderation/internal/models"
	"github.com/ahmetcoskunkizilkaya/listing-moderation/internal/routes"
	"github.com/ahmetcoskunkizilkaya/listing-moderation/internal/services"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

func main() {
	// Structured logging (JSON to stdout)
	logging.Setup()

	cfg := config.Load()

	if cfg.JWTSecret == "" {
		slog.Error("JWT_SECRET environment variable is required")
		os.Exit(1)
	}
	if cfg.DBPassword == "" {
		slog.Error("DB_PASSWORD environment variable is required")
		os.Exit(1)
	}
	if cfg.FingerprintSalt == "" {
		slog.Warn("FINGERPRINT_SALT is empty, reporter fingerprints are unsalted")
	}

	// Database
	if err := database.Connect(cfg); err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	if err := database.Migrate(database.DB); err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}

	// PostgreSQL log handler (async batch)
	pgLogHandler := logging.NewPGHandler(database.DB, cfg.LogPersistLevel)
	logging.WithDatabase(pgLogHandler)

	// Listing catalog
	var listings services.ListingCatalog
	if cfg.CatalogURL != "" {
		listings = catalog.NewHTTPCatalog(cfg.CatalogURL, cfg.CatalogTimeout)
		slog.Info("using remote listing catalog", "url", cfg.CatalogURL)
	} else {
		listings = catalog.NewDBCatalog(database.DB)
		slog.Info("using shared listings table")
	}

	// Services
	windows := services.NewWindowStore(cfg.RateLimitStore, database.DB)
	slog.Info("rate limit store selected", "store", cfg.RateLimitStore)
	limiter := services.NewRateLimiter(windows, cfg.ReportRateLimit, cfg.ReportRateWindow)
	reportStore := services.NewReportStore(database.DB, listings, cfg.ReportCommentMax, cfg.QueuePageSize)
	intake := services.NewReportIntake(limiter, reportStore)
	queue := services.NewModerationQueue(reportStore, listings)
	engine := services.NewDecisionEngine(reportStore, listings, cfg.DecisionMaxRetries, cfg.DecisionRetryBase)
	authService := services.NewAuthService(database.DB, cfg)

	seedModerator(authService, cfg)

	// Housekeeping (log retention, rate window eviction)
	housekeeping := jobs.NewHousekeeping(database.DB, windows,
		time.Duration(cfg.LogRetentionDays)*24*time.Hour, limiter.Window())
	if err := housekeeping.Start(); err != nil {
		slog.Error("housekeeping failed to start", "error", err)
		os.Exit(1)
	}

	// Handlers
	authHandler := handlers.NewAuthHandler(authService)
	healthHandler := handlers.NewHealthHandler(database.Ping)
	moderationHandler := handlers.NewModerationHandler(intake, queue, engine, reportStore, cfg.FingerprintSalt)

	// Sentry error tracking
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              dsn,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      os.Getenv("APP_ENV"),
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit:    64 * 1024,
		ErrorHandler: customErrorHandler,
	})

	// Sentry middleware
	app.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))

	// Global middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path} | ${locals:requestid}\n",
	}))
	app.Use(middleware.CORS(cfg))
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		return c.Next()
	})

	// Routes
	routes.Setup(app, cfg, database.DB, authHandler, healthHandler, moderationHandler)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	housekeeping.Stop()
	pgLogHandler.Stop()
	sentry.Flush(2 * time.Second)

	// Close database connections
	if sqlDB, err := database.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			slog.Error("database close error", "error", err)
		}
	}

	slog.Info("server stopped")
}

// seedModerator creates the configured staff account on first start.
func seedModerator(auth *services.AuthService, cfg *config.Config) {
	if cfg.SeedModeratorEmail == "" || cfg.SeedModeratorPassword == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	m, err := auth.CreateModerator(ctx, cfg.SeedModeratorEmail, cfg.SeedModeratorPassword, models.RoleAdmin)
	switch {
	case errors.Is(err, services.ErrEmailTaken):
		slog.Info("seed moderator already exists", "moderator_id", m.ID.String())
	case err != nil:
		slog.Error("failed to seed moderator", "error", err)
	default:
		slog.Info("seed moderator created", "moderator_id", m.ID.String())
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		message = e.Message
	}

	// Only expose error details for client errors (4xx), not server errors (5xx)
	if code >= 500 {
		slog.Error("unhandled server error",
			"method", c.Method(),
			"path", c.Path(),
			"error", err.Error(),
			"trace_id", c.Locals("requestid"),
		)
		message = "Internal server error"
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}
