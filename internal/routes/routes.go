package routes

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/listing-moderation/internal/config"
	"github.com/ahmetcoskunkizilkaya/listing-moderation/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/listing-moderation/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/listing-moderation/internal/session"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"gorm.io/gorm"
)

func Setup(
	app *fiber.App,
	cfg *config.Config,
	db *gorm.DB,
	authHandler *handlers.AuthHandler,
	healthHandler *handlers.HealthHandler,
	moderationHandler *handlers.ModerationHandler,
) {
	api := app.Group("/api")

	// General API rate limiter: 60 req/min per IP
	api.Use(limiter.New(limiter.Config{
		Max:               60,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	api.Get("/health", healthHandler.Check)

	// One CSRF instance so tokens minted by /csrf are accepted on /reports.
	csrf := middleware.CSRF()
	api.Get("/csrf", session.Ensure(), csrf, handlers.CSRFToken)

	// Auth-specific rate limit: 10 req/min per IP (stricter)
	auth := api.Group("/auth")
	auth.Use(limiter.New(limiter.Config{
		Max:               10,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))
	auth.Post("/login", authHandler.Login)

	// Reports: anonymous submission, moderator queue and decisions
	reports := api.Group("/reports", csrf)
	reports.Post("/", session.Ensure(), moderationHandler.CreateReport)

	staff := []fiber.Handler{middleware.JWTProtected(cfg), middleware.ModeratorRequired(db, cfg)}
	reports.Get("/", append(staff, moderationHandler.ListReports)...)
	reports.Put("/:id", append(staff, moderationHandler.DecideReport)...)
}
