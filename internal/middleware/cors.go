package middleware

import (
	"github.com/ahmetcoskunkizilkaya/listing-moderation/internal/config"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

func CORS(cfg *config.Config) fiber.Handler {
	return cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowHeaders:     "Origin, Content-Type, Authorization, Accept, X-CSRF-Token, X-Session-ID, X-Admin-Token",
		AllowMethods:     "GET, POST, PUT, OPTIONS",
		ExposeHeaders:    "Retry-After",
		AllowCredentials: false,
	})
}
