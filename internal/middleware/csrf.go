package middleware

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/listing-moderation/internal/dto"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/utils"
)

const (
	CSRFHeader     = "X-CSRF-Token"
	CSRFCookie     = "csrf_"
	CSRFContextKey = "csrf"
)

// CSRF is a double-submit cookie check for the report routes. Safe methods
// mint a token, unsafe methods must echo it in X-CSRF-Token.
func CSRF() fiber.Handler {
	return csrf.New(csrf.Config{
		KeyLookup:      "header:" + CSRFHeader,
		CookieName:     CSRFCookie,
		CookieSameSite: "Lax",
		CookieHTTPOnly: false,
		Expiration:     1 * time.Hour,
		KeyGenerator:   utils.UUIDv4,
		ContextKey:     CSRFContextKey,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
				Error: true, Message: "Missing or invalid CSRF token",
			})
		},
	})
}

// CSRFToken returns the token minted for this request.
func CSRFToken(c *fiber.Ctx) string {
	token, _ := c.Locals(CSRFContextKey).(string)
	return token
}
