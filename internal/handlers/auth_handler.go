package handlers

import (
	"errors"

	"github.com/ahmetcoskunkizilkaya/listing-moderation/internal/dto"
	"github.com/ahmetcoskunkizilkaya/listing-moderation/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/listing-moderation/internal/services"
	"github.com/gofiber/fiber/v2"
)

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	resp, err := h.authService.Login(c.UserContext(), &req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Internal server error",
		})
	}

	return c.JSON(resp)
}

// CSRFToken returns the anti-forgery token for the report routes. The CSRF
// middleware has already set the matching cookie.
func CSRFToken(c *fiber.Ctx) error {
	return c.JSON(dto.CSRFResponse{Token: middleware.CSRFToken(c)})
}
