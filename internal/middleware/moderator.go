package middleware

import (
	"strings"

	"github.com/ahmetcoskunkizilkaya/listing-moderation/internal/config"
	"github.com/ahmetcoskunkizilkaya/listing-moderation/internal/dto"
	"github.com/ahmetcoskunkizilkaya/listing-moderation/internal/models"
	"github.com/ahmetcoskunkizilkaya/listing-moderation/internal/session"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AdminTokenModeratorID is recorded as resolved_by for decisions made with
// the X-Admin-Token header.
const AdminTokenModeratorID = "admin-token"

// ModeratorRequired lets a request through when any of these hold:
// 1. X-Admin-Token matches the configured admin token
// 2. the JWT email or subject is in the configured allow-lists
// 3. the JWT subject is a moderator or admin in the moderators table
//
// The acting moderator id is stored for the handlers.
func ModeratorRequired(db *gorm.DB, cfg *config.Config) fiber.Handler {
	adminEmails := parseCSV(cfg.AdminEmails)
	adminUserIDs := parseCSV(cfg.AdminUserIDs)

	return func(c *fiber.Ctx) error {
		if cfg.AdminToken != "" && c.Get("X-Admin-Token") == cfg.AdminToken {
			session.SetModeratorID(c, AdminTokenModeratorID)
			return c.Next()
		}

		claims, err := session.Claims(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: "Unauthorized",
			})
		}

		email, _ := claims["email"].(string)
		sub, _ := claims["sub"].(string)
		if sub == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: "Invalid claims",
			})
		}

		if contains(adminEmails, strings.ToLower(email)) || contains(adminUserIDs, sub) {
			session.SetModeratorID(c, sub)
			return c.Next()
		}

		if id, err := uuid.Parse(sub); err == nil {
			var moderator models.Moderator
			if err := db.WithContext(c.UserContext()).First(&moderator, "id = ?", id).Error; err == nil {
				if moderator.Role == models.RoleModerator || moderator.Role == models.RoleAdmin {
					session.SetModeratorID(c, sub)
					return c.Next()
				}
			}
		}

		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
			Error: true, Message: "Moderator access required",
		})
	}
}

func parseCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			result = append(result, strings.ToLower(trimmed))
		}
	}
	return result
}

func contains(list []string, val string) bool {
	for _, item := range list {
		if item == val {
			return true
		}
	}
	return false
}
