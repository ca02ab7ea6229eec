// Package session identifies the caller of a request: an anonymous reporter by
// fingerprint, or a moderator by JWT subject.
package session

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	CookieName = "report_session"
	HeaderName = "X-Session-ID"

	cookieMaxAge = 365 * 24 * time.Hour
	localsKey    = "session_id"
	moderatorKey = "moderator_id"
)

// Ensure gives every visitor a random session id cookie. Clients that cannot
// keep cookies may send the id back in X-Session-ID instead.
func Ensure() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := strings.TrimSpace(c.Get(HeaderName))
		if id == "" {
			id = c.Cookies(CookieName)
		}
		if id == "" {
			id = uuid.NewString()
			c.Cookie(&fiber.Cookie{
				Name:     CookieName,
				Value:    id,
				Path:     "/",
				Expires:  time.Now().Add(cookieMaxAge),
				HTTPOnly: true,
				SameSite: fiber.CookieSameSiteLaxMode,
			})
		}
		c.Locals(localsKey, id)
		return c.Next()
	}
}

// Fingerprint is the stable anonymous identity of a reporter: a salted hash of
// the client IP and session id. The raw values are never stored.
func Fingerprint(c *fiber.Ctx, salt string) string {
	sessionID, _ := c.Locals(localsKey).(string)
	if sessionID == "" {
		sessionID = strings.TrimSpace(c.Get(HeaderName))
	}
	if sessionID == "" {
		sessionID = c.Cookies(CookieName)
	}
	return hash(salt, c.IP(), sessionID)
}

// NetworkFingerprint is a salted hash of the client IP alone. The session id
// is chosen by the client, so limits that must hold against a rotating
// session are keyed on this instead.
func NetworkFingerprint(c *fiber.Ctx, salt string) string {
	return hash(salt, "net", c.IP())
}

func hash(salt string, parts ...string) string {
	h := sha256.New()
	h.Write([]byte(salt))
	for _, p := range parts {
		h.Write([]byte{0})
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// SetModeratorID records who is acting on this request.
func SetModeratorID(c *fiber.Ctx, id string) {
	c.Locals(moderatorKey, id)
}

// ModeratorID returns the acting moderator, set by the moderator middleware
// or taken from the JWT subject.
func ModeratorID(c *fiber.Ctx) (string, error) {
	if id, ok := c.Locals(moderatorKey).(string); ok && id != "" {
		return id, nil
	}
	claims, err := Claims(c)
	if err != nil {
		return "", err
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", errors.New("missing sub claim")
	}
	return sub, nil
}

// Claims extracts the JWT claims placed in context by the JWT middleware.
func Claims(c *fiber.Ctx) (jwt.MapClaims, error) {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok || token == nil {
		return nil, errors.New("invalid token in context")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid claims")
	}
	return claims, nil
}
