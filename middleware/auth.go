package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"estateleads/models"
	"estateleads/utils"
)

// CurrentUser is the authenticated caller taken from the token claims
type CurrentUser struct {
	ID   uint
	Type string
}

func (u *CurrentUser) IsLister() bool {
	return models.IsListerType(u.Type)
}

// GetUser returns the caller stored by Protected, or nil
func GetUser(c *fiber.Ctx) *CurrentUser {
	user, _ := c.Locals("user").(*CurrentUser)
	return user
}

func Protected(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Try to get token from Authorization header first
		var token string
		authHeader := c.Get("Authorization")
		if authHeader != "" {
			tokenParts := strings.Split(authHeader, " ")
			if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
				return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Invalid authorization format", nil)
			}
			token = tokenParts[1]
		} else {
			// Browsers cannot set headers on websocket upgrades
			token = c.Query("token")
			if token == "" {
				return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Authorization required", nil)
			}
		}

		claims, err := utils.ParseToken(secret, token)
		if err != nil {
			return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Invalid or expired token", nil)
		}

		c.Locals("user", &CurrentUser{ID: claims.UserID, Type: claims.UserType})
		c.Locals("userID", claims.UserID)
		return c.Next()
	}
}

// ListersOnly rejects callers that cannot own leads
func ListersOnly() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := GetUser(c)
		if user == nil || !user.IsLister() {
			return utils.ErrorResponse(c, fiber.StatusForbidden, "Lister account required", nil)
		}
		return c.Next()
	}
}

// SeekersOnly rejects callers that are not marketplace seekers
func SeekersOnly() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := GetUser(c)
		if user == nil || user.Type != models.UserSeeker {
			return utils.ErrorResponse(c, fiber.StatusForbidden, "Seeker account required", nil)
		}
		return c.Next()
	}
}
