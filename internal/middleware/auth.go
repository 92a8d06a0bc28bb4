package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/medirx/internal/apperr"
	"github.com/example/medirx/internal/config"
	"github.com/example/medirx/internal/utils"
)

const (
	userContextKey  = "currentUserID"
	rolesContextKey = "currentUserRoles"
)

// AuthMiddleware validates JWT bearer tokens and loads the authenticated
// user ID and roles into context.
func AuthMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return apperr.Unauthorized("missing authorization header")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return apperr.Unauthorized("invalid authorization header")
		}

		userID, roles, err := utils.ParseToken(cfg.JWTSecret, parts[1])
		if err != nil {
			return apperr.Unauthorized("invalid token")
		}

		c.Locals(userContextKey, userID)
		c.Locals(rolesContextKey, roles)
		return c.Next()
	}
}

// RequireRole guards a route group behind one of the given roles.
func RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		held, _ := c.Locals(rolesContextKey).([]string)
		for _, want := range roles {
			for _, have := range held {
				if strings.EqualFold(want, have) {
					return c.Next()
				}
			}
		}
		return apperr.Forbidden("access denied")
	}
}

// GetCurrentUserID extracts the authenticated user ID from context.
func GetCurrentUserID(c *fiber.Ctx) (uuid.UUID, bool) {
	value := c.Locals(userContextKey)
	if value == nil {
		return uuid.Nil, false
	}

	if id, ok := value.(uuid.UUID); ok {
		return id, true
	}

	return uuid.Nil, false
}
