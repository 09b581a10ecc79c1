package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v3"

	"cinelog-api/internal/auth"
)

// UserIDKey is the Locals key the auth middleware stores the authenticated
// user id under (as int64).
const UserIDKey = "user_id"

// RequireAuth verifies the Bearer access token and stores the user id in
// Locals. Requests without a valid token are rejected.
func RequireAuth(tokens *auth.TokenManager) fiber.Handler {
	return func(c fiber.Ctx) error {
		userID, ok := bearerUserID(c, tokens)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing or invalid bearer token",
			})
		}
		c.Locals(UserIDKey, userID)
		return c.Next()
	}
}

// OptionalAuth stores the user id in Locals when a valid Bearer token is
// present, and lets the request through anonymously otherwise.
func OptionalAuth(tokens *auth.TokenManager) fiber.Handler {
	return func(c fiber.Ctx) error {
		if userID, ok := bearerUserID(c, tokens); ok {
			c.Locals(UserIDKey, userID)
		}
		return c.Next()
	}
}

func bearerUserID(c fiber.Ctx, tokens *auth.TokenManager) (int64, bool) {
	header := c.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return 0, false
	}
	token := strings.TrimPrefix(header, "Bearer ")
	if token == "" {
		return 0, false
	}
	userID, err := tokens.Verify(token, auth.TypeAccess)
	if err != nil {
		return 0, false
	}
	return userID, true
}
