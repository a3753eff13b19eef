package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/codequest-api/internal/utils"
)

// RequireUser rejects requests that did not carry a token identifying a user.
// It is meant to sit behind OptionalJWT on routes that mix anonymous and
// authenticated access.
func RequireUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if UserID(c) == 0 {
			return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
		}
		return c.Next()
	}
}

// UserID returns the authenticated user id bound by the JWT middlewares, 0 when anonymous.
func UserID(c *fiber.Ctx) uint {
	switch v := c.Locals("user_id").(type) {
	case uint:
		return v
	case int:
		if v < 0 {
			return 0
		}
		return uint(v)
	default:
		return 0
	}
}
