package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/codequest-api/internal/utils"
)

// Platform roles, lowest privilege first.
const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
	RoleAdmin   = "admin"
)

var roleRank = map[string]int{
	RoleStudent: 1,
	RoleTeacher: 2,
	RoleAdmin:   3,
}

// RequireRole admits authenticated callers whose role ranks at or above
// minimum. Unknown roles rank below student.
func RequireRole(minimum string) fiber.Handler {
	required := roleRank[strings.ToLower(strings.TrimSpace(minimum))]

	return func(c *fiber.Ctx) error {
		if UserID(c) == 0 {
			return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
		}
		if roleRank[normalizeRole(c.Locals("user_role"))] < required || required == 0 {
			return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
		}
		return c.Next()
	}
}

// RequireAuthor admits teachers and admins, who may publish challenges.
func RequireAuthor() fiber.Handler {
	return RequireRole(RoleTeacher)
}
