package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

func newRoleApp(guard fiber.Handler, userID interface{}, role interface{}) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if userID != nil {
			c.Locals("user_id", userID)
		}
		if role != nil {
			c.Locals("user_role", role)
		}
		return c.Next()
	})
	app.Use(guard)
	app.Post("/challenges", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusCreated)
	})
	return app
}

func roleRequest(t *testing.T, app *fiber.App) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/challenges", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp.StatusCode
}

func TestRequireAuthorAllowsTeachersAndAdmins(t *testing.T) {
	require.Equal(t, fiber.StatusCreated, roleRequest(t, newRoleApp(RequireAuthor(), uint(1), "admin")))
	require.Equal(t, fiber.StatusCreated, roleRequest(t, newRoleApp(RequireAuthor(), uint(2), " Teacher ")))
}

func TestRequireAuthorRejectsStudents(t *testing.T) {
	require.Equal(t, fiber.StatusForbidden, roleRequest(t, newRoleApp(RequireAuthor(), uint(3), "student")))
	require.Equal(t, fiber.StatusForbidden, roleRequest(t, newRoleApp(RequireAuthor(), uint(3), nil)))
	require.Equal(t, fiber.StatusForbidden, roleRequest(t, newRoleApp(RequireAuthor(), uint(3), "guest")))
}

func TestRequireRoleRejectsAnonymous(t *testing.T) {
	require.Equal(t, fiber.StatusUnauthorized, roleRequest(t, newRoleApp(RequireAuthor(), nil, "admin")))
}

func TestRequireRoleHierarchy(t *testing.T) {
	adminOnly := RequireRole(RoleAdmin)
	require.Equal(t, fiber.StatusForbidden, roleRequest(t, newRoleApp(adminOnly, uint(1), "teacher")))
	require.Equal(t, fiber.StatusCreated, roleRequest(t, newRoleApp(adminOnly, uint(1), "admin")))

	anyone := RequireRole(RoleStudent)
	require.Equal(t, fiber.StatusCreated, roleRequest(t, newRoleApp(anyone, uint(1), "student")))

	misconfigured := RequireRole("superuser")
	require.Equal(t, fiber.StatusForbidden, roleRequest(t, newRoleApp(misconfigured, uint(1), "admin")))
}
