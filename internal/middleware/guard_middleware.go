package middleware

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"storefront/internal/models"
	"storefront/internal/services"
)

// AuthRequired gates a route group behind the access guard. It waits
// for session readiness, then either passes the request through or
// redirects to the guard's verdict route.
func AuthRequired(guard *services.AccessGuard) fiber.Handler {
	return func(c *fiber.Ctx) error {
		decision, err := guard.RequireAuth(c.Context())
		if err != nil {
			log.Printf("Auth guard wait aborted: %v", err)
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"message": "Session state not ready",
			})
		}
		if !decision.Allowed {
			return c.Redirect(decision.RedirectTo, fiber.StatusSeeOther)
		}
		return c.Next()
	}
}

// RoleRequired gates a route group behind a specific role. Wrong-role
// access is redirected to the neutral default route, not login.
func RoleRequired(guard *services.AccessGuard, role models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		decision, err := guard.RequireRole(c.Context(), role)
		if err != nil {
			log.Printf("Role guard wait aborted: %v", err)
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"message": "Session state not ready",
			})
		}
		if !decision.Allowed {
			return c.Redirect(decision.RedirectTo, fiber.StatusSeeOther)
		}
		return c.Next()
	}
}
