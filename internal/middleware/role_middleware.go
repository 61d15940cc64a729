package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ValenBorras/nutritional-coach-sub001/pkg/utils/jwt"
)

// RequireRole gates a route to one role. Runs after AuthMiddleware.
func RequireRole(role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := c.Locals("user").(*jwt.Claims)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Not authenticated",
				"code":  "UNAUTHENTICATED",
			})
		}

		if claims.Role != role {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "This action requires the " + role + " role",
				"code":  "FORBIDDEN",
			})
		}

		return c.Next()
	}
}
