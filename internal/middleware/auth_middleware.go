package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/ValenBorras/nutritional-coach-sub001/pkg/utils/jwt"
)

// AuthMiddleware validates the bearer token and stores the claims in
// Locals("user") for downstream handlers.
func AuthMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get("Authorization")
		if header == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing authorization header",
				"code":  "UNAUTHENTICATED",
			})
		}

		tokenString := strings.TrimPrefix(header, "Bearer ")
		if tokenString == header {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid authorization header format",
				"code":  "UNAUTHENTICATED",
			})
		}

		claims, err := jwt.ValidateToken(tokenString)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
				"code":  "UNAUTHENTICATED",
			})
		}

		c.Locals("user", claims)
		return c.Next()
	}
}
