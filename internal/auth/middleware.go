package auth

import (
	"github.com/gofiber/fiber/v2"
)

const ClaimsKey = "auth_claims"

// Middleware rejects requests without a valid bearer token and stores the
// claims in locals for downstream handlers.
func Middleware(v *Verifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := ParseBearerToken(c.Get(fiber.HeaderAuthorization))
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
		}
		claims, err := v.Verify(token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
		}
		c.Locals(ClaimsKey, claims)
		return c.Next()
	}
}

// ClaimsFrom returns the claims stored by Middleware, nil when absent.
func ClaimsFrom(c *fiber.Ctx) *Claims {
	claims, _ := c.Locals(ClaimsKey).(*Claims)
	return claims
}
