package auth

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// RequireElevated ensures the caller carries elevated privilege.
func RequireElevated() fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, ok := IdentityFromContext(c)
		if !ok {
			return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		}
		if !identity.Elevated() {
			return fiber.NewError(http.StatusForbidden, "elevated privilege required")
		}
		return c.Next()
	}
}

// RequireIdentity ensures the caller is authenticated.
func RequireIdentity() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := IdentityFromContext(c); !ok {
			return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		}
		return c.Next()
	}
}
