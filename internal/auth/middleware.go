package auth

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/workspace-auth/internal/domain"
)

const identityKey = "auth_identity"

// Authorizer resolves a bearer token to an identity.
type Authorizer interface {
	Authorize(ctx context.Context, token string) (*domain.IdentityContext, error)
}

// AuthMiddleware validates bearer tokens and stores the resolved identity.
type AuthMiddleware struct {
	authorizer Authorizer
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(authorizer Authorizer) *AuthMiddleware {
	return &AuthMiddleware{authorizer: authorizer}
}

// Handle enforces authentication for protected routes. Errors are returned as
// auth sentinels and rendered by the error-handling middleware.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	token, ok := BearerToken(c.Get(fiber.HeaderAuthorization))
	if !ok {
		return ErrMissingToken
	}

	identity, err := m.authorizer.Authorize(c.UserContext(), token)
	if err != nil {
		return err
	}

	c.Locals(identityKey, identity)
	return c.Next()
}

// BearerToken extracts the credential from an Authorization header value.
func BearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

// IdentityFromContext retrieves the authenticated identity.
func IdentityFromContext(c *fiber.Ctx) (*domain.IdentityContext, bool) {
	val := c.Locals(identityKey)
	if val == nil {
		return nil, false
	}
	identity, ok := val.(*domain.IdentityContext)
	return identity, ok
}
