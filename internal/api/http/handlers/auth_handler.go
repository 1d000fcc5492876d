package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/workspace-auth/internal/api/dto"
	"github.com/spec-kit/workspace-auth/internal/auth"
	"github.com/spec-kit/workspace-auth/internal/service"
)

// AuthHandler exposes login and session endpoints.
type AuthHandler struct {
	auth     *service.AuthService
	accounts *service.AccountService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService, accountService *service.AccountService) *AuthHandler {
	return &AuthHandler{auth: authService, accounts: accountService}
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	result, err := h.auth.Authenticate(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"user": dto.NewCredentialResponse(result.Credential),
			"auth": dto.NewAuthResponse(result.Token, result.ExpiresAt),
		},
	})
}

// Me handles GET /auth/me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return auth.ErrUnknownSubject
	}

	record, err := h.accounts.Profile(c.UserContext(), identity.Subject)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"user":             dto.NewCredentialResponse(record),
			"token_expires_at": identity.ExpiresAt,
		},
	})
}

// ChangePassword handles POST /auth/password/change. Earlier tokens stop
// working, so a fresh one is issued for the updated record.
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return auth.ErrUnknownSubject
	}

	var req dto.ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	record, err := h.accounts.ChangePassword(c.UserContext(), identity, req.CurrentPassword, req.NewPassword)
	if err != nil {
		return err
	}

	result, err := h.auth.IssueFor(record)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"auth": dto.NewAuthResponse(result.Token, result.ExpiresAt),
		},
	})
}
