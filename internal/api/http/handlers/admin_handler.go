package handlers

import (
	"net/http"
	"net/url"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/workspace-auth/internal/api/dto"
	"github.com/spec-kit/workspace-auth/internal/auth"
	"github.com/spec-kit/workspace-auth/internal/domain"
	"github.com/spec-kit/workspace-auth/internal/service"
)

// AdminHandler exposes credential management for elevated callers.
type AdminHandler struct {
	accounts *service.AccountService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(accountService *service.AccountService) *AdminHandler {
	return &AdminHandler{accounts: accountService}
}

// List handles GET /admin/credentials.
func (h *AdminHandler) List(c *fiber.Ctx) error {
	records, err := h.accounts.List(c.UserContext())
	if err != nil {
		return err
	}

	resp := make([]dto.CredentialResponse, 0, len(records))
	for _, record := range records {
		resp = append(resp, dto.NewCredentialResponse(record))
	}
	return c.JSON(fiber.Map{"data": resp})
}

// Register handles POST /admin/credentials.
func (h *AdminHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterCredentialRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Username == "" || req.Password == "" {
		return fiber.NewError(http.StatusBadRequest, "username and password required")
	}

	actor := ""
	if identity, ok := auth.IdentityFromContext(c); ok {
		actor = identity.Subject
	}

	record, err := h.accounts.Register(c.UserContext(), actor, service.RegisterInput{
		Identifier: req.Username,
		Email:      req.Email,
		Secret:     req.Password,
		Privilege:  domain.Privilege(req.Privilege),
	})
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewCredentialResponse(record)})
}

// SetStatus handles PATCH /admin/credentials/:identifier/status.
func (h *AdminHandler) SetStatus(c *fiber.Ctx) error {
	identifier, err := url.PathUnescape(c.Params("identifier"))
	if err != nil || identifier == "" {
		return fiber.NewError(http.StatusBadRequest, "invalid identifier")
	}

	var req dto.SetStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Active == nil {
		return fiber.NewError(http.StatusBadRequest, "active required")
	}

	identity, _ := auth.IdentityFromContext(c)
	record, err := h.accounts.SetActive(c.UserContext(), identity, identifier, *req.Active)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"data": dto.NewCredentialResponse(record)})
}
