package dto

import (
	"time"

	"github.com/spec-kit/workspace-auth/internal/domain"
)

// LoginRequest payload for login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// ChangePasswordRequest payload for password change.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// RegisterCredentialRequest payload for provisioning a credential.
type RegisterCredentialRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Privilege string `json:"privilege"`
}

// SetStatusRequest payload for activation changes.
type SetStatusRequest struct {
	Active *bool `json:"active"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// CredentialResponse is the public view of a credential record.
type CredentialResponse struct {
	ID          string     `json:"id"`
	Username    string     `json:"username"`
	Email       string     `json:"email,omitempty"`
	Active      bool       `json:"is_active"`
	Elevated    bool       `json:"is_superuser"`
	Privilege   string     `json:"privilege"`
	LastLoginAt *time.Time `json:"last_login,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// NewAuthResponse wraps a bearer token.
func NewAuthResponse(token string, expiresAt time.Time) AuthResponse {
	return AuthResponse{AccessToken: token, TokenType: "bearer", ExpiresAt: expiresAt}
}

// NewCredentialResponse maps a record without its secret hash.
func NewCredentialResponse(record *domain.CredentialRecord) CredentialResponse {
	return CredentialResponse{
		ID:          record.ID,
		Username:    record.Identifier,
		Email:       record.Email,
		Active:      record.Active,
		Elevated:    record.Privilege == domain.PrivilegeElevated,
		Privilege:   string(record.Privilege),
		LastLoginAt: record.LastLoginAt,
		CreatedAt:   record.CreatedAt,
	}
}
