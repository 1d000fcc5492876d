package http

import (
	"errors"
	"strings"

	"github.com/spec-kit/workspace-auth/internal/auth"
	"github.com/spec-kit/workspace-auth/internal/domain"
	"github.com/spec-kit/workspace-auth/internal/service"
	"github.com/spec-kit/workspace-auth/pkg/util/errorutil"
)

// toDomainError maps auth and service errors onto transport errors. Token and
// credential failures are rendered with fixed messages so the response never
// reveals which check failed.
func toDomainError(err error) *errorutil.DomainError {
	switch {
	case errors.Is(err, auth.ErrMalformedRequest):
		return errorutil.NewValidationError("username and password required", nil)
	case errors.Is(err, auth.ErrInvalidCredentials):
		return errorutil.NewInvalidCredentials()
	case errors.Is(err, auth.ErrMissingToken):
		return errorutil.NewUnauthorized("authentication required")
	case auth.IsTokenError(err):
		return errorutil.NewUnauthorized("invalid token")
	case errors.Is(err, service.ErrTooManyAttempts):
		return errorutil.NewTooManyRequests("too many failed login attempts, try again later")
	case errors.Is(err, service.ErrInvalidInput):
		return errorutil.NewValidationError(strings.TrimPrefix(err.Error(), service.ErrInvalidInput.Error()+": "), nil)
	case errors.Is(err, service.ErrSelfDeactivation):
		return errorutil.NewConflict(service.ErrSelfDeactivation.Error(), nil)
	case errors.Is(err, domain.ErrIdentifierTaken):
		return errorutil.NewConflict(domain.ErrIdentifierTaken.Error(), nil)
	case errors.Is(err, domain.ErrCredentialNotFound):
		return errorutil.NewNotFound("credential", nil)
	case errors.Is(err, auth.ErrInternal):
		return errorutil.NewInternalError(err)
	}
	return errorutil.ToDomainError(err)
}
