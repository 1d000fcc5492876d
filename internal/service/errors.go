package service

import "errors"

var (
	// ErrTooManyAttempts is returned while an identifier is locked out after
	// repeated failed logins.
	ErrTooManyAttempts = errors.New("too many failed login attempts")
	// ErrInvalidInput wraps provisioning and password-change validation failures.
	ErrInvalidInput = errors.New("invalid input")
	// ErrSelfDeactivation prevents an elevated caller from locking themselves out.
	ErrSelfDeactivation = errors.New("cannot deactivate own credential")
)
