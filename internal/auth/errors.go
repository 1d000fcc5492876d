package auth

import (
	"errors"
	"fmt"
)

// Authentication failures. Components wrap these with detail via fmt.Errorf("%w: ...");
// callers must branch with errors.Is, never on the message.
var (
	ErrMalformedRequest   = errors.New("auth: malformed request")
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrTokenMalformed     = errors.New("auth: token malformed")
	ErrSignatureMismatch  = errors.New("auth: signature mismatch")
	ErrTokenExpired       = errors.New("auth: token expired")
	ErrUnknownSubject     = errors.New("auth: unknown subject")
	ErrInternal           = errors.New("auth: internal error")
)

// ErrMissingToken is a malformed-token failure where no bearer credential was
// presented at all.
var ErrMissingToken = fmt.Errorf("%w: no bearer token", ErrTokenMalformed)

// IsTokenError reports whether err rejects a presented bearer token.
func IsTokenError(err error) bool {
	return errors.Is(err, ErrTokenMalformed) ||
		errors.Is(err, ErrSignatureMismatch) ||
		errors.Is(err, ErrTokenExpired) ||
		errors.Is(err, ErrUnknownSubject)
}
