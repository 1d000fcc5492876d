package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	// MinSecretLength is the shortest secret accepted at provisioning time.
	MinSecretLength = 6
	// MaxSecretLength is bcrypt's input limit in bytes.
	MaxSecretLength = 72
)

// ValidateCost checks that cost is usable by bcrypt.
func ValidateCost(cost int) error {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return fmt.Errorf("bcrypt cost %d outside [%d, %d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	return nil
}

// HashSecret hashes a plaintext secret with the configured cost.
// The result embeds its own salt and cost.
func HashSecret(secret string, cost int) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// CompareSecret verifies a secret against its stored hash in constant time.
// A mismatch (or an over-long secret) is reported as ErrInvalidCredentials;
// an unreadable stored hash as ErrInternal.
func CompareSecret(hashed, plain string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword), errors.Is(err, bcrypt.ErrPasswordTooLong):
		return ErrInvalidCredentials
	default:
		return fmt.Errorf("%w: stored hash unreadable: %w", ErrInternal, err)
	}
}
