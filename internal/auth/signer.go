package auth

import (
	"errors"
	"fmt"

	jwt "github.com/golang-jwt/jwt/v5"
)

// MinSigningKeyLength is the shortest HMAC key accepted at startup.
const MinSigningKeyLength = 32

// MAC computes and checks keyed digests over a signing input.
type MAC interface {
	Sign(signingInput string) ([]byte, error)
	Verify(signingInput string, sig []byte) error
}

// HMACSigner signs with HMAC-SHA256 under a fixed server key.
type HMACSigner struct {
	key []byte
}

// NewHMACSigner returns a signer for key. A missing or short key is a
// configuration error, not a per-call failure.
func NewHMACSigner(key []byte) (*HMACSigner, error) {
	if len(key) == 0 {
		return nil, errors.New("signing key is required")
	}
	if len(key) < MinSigningKeyLength {
		return nil, fmt.Errorf("signing key must be at least %d bytes", MinSigningKeyLength)
	}
	k := make([]byte, len(key))
	copy(k, key)
	return &HMACSigner{key: k}, nil
}

// Sign returns the raw HMAC-SHA256 digest of signingInput.
func (s *HMACSigner) Sign(signingInput string) ([]byte, error) {
	sig, err := jwt.SigningMethodHS256.Sign(signingInput, s.key)
	if err != nil {
		return nil, fmt.Errorf("%w: sign: %w", ErrInternal, err)
	}
	return sig, nil
}

// Verify recomputes the digest and compares it with sig in constant time.
func (s *HMACSigner) Verify(signingInput string, sig []byte) error {
	err := jwt.SigningMethodHS256.Verify(signingInput, sig, s.key)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, jwt.ErrSignatureInvalid):
		return ErrSignatureMismatch
	default:
		return fmt.Errorf("%w: verify: %w", ErrInternal, err)
	}
}
