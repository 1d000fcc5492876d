package auth

import (
	"fmt"
	"time"

	"github.com/spec-kit/workspace-auth/internal/domain"
)

// DefaultTokenTTL is used when neither the caller nor configuration sets one.
const DefaultTokenTTL = 30 * time.Minute

// Issuer mints tokens for verified credentials.
type Issuer struct {
	mac        MAC
	defaultTTL time.Duration
}

// NewIssuer builds an issuer. A non-positive defaultTTL falls back to DefaultTokenTTL.
func NewIssuer(mac MAC, defaultTTL time.Duration) *Issuer {
	if defaultTTL < time.Second {
		defaultTTL = DefaultTokenTTL
	}
	return &Issuer{mac: mac, defaultTTL: defaultTTL}
}

// DefaultTTL returns the lifetime applied when Issue is called with ttl <= 0.
func (i *Issuer) DefaultTTL() time.Duration {
	return i.defaultTTL
}

// Issue builds and signs a token for record, valid from now for ttl.
// ttl is truncated to whole seconds; anything under one second uses the default.
func (i *Issuer) Issue(record *domain.CredentialRecord, now time.Time, ttl time.Duration) (Token, TokenPayload, error) {
	if record == nil || record.Identifier == "" {
		return Token{}, TokenPayload{}, fmt.Errorf("%w: issue without subject", ErrInternal)
	}
	if ttl < time.Second {
		ttl = i.defaultTTL
	}

	header := TokenHeader{Algorithm: AlgorithmHS256, Type: TokenTypeAuth}
	issuedAt := now.Unix()
	payload := TokenPayload{
		Subject:         record.Identifier,
		IssuedAt:        issuedAt,
		ExpiresAt:       issuedAt + int64(ttl/time.Second),
		SubjectRevision: record.Revision,
	}

	headerSeg, err := EncodeSegment(header.claims())
	if err != nil {
		return Token{}, TokenPayload{}, fmt.Errorf("%w: encode header: %w", ErrInternal, err)
	}
	payloadSeg, err := EncodeSegment(payload.claims())
	if err != nil {
		return Token{}, TokenPayload{}, fmt.Errorf("%w: encode payload: %w", ErrInternal, err)
	}
	sig, err := i.mac.Sign(signingInput(headerSeg, payloadSeg))
	if err != nil {
		return Token{}, TokenPayload{}, err
	}

	return Token{Header: headerSeg, Payload: payloadSeg, Signature: EncodeSignature(sig)}, payload, nil
}
