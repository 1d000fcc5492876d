package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spec-kit/workspace-auth/internal/domain"
)

// CredentialLookup resolves an identifier to its stored record. Implementations
// return domain.ErrCredentialNotFound when nothing matches.
type CredentialLookup interface {
	GetByIdentifier(ctx context.Context, identifier string) (*domain.CredentialRecord, error)
}

// Verifier validates presented tokens and resolves them to an identity.
type Verifier struct {
	mac         MAC
	credentials CredentialLookup
}

// NewVerifier builds a verifier using mac for signatures and credentials for subject lookup.
func NewVerifier(mac MAC, credentials CredentialLookup) *Verifier {
	return &Verifier{mac: mac, credentials: credentials}
}

// Verify checks tokenString at instant now. The signature is checked before the
// payload is decoded, so a forged payload is never interpreted.
func (v *Verifier) Verify(ctx context.Context, tokenString string, now time.Time) (*domain.IdentityContext, error) {
	tok, ok := SplitToken(tokenString)
	if !ok {
		return nil, fmt.Errorf("%w: expected three segments", ErrTokenMalformed)
	}

	header, err := DecodeHeader(tok.Header)
	if err != nil {
		return nil, err
	}
	if header.Algorithm != AlgorithmHS256 {
		return nil, fmt.Errorf("%w: algorithm %q not allowed", ErrTokenMalformed, header.Algorithm)
	}
	if header.Type != TokenTypeAuth {
		return nil, fmt.Errorf("%w: type %q not allowed", ErrTokenMalformed, header.Type)
	}

	sig, err := DecodeSignature(tok.Signature)
	if err != nil {
		return nil, err
	}
	if err := v.mac.Verify(signingInput(tok.Header, tok.Payload), sig); err != nil {
		return nil, err
	}

	payload, err := DecodePayload(tok.Payload)
	if err != nil {
		return nil, err
	}
	if now.Unix() >= payload.ExpiresAt {
		return nil, ErrTokenExpired
	}

	record, err := v.credentials.GetByIdentifier(ctx, payload.Subject)
	if err != nil {
		if errors.Is(err, domain.ErrCredentialNotFound) {
			return nil, ErrUnknownSubject
		}
		return nil, fmt.Errorf("%w: lookup subject: %w", ErrInternal, err)
	}
	if !record.Active {
		return nil, ErrUnknownSubject
	}
	if record.Revision != payload.SubjectRevision {
		return nil, fmt.Errorf("%w: superseded by revision %d", ErrTokenExpired, record.Revision)
	}

	return &domain.IdentityContext{
		Subject:   record.Identifier,
		Privilege: record.Privilege,
		ExpiresAt: time.Unix(payload.ExpiresAt, 0).UTC(),
	}, nil
}
