package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/spec-kit/workspace-auth/internal/domain"
)

// dummySecret is hashed once so unknown identifiers cost the same KDF work as
// known ones.
const dummySecret = "workspace-auth-timing-equalizer"

// CredentialStore verifies presented secrets against stored credential records.
type CredentialStore struct {
	credentials CredentialLookup
	dummyHash   string
}

// NewCredentialStore builds a store over credentials hashing with cost.
func NewCredentialStore(credentials CredentialLookup, cost int) (*CredentialStore, error) {
	if err := ValidateCost(cost); err != nil {
		return nil, err
	}
	dummy, err := HashSecret(dummySecret, cost)
	if err != nil {
		return nil, err
	}
	return &CredentialStore{credentials: credentials, dummyHash: dummy}, nil
}

// Verify returns the record for identifier if secret matches and the record is
// active. Unknown, inactive and mismatched all yield ErrInvalidCredentials.
func (s *CredentialStore) Verify(ctx context.Context, identifier, secret string) (*domain.CredentialRecord, error) {
	record, err := s.credentials.GetByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, domain.ErrCredentialNotFound) {
			_ = CompareSecret(s.dummyHash, secret)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%w: lookup credential: %w", ErrInternal, err)
	}

	if err := CompareSecret(record.SecretHash, secret); err != nil {
		return nil, err
	}
	if !record.Active {
		return nil, ErrInvalidCredentials
	}
	return record, nil
}
