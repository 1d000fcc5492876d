package auth

import (
	"context"
	"sync"
	"time"

	"github.com/spec-kit/workspace-auth/internal/domain"
)

var testKey = []byte("test-signing-key-0123456789abcdef")

// fixedNow is 2024-01-01T00:00:00Z.
var fixedNow = time.Unix(1704067200, 0).UTC()

type fakeLookup struct {
	mu      sync.Mutex
	records map[string]*domain.CredentialRecord
	err     error
}

func newFakeLookup(records ...*domain.CredentialRecord) *fakeLookup {
	l := &fakeLookup{records: make(map[string]*domain.CredentialRecord)}
	for _, r := range records {
		l.records[r.Identifier] = r
	}
	return l
}

func (l *fakeLookup) GetByIdentifier(_ context.Context, identifier string) (*domain.CredentialRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	r, ok := l.records[identifier]
	if !ok {
		return nil, domain.ErrCredentialNotFound
	}
	clone := *r
	return &clone, nil
}

func (l *fakeLookup) update(identifier string, fn func(*domain.CredentialRecord)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fn(l.records[identifier])
}

// countingMAC records how often it is asked to sign or verify.
type countingMAC struct {
	inner    MAC
	signs    int
	verifies int
}

func (m *countingMAC) Sign(input string) ([]byte, error) {
	m.signs++
	return m.inner.Sign(input)
}

func (m *countingMAC) Verify(input string, sig []byte) error {
	m.verifies++
	return m.inner.Verify(input, sig)
}
