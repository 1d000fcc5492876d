package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/workspace-auth/internal/domain"
)

type memoryCredentialRepository struct {
	mu      sync.RWMutex
	records map[string]*domain.CredentialRecord
	now     func() time.Time
}

// NewMemoryCredentialRepository returns a process-local implementation used
// when no Postgres DSN is configured.
func NewMemoryCredentialRepository() CredentialRepository {
	return &memoryCredentialRepository{
		records: make(map[string]*domain.CredentialRecord),
		now:     time.Now,
	}
}

func (r *memoryCredentialRepository) Create(_ context.Context, record *domain.CredentialRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.records[record.Identifier]; exists {
		return domain.ErrIdentifierTaken
	}
	now := r.now().UTC()
	record.ID = uuid.NewString()
	record.Revision = 0
	record.CreatedAt = now
	record.UpdatedAt = now

	stored := *record
	r.records[record.Identifier] = &stored
	return nil
}

func (r *memoryCredentialRepository) GetByIdentifier(_ context.Context, identifier string) (*domain.CredentialRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.records[identifier]
	if !ok {
		return nil, domain.ErrCredentialNotFound
	}
	clone := *record
	return &clone, nil
}

func (r *memoryCredentialRepository) List(_ context.Context) ([]*domain.CredentialRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	records := make([]*domain.CredentialRecord, 0, len(r.records))
	for _, record := range r.records {
		clone := *record
		records = append(records, &clone)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Identifier < records[j].Identifier })
	return records, nil
}

func (r *memoryCredentialRepository) UpdateSecret(_ context.Context, identifier, secretHash string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.records[identifier]
	if !ok {
		return 0, domain.ErrCredentialNotFound
	}
	record.SecretHash = secretHash
	record.Revision++
	record.UpdatedAt = r.now().UTC()
	return record.Revision, nil
}

func (r *memoryCredentialRepository) SetActive(_ context.Context, identifier string, active bool) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.records[identifier]
	if !ok {
		return 0, domain.ErrCredentialNotFound
	}
	if record.Active != active {
		record.Active = active
		record.Revision++
	}
	record.UpdatedAt = r.now().UTC()
	return record.Revision, nil
}

func (r *memoryCredentialRepository) TouchLastLogin(_ context.Context, identifier string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.records[identifier]
	if !ok {
		return domain.ErrCredentialNotFound
	}
	ts := at.UTC()
	record.LastLoginAt = &ts
	return nil
}
