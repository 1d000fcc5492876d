package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/spec-kit/workspace-auth/internal/domain"
)

type MemoryCredentialRepositorySuite struct {
	suite.Suite
	repo CredentialRepository
	ctx  context.Context
}

func TestMemoryCredentialRepositorySuite(t *testing.T) {
	suite.Run(t, new(MemoryCredentialRepositorySuite))
}

func (s *MemoryCredentialRepositorySuite) SetupTest() {
	s.repo = NewMemoryCredentialRepository()
	s.ctx = context.Background()
}

func (s *MemoryCredentialRepositorySuite) create(identifier string) *domain.CredentialRecord {
	record := &domain.CredentialRecord{
		Identifier: identifier,
		SecretHash: "hash-" + identifier,
		Active:     true,
		Privilege:  domain.PrivilegeOrdinary,
		Revision:   9,
	}
	s.Require().NoError(s.repo.Create(s.ctx, record))
	return record
}

func (s *MemoryCredentialRepositorySuite) TestCreate() {
	s.Run("assigns id and starts at revision zero", func() {
		record := s.create("alice")
		s.NotEmpty(record.ID)
		s.Zero(record.Revision)
		s.False(record.CreatedAt.IsZero())

		stored, err := s.repo.GetByIdentifier(s.ctx, "alice")
		s.Require().NoError(err)
		s.Equal(record.ID, stored.ID)
		s.Equal("hash-alice", stored.SecretHash)
	})

	s.Run("duplicate identifier rejected", func() {
		err := s.repo.Create(s.ctx, &domain.CredentialRecord{Identifier: "alice"})
		s.ErrorIs(err, domain.ErrIdentifierTaken)
	})
}

func (s *MemoryCredentialRepositorySuite) TestGetReturnsCopy() {
	s.create("alice")

	first, err := s.repo.GetByIdentifier(s.ctx, "alice")
	s.Require().NoError(err)
	first.Active = false
	first.Revision = 42

	second, err := s.repo.GetByIdentifier(s.ctx, "alice")
	s.Require().NoError(err)
	s.True(second.Active)
	s.Zero(second.Revision)

	_, err = s.repo.GetByIdentifier(s.ctx, "ghost")
	s.ErrorIs(err, domain.ErrCredentialNotFound)
}

func (s *MemoryCredentialRepositorySuite) TestListSorted() {
	s.create("carol")
	s.create("alice")
	s.create("bob")

	records, err := s.repo.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(records, 3)
	s.Equal("alice", records[0].Identifier)
	s.Equal("bob", records[1].Identifier)
	s.Equal("carol", records[2].Identifier)
}

func (s *MemoryCredentialRepositorySuite) TestUpdateSecretBumpsRevision() {
	s.create("alice")

	rev, err := s.repo.UpdateSecret(s.ctx, "alice", "new-hash")
	s.Require().NoError(err)
	s.Equal(int64(1), rev)

	rev, err = s.repo.UpdateSecret(s.ctx, "alice", "newer-hash")
	s.Require().NoError(err)
	s.Equal(int64(2), rev)

	stored, err := s.repo.GetByIdentifier(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal("newer-hash", stored.SecretHash)

	_, err = s.repo.UpdateSecret(s.ctx, "ghost", "x")
	s.ErrorIs(err, domain.ErrCredentialNotFound)
}

func (s *MemoryCredentialRepositorySuite) TestSetActive() {
	s.create("alice")

	s.Run("unchanged state keeps revision", func() {
		rev, err := s.repo.SetActive(s.ctx, "alice", true)
		s.Require().NoError(err)
		s.Zero(rev)
	})

	s.Run("deactivate bumps revision", func() {
		rev, err := s.repo.SetActive(s.ctx, "alice", false)
		s.Require().NoError(err)
		s.Equal(int64(1), rev)

		stored, err := s.repo.GetByIdentifier(s.ctx, "alice")
		s.Require().NoError(err)
		s.False(stored.Active)
	})

	s.Run("reactivate bumps again", func() {
		rev, err := s.repo.SetActive(s.ctx, "alice", true)
		s.Require().NoError(err)
		s.Equal(int64(2), rev)
	})

	s.Run("unknown identifier", func() {
		_, err := s.repo.SetActive(s.ctx, "ghost", false)
		s.ErrorIs(err, domain.ErrCredentialNotFound)
	})
}

func (s *MemoryCredentialRepositorySuite) TestTouchLastLogin() {
	s.create("alice")
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	s.Require().NoError(s.repo.TouchLastLogin(s.ctx, "alice", at))

	stored, err := s.repo.GetByIdentifier(s.ctx, "alice")
	s.Require().NoError(err)
	s.Require().NotNil(stored.LastLoginAt)
	s.True(at.Equal(*stored.LastLoginAt))
	s.Zero(stored.Revision)

	s.ErrorIs(s.repo.TouchLastLogin(s.ctx, "ghost", at), domain.ErrCredentialNotFound)
}
