package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/spec-kit/workspace-auth/internal/auth"
	"github.com/spec-kit/workspace-auth/internal/domain"
	"github.com/spec-kit/workspace-auth/internal/events"
	"github.com/spec-kit/workspace-auth/internal/repository"
)

const maxIdentifierLength = 50

// RegisterInput describes a credential to provision.
type RegisterInput struct {
	Identifier string
	Email      string
	Secret     string
	Privilege  domain.Privilege
}

// SecretVerifier checks a caller's current secret, counting failures toward
// the login lockout.
type SecretVerifier interface {
	VerifySecret(ctx context.Context, identifier, secret string) (*domain.CredentialRecord, error)
}

// AccountService owns every mutation of credential records: provisioning,
// secret changes and soft deactivation.
type AccountService struct {
	credentials repository.CredentialRepository
	secrets     SecretVerifier
	dispatcher  events.Dispatcher
	logger      *zap.Logger
	cost        int
	now         func() time.Time
}

// AccountDependencies encapsulates collaborators for the account service.
type AccountDependencies struct {
	Credentials repository.CredentialRepository
	Secrets     SecretVerifier
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// NewAccountService builds the service hashing new secrets with cost.
func NewAccountService(cost int, deps AccountDependencies) (*AccountService, error) {
	if err := auth.ValidateCost(cost); err != nil {
		return nil, err
	}
	if deps.Credentials == nil || deps.Secrets == nil {
		return nil, errors.New("credential repository and secret verifier are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccountService{
		credentials: deps.Credentials,
		secrets:     deps.Secrets,
		dispatcher:  deps.Dispatcher,
		logger:      logger,
		cost:        cost,
		now:         time.Now,
	}, nil
}

// Register provisions a new active credential.
func (s *AccountService) Register(ctx context.Context, actor string, in RegisterInput) (*domain.CredentialRecord, error) {
	if in.Privilege == "" {
		in.Privilege = domain.PrivilegeOrdinary
	}
	if err := validateIdentifier(in.Identifier); err != nil {
		return nil, err
	}
	if err := validateSecret(in.Secret); err != nil {
		return nil, err
	}
	if !in.Privilege.Valid() {
		return nil, fmt.Errorf("%w: unknown privilege %q", ErrInvalidInput, in.Privilege)
	}

	hash, err := auth.HashSecret(in.Secret, s.cost)
	if err != nil {
		return nil, err
	}

	record := &domain.CredentialRecord{
		Identifier: in.Identifier,
		Email:      strings.TrimSpace(in.Email),
		SecretHash: hash,
		Active:     true,
		Privilege:  in.Privilege,
	}
	if err := s.credentials.Create(ctx, record); err != nil {
		return nil, err
	}

	s.publish(ctx, events.New(events.EventCredentialRegistered, record.Identifier, actor, s.now(), nil))
	return record, nil
}

// EnsureBootstrapAdmin creates an elevated credential if identifier is not yet
// registered. An existing record is left untouched.
func (s *AccountService) EnsureBootstrapAdmin(ctx context.Context, identifier, secret string) (bool, error) {
	_, err := s.credentials.GetByIdentifier(ctx, identifier)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, domain.ErrCredentialNotFound) {
		return false, err
	}

	_, err = s.Register(ctx, "bootstrap", RegisterInput{
		Identifier: identifier,
		Secret:     secret,
		Privilege:  domain.PrivilegeElevated,
	})
	if errors.Is(err, domain.ErrIdentifierTaken) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ChangePassword replaces the caller's secret after checking the current one
// and returns the updated record. The revision increment invalidates every
// token issued before the change.
func (s *AccountService) ChangePassword(ctx context.Context, identity *domain.IdentityContext, current, next string) (*domain.CredentialRecord, error) {
	if identity == nil {
		return nil, auth.ErrUnknownSubject
	}
	if current == "" || next == "" {
		return nil, auth.ErrMalformedRequest
	}
	if err := validateSecret(next); err != nil {
		return nil, err
	}

	record, err := s.secrets.VerifySecret(ctx, identity.Subject, current)
	if err != nil {
		return nil, err
	}

	hash, err := auth.HashSecret(next, s.cost)
	if err != nil {
		return nil, err
	}
	revision, err := s.credentials.UpdateSecret(ctx, identity.Subject, hash)
	if err != nil {
		return nil, err
	}
	record.SecretHash = hash
	record.Revision = revision

	s.publish(ctx, events.New(events.EventSecretChanged, identity.Subject, identity.Subject, s.now(),
		events.RevisionChangedPayload{Revision: revision}))
	return record, nil
}

// SetActive activates or soft-deactivates identifier on behalf of actor.
func (s *AccountService) SetActive(ctx context.Context, actor *domain.IdentityContext, identifier string, active bool) (*domain.CredentialRecord, error) {
	if actor != nil && actor.Subject == identifier && !active {
		return nil, ErrSelfDeactivation
	}

	revision, err := s.credentials.SetActive(ctx, identifier, active)
	if err != nil {
		return nil, err
	}

	actorName := ""
	if actor != nil {
		actorName = actor.Subject
	}
	s.publish(ctx, events.New(events.EventActiveChanged, identifier, actorName, s.now(),
		events.RevisionChangedPayload{Revision: revision, Active: &active}))

	return s.credentials.GetByIdentifier(ctx, identifier)
}

// Profile returns the stored record for identifier.
func (s *AccountService) Profile(ctx context.Context, identifier string) (*domain.CredentialRecord, error) {
	return s.credentials.GetByIdentifier(ctx, identifier)
}

// List returns every credential ordered by identifier.
func (s *AccountService) List(ctx context.Context) ([]*domain.CredentialRecord, error) {
	return s.credentials.List(ctx)
}

func (s *AccountService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

func validateIdentifier(identifier string) error {
	n := len([]rune(identifier))
	if n < 2 || n > maxIdentifierLength {
		return fmt.Errorf("%w: identifier must be 2-%d characters", ErrInvalidInput, maxIdentifierLength)
	}
	for _, r := range identifier {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return fmt.Errorf("%w: identifier must not contain whitespace", ErrInvalidInput)
		}
	}
	return nil
}

func validateSecret(secret string) error {
	if len(secret) < auth.MinSecretLength || len(secret) > auth.MaxSecretLength {
		return fmt.Errorf("%w: secret must be %d-%d bytes", ErrInvalidInput, auth.MinSecretLength, auth.MaxSecretLength)
	}
	return nil
}
