package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/workspace-auth/internal/auth"
	"github.com/spec-kit/workspace-auth/internal/config"
	"github.com/spec-kit/workspace-auth/internal/domain"
	"github.com/spec-kit/workspace-auth/internal/events"
	"github.com/spec-kit/workspace-auth/internal/observability"
	"github.com/spec-kit/workspace-auth/internal/repository"
)

const (
	operationAuthenticate = "authenticate"
	operationAuthorize    = "authorize"
	operationVerifySecret = "verify_secret"
	operationIssue        = "issue"
)

// AuthResult is returned by a successful Authenticate.
type AuthResult struct {
	Token      string
	ExpiresAt  time.Time
	Credential *domain.CredentialRecord
}

// AuthService coordinates login and bearer-token authorization. It is the only
// place tokens are issued or verified.
type AuthService struct {
	store         *auth.CredentialStore
	issuer        *auth.Issuer
	verifier      *auth.Verifier
	attempts      repository.LoginAttemptRepository
	dispatcher    events.Dispatcher
	metrics       *observability.Metrics
	logger        *zap.Logger
	maxFailed     int64
	lockoutWindow time.Duration
	now           func() time.Time
}

// AuthDependencies encapsulates collaborators for the auth service.
type AuthDependencies struct {
	Credentials   repository.CredentialRepository
	LoginAttempts repository.LoginAttemptRepository
	Dispatcher    events.Dispatcher
	Metrics       *observability.Metrics
	Logger        *zap.Logger
}

// AuthOption customizes an AuthService.
type AuthOption func(*AuthService)

// WithClock overrides the time source used for issuance and verification.
func WithClock(now func() time.Time) AuthOption {
	return func(s *AuthService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewAuthService builds the service. An invalid signing key or KDF cost is a
// startup error.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies, opts ...AuthOption) (*AuthService, error) {
	if deps.Credentials == nil {
		return nil, errors.New("credential repository is required")
	}
	signer, err := auth.NewHMACSigner([]byte(cfg.SigningKey))
	if err != nil {
		return nil, err
	}
	store, err := auth.NewCredentialStore(deps.Credentials, cfg.BcryptCost)
	if err != nil {
		return nil, err
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &AuthService{
		store:         store,
		issuer:        auth.NewIssuer(signer, cfg.AccessTokenTTL()),
		verifier:      auth.NewVerifier(signer, deps.Credentials),
		attempts:      deps.LoginAttempts,
		dispatcher:    deps.Dispatcher,
		metrics:       deps.Metrics,
		logger:        logger,
		maxFailed:     int64(cfg.MaxFailedLogins),
		lockoutWindow: cfg.LockoutWindow(),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Authenticate verifies identifier/secret and mints a token.
func (s *AuthService) Authenticate(ctx context.Context, identifier, secret string) (*AuthResult, error) {
	record, err := s.checkSecret(ctx, operationAuthenticate, identifier, secret)
	if err != nil {
		return nil, err
	}

	result, err := s.issue(record)
	if err != nil {
		s.metrics.RecordAuth(operationAuthenticate, observability.OutcomeFailure, reason(err))
		return nil, err
	}

	s.metrics.RecordAuth(operationAuthenticate, observability.OutcomeSuccess, "")
	s.publish(ctx, events.New(events.EventLoginSucceeded, record.Identifier, record.Identifier, s.now(), nil))
	return result, nil
}

// VerifySecret checks a secret for an already authenticated caller. It goes
// through the same lockout counting as Authenticate but issues nothing.
func (s *AuthService) VerifySecret(ctx context.Context, identifier, secret string) (*domain.CredentialRecord, error) {
	record, err := s.checkSecret(ctx, operationVerifySecret, identifier, secret)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordAuth(operationVerifySecret, observability.OutcomeSuccess, "")
	return record, nil
}

// IssueFor mints a token for a record the caller has already verified, e.g.
// right after a password change. No lockout check, no login event.
func (s *AuthService) IssueFor(record *domain.CredentialRecord) (*AuthResult, error) {
	result, err := s.issue(record)
	if err != nil {
		s.metrics.RecordAuth(operationIssue, observability.OutcomeFailure, reason(err))
		return nil, err
	}
	s.metrics.RecordAuth(operationIssue, observability.OutcomeSuccess, "")
	return result, nil
}

// Authorize resolves a bearer token to the identity of its subject.
func (s *AuthService) Authorize(ctx context.Context, token string) (*domain.IdentityContext, error) {
	identity, err := s.verifier.Verify(ctx, token, s.now())
	if err != nil {
		s.metrics.RecordAuth(operationAuthorize, observability.OutcomeFailure, reason(err))
		if errors.Is(err, auth.ErrInternal) {
			s.logger.Error("authorize failed", zap.Error(err))
		} else {
			s.logger.Debug("token rejected", zap.String("reason", reason(err)))
		}
		return nil, err
	}
	s.metrics.RecordAuth(operationAuthorize, observability.OutcomeSuccess, "")
	return identity, nil
}

// TokenTTL reports the lifetime of tokens minted by Authenticate.
func (s *AuthService) TokenTTL() time.Duration {
	return s.issuer.DefaultTTL()
}

func (s *AuthService) checkSecret(ctx context.Context, operation, identifier, secret string) (*domain.CredentialRecord, error) {
	if identifier == "" || secret == "" {
		s.metrics.RecordAuth(operation, observability.OutcomeFailure, reason(auth.ErrMalformedRequest))
		return nil, auth.ErrMalformedRequest
	}

	if s.locked(ctx, identifier) {
		s.metrics.RecordAuth(operation, observability.OutcomeFailure, "locked")
		s.publish(ctx, events.New(events.EventLoginLocked, identifier, "", s.now(), nil))
		return nil, ErrTooManyAttempts
	}

	record, err := s.store.Verify(ctx, identifier, secret)
	if err != nil {
		s.metrics.RecordAuth(operation, observability.OutcomeFailure, reason(err))
		if errors.Is(err, auth.ErrInvalidCredentials) {
			attempts := s.recordFailure(ctx, identifier)
			s.publish(ctx, events.New(events.EventLoginFailed, identifier, "", s.now(),
				events.LoginFailedPayload{Attempts: attempts}))
			return nil, auth.ErrInvalidCredentials
		}
		s.logger.Error("secret check failed", zap.String("operation", operation), zap.Error(err))
		return nil, err
	}

	s.clearFailures(ctx, identifier)
	return record, nil
}

func (s *AuthService) issue(record *domain.CredentialRecord) (*AuthResult, error) {
	token, payload, err := s.issuer.Issue(record, s.now(), 0)
	if err != nil {
		s.logger.Error("issue token", zap.Error(err))
		return nil, err
	}
	return &AuthResult{
		Token:      token.String(),
		ExpiresAt:  time.Unix(payload.ExpiresAt, 0).UTC(),
		Credential: record,
	}, nil
}

func (s *AuthService) locked(ctx context.Context, identifier string) bool {
	if s.attempts == nil || s.maxFailed <= 0 {
		return false
	}
	count, err := s.attempts.Count(ctx, identifier)
	if err != nil {
		s.logger.Warn("login attempt lookup failed", zap.Error(err))
		return false
	}
	return count >= s.maxFailed
}

func (s *AuthService) recordFailure(ctx context.Context, identifier string) int64 {
	if s.attempts == nil || s.maxFailed <= 0 {
		return 0
	}
	count, err := s.attempts.Increment(ctx, identifier, s.lockoutWindow)
	if err != nil {
		s.logger.Warn("login attempt increment failed", zap.Error(err))
	}
	return count
}

func (s *AuthService) clearFailures(ctx context.Context, identifier string) {
	if s.attempts == nil || s.maxFailed <= 0 {
		return
	}
	if err := s.attempts.Reset(ctx, identifier); err != nil {
		s.logger.Warn("login attempt reset failed", zap.Error(err))
	}
}

func (s *AuthService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

// reason maps an auth error onto a low-cardinality metric label.
func reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, auth.ErrMalformedRequest):
		return "malformed_request"
	case errors.Is(err, auth.ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, auth.ErrTokenMalformed):
		return "token_malformed"
	case errors.Is(err, auth.ErrSignatureMismatch):
		return "signature_mismatch"
	case errors.Is(err, auth.ErrTokenExpired):
		return "token_expired"
	case errors.Is(err, auth.ErrUnknownSubject):
		return "unknown_subject"
	default:
		return "internal"
	}
}
