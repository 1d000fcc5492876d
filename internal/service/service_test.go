package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/workspace-auth/internal/config"
	"github.com/spec-kit/workspace-auth/internal/domain"
	"github.com/spec-kit/workspace-auth/internal/events"
	"github.com/spec-kit/workspace-auth/internal/observability"
	"github.com/spec-kit/workspace-auth/internal/repository"
)

const testSigningKey = "service-test-signing-key-0123456789"

// testEnv wires both services over in-memory repositories and a movable clock.
type testEnv struct {
	now         time.Time
	credentials repository.CredentialRepository
	attempts    repository.LoginAttemptRepository
	dispatcher  events.Dispatcher
	metrics     *observability.Metrics
	auth        *AuthService
	accounts    *AccountService
}

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		SigningKey:            testSigningKey,
		AccessTokenTTLMinutes: 30,
		BcryptCost:            bcrypt.MinCost,
		MaxFailedLogins:       3,
		LockoutWindowMinutes:  15,
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		now:         time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
		credentials: repository.NewMemoryCredentialRepository(),
		dispatcher:  events.NewInMemoryDispatcher(),
		metrics:     observability.NewMetrics(),
	}
	clock := func() time.Time { return env.now }
	env.attempts = repository.NewMemoryLoginAttemptRepository(clock)

	var err error
	env.auth, err = NewAuthService(testAuthConfig(), AuthDependencies{
		Credentials:   env.credentials,
		LoginAttempts: env.attempts,
		Dispatcher:    env.dispatcher,
		Metrics:       env.metrics,
		Logger:        zap.NewNop(),
	}, WithClock(clock))
	require.NoError(t, err)

	env.accounts, err = NewAccountService(bcrypt.MinCost, AccountDependencies{
		Credentials: env.credentials,
		Secrets:     env.auth,
		Dispatcher:  env.dispatcher,
		Logger:      zap.NewNop(),
	})
	require.NoError(t, err)
	env.accounts.now = clock

	NewAuditService(env.dispatcher, env.credentials, zap.NewNop()).RegisterHandlers()
	return env
}

func (e *testEnv) register(t *testing.T, identifier, secret string, privilege domain.Privilege) *domain.CredentialRecord {
	t.Helper()
	record, err := e.accounts.Register(context.Background(), "test", RegisterInput{
		Identifier: identifier,
		Secret:     secret,
		Privilege:  privilege,
	})
	require.NoError(t, err)
	return record
}

func (e *testEnv) advance(d time.Duration) {
	e.now = e.now.Add(d)
}
