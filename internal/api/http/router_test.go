package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/workspace-auth/internal/api/http/handlers"
	"github.com/spec-kit/workspace-auth/internal/auth"
	"github.com/spec-kit/workspace-auth/internal/config"
	"github.com/spec-kit/workspace-auth/internal/domain"
	"github.com/spec-kit/workspace-auth/internal/events"
	"github.com/spec-kit/workspace-auth/internal/observability"
	"github.com/spec-kit/workspace-auth/internal/persistence"
	"github.com/spec-kit/workspace-auth/internal/repository"
	"github.com/spec-kit/workspace-auth/internal/service"
	"github.com/spec-kit/workspace-auth/internal/worker"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	credentials := repository.NewMemoryCredentialRepository()
	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()
	logger := zap.NewNop()

	authService, err := service.NewAuthService(config.AuthConfig{
		SigningKey:            "router-test-signing-key-0123456789",
		AccessTokenTTLMinutes: 30,
		BcryptCost:            bcrypt.MinCost,
		MaxFailedLogins:       5,
		LockoutWindowMinutes:  15,
	}, service.AuthDependencies{
		Credentials:   credentials,
		LoginAttempts: repository.NewMemoryLoginAttemptRepository(nil),
		Dispatcher:    dispatcher,
		Metrics:       metrics,
		Logger:        logger,
	})
	require.NoError(t, err)

	accountService, err := service.NewAccountService(bcrypt.MinCost, service.AccountDependencies{
		Credentials: credentials,
		Secrets:     authService,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	require.NoError(t, err)

	worker.StartAuditWorker(service.NewAuditService(dispatcher, credentials, logger))

	ctx := context.Background()
	_, err = accountService.EnsureBootstrapAdmin(ctx, "root", "R00tSecret")
	require.NoError(t, err)
	_, err = accountService.Register(ctx, "root", service.RegisterInput{Identifier: "alice", Secret: "S3cret!"})
	require.NoError(t, err)

	app := fiber.New()
	RegisterMiddlewares(app, logger, metrics, 0)
	RegisterRoutes(app, RouteConfig{
		Health: handlers.NewHealthHandler("workspace-auth", "test", map[string]handlers.Pinger{
			"postgres": &persistence.Postgres{},
			"redis":    &persistence.Redis{},
		}),
		Auth:           handlers.NewAuthHandler(authService, accountService),
		Admin:          handlers.NewAdminHandler(accountService),
		AuthMiddleware: auth.NewAuthMiddleware(authService),
		Metrics:        metrics.Handler(),
	})
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var decoded map[string]any
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &decoded))
	}
	return resp, decoded
}

func login(t *testing.T, app *fiber.App, username, password string) string {
	t.Helper()
	resp, body := doJSON(t, app, http.MethodPost, "/auth/login", "", map[string]string{
		"username": username,
		"password": password,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := body["data"].(map[string]any)
	return data["auth"].(map[string]any)["access_token"].(string)
}

func errorCode(body map[string]any) string {
	errBody, ok := body["error"].(map[string]any)
	if !ok {
		return ""
	}
	code, _ := errBody["code"].(string)
	return code
}

func TestLogin(t *testing.T) {
	app := newTestApp(t)

	resp, body := doJSON(t, app, http.MethodPost, "/auth/login", "", map[string]string{
		"username": "alice",
		"password": "S3cret!",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := body["data"].(map[string]any)
	user := data["user"].(map[string]any)
	assert.Equal(t, "alice", user["username"])
	assert.Equal(t, false, user["is_superuser"])
	assert.NotContains(t, user, "SecretHash")
	authBody := data["auth"].(map[string]any)
	assert.Equal(t, "bearer", authBody["token_type"])
	assert.NotEmpty(t, authBody["access_token"])
	assert.NotEmpty(t, resp.Header.Get(observability.RequestIDHeader))

	tests := []struct {
		name   string
		body   map[string]string
		status int
		code   string
	}{
		{name: "wrong secret", body: map[string]string{"username": "alice", "password": "nope-nope"}, status: http.StatusUnauthorized, code: "INVALID_CREDENTIALS"},
		{name: "unknown user", body: map[string]string{"username": "ghost", "password": "S3cret!"}, status: http.StatusUnauthorized, code: "INVALID_CREDENTIALS"},
		{name: "missing password", body: map[string]string{"username": "alice"}, status: http.StatusBadRequest, code: "VALIDATION_FAILED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := doJSON(t, app, http.MethodPost, "/auth/login", "", tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.code, errorCode(body))
		})
	}
}

func TestMe(t *testing.T) {
	app := newTestApp(t)

	resp, body := doJSON(t, app, http.MethodGet, "/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "UNAUTHORIZED", errorCode(body))
	assert.Equal(t, "Bearer", resp.Header.Get(fiber.HeaderWWWAuthenticate))

	resp, body = doJSON(t, app, http.MethodGet, "/auth/me", "a.b.c", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "UNAUTHORIZED", errorCode(body))
	assert.Equal(t, `Bearer error="invalid_token"`, resp.Header.Get(fiber.HeaderWWWAuthenticate))

	token := login(t, app, "alice", "S3cret!")
	resp, body = doJSON(t, app, http.MethodGet, "/auth/me", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	user := body["data"].(map[string]any)["user"].(map[string]any)
	assert.Equal(t, "alice", user["username"])
	assert.NotEmpty(t, user["last_login"])
}

func TestChangePassword(t *testing.T) {
	app := newTestApp(t)
	oldToken := login(t, app, "alice", "S3cret!")

	resp, body := doJSON(t, app, http.MethodPost, "/auth/password/change", oldToken, map[string]string{
		"current_password": "S3cret!",
		"new_password":     "N3wSecret!",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	newToken := body["data"].(map[string]any)["auth"].(map[string]any)["access_token"].(string)

	resp, _ = doJSON(t, app, http.MethodGet, "/auth/me", oldToken, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodGet, "/auth/me", newToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestChangePasswordWhileLocked(t *testing.T) {
	app := newTestApp(t)
	token := login(t, app, "alice", "S3cret!")

	for i := 0; i < 5; i++ {
		resp, _ := doJSON(t, app, http.MethodPost, "/auth/login", "", map[string]string{
			"username": "alice",
			"password": "wrong-secret",
		})
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}

	resp, body := doJSON(t, app, http.MethodPost, "/auth/password/change", token, map[string]string{
		"current_password": "S3cret!",
		"new_password":     "N3wSecret!",
	})
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "TOO_MANY_ATTEMPTS", errorCode(body))

	// Nothing was committed, so the existing token is still valid.
	resp, _ = doJSON(t, app, http.MethodGet, "/auth/me", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestChangePasswordDoesNotRecordLogin(t *testing.T) {
	app := newTestApp(t)
	token := login(t, app, "alice", "S3cret!")

	_, body := doJSON(t, app, http.MethodGet, "/auth/me", token, nil)
	before := body["data"].(map[string]any)["user"].(map[string]any)["last_login"]
	require.NotEmpty(t, before)

	resp, body := doJSON(t, app, http.MethodPost, "/auth/password/change", token, map[string]string{
		"current_password": "S3cret!",
		"new_password":     "N3wSecret!",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	newToken := body["data"].(map[string]any)["auth"].(map[string]any)["access_token"].(string)

	resp, body = doJSON(t, app, http.MethodGet, "/auth/me", newToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, before, body["data"].(map[string]any)["user"].(map[string]any)["last_login"])
}

func TestAdminRoutes(t *testing.T) {
	app := newTestApp(t)
	adminToken := login(t, app, "root", "R00tSecret")
	userToken := login(t, app, "alice", "S3cret!")

	resp, body := doJSON(t, app, http.MethodGet, "/admin/credentials", userToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "FORBIDDEN", errorCode(body))

	resp, _ = doJSON(t, app, http.MethodGet, "/admin/credentials", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body = doJSON(t, app, http.MethodPost, "/admin/credentials", adminToken, map[string]string{
		"username": "bob",
		"email":    "bob@example.com",
		"password": "B0bSecret",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "bob", body["data"].(map[string]any)["username"])

	resp, body = doJSON(t, app, http.MethodPost, "/admin/credentials", adminToken, map[string]string{
		"username": "bob",
		"password": "B0bSecret",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "CONFLICT", errorCode(body))

	resp, body = doJSON(t, app, http.MethodPost, "/admin/credentials", adminToken, map[string]string{
		"username": "carol",
		"password": "123",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(body))

	resp, body = doJSON(t, app, http.MethodGet, "/admin/credentials", adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["data"].([]any), 3)

	resp, body = doJSON(t, app, http.MethodPatch, "/admin/credentials/alice/status", adminToken, map[string]bool{"active": false})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["data"].(map[string]any)["is_active"])

	resp, _ = doJSON(t, app, http.MethodGet, "/auth/me", userToken, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodPatch, "/admin/credentials/root/status", adminToken, map[string]bool{"active": false})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodPatch, "/admin/credentials/ghost/status", adminToken, map[string]bool{"active": true})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodPatch, "/admin/credentials/alice/status", adminToken, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealthAndMetrics(t *testing.T) {
	app := newTestApp(t)

	resp, body := doJSON(t, app, http.MethodGet, "/health/live", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "alive", body["status"])

	resp, body = doJSON(t, app, http.MethodGet, "/health/ready", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	deps := body["dependencies"].(map[string]any)
	assert.Equal(t, "disabled", deps["postgres"])
	assert.Equal(t, "disabled", deps["redis"])

	login(t, app, "alice", "S3cret!")
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "workspace_auth_decisions_total")
}

func TestToDomainError(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{auth.ErrMalformedRequest, http.StatusBadRequest},
		{auth.ErrInvalidCredentials, http.StatusUnauthorized},
		{auth.ErrTokenMalformed, http.StatusUnauthorized},
		{auth.ErrMissingToken, http.StatusUnauthorized},
		{auth.ErrSignatureMismatch, http.StatusUnauthorized},
		{auth.ErrTokenExpired, http.StatusUnauthorized},
		{auth.ErrUnknownSubject, http.StatusUnauthorized},
		{auth.ErrInternal, http.StatusInternalServerError},
		{service.ErrTooManyAttempts, http.StatusTooManyRequests},
		{domain.ErrIdentifierTaken, http.StatusConflict},
		{fiber.NewError(http.StatusForbidden, "nope"), http.StatusForbidden},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.status, toDomainError(tt.err).HTTPStatus, tt.err.Error())
	}

	// Token failures share one message so callers cannot tell them apart.
	assert.Equal(t, toDomainError(auth.ErrTokenExpired).Message, toDomainError(auth.ErrSignatureMismatch).Message)
}
