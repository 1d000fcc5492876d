package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/workspace-auth/internal/events"
	"github.com/spec-kit/workspace-auth/internal/repository"
)

// AuditService writes an audit line for every account event and records
// last-login timestamps.
type AuditService struct {
	dispatcher  events.Dispatcher
	credentials repository.CredentialRepository
	logger      *zap.Logger
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, credentials repository.CredentialRepository, logger *zap.Logger) *AuditService {
	return &AuditService{
		dispatcher:  dispatcher,
		credentials: credentials,
		logger:      logger,
	}
}

// RegisterHandlers subscribes to events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventLoginSucceeded, a.handleLoginSucceeded)
	a.dispatcher.Subscribe(events.EventLoginFailed, a.handleAudit)
	a.dispatcher.Subscribe(events.EventLoginLocked, a.handleAudit)
	a.dispatcher.Subscribe(events.EventCredentialRegistered, a.handleAudit)
	a.dispatcher.Subscribe(events.EventSecretChanged, a.handleAudit)
	a.dispatcher.Subscribe(events.EventActiveChanged, a.handleAudit)
}

func (a *AuditService) handleLoginSucceeded(ctx context.Context, event events.Event) error {
	a.audit(event)
	if a.credentials == nil {
		return nil
	}
	return a.credentials.TouchLastLogin(ctx, event.Subject, event.Timestamp)
}

func (a *AuditService) handleAudit(_ context.Context, event events.Event) error {
	a.audit(event)
	return nil
}

func (a *AuditService) audit(event events.Event) {
	fields := []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.String("subject", event.Subject),
		zap.Time("at", event.Timestamp),
	}
	if event.Actor != "" {
		fields = append(fields, zap.String("actor", event.Actor))
	}
	if event.Payload != nil {
		fields = append(fields, zap.Any("payload", event.Payload))
	}
	a.logger.Info("audit", fields...)
}
