package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventLoginSucceeded       EventType = "login_succeeded"
	EventLoginFailed          EventType = "login_failed"
	EventLoginLocked          EventType = "login_locked"
	EventCredentialRegistered EventType = "credential_registered"
	EventSecretChanged        EventType = "secret_changed"
	EventActiveChanged        EventType = "active_changed"
)

// Event represents an account event emitted by services. Payloads never carry
// secrets or secret hashes.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Subject   string      `json:"subject"`
	Actor     string      `json:"actor,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// New builds an event with a fresh id.
func New(eventType EventType, subject, actor string, at time.Time, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Subject:   subject,
		Actor:     actor,
		Timestamp: at.UTC(),
		Payload:   payload,
	}
}

// RevisionChangedPayload accompanies secret and active-state changes.
type RevisionChangedPayload struct {
	Revision int64 `json:"revision"`
	Active   *bool `json:"active,omitempty"`
}

// LoginFailedPayload accompanies failed logins.
type LoginFailedPayload struct {
	Attempts int64 `json:"attempts"`
}
