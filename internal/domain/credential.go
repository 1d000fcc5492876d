package domain

import (
	"errors"
	"time"
)

// Privilege is the authorization level attached to a credential.
type Privilege string

const (
	PrivilegeOrdinary Privilege = "ordinary"
	PrivilegeElevated Privilege = "elevated"
)

// Valid reports whether p is a known privilege level.
func (p Privilege) Valid() bool {
	return p == PrivilegeOrdinary || p == PrivilegeElevated
}

var (
	// ErrCredentialNotFound is returned by repositories when no record matches.
	ErrCredentialNotFound = errors.New("credential not found")
	// ErrIdentifierTaken is returned when provisioning a duplicate identifier.
	ErrIdentifierTaken = errors.New("identifier already registered")
)

// CredentialRecord is the stored login credential for one account.
// Revision increases whenever the secret or the active flag changes.
type CredentialRecord struct {
	ID          string
	Identifier  string
	Email       string
	SecretHash  string `json:"-"`
	Active      bool
	Privilege   Privilege
	Revision    int64
	LastLoginAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
