package domain

import "time"

// IdentityContext is the resolved principal for a single authorized request.
// It is built by the token verifier and never persisted.
type IdentityContext struct {
	Subject   string
	Privilege Privilege
	ExpiresAt time.Time
}

// Elevated reports whether the principal carries elevated privilege.
func (i *IdentityContext) Elevated() bool {
	return i != nil && i.Privilege == PrivilegeElevated
}
