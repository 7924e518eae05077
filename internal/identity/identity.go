// Package identity resolves every storefront request to exactly one actor:
// an authenticated user or an anonymous guest session.
package identity

import "github.com/google/uuid"

type Kind string

const (
	KindUser  Kind = "user"
	KindGuest Kind = "guest"
)

// Identity is the resolved actor for a request. Exactly one of UserID or
// GuestSessionID is set.
type Identity struct {
	Kind           Kind
	UserID         *uuid.UUID
	GuestSessionID string
	DeviceID       string
}

func (i Identity) IsUser() bool {
	return i.Kind == KindUser && i.UserID != nil
}

func (i Identity) IsGuest() bool {
	return i.Kind == KindGuest && i.GuestSessionID != ""
}

// Key returns a stable string identifying the actor, used to key
// per-owner synchronizer state.
func (i Identity) Key() string {
	if i.IsUser() {
		return "user:" + i.UserID.String()
	}
	return "guest:" + i.GuestSessionID
}
