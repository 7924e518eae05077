package cart

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/ovenworks/bakehouse-backend/internal/identity"
)

// Owner identifies who a durable cart belongs to. Exactly one of the two
// fields is set, mirroring the CHECK constraint on the carts table.
type Owner struct {
	UserID         *uuid.UUID
	GuestSessionID string
}

func UserOwner(id uuid.UUID) Owner {
	return Owner{UserID: &id}
}

func GuestOwner(sessionID string) Owner {
	return Owner{GuestSessionID: sessionID}
}

// OwnerFromIdentity converts a resolved request identity into a cart owner.
func OwnerFromIdentity(ident identity.Identity) (Owner, error) {
	switch {
	case ident.IsUser():
		return UserOwner(*ident.UserID), nil
	case ident.IsGuest():
		return GuestOwner(ident.GuestSessionID), nil
	default:
		return Owner{}, fmt.Errorf("identity resolves to neither user nor guest")
	}
}

func (o Owner) IsUser() bool {
	return o.UserID != nil
}

func (o Owner) Valid() bool {
	return (o.UserID != nil) != (o.GuestSessionID != "")
}

// Key returns a stable string for keying synchronizer state.
func (o Owner) Key() string {
	if o.IsUser() {
		return "user:" + o.UserID.String()
	}
	return "guest:" + o.GuestSessionID
}
