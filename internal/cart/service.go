package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ovenworks/bakehouse-backend/internal/identity"
	"github.com/ovenworks/bakehouse-backend/pkg/db/models"
	pkgerrors "github.com/ovenworks/bakehouse-backend/pkg/errors"
	"gorm.io/gorm"
)

type productLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// Service exposes the shopper-facing cart operations. Reads come from the
// cache; every mutation lands in the cache first and reaches the durable
// store through the synchronizer.
type Service interface {
	Get(ctx context.Context, ident identity.Identity) (Document, error)
	AddItem(ctx context.Context, ident identity.Identity, productID uuid.UUID, qty int) (Document, error)
	SetItemQuantity(ctx context.Context, ident identity.Identity, productID uuid.UUID, qty int) (Document, error)
	RemoveItem(ctx context.Context, ident identity.Identity, productID uuid.UUID) (Document, error)
	Clear(ctx context.Context, ident identity.Identity) (Document, error)
	MergeOnLogin(ctx context.Context, guest, user identity.Identity) (Document, error)
	Flush(ctx context.Context, ident identity.Identity) error
}

type service struct {
	cache    *Cache
	sync     *Synchronizer
	products productLoader
	now      func() time.Time
}

// NewService builds a cart service backed by the provided stack.
func NewService(cache *Cache, sync *Synchronizer, products productLoader) (Service, error) {
	if cache == nil {
		return nil, fmt.Errorf("cart cache required")
	}
	if sync == nil {
		return nil, fmt.Errorf("cart synchronizer required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	return &service{
		cache:    cache,
		sync:     sync,
		products: products,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// Get returns the current cart. On the first request for an owner the
// durable cart is hydrated into the cache; afterwards the cache answers.
func (s *service) Get(ctx context.Context, ident identity.Identity) (Document, error) {
	owner, err := OwnerFromIdentity(ident)
	if err != nil {
		return EmptyDocument(), pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "resolving cart owner")
	}

	if state, _ := s.sync.State(owner); state != StateReady {
		doc, err := s.sync.Hydrate(ctx, owner)
		if err != nil {
			return EmptyDocument(), pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading cart")
		}
		if err := s.cache.Save(ctx, ident.DeviceID, doc); err != nil {
			return EmptyDocument(), err
		}
		return doc, nil
	}

	return s.cache.Load(ctx, ident.DeviceID)
}

// AddItem adds qty of a product, incrementing the line if it already exists.
func (s *service) AddItem(ctx context.Context, ident identity.Identity, productID uuid.UUID, qty int) (Document, error) {
	if qty <= 0 {
		return EmptyDocument(), pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if err := s.ensureOrderable(ctx, productID); err != nil {
		return EmptyDocument(), err
	}

	return s.mutate(ctx, ident, func(doc Document) Document {
		return doc.WithLineAdded(productID, qty, s.now())
	})
}

// SetItemQuantity pins a line to an absolute quantity. Zero or below
// removes the line.
func (s *service) SetItemQuantity(ctx context.Context, ident identity.Identity, productID uuid.UUID, qty int) (Document, error) {
	if qty > 0 {
		if err := s.ensureOrderable(ctx, productID); err != nil {
			return EmptyDocument(), err
		}
	}

	return s.mutate(ctx, ident, func(doc Document) Document {
		return doc.WithQuantity(productID, qty, s.now())
	})
}

// RemoveItem drops a product line entirely. Removing an absent line is a
// no-op.
func (s *service) RemoveItem(ctx context.Context, ident identity.Identity, productID uuid.UUID) (Document, error) {
	return s.mutate(ctx, ident, func(doc Document) Document {
		return doc.WithLineRemoved(productID, s.now())
	})
}

// Clear empties the cart.
func (s *service) Clear(ctx context.Context, ident identity.Identity) (Document, error) {
	return s.mutate(ctx, ident, func(doc Document) Document {
		empty := EmptyDocument()
		empty.UpdatedAt = s.now()
		return empty
	})
}

func (s *service) mutate(ctx context.Context, ident identity.Identity, fn func(Document) Document) (Document, error) {
	owner, err := OwnerFromIdentity(ident)
	if err != nil {
		return EmptyDocument(), pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "resolving cart owner")
	}

	current, err := s.Get(ctx, ident)
	if err != nil {
		return EmptyDocument(), err
	}

	next := fn(current)
	if err := s.cache.Save(ctx, ident.DeviceID, next); err != nil {
		return EmptyDocument(), err
	}
	s.sync.MarkDirty(owner, next)
	return next, nil
}

// MergeOnLogin folds the guest cart into the user's cart after the shopper
// authenticates. Quantities for shared products sum; the guest cart is
// retired.
func (s *service) MergeOnLogin(ctx context.Context, guest, user identity.Identity) (Document, error) {
	if !guest.IsGuest() {
		return EmptyDocument(), pkgerrors.New(pkgerrors.CodeValidation, "merge source must be a guest session")
	}
	if !user.IsUser() {
		return EmptyDocument(), pkgerrors.New(pkgerrors.CodeValidation, "merge target must be a user")
	}

	guestOwner, err := OwnerFromIdentity(guest)
	if err != nil {
		return EmptyDocument(), pkgerrors.Wrap(pkgerrors.CodeValidation, err, "resolving guest owner")
	}
	userOwner, err := OwnerFromIdentity(user)
	if err != nil {
		return EmptyDocument(), pkgerrors.Wrap(pkgerrors.CodeValidation, err, "resolving user owner")
	}

	merged, err := s.sync.TransitionToUser(ctx, guestOwner, userOwner)
	if err != nil {
		return EmptyDocument(), pkgerrors.Wrap(pkgerrors.CodeDependency, err, "merging carts")
	}

	deviceID := user.DeviceID
	if deviceID == "" {
		deviceID = guest.DeviceID
	}
	if deviceID != "" {
		if err := s.cache.Save(ctx, deviceID, merged); err != nil {
			return EmptyDocument(), err
		}
	}

	return merged, nil
}

// Flush forces the owner's snapshot into the durable store. Checkout calls
// this before reading the cart transactionally.
func (s *service) Flush(ctx context.Context, ident identity.Identity) error {
	owner, err := OwnerFromIdentity(ident)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "resolving cart owner")
	}
	if err := s.sync.Flush(ctx, owner); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "flushing cart")
	}
	return nil
}

func (s *service) ensureOrderable(ctx context.Context, productID uuid.UUID) error {
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !product.IsActive {
		return pkgerrors.New(pkgerrors.CodeValidation, "product is not available")
	}
	return nil
}
