package cart

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ovenworks/bakehouse-backend/internal/identity"
	"github.com/ovenworks/bakehouse-backend/pkg/db/models"
	pkgerrors "github.com/ovenworks/bakehouse-backend/pkg/errors"
	"gorm.io/gorm"
)

type stubProducts struct {
	products map[uuid.UUID]*models.Product
}

func (s *stubProducts) FindByID(_ context.Context, id uuid.UUID) (*models.Product, error) {
	if p, ok := s.products[id]; ok {
		return p, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type cartFixture struct {
	svc      Service
	repo     *stubStoreRepo
	cache    *stubCacheStore
	products *stubProducts
}

func newCartFixture(t *testing.T) *cartFixture {
	t.Helper()

	repo := newStubStoreRepo()
	cacheStore := newStubCacheStore()
	cache, err := NewCache(cacheStore, time.Hour)
	if err != nil {
		t.Fatalf("NewCache returned error: %v", err)
	}
	syncer := newTestSynchronizer(t, repo, time.Hour)
	products := &stubProducts{products: map[uuid.UUID]*models.Product{}}

	svc, err := NewService(cache, syncer, products)
	if err != nil {
		t.Fatalf("NewService returned error: %v", err)
	}
	return &cartFixture{svc: svc, repo: repo, cache: cacheStore, products: products}
}

func (f *cartFixture) addProduct(active bool) uuid.UUID {
	id := uuid.New()
	f.products.products[id] = &models.Product{ID: id, Name: "sourdough", Stock: 10, IsActive: active}
	return id
}

func guestIdentity(session, device string) identity.Identity {
	return identity.Identity{Kind: identity.KindGuest, GuestSessionID: session, DeviceID: device}
}

func userIdentity(userID uuid.UUID, device string) identity.Identity {
	return identity.Identity{Kind: identity.KindUser, UserID: &userID, DeviceID: device}
}

func TestAddItemHappyPath(t *testing.T) {
	t.Parallel()

	f := newCartFixture(t)
	productID := f.addProduct(true)
	ident := guestIdentity("g_add", "device-add")

	doc, err := f.svc.AddItem(context.Background(), ident, productID, 2)
	if err != nil {
		t.Fatalf("AddItem returned error: %v", err)
	}
	if doc.Quantity(productID) != 2 {
		t.Fatalf("expected quantity 2, got %d", doc.Quantity(productID))
	}

	doc, err = f.svc.AddItem(context.Background(), ident, productID, 3)
	if err != nil {
		t.Fatalf("second AddItem returned error: %v", err)
	}
	if doc.Quantity(productID) != 5 {
		t.Fatalf("duplicate add should increment, got %d", doc.Quantity(productID))
	}
}

func TestAddItemRejectsNonPositiveQuantity(t *testing.T) {
	t.Parallel()

	f := newCartFixture(t)
	productID := f.addProduct(true)

	_, err := f.svc.AddItem(context.Background(), guestIdentity("g_qty", "device-qty"), productID, 0)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAddItemUnknownProduct(t *testing.T) {
	t.Parallel()

	f := newCartFixture(t)

	_, err := f.svc.AddItem(context.Background(), guestIdentity("g_miss", "device-miss"), uuid.New(), 1)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestAddItemInactiveProduct(t *testing.T) {
	t.Parallel()

	f := newCartFixture(t)
	productID := f.addProduct(false)

	_, err := f.svc.AddItem(context.Background(), guestIdentity("g_inactive", "device-inactive"), productID, 1)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestGetHydratesFromStoreOnFirstRead(t *testing.T) {
	t.Parallel()

	f := newCartFixture(t)
	ident := guestIdentity("g_hydrate_svc", "device-hydrate")
	productID := uuid.New()

	owner := GuestOwner(ident.GuestSessionID)
	f.repo.carts[owner.Key()] = []Line{{ProductID: productID, Quantity: 7}}

	doc, err := f.svc.Get(context.Background(), ident)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if doc.Quantity(productID) != 7 {
		t.Fatalf("expected hydrated quantity 7, got %d", doc.Quantity(productID))
	}

	// the cache now answers without touching the store
	if _, ok := f.cache.values[f.cache.CartCacheKey(ident.DeviceID)]; !ok {
		t.Fatal("hydration should populate the cache")
	}
}

func TestSetItemQuantityZeroRemoves(t *testing.T) {
	t.Parallel()

	f := newCartFixture(t)
	productID := f.addProduct(true)
	ident := guestIdentity("g_set", "device-set")

	if _, err := f.svc.AddItem(context.Background(), ident, productID, 4); err != nil {
		t.Fatalf("AddItem returned error: %v", err)
	}

	doc, err := f.svc.SetItemQuantity(context.Background(), ident, productID, 0)
	if err != nil {
		t.Fatalf("SetItemQuantity returned error: %v", err)
	}
	if !doc.IsEmpty() {
		t.Fatalf("setting quantity 0 should empty the cart, got %+v", doc.Lines)
	}
}

func TestClearEmptiesCart(t *testing.T) {
	t.Parallel()

	f := newCartFixture(t)
	productID := f.addProduct(true)
	ident := guestIdentity("g_clear", "device-clear")

	if _, err := f.svc.AddItem(context.Background(), ident, productID, 2); err != nil {
		t.Fatalf("AddItem returned error: %v", err)
	}

	doc, err := f.svc.Clear(context.Background(), ident)
	if err != nil {
		t.Fatalf("Clear returned error: %v", err)
	}
	if !doc.IsEmpty() {
		t.Fatalf("expected empty cart, got %+v", doc.Lines)
	}
}

func TestMergeOnLoginPreservesBothCarts(t *testing.T) {
	t.Parallel()

	f := newCartFixture(t)
	guest := guestIdentity("g_merge", "device-merge")
	userID := uuid.New()
	user := userIdentity(userID, "device-merge")

	shared := uuid.New()
	guestOnly := uuid.New()
	f.repo.carts[GuestOwner(guest.GuestSessionID).Key()] = []Line{
		{ProductID: shared, Quantity: 1},
		{ProductID: guestOnly, Quantity: 2},
	}
	f.repo.carts[UserOwner(userID).Key()] = []Line{
		{ProductID: shared, Quantity: 4},
	}

	merged, err := f.svc.MergeOnLogin(context.Background(), guest, user)
	if err != nil {
		t.Fatalf("MergeOnLogin returned error: %v", err)
	}
	if merged.Quantity(shared) != 5 || merged.Quantity(guestOnly) != 2 {
		t.Fatalf("merge lost quantities: %+v", merged.Lines)
	}

	if lines := f.repo.lines(GuestOwner(guest.GuestSessionID)); lines != nil {
		t.Fatalf("guest cart should be cleared, got %+v", lines)
	}
}

func TestMergeOnLoginValidatesKinds(t *testing.T) {
	t.Parallel()

	f := newCartFixture(t)
	userID := uuid.New()
	user := userIdentity(userID, "device-x")

	if _, err := f.svc.MergeOnLogin(context.Background(), user, user); err == nil {
		t.Fatal("expected error when source is not a guest")
	}
	guest := guestIdentity("g_only", "device-y")
	if _, err := f.svc.MergeOnLogin(context.Background(), guest, guest); err == nil {
		t.Fatal("expected error when target is not a user")
	}
}
