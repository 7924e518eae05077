package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	cartsvc "github.com/ovenworks/bakehouse-backend/internal/cart"
	"github.com/ovenworks/bakehouse-backend/internal/identity"
	ordersvc "github.com/ovenworks/bakehouse-backend/internal/orders"
	productsvc "github.com/ovenworks/bakehouse-backend/internal/products"
	"github.com/ovenworks/bakehouse-backend/pkg/config"
	"github.com/ovenworks/bakehouse-backend/pkg/db/models"
	"github.com/ovenworks/bakehouse-backend/pkg/enums"
	pkgerrors "github.com/ovenworks/bakehouse-backend/pkg/errors"
	"github.com/ovenworks/bakehouse-backend/pkg/logger"
	"github.com/ovenworks/bakehouse-backend/pkg/pagination"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubResolver struct{}

func (stubResolver) Resolve(ctx context.Context, authHeader, deviceID string) (identity.Identity, error) {
	if deviceID == "" {
		return identity.Identity{}, pkgerrors.New(pkgerrors.CodeValidation, "missing device id")
	}
	return identity.Identity{
		Kind:           identity.KindGuest,
		GuestSessionID: "g_" + deviceID,
		DeviceID:       deviceID,
	}, nil
}

type stubProductService struct{}

func (stubProductService) Get(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
}

func (stubProductService) List(ctx context.Context, params pagination.Params) (*productsvc.ListResult, error) {
	return &productsvc.ListResult{Products: []models.Product{}}, nil
}

type stubCartService struct {
	seen identity.Identity
}

func (s *stubCartService) Get(ctx context.Context, ident identity.Identity) (cartsvc.Document, error) {
	s.seen = ident
	return cartsvc.EmptyDocument(), nil
}

func (s *stubCartService) AddItem(ctx context.Context, ident identity.Identity, productID uuid.UUID, qty int) (cartsvc.Document, error) {
	return cartsvc.EmptyDocument(), nil
}

func (s *stubCartService) SetItemQuantity(ctx context.Context, ident identity.Identity, productID uuid.UUID, qty int) (cartsvc.Document, error) {
	return cartsvc.EmptyDocument(), nil
}

func (s *stubCartService) RemoveItem(ctx context.Context, ident identity.Identity, productID uuid.UUID) (cartsvc.Document, error) {
	return cartsvc.EmptyDocument(), nil
}

func (s *stubCartService) Clear(ctx context.Context, ident identity.Identity) (cartsvc.Document, error) {
	return cartsvc.EmptyDocument(), nil
}

func (s *stubCartService) MergeOnLogin(ctx context.Context, guest, user identity.Identity) (cartsvc.Document, error) {
	return cartsvc.EmptyDocument(), nil
}

func (s *stubCartService) Flush(ctx context.Context, ident identity.Identity) error {
	return nil
}

type stubOrderService struct{}

func (stubOrderService) PlaceOrder(ctx context.Context, ident identity.Identity, input ordersvc.PlaceOrderInput) (*models.Order, error) {
	return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
}

func (stubOrderService) Get(ctx context.Context, ident identity.Identity, orderID uuid.UUID) (*models.Order, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
}

func (stubOrderService) List(ctx context.Context, ident identity.Identity, params pagination.Params) (*ordersvc.ListResult, error) {
	return &ordersvc.ListResult{Orders: []models.Order{}}, nil
}

func (stubOrderService) UpdateStatus(ctx context.Context, orderID uuid.UUID, next enums.OrderStatus) (*models.Order, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{Secret: "secret", Issuer: "issuer"},
	}
}

func newTestRouter(cart cartsvc.Service) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	return NewRouter(RouterParams{
		Config:   testConfig(),
		Logger:   logg,
		DB:       stubPinger{},
		Redis:    stubPinger{},
		Resolver: stubResolver{},
		Products: stubProductService{},
		Cart:     cart,
		Orders:   stubOrderService{},
	})
}

func TestHealthLive(t *testing.T) {
	router := newTestRouter(&stubCartService{})
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for live probe got %d", resp.Code)
	}
}

func TestProductsReachableWithoutDeviceID(t *testing.T) {
	router := newTestRouter(&stubCartService{})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for public catalog got %d", resp.Code)
	}
}

func TestCartRejectsMissingDeviceID(t *testing.T) {
	router := newTestRouter(&stubCartService{})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without device id got %d", resp.Code)
	}
}

func TestCartResolvesGuestFromDeviceID(t *testing.T) {
	cart := &stubCartService{}
	router := newTestRouter(cart)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("X-Device-ID", "device-123")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 with device id got %d", resp.Code)
	}
	if !cart.seen.IsGuest() {
		t.Fatalf("expected resolved guest identity got %+v", cart.seen)
	}
	if cart.seen.GuestSessionID != "g_device-123" {
		t.Fatalf("unexpected guest session %q", cart.seen.GuestSessionID)
	}
}

func TestCheckoutRejectsBadJSON(t *testing.T) {
	router := newTestRouter(&stubCartService{})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Device-ID", "device-123")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid payload got %d", resp.Code)
	}
}

func TestOrdersRequireDeviceID(t *testing.T) {
	router := newTestRouter(&stubCartService{})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without device id got %d", resp.Code)
	}
}
