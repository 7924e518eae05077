package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ovenworks/bakehouse-backend/api/middleware"
	cartsvc "github.com/ovenworks/bakehouse-backend/internal/cart"
	"github.com/ovenworks/bakehouse-backend/internal/identity"
	"github.com/ovenworks/bakehouse-backend/pkg/logger"
	"github.com/ovenworks/bakehouse-backend/pkg/types"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

type stubCartService struct {
	doc        cartsvc.Document
	err        error
	addCalls   int
	setCalls   int
	lastQty    int
	mergeGuest identity.Identity
}

func (s *stubCartService) Get(ctx context.Context, ident identity.Identity) (cartsvc.Document, error) {
	return s.doc, s.err
}

func (s *stubCartService) AddItem(ctx context.Context, ident identity.Identity, productID uuid.UUID, qty int) (cartsvc.Document, error) {
	s.addCalls++
	s.lastQty = qty
	return s.doc, s.err
}

func (s *stubCartService) SetItemQuantity(ctx context.Context, ident identity.Identity, productID uuid.UUID, qty int) (cartsvc.Document, error) {
	s.setCalls++
	s.lastQty = qty
	return s.doc, s.err
}

func (s *stubCartService) RemoveItem(ctx context.Context, ident identity.Identity, productID uuid.UUID) (cartsvc.Document, error) {
	return s.doc, s.err
}

func (s *stubCartService) Clear(ctx context.Context, ident identity.Identity) (cartsvc.Document, error) {
	return s.doc, s.err
}

func (s *stubCartService) MergeOnLogin(ctx context.Context, guest, user identity.Identity) (cartsvc.Document, error) {
	s.mergeGuest = guest
	return s.doc, s.err
}

func (s *stubCartService) Flush(ctx context.Context, ident identity.Identity) error {
	return s.err
}

func guestCtx() context.Context {
	return middleware.WithIdentity(context.Background(), identity.Identity{
		Kind:           identity.KindGuest,
		GuestSessionID: "g_test",
		DeviceID:       "dev-1",
	})
}

func userCtx(userID uuid.UUID) context.Context {
	return middleware.WithIdentity(context.Background(), identity.Identity{
		Kind:     identity.KindUser,
		UserID:   &userID,
		DeviceID: "dev-1",
	})
}

func TestCartAddItem(t *testing.T) {
	logg := testLogger()
	productID := uuid.New()

	t.Run("success", func(t *testing.T) {
		stub := &stubCartService{doc: cartsvc.Document{
			Lines:     []cartsvc.Line{{ProductID: productID, Quantity: 2}},
			UpdatedAt: time.Now().UTC(),
		}}
		body := `{"product_id":"` + productID.String() + `","quantity":2}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(body))
		req = req.WithContext(guestCtx())
		rec := httptest.NewRecorder()

		CartAddItem(stub, logg).ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if stub.addCalls != 1 || stub.lastQty != 2 {
			t.Fatalf("expected one AddItem call with qty 2, got %d calls qty %d", stub.addCalls, stub.lastQty)
		}

		var envelope types.SuccessEnvelope
		if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	})

	t.Run("zero quantity rejected", func(t *testing.T) {
		stub := &stubCartService{}
		body := `{"product_id":"` + productID.String() + `","quantity":0}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(body))
		req = req.WithContext(guestCtx())
		rec := httptest.NewRecorder()

		CartAddItem(stub, logg).ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		if stub.addCalls != 0 {
			t.Fatalf("service should not be called on invalid input")
		}
	})

	t.Run("missing identity", func(t *testing.T) {
		stub := &stubCartService{}
		body := `{"product_id":"` + productID.String() + `","quantity":1}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(body))
		rec := httptest.NewRecorder()

		CartAddItem(stub, logg).ServeHTTP(rec, req)

		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500 when identity middleware is missing, got %d", rec.Code)
		}
	})
}

func TestCartUpdateItemZeroRemoves(t *testing.T) {
	logg := testLogger()
	productID := uuid.New()
	stub := &stubCartService{}

	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("productID", productID.String())
	ctx := context.WithValue(guestCtx(), chi.RouteCtxKey, routeCtx)

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/cart/items/"+productID.String(), strings.NewReader(`{"quantity":0}`))
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()

	CartUpdateItem(stub, logg).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if stub.setCalls != 1 || stub.lastQty != 0 {
		t.Fatalf("expected SetItemQuantity(0), got %d calls qty %d", stub.setCalls, stub.lastQty)
	}
}

func TestCartMerge(t *testing.T) {
	logg := testLogger()

	t.Run("requires user identity", func(t *testing.T) {
		stub := &stubCartService{}
		req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/merge", strings.NewReader(`{"guest_session_id":"g_old"}`))
		req = req.WithContext(guestCtx())
		rec := httptest.NewRecorder()

		CartMerge(stub, logg).ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 for guest caller, got %d", rec.Code)
		}
	})

	t.Run("merges guest session", func(t *testing.T) {
		stub := &stubCartService{}
		req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/merge", strings.NewReader(`{"guest_session_id":"g_old"}`))
		req = req.WithContext(userCtx(uuid.New()))
		rec := httptest.NewRecorder()

		CartMerge(stub, logg).ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if stub.mergeGuest.GuestSessionID != "g_old" {
			t.Fatalf("expected guest session g_old, got %q", stub.mergeGuest.GuestSessionID)
		}
	})
}
