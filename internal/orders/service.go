package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ovenworks/bakehouse-backend/internal/cart"
	"github.com/ovenworks/bakehouse-backend/internal/identity"
	"github.com/ovenworks/bakehouse-backend/internal/inventory"
	"github.com/ovenworks/bakehouse-backend/pkg/db/models"
	"github.com/ovenworks/bakehouse-backend/pkg/enums"
	pkgerrors "github.com/ovenworks/bakehouse-backend/pkg/errors"
	"github.com/ovenworks/bakehouse-backend/pkg/logger"
	"github.com/ovenworks/bakehouse-backend/pkg/metrics"
	"github.com/ovenworks/bakehouse-backend/pkg/pagination"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type cartFlusher interface {
	Flush(ctx context.Context, ident identity.Identity) error
}

type productLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type notifier interface {
	OrderPlaced(ctx context.Context, order *models.Order) error
}

type taskRunner interface {
	Go(ctx context.Context, name string, fn func(context.Context) error)
}

// Service exposes order placement and retrieval.
type Service interface {
	PlaceOrder(ctx context.Context, ident identity.Identity, input PlaceOrderInput) (*models.Order, error)
	Get(ctx context.Context, ident identity.Identity, orderID uuid.UUID) (*models.Order, error)
	List(ctx context.Context, ident identity.Identity, params pagination.Params) (*ListResult, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, next enums.OrderStatus) (*models.Order, error)
}

type service struct {
	tx       txRunner
	orders   OrderRepository
	carts    cart.StoreRepository
	flusher  cartFlusher
	products productLoader
	ledger   interface {
		inventory.Decrementer
		inventory.Restorer
	}
	notifier notifier
	runner   taskRunner
	metrics  *metrics.StorefrontMetrics
	logg     *logger.Logger
	now      func() time.Time
}

// ServiceParams wires the order service dependencies.
type ServiceParams struct {
	Tx       txRunner
	Orders   OrderRepository
	Carts    cart.StoreRepository
	Flusher  cartFlusher
	Products productLoader
	Ledger   interface {
		inventory.Decrementer
		inventory.Restorer
	}
	Notifier notifier
	Runner   taskRunner
	Metrics  *metrics.StorefrontMetrics
	Logger   *logger.Logger
}

// NewService builds the orders service. Notifier and runner are optional;
// without them orders simply place without a confirmation event.
func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.Flusher == nil {
		return nil, fmt.Errorf("cart flusher required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("inventory ledger required")
	}
	return &service{
		tx:       params.Tx,
		orders:   params.Orders,
		carts:    params.Carts,
		flusher:  params.Flusher,
		products: params.Products,
		ledger:   params.Ledger,
		notifier: params.Notifier,
		runner:   params.Runner,
		metrics:  params.Metrics,
		logg:     params.Logger,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// DeliveryAddress is required when the order is delivered.
type DeliveryAddress struct {
	Street     string
	City       string
	State      string
	PostalCode string
}

// PickupDetails is required when the order is collected in store.
type PickupDetails struct {
	Name  string
	Phone string
}

// GuestContact carries the contact details a guest supplies at checkout.
type GuestContact struct {
	Name  string
	Email string
	Phone *string
}

// PlaceOrderInput is the validated checkout payload. ShippingFee and
// TaxAmount fold into the order total; both default to zero.
type PlaceOrderInput struct {
	PaymentMethod enums.PaymentMethod
	DeliveryType  enums.DeliveryType
	Delivery      *DeliveryAddress
	Pickup        *PickupDetails
	Guest         *GuestContact
	ShippingFee   decimal.Decimal
	TaxAmount     decimal.Decimal
	ClientIP      string
}

// PlaceOrder converts the owner's cart into a committed order. Stock is
// claimed with conditional decrements inside one transaction; any failure
// rolls the whole order back and leaves the cart untouched.
func (s *service) PlaceOrder(ctx context.Context, ident identity.Identity, input PlaceOrderInput) (*models.Order, error) {
	owner, err := cart.OwnerFromIdentity(ident)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "resolving order owner")
	}
	if err := s.validateInput(ident, input); err != nil {
		return nil, err
	}

	// make sure the durable cart matches what the shopper sees
	if err := s.flusher.Flush(ctx, ident); err != nil {
		return nil, err
	}

	start := s.now()
	var created *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		cartRepo := s.carts.WithTx(tx)
		ordersRepo := s.orders.WithTx(tx)

		record, err := cartRepo.FindByOwner(ctx, owner)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}
		if len(record.Items) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
		}

		order, err := s.buildOrder(ident, input)
		if err != nil {
			return err
		}

		total := decimal.Zero
		items := make([]models.OrderItem, 0, len(record.Items))
		for _, item := range record.Items {
			product, err := s.loadOrderable(ctx, item.ProductID)
			if err != nil {
				return err
			}
			if err := s.ledger.Decrement(ctx, tx, item.ProductID, item.Quantity); err != nil {
				return err
			}
			total = total.Add(product.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
			items = append(items, models.OrderItem{
				ID:          uuid.New(),
				ProductID:   item.ProductID,
				Quantity:    item.Quantity,
				PriceAtTime: product.Price,
			})
		}

		order.TotalAmount = total.Add(input.ShippingFee).Add(input.TaxAmount)
		order.Items = items

		created, err = ordersRepo.Create(ctx, order)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}

		// the cart converted; clearing it inside the tx keeps retry safe
		if err := cartRepo.Clear(ctx, owner); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
		}
		return nil
	})
	s.metrics.ObserveOrderPlacement(time.Since(start))
	if err != nil {
		s.metrics.IncOrderPlaced("error")
		return nil, err
	}
	s.metrics.IncOrderPlaced("ok")

	s.dispatchConfirmation(ctx, created)
	return created, nil
}

func (s *service) validateInput(ident identity.Identity, input PlaceOrderInput) error {
	if !input.PaymentMethod.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unsupported payment method")
	}
	if !input.DeliveryType.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unsupported delivery type")
	}
	if input.ShippingFee.IsNegative() || input.TaxAmount.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "shipping fee and tax cannot be negative")
	}

	switch input.DeliveryType {
	case enums.DeliveryTypeDelivery:
		addr := input.Delivery
		if addr == nil || strings.TrimSpace(addr.Street) == "" || strings.TrimSpace(addr.City) == "" ||
			strings.TrimSpace(addr.State) == "" || strings.TrimSpace(addr.PostalCode) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "delivery orders require a complete address")
		}
	case enums.DeliveryTypePickup:
		if input.Pickup == nil || strings.TrimSpace(input.Pickup.Name) == "" || strings.TrimSpace(input.Pickup.Phone) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "pickup orders require a contact name and phone")
		}
	}

	if ident.IsGuest() {
		if input.Guest == nil || strings.TrimSpace(input.Guest.Name) == "" || strings.TrimSpace(input.Guest.Email) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "guest checkout requires a name and email")
		}
	}
	return nil
}

func (s *service) buildOrder(ident identity.Identity, input PlaceOrderInput) (*models.Order, error) {
	number, err := GenerateOrderNumber(s.now())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "order number")
	}

	order := &models.Order{
		ID:            uuid.New(),
		OrderNumber:   number,
		Status:        enums.OrderStatusPending,
		PaymentMethod: input.PaymentMethod,
		PaymentStatus: enums.PaymentStatusPending,
		DeliveryType:  input.DeliveryType,
	}

	if ident.IsUser() {
		order.UserID = ident.UserID
	} else {
		sessionID := ident.GuestSessionID
		order.GuestSessionID = &sessionID
		order.GuestName = &input.Guest.Name
		order.GuestEmail = &input.Guest.Email
		order.GuestPhone = input.Guest.Phone
		if ip := strings.TrimSpace(input.ClientIP); ip != "" {
			order.GuestIP = &ip
		}
	}

	switch input.DeliveryType {
	case enums.DeliveryTypeDelivery:
		order.DeliveryStreet = &input.Delivery.Street
		order.DeliveryCity = &input.Delivery.City
		order.DeliveryState = &input.Delivery.State
		order.DeliveryPostalCode = &input.Delivery.PostalCode
	case enums.DeliveryTypePickup:
		code, err := GeneratePickupCode()
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "pickup code")
		}
		order.PickupName = &input.Pickup.Name
		order.PickupPhone = &input.Pickup.Phone
		order.PickupVerificationCode = &code
	}

	return order, nil
}

func (s *service) loadOrderable(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
				WithDetails(map[string]any{"product_id": productID.String()})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product is no longer available").
			WithDetails(map[string]any{"product_id": productID.String()})
	}
	return product, nil
}

func (s *service) dispatchConfirmation(ctx context.Context, order *models.Order) {
	if s.notifier == nil || s.runner == nil || order == nil {
		return
	}
	// fire and forget: a failed confirmation never fails the order
	s.runner.Go(ctx, "order-confirmation", func(taskCtx context.Context) error {
		return s.notifier.OrderPlaced(taskCtx, order)
	})
}

// Get returns an order visible to the caller. Orders belonging to someone
// else read as not found rather than forbidden.
func (s *service) Get(ctx context.Context, ident identity.Identity, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if !orderVisibleTo(order, ident) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func orderVisibleTo(order *models.Order, ident identity.Identity) bool {
	if ident.IsUser() {
		return order.UserID != nil && *order.UserID == *ident.UserID
	}
	if ident.IsGuest() {
		return order.GuestSessionID != nil && *order.GuestSessionID == ident.GuestSessionID
	}
	return false
}

// List returns the caller's order history, newest first.
func (s *service) List(ctx context.Context, ident identity.Identity, params pagination.Params) (*ListResult, error) {
	var (
		result *ListResult
		err    error
	)
	switch {
	case ident.IsUser():
		result, err = s.orders.ListByUser(ctx, *ident.UserID, params)
	case ident.IsGuest():
		result, err = s.orders.ListByGuestSession(ctx, ident.GuestSessionID, params)
	default:
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "unresolved identity")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return result, nil
}

// UpdateStatus advances an order through its lifecycle. Cancelling restores
// the claimed stock in the same transaction.
func (s *service) UpdateStatus(ctx context.Context, orderID uuid.UUID, next enums.OrderStatus) (*models.Order, error) {
	if !next.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown order status")
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	if !order.Status.CanTransitionTo(next) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "status transition disallowed").
			WithDetails(map[string]any{"from": order.Status.String(), "to": next.String()})
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.orders.WithTx(tx).UpdateStatus(ctx, orderID, next); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		if next == enums.OrderStatusCancelled {
			for _, item := range order.Items {
				if err := s.ledger.Restore(ctx, tx, item.ProductID, item.Quantity); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	order.Status = next
	return order, nil
}
