package controllers

import (
	"net"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ovenworks/bakehouse-backend/api/responses"
	"github.com/ovenworks/bakehouse-backend/api/validators"
	ordersvc "github.com/ovenworks/bakehouse-backend/internal/orders"
	"github.com/ovenworks/bakehouse-backend/pkg/db/models"
	"github.com/ovenworks/bakehouse-backend/pkg/enums"
	pkgerrors "github.com/ovenworks/bakehouse-backend/pkg/errors"
	"github.com/ovenworks/bakehouse-backend/pkg/logger"
)

type deliveryAddressRequest struct {
	Street     string `json:"street" validate:"required"`
	City       string `json:"city" validate:"required"`
	State      string `json:"state" validate:"required"`
	PostalCode string `json:"postal_code" validate:"required"`
}

type pickupDetailsRequest struct {
	Name  string `json:"name" validate:"required"`
	Phone string `json:"phone" validate:"required"`
}

type guestContactRequest struct {
	Name  string  `json:"name" validate:"required"`
	Email string  `json:"email" validate:"required,email"`
	Phone *string `json:"phone,omitempty"`
}

type placeOrderRequest struct {
	PaymentMethod   string                  `json:"payment_method" validate:"required"`
	DeliveryType    string                  `json:"delivery_type" validate:"required"`
	DeliveryAddress *deliveryAddressRequest `json:"delivery_address,omitempty"`
	PickupDetails   *pickupDetailsRequest   `json:"pickup_details,omitempty"`
	GuestContact    *guestContactRequest    `json:"guest_contact,omitempty"`
	ShippingFee     decimal.Decimal         `json:"shipping_fee"`
	TaxAmount       decimal.Decimal         `json:"tax_amount"`
}

type orderItemResponse struct {
	ProductID   string `json:"product_id"`
	Quantity    int    `json:"quantity"`
	PriceAtTime string `json:"price_at_time"`
}

type orderResponse struct {
	ID            string              `json:"id"`
	OrderNumber   string              `json:"order_number"`
	Status        string              `json:"status"`
	PaymentMethod string              `json:"payment_method"`
	PaymentStatus string              `json:"payment_status"`
	DeliveryType  string              `json:"delivery_type"`
	TotalAmount   string              `json:"total_amount"`
	PickupCode    *string             `json:"pickup_code,omitempty"`
	Items         []orderItemResponse `json:"items"`
	CreatedAt     time.Time           `json:"created_at"`
}

func newOrderResponse(order *models.Order) orderResponse {
	payload := orderResponse{
		ID:            order.ID.String(),
		OrderNumber:   order.OrderNumber,
		Status:        order.Status.String(),
		PaymentMethod: order.PaymentMethod.String(),
		PaymentStatus: order.PaymentStatus.String(),
		DeliveryType:  order.DeliveryType.String(),
		TotalAmount:   order.TotalAmount.StringFixed(2),
		PickupCode:    order.PickupVerificationCode,
		Items:         make([]orderItemResponse, 0, len(order.Items)),
		CreatedAt:     order.CreatedAt,
	}
	for _, item := range order.Items {
		payload.Items = append(payload.Items, orderItemResponse{
			ProductID:   item.ProductID.String(),
			Quantity:    item.Quantity,
			PriceAtTime: item.PriceAtTime.StringFixed(2),
		})
	}
	return payload
}

// CheckoutPlaceOrder turns the caller's cart into a committed order.
func CheckoutPlaceOrder(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident, err := identFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload placeOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		paymentMethod, err := enums.ParsePaymentMethod(payload.PaymentMethod)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unsupported payment method"))
			return
		}
		deliveryType, err := enums.ParseDeliveryType(payload.DeliveryType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unsupported delivery type"))
			return
		}

		input := ordersvc.PlaceOrderInput{
			PaymentMethod: paymentMethod,
			DeliveryType:  deliveryType,
			ShippingFee:   payload.ShippingFee,
			TaxAmount:     payload.TaxAmount,
			ClientIP:      clientIP(r),
		}
		if payload.DeliveryAddress != nil {
			input.Delivery = &ordersvc.DeliveryAddress{
				Street:     payload.DeliveryAddress.Street,
				City:       payload.DeliveryAddress.City,
				State:      payload.DeliveryAddress.State,
				PostalCode: payload.DeliveryAddress.PostalCode,
			}
		}
		if payload.PickupDetails != nil {
			input.Pickup = &ordersvc.PickupDetails{
				Name:  payload.PickupDetails.Name,
				Phone: payload.PickupDetails.Phone,
			}
		}
		if payload.GuestContact != nil {
			input.Guest = &ordersvc.GuestContact{
				Name:  payload.GuestContact.Name,
				Email: payload.GuestContact.Email,
				Phone: payload.GuestContact.Phone,
			}
		}

		order, err := svc.PlaceOrder(r.Context(), ident, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newOrderResponse(order))
	}
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return forwarded
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
