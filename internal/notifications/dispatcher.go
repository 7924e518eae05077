package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/ovenworks/bakehouse-backend/pkg/db/models"
	"github.com/ovenworks/bakehouse-backend/pkg/logger"
)

const defaultPublishTimeout = 10 * time.Second

// EventTypeOrderConfirmation tags order-confirmation messages on the wire.
const EventTypeOrderConfirmation = "order.confirmation"

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

// Dispatcher emits storefront notification events to Pub/Sub. A downstream
// worker turns them into customer emails.
type Dispatcher struct {
	pub  publisher
	logg *logger.Logger
}

// NewDispatcher wires the dispatcher to the notification topic publisher.
func NewDispatcher(pub *gcppubsub.Publisher, logg *logger.Logger) (*Dispatcher, error) {
	return newDispatcher(newGCPPublisher(pub), logg)
}

func newDispatcher(pub publisher, logg *logger.Logger) (*Dispatcher, error) {
	if pub == nil {
		return nil, fmt.Errorf("publisher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Dispatcher{pub: pub, logg: logg}, nil
}

// OrderPlacedEvent is the JSON payload of an order confirmation message.
type OrderPlacedEvent struct {
	OrderID      string    `json:"order_id"`
	OrderNumber  string    `json:"order_number"`
	TotalAmount  string    `json:"total_amount"`
	DeliveryType string    `json:"delivery_type"`
	PickupCode   *string   `json:"pickup_code,omitempty"`
	GuestEmail   *string   `json:"guest_email,omitempty"`
	UserID       *string   `json:"user_id,omitempty"`
	PlacedAt     time.Time `json:"placed_at"`
}

// OrderPlaced publishes an order confirmation event and waits for the broker
// to acknowledge it.
func (d *Dispatcher) OrderPlaced(ctx context.Context, order *models.Order) error {
	if order == nil {
		return fmt.Errorf("order required")
	}

	event := OrderPlacedEvent{
		OrderID:      order.ID.String(),
		OrderNumber:  order.OrderNumber,
		TotalAmount:  order.TotalAmount.StringFixed(2),
		DeliveryType: order.DeliveryType.String(),
		PickupCode:   order.PickupVerificationCode,
		GuestEmail:   order.GuestEmail,
		PlacedAt:     order.CreatedAt,
	}
	if order.UserID != nil {
		id := order.UserID.String()
		event.UserID = &id
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}

	msg := &gcppubsub.Message{
		Data: payload,
		Attributes: map[string]string{
			"event_type":   EventTypeOrderConfirmation,
			"order_id":     event.OrderID,
			"order_number": event.OrderNumber,
			"created_at":   order.CreatedAt.Format(time.RFC3339Nano),
		},
	}

	publishCtx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()

	result := d.pub.Publish(publishCtx, msg)
	if result == nil {
		return fmt.Errorf("publisher returned nil result")
	}
	messageID, err := result.Get(publishCtx)
	if err != nil {
		return fmt.Errorf("publish order event: %w", err)
	}

	fields := map[string]any{
		"order_id":     event.OrderID,
		"order_number": event.OrderNumber,
		"message_id":   messageID,
	}
	d.logg.Info(d.logg.WithFields(ctx, fields), "order confirmation published")
	return nil
}

func newGCPPublisher(p *gcppubsub.Publisher) publisher {
	if p == nil {
		return nil
	}
	return &gcpPublisher{Publisher: p}
}

type gcpPublisher struct {
	*gcppubsub.Publisher
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	if p == nil || p.Publisher == nil {
		return nil
	}
	return p.Publisher.Publish(ctx, msg)
}
