package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ovenworks/bakehouse-backend/pkg/enums"
)

// Order is the committed order aggregate header. Either UserID is set or the
// guest identity fields carry meaningful data, never both.
type Order struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber    string          `gorm:"column:order_number;not null;uniqueIndex:ux_orders_order_number"`
	UserID         *uuid.UUID      `gorm:"column:user_id;type:uuid"`
	GuestName      *string         `gorm:"column:guest_name"`
	GuestEmail     *string         `gorm:"column:guest_email"`
	GuestPhone     *string         `gorm:"column:guest_phone"`
	GuestSessionID *string         `gorm:"column:guest_session_id"`
	GuestIP        *string         `gorm:"column:guest_ip"`
	TotalAmount    decimal.Decimal `gorm:"column:total_amount;type:numeric(12,2);not null"`

	Status        enums.OrderStatus   `gorm:"column:status;not null;default:'pending'"`
	PaymentMethod enums.PaymentMethod `gorm:"column:payment_method;not null"`
	PaymentStatus enums.PaymentStatus `gorm:"column:payment_status;not null;default:'pending'"`

	DeliveryType       enums.DeliveryType `gorm:"column:delivery_type;not null"`
	DeliveryStreet     *string            `gorm:"column:delivery_street"`
	DeliveryCity       *string            `gorm:"column:delivery_city"`
	DeliveryState      *string            `gorm:"column:delivery_state"`
	DeliveryPostalCode *string            `gorm:"column:delivery_postal_code"`

	PickupName             *string `gorm:"column:pickup_name"`
	PickupPhone            *string `gorm:"column:pickup_phone"`
	PickupVerificationCode *string `gorm:"column:pickup_verification_code"`

	Items     []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time   `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time   `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderItem snapshots one ordered product. PriceAtTime keeps the order
// auditable after catalog price changes.
type OrderItem struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID     uuid.UUID       `gorm:"column:order_id;type:uuid;not null"`
	ProductID   uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	Quantity    int             `gorm:"column:quantity;not null"`
	PriceAtTime decimal.Decimal `gorm:"column:price_at_time;type:numeric(12,2);not null"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
}
