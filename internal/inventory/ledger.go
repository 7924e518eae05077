// Package inventory guards product stock levels. All mutations are
// conditional SQL so two concurrent checkouts can never oversell.
package inventory

import (
	"context"
	"errors"

	"github.com/google/uuid"
	pkgerrors "github.com/ovenworks/bakehouse-backend/pkg/errors"
	"gorm.io/gorm"
)

// Decrementer claims stock inside a checkout transaction.
type Decrementer interface {
	Decrement(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error
}

// Restorer returns stock when an order is cancelled.
type Restorer interface {
	Restore(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error
}

type ledger struct{}

// NewLedger exposes the default stock ledger implementation.
func NewLedger() interface {
	Decrementer
	Restorer
} {
	return ledger{}
}

// Decrement atomically claims qty units. The guard lives in the WHERE
// clause: if stock is short the update matches zero rows and the caller
// gets an insufficient-stock error, never a negative stock value.
func (ledger) Decrement(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for stock decrement")
	}

	res := tx.WithContext(ctx).Exec(`
		UPDATE products
		SET stock = stock - ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND stock >= ?
	`, qty, productID, qty)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "decrement stock")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").
			WithDetails(map[string]any{"product_id": productID.String()})
	}
	return nil
}

// Restore adds qty units back, used when an order is cancelled.
func (ledger) Restore(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error {
	if qty <= 0 {
		return nil
	}
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for stock restore")
	}

	res := tx.WithContext(ctx).Exec(`
		UPDATE products
		SET stock = stock + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, qty, productID)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "restore stock")
	}
	return nil
}

// GetStock reads the current stock level for a product.
func GetStock(ctx context.Context, db *gorm.DB, productID uuid.UUID) (int, error) {
	var stock int
	err := db.WithContext(ctx).
		Raw("SELECT stock FROM products WHERE id = ?", productID).
		Scan(&stock).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read stock")
	}
	return stock, nil
}
