package cart

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/ovenworks/bakehouse-backend/pkg/db/models"
	"gorm.io/gorm"
)

// StoreRepository defines the durable cart persistence surface.
type StoreRepository interface {
	WithTx(tx *gorm.DB) StoreRepository
	FindByOwner(ctx context.Context, owner Owner) (*models.Cart, error)
	Replace(ctx context.Context, owner Owner, lines []Line) (*models.Cart, error)
	Clear(ctx context.Context, owner Owner) error
	DeleteStaleGuestCarts(ctx context.Context, cutoff time.Time) (int64, error)
}

// Repository persists durable carts in Postgres.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) StoreRepository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func ownerScope(q *gorm.DB, owner Owner) *gorm.DB {
	if owner.IsUser() {
		return q.Where("user_id = ?", *owner.UserID)
	}
	return q.Where("guest_session_id = ?", owner.GuestSessionID)
}

// FindByOwner loads a cart with its items. gorm.ErrRecordNotFound surfaces
// when the owner has no durable cart yet.
func (r *Repository) FindByOwner(ctx context.Context, owner Owner) (*models.Cart, error) {
	var record models.Cart
	err := ownerScope(r.db.WithContext(ctx).Preload("Items"), owner).First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// Replace makes the durable cart match the provided lines exactly. Calling
// it twice with the same lines leaves the same rows; lines without a
// positive quantity are dropped.
func (r *Repository) Replace(ctx context.Context, owner Owner, lines []Line) (*models.Cart, error) {
	tx := r.db.WithContext(ctx)

	record, err := r.findOrCreate(ctx, owner)
	if err != nil {
		return nil, err
	}

	if err := tx.Where("cart_id = ?", record.ID).Delete(&models.CartItem{}).Error; err != nil {
		return nil, err
	}

	items := make([]models.CartItem, 0, len(lines))
	for _, line := range lines {
		if line.Quantity <= 0 {
			continue
		}
		items = append(items, models.CartItem{
			ID:        uuid.New(),
			CartID:    record.ID,
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
		})
	}
	if len(items) > 0 {
		if err := tx.Create(&items).Error; err != nil {
			return nil, err
		}
	}

	if err := tx.Model(&models.Cart{}).
		Where("id = ?", record.ID).
		Update("updated_at", time.Now().UTC()).Error; err != nil {
		return nil, err
	}

	record.Items = items
	return record, nil
}

func (r *Repository) findOrCreate(ctx context.Context, owner Owner) (*models.Cart, error) {
	var record models.Cart
	err := ownerScope(r.db.WithContext(ctx), owner).First(&record).Error
	if err == nil {
		return &record, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	record = models.Cart{ID: uuid.New(), UserID: owner.UserID}
	if owner.GuestSessionID != "" {
		sessionID := owner.GuestSessionID
		record.GuestSessionID = &sessionID
	}
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// Clear removes the owner's durable cart and, via cascade, its items.
func (r *Repository) Clear(ctx context.Context, owner Owner) error {
	var record models.Cart
	err := ownerScope(r.db.WithContext(ctx), owner).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Where("cart_id = ?", record.ID).Delete(&models.CartItem{}).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).Delete(&models.Cart{}, "id = ?", record.ID).Error
}

// DeleteStaleGuestCarts removes guest carts untouched since the cutoff.
// User carts are never swept.
func (r *Repository) DeleteStaleGuestCarts(ctx context.Context, cutoff time.Time) (int64, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.Cart{}).
		Where("guest_session_id IS NOT NULL AND updated_at < ?", cutoff).
		Pluck("id", &ids).Error
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	if err := r.db.WithContext(ctx).Where("cart_id IN ?", ids).Delete(&models.CartItem{}).Error; err != nil {
		return 0, err
	}
	res := r.db.WithContext(ctx).Delete(&models.Cart{}, "id IN ?", ids)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
