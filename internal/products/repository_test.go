package products

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ovenworks/bakehouse-backend/pkg/db/models"
	"github.com/ovenworks/bakehouse-backend/pkg/pagination"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupCatalogTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:catalog?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  description TEXT,
  price TEXT NOT NULL,
  stock INTEGER NOT NULL DEFAULT 0,
  allergens TEXT,
  image_url TEXT,
  is_active BOOLEAN NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)

	t.Cleanup(func() {
		db.Exec("DELETE FROM products")
	})

	return db
}

func seedCatalogProduct(t *testing.T, db *gorm.DB, name string, active bool, createdAt time.Time) uuid.UUID {
	t.Helper()
	product := models.Product{
		ID:        uuid.New(),
		Name:      name,
		Price:     decimal.RequireFromString("4.50"),
		Stock:     10,
		IsActive:  active,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
	require.NoError(t, db.Create(&product).Error)
	return product.ID
}

func TestFindByID(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	id := seedCatalogProduct(t, db, "rye loaf", true, time.Now().UTC())

	product, err := repo.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "rye loaf", product.Name)

	_, err = repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestListActiveFiltersAndPaginates(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	seedCatalogProduct(t, db, "croissant", true, base)
	seedCatalogProduct(t, db, "baguette", true, base.Add(time.Minute))
	seedCatalogProduct(t, db, "focaccia", true, base.Add(2*time.Minute))
	seedCatalogProduct(t, db, "retired bun", false, base.Add(3*time.Minute))

	page, err := repo.ListActive(ctx, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Products, 2)
	require.NotNil(t, page.NextCursor)
	assert.Equal(t, "focaccia", page.Products[0].Name)
	assert.Equal(t, "baguette", page.Products[1].Name)

	rest, err := repo.ListActive(ctx, pagination.Params{Limit: 2, Cursor: *page.NextCursor})
	require.NoError(t, err)
	require.Len(t, rest.Products, 1)
	assert.Equal(t, "croissant", rest.Products[0].Name)
	assert.Nil(t, rest.NextCursor)
}
