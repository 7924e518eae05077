package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	pkgerrors "github.com/ovenworks/bakehouse-backend/pkg/errors"
	goredis "github.com/redis/go-redis/v9"
)

// cacheStore is the slice of the redis client the cart cache needs.
type cacheStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	CartCacheKey(deviceID string) string
}

// Cache keeps a per-device cart snapshot for fast reads. A missing key reads
// as an empty cart, never as an error.
type Cache struct {
	store cacheStore
	ttl   time.Duration
}

func NewCache(store cacheStore, ttl time.Duration) (*Cache, error) {
	if store == nil {
		return nil, fmt.Errorf("cache store is required")
	}
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &Cache{store: store, ttl: ttl}, nil
}

// Load returns the cached document for a device. Corrupt payloads are
// dropped and read as empty so one bad write cannot wedge a device.
func (c *Cache) Load(ctx context.Context, deviceID string) (Document, error) {
	raw, err := c.store.Get(ctx, c.store.CartCacheKey(deviceID))
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return EmptyDocument(), nil
		}
		return EmptyDocument(), pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading cart cache")
	}

	var doc Document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		_ = c.store.Del(ctx, c.store.CartCacheKey(deviceID))
		return EmptyDocument(), nil
	}
	if doc.Lines == nil {
		doc.Lines = []Line{}
	}
	return doc, nil
}

// Save overwrites the cached document for a device.
func (c *Cache) Save(ctx context.Context, deviceID string, doc Document) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding cart cache")
	}
	if err := c.store.Set(ctx, c.store.CartCacheKey(deviceID), string(payload), c.ttl); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "saving cart cache")
	}
	return nil
}

// Clear drops the cached document for a device.
func (c *Cache) Clear(ctx context.Context, deviceID string) error {
	if err := c.store.Del(ctx, c.store.CartCacheKey(deviceID)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clearing cart cache")
	}
	return nil
}
