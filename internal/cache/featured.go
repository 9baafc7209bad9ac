// Package cache holds the featured-products cache layer.
//
// The cache is strictly an optimization: the persistent product store stays
// authoritative, and any cache failure degrades to a direct store read. The
// entry has no TTL — it is overwritten on every featured-set mutation.
package cache

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/solentra/storefront/internal/domain/product"
)

// FeaturedKey is the fixed cache key for the serialized featured product list.
const FeaturedKey = "featured_products"

// ErrMiss is returned by Store.Get when the key is absent.
var ErrMiss = errors.New("cache miss")

// Store is the minimal key-value surface the cache needs. The Redis
// implementation lives in redis.go; tests substitute an in-memory fake.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// ProductSource is the slice of the product repository the cache reads from.
type ProductSource interface {
	ListFeatured(ctx context.Context) ([]product.Product, error)
}

// FeaturedCache serves the featured product subset read-through from a Store,
// falling back to the product repository.
type FeaturedCache struct {
	store    Store
	products ProductSource
	lg       *zap.Logger
}

// NewFeaturedCache wires a FeaturedCache. store may be backed by Redis or any
// other key-value store; products is the authoritative repository.
func NewFeaturedCache(store Store, products ProductSource, lg *zap.Logger) *FeaturedCache {
	return &FeaturedCache{store: store, products: products, lg: lg}
}

// GetFeatured returns the featured product list, preferring the cache. Cache
// errors on either the read or the write-back are soft: they are logged and
// the caller still gets the store-sourced result.
func (c *FeaturedCache) GetFeatured(ctx context.Context) ([]product.Product, error) {
	raw, err := c.store.Get(ctx, FeaturedKey)
	switch {
	case err == nil:
		var cached []product.Product
		if jsonErr := json.Unmarshal(raw, &cached); jsonErr == nil {
			return cached, nil
		}
		// Corrupt entry: treat as a miss and let the refresh overwrite it.
		c.lg.Warn("discarding corrupt cache entry", zap.String("key", FeaturedKey))
	case errors.Is(err, ErrMiss):
	default:
		c.lg.Warn("cache read failed, falling back to store", zap.Error(err))
	}

	featured, err := c.products.ListFeatured(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list featured products")
	}

	c.writeBack(ctx, featured)
	return featured, nil
}

// Refresh recomputes the featured list from the persistent store and
// overwrites the cache entry unconditionally. Call it after any mutation that
// changes the featured set. The returned error reflects only the store read;
// a failed cache write is soft.
func (c *FeaturedCache) Refresh(ctx context.Context) error {
	featured, err := c.products.ListFeatured(ctx)
	if err != nil {
		return errors.Wrap(err, "list featured products")
	}
	c.writeBack(ctx, featured)
	return nil
}

func (c *FeaturedCache) writeBack(ctx context.Context, featured []product.Product) {
	raw, err := json.Marshal(featured)
	if err != nil {
		c.lg.Warn("cache encode failed", zap.Error(err))
		return
	}
	if err := c.store.Set(ctx, FeaturedKey, raw); err != nil {
		c.lg.Warn("cache write failed", zap.Error(err))
	}
}
