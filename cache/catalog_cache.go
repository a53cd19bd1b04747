package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/yashrajoria/shop-service/models"
	"github.com/yashrajoria/shop-service/repository"
	"go.uber.org/zap"
)

const (
	ProductCachePrefix     = "product:detail:"
	ProductListCachePrefix = "products:v:"
	CacheVersionKey        = "products:version"

	DefaultCacheTTL = 5 * time.Minute
)

// CatalogCache handles catalog caching in Redis. List entries are keyed by
// a version counter so a single INCR invalidates every cached page.
type CatalogCache struct {
	redis  redis.Cmdable
	ttl    time.Duration
	logger *zap.Logger
}

func NewCatalogCache(client redis.Cmdable, ttl time.Duration, logger *zap.Logger) *CatalogCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CatalogCache{redis: client, ttl: ttl, logger: logger}
}

func (c *CatalogCache) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, bool) {
	data, err := c.redis.Get(ctx, ProductCachePrefix+id.String()).Bytes()
	if err != nil {
		return nil, false
	}
	var p models.Product
	if err := json.Unmarshal(data, &p); err != nil {
		c.logger.Warn("Failed to unmarshal cached product", zap.Error(err), zap.String("product_id", id.String()))
		return nil, false
	}
	return &p, true
}

// SetProductAsync caches a single product asynchronously
func (c *CatalogCache) SetProductAsync(p *models.Product) {
	data, err := json.Marshal(p)
	if err != nil {
		c.logger.Warn("Failed to marshal product for cache", zap.Error(err), zap.String("product_id", p.ID.String()))
		return
	}
	go func() {
		bgCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := c.redis.Set(bgCtx, ProductCachePrefix+p.ID.String(), data, c.ttl).Err(); err != nil {
			c.logger.Warn("Failed to cache product", zap.Error(err), zap.String("product_id", p.ID.String()))
		}
	}()
}

func (c *CatalogCache) GetProductList(ctx context.Context, f repository.ProductFilter) (*models.ProductList, bool) {
	version, err := c.cacheVersion(ctx)
	if err != nil {
		return nil, false
	}
	data, err := c.redis.Get(ctx, listKey(version, f)).Bytes()
	if err != nil {
		return nil, false
	}
	var list models.ProductList
	if err := json.Unmarshal(data, &list); err != nil {
		c.logger.Warn("Failed to unmarshal cached product list", zap.Error(err))
		return nil, false
	}
	return &list, true
}

// SetProductListAsync caches a product page asynchronously
func (c *CatalogCache) SetProductListAsync(f repository.ProductFilter, list *models.ProductList) {
	data, err := json.Marshal(list)
	if err != nil {
		c.logger.Warn("Failed to marshal product list for cache", zap.Error(err))
		return
	}
	go func() {
		bgCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		version, err := c.cacheVersion(bgCtx)
		if err != nil {
			return
		}
		if err := c.redis.Set(bgCtx, listKey(version, f), data, c.ttl).Err(); err != nil {
			c.logger.Warn("Failed to cache product list", zap.Error(err))
		}
	}()
}

// Invalidate drops every cached list by bumping the version.
func (c *CatalogCache) Invalidate(ctx context.Context) error {
	newVersion, err := c.redis.Incr(ctx, CacheVersionKey).Result()
	if err != nil {
		return fmt.Errorf("failed to invalidate cache: %w", err)
	}
	c.logger.Debug("Catalog cache invalidated", zap.Int64("new_version", newVersion))
	return nil
}

// InvalidateProduct drops list caches and the product's detail entry.
func (c *CatalogCache) InvalidateProduct(ctx context.Context, id uuid.UUID) {
	if err := c.Invalidate(ctx); err != nil {
		c.logger.Error("Failed to invalidate catalog cache", zap.Error(err), zap.String("product_id", id.String()))
	}
	if err := c.redis.Del(ctx, ProductCachePrefix+id.String()).Err(); err != nil {
		c.logger.Warn("Failed to delete product cache", zap.Error(err), zap.String("product_id", id.String()))
	}
}

func (c *CatalogCache) cacheVersion(ctx context.Context) (int64, error) {
	ver, err := c.redis.Get(ctx, CacheVersionKey).Int64()
	if err == nil {
		return ver, nil
	}
	if errors.Is(err, redis.Nil) {
		// SETNX keeps a concurrent Invalidate from being overwritten.
		if err := c.redis.SetNX(ctx, CacheVersionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return c.redis.Get(ctx, CacheVersionKey).Int64()
	}
	return 0, err
}

func listKey(version int64, f repository.ProductFilter) string {
	category := ""
	if f.CategoryID != nil {
		category = f.CategoryID.String()
	}
	active := ""
	if f.IsActive != nil {
		active = fmt.Sprintf("%t", *f.IsActive)
	}
	return fmt.Sprintf("%s%d:p:%d:l:%d:c:%s:a:%s:s:%s:o:%s",
		ProductListCachePrefix, version, f.Page, f.PageSize, category, active, f.Search, f.Ordering)
}
