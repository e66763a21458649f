package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wms-platform/fulfillment-service/internal/domain"
	"github.com/wms-platform/fulfillment-service/pkg/logging"
)

const defaultProductTTL = 5 * time.Minute

// cacheStore defines the operations used by ProductCache
type cacheStore interface {
	MGet(ctx context.Context, keys ...string) ([]any, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

type clientCache struct {
	client redis.UniversalClient
}

func (c clientCache) MGet(ctx context.Context, keys ...string) ([]any, error) {
	return c.client.MGet(ctx, keys...).Result()
}

func (c clientCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

func (c clientCache) Del(ctx context.Context, keys ...string) error {
	err := c.client.Del(ctx, keys...).Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}

// ProductCache is a cache-aside decorator over a ProductRepository. Point
// lookups are served from Redis; listings always go to the repository.
// Cache failures degrade to repository reads.
type ProductCache struct {
	next   domain.ProductRepository
	store  cacheStore
	ttl    time.Duration
	logger *logging.Logger
}

var _ domain.ProductRepository = (*ProductCache)(nil)

// NewProductCache wraps next with a Redis product cache
func NewProductCache(next domain.ProductRepository, client redis.UniversalClient, ttl time.Duration, logger *logging.Logger) *ProductCache {
	return newProductCache(next, clientCache{client: client}, ttl, logger)
}

func newProductCache(next domain.ProductRepository, store cacheStore, ttl time.Duration, logger *logging.Logger) *ProductCache {
	if ttl <= 0 {
		ttl = defaultProductTTL
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &ProductCache{
		next:   next,
		store:  store,
		ttl:    ttl,
		logger: logger.WithComponent("product-cache"),
	}
}

func productKey(productID string) string {
	return buildKey("product", productID)
}

// Save writes through to the repository and evicts the cached copy
func (c *ProductCache) Save(ctx context.Context, product *domain.Product) error {
	if err := c.next.Save(ctx, product); err != nil {
		return err
	}
	if err := c.store.Del(ctx, productKey(product.ProductID)); err != nil {
		c.logger.WithContext(ctx).WithError(err).Warn("Failed to evict product", "productId", product.ProductID)
	}
	return nil
}

// FindByID retrieves a product, filling the cache on a miss
func (c *ProductCache) FindByID(ctx context.Context, productID string) (*domain.Product, error) {
	products, err := c.FindByIDs(ctx, []string{productID})
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, nil
	}
	return products[0], nil
}

// FindByIDs retrieves the products that exist among productIDs
func (c *ProductCache) FindByIDs(ctx context.Context, productIDs []string) ([]*domain.Product, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}

	found, missing := c.lookup(ctx, productIDs)
	if len(missing) == 0 {
		return found, nil
	}

	loaded, err := c.next.FindByIDs(ctx, missing)
	if err != nil {
		return nil, err
	}
	for _, product := range loaded {
		c.fill(ctx, product)
	}
	return append(found, loaded...), nil
}

// FindByMerchant reads through to the repository
func (c *ProductCache) FindByMerchant(ctx context.Context, merchantID string, pagination domain.Pagination) ([]*domain.Product, error) {
	return c.next.FindByMerchant(ctx, merchantID, pagination)
}

// CountByMerchant reads through to the repository
func (c *ProductCache) CountByMerchant(ctx context.Context, merchantID string) (int64, error) {
	return c.next.CountByMerchant(ctx, merchantID)
}

// lookup splits productIDs into cached products and ids to load
func (c *ProductCache) lookup(ctx context.Context, productIDs []string) ([]*domain.Product, []string) {
	keys := make([]string, len(productIDs))
	for i, id := range productIDs {
		keys[i] = productKey(id)
	}

	values, err := c.store.MGet(ctx, keys...)
	if err != nil {
		c.logger.WithContext(ctx).WithError(err).Warn("Product cache unavailable")
		return nil, productIDs
	}

	found := make([]*domain.Product, 0, len(productIDs))
	var missing []string
	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			missing = append(missing, productIDs[i])
			continue
		}
		var product domain.Product
		if err := json.Unmarshal([]byte(raw), &product); err != nil {
			missing = append(missing, productIDs[i])
			continue
		}
		found = append(found, &product)
	}
	return found, missing
}

func (c *ProductCache) fill(ctx context.Context, product *domain.Product) {
	payload, err := json.Marshal(product)
	if err != nil {
		return
	}
	if err := c.store.Set(ctx, productKey(product.ProductID), payload, c.ttl); err != nil {
		c.logger.WithContext(ctx).WithError(err).Warn("Failed to cache product", "productId", product.ProductID)
	}
}
