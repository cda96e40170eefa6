package redis_repo

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/RoyceAzure/lab/storefront/internal/domain/model"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrCacheMiss = errors.New("cache miss")

// CacheClient ProductCache 需要的 redis 指令
type CacheClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type IProductCache interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*model.Product, error)
	SetProduct(ctx context.Context, product *model.Product) error
	DeleteProducts(ctx context.Context, ids ...uuid.UUID) error
}

// ProductCache 商品詳細資料快取，值為 json
//
//	key: {prefix}:product:{id}
type ProductCache struct {
	client CacheClient
	prefix string
	ttl    time.Duration
}

func NewProductCache(client CacheClient, prefix string, ttl time.Duration) *ProductCache {
	return &ProductCache{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (c *ProductCache) key(id uuid.UUID) string {
	var builder strings.Builder
	builder.Grow(len(c.prefix) + 45)
	if c.prefix != "" {
		builder.WriteString(c.prefix)
		builder.WriteString(":")
	}
	builder.WriteString("product:")
	builder.WriteString(id.String())
	return builder.String()
}

// GetProduct 錯誤:
//   - ErrCacheMiss: 快取不存在
//   - err: 其他錯誤
func (c *ProductCache) GetProduct(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	raw, err := c.client.Get(ctx, c.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, err
	}

	var product model.Product
	if err := json.Unmarshal(raw, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

func (c *ProductCache) SetProduct(ctx context.Context, product *model.Product) error {
	raw, err := json.Marshal(product)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(product.ID), raw, c.ttl).Err()
}

func (c *ProductCache) DeleteProducts(ctx context.Context, ids ...uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, c.key(id))
	}
	return c.client.Del(ctx, keys...).Err()
}

var _ IProductCache = (*ProductCache)(nil)
