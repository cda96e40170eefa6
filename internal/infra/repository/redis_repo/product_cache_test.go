package redis_repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/RoyceAzure/lab/storefront/internal/domain/model"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestProductCache(t *testing.T) {
	ctx := context.Background()
	client := newFakeRedis()
	cache := NewProductCache(client, "storefront", 5*time.Minute)

	product := &model.Product{
		BaseModel:     model.BaseModel{ID: uuid.New()},
		SKU:           "SAREE-A",
		Name:          "Saree A",
		Price:         decimal.RequireFromString("1200.50"),
		StockQuantity: 5,
		Status:        model.ProductStatusActive,
		Attributes:    model.Attributes{"color": "red"},
	}

	_, err := cache.GetProduct(ctx, product.ID)
	require.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, cache.SetProduct(ctx, product))
	require.Equal(t, 5*time.Minute, client.ttls["storefront:product:"+product.ID.String()])

	got, err := cache.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	require.Equal(t, product.SKU, got.SKU)
	require.True(t, product.Price.Equal(got.Price))
	require.Equal(t, "red", got.Attributes["color"])

	require.NoError(t, cache.DeleteProducts(ctx, product.ID, uuid.New()))
	_, err = cache.GetProduct(ctx, product.ID)
	require.ErrorIs(t, err, ErrCacheMiss)
}

func TestProductCacheError(t *testing.T) {
	client := newFakeRedis()
	client.err = errors.New("connection refused")
	cache := NewProductCache(client, "", time.Minute)

	_, err := cache.GetProduct(context.Background(), uuid.New())
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrCacheMiss)
}
