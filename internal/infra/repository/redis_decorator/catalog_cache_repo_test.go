package redis_decorator

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/RoyceAzure/lab/storefront/internal/domain/model"
	"github.com/RoyceAzure/lab/storefront/internal/infra/repository/db"
	"github.com/RoyceAzure/lab/storefront/internal/infra/repository/db/memdb"
	"github.com/RoyceAzure/lab/storefront/internal/infra/repository/redis_repo"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type fakeProductCache struct {
	mu       sync.Mutex
	products map[uuid.UUID]model.Product
	gets     int
	deleted  []uuid.UUID
	getErr   error
}

func newFakeProductCache() *fakeProductCache {
	return &fakeProductCache{products: map[uuid.UUID]model.Product{}}
}

func (f *fakeProductCache) GetProduct(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.getErr != nil {
		return nil, f.getErr
	}
	p, ok := f.products[id]
	if !ok {
		return nil, redis_repo.ErrCacheMiss
	}
	return &p, nil
}

func (f *fakeProductCache) SetProduct(ctx context.Context, product *model.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.products[product.ID] = *product
	return nil
}

func (f *fakeProductCache) DeleteProducts(ctx context.Context, ids ...uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		delete(f.products, id)
		f.deleted = append(f.deleted, id)
	}
	return nil
}

func (f *fakeProductCache) cached(id uuid.UUID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.products[id]
	return ok
}

func setup(t *testing.T) (*CacheAsideCatalogRepo, *memdb.Catalog, *fakeProductCache, *model.Product) {
	catalog := memdb.NewCatalog()
	product := &model.Product{SKU: "SAREE-A", Name: "Saree A", Price: decimal.NewFromInt(1200), StockQuantity: 5}
	require.NoError(t, catalog.CreateProduct(context.Background(), product))
	cache := newFakeProductCache()
	return NewCacheAsideCatalogRepo(catalog, cache), catalog, cache, product
}

func TestGetProductByIDReadThrough(t *testing.T) {
	repo, _, cache, product := setup(t)
	ctx := context.Background()

	got, err := repo.GetProductByID(ctx, product.ID)
	require.NoError(t, err)
	require.Equal(t, product.SKU, got.SKU)
	require.True(t, cache.cached(product.ID))

	_, err = repo.GetProductByID(ctx, uuid.New())
	require.ErrorIs(t, err, db.ErrNotFound)
}

func TestGetProductByIDCacheErrorFallback(t *testing.T) {
	repo, _, cache, product := setup(t)
	cache.getErr = errors.New("redis down")

	got, err := repo.GetProductByID(context.Background(), product.ID)
	require.NoError(t, err)
	require.Equal(t, product.ID, got.ID)
}

func TestStockChangeInvalidates(t *testing.T) {
	repo, catalog, cache, product := setup(t)
	ctx := context.Background()

	_, err := repo.GetProductByID(ctx, product.ID)
	require.NoError(t, err)

	require.NoError(t, repo.DeductProductStock(ctx, product.ID, 2))
	require.False(t, cache.cached(product.ID))

	got, err := repo.GetProductByID(ctx, product.ID)
	require.NoError(t, err)
	require.Equal(t, 3, got.StockQuantity)
	require.Equal(t, 3, catalog.Product(product.ID).StockQuantity)
}

func TestExecTxInvalidatesAfterCommit(t *testing.T) {
	repo, _, cache, product := setup(t)
	ctx := context.Background()
	_, err := repo.GetProductByID(ctx, product.ID)
	require.NoError(t, err)

	err = repo.ExecTx(ctx, func(tx db.ICatalogRepository) error {
		if err := tx.DeductProductStock(ctx, product.ID, 1); err != nil {
			return err
		}
		// commit 前快取還在
		require.True(t, cache.cached(product.ID))
		return nil
	})
	require.NoError(t, err)
	require.False(t, cache.cached(product.ID))
	require.Equal(t, []uuid.UUID{product.ID}, cache.deleted)
}

func TestExecTxRollbackKeepsCache(t *testing.T) {
	repo, catalog, cache, product := setup(t)
	ctx := context.Background()
	_, err := repo.GetProductByID(ctx, product.ID)
	require.NoError(t, err)

	boom := errors.New("boom")
	err = repo.ExecTx(ctx, func(tx db.ICatalogRepository) error {
		if err := tx.DeductProductStock(ctx, product.ID, 1); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.True(t, cache.cached(product.ID))
	require.Empty(t, cache.deleted)
	require.Equal(t, 5, catalog.Product(product.ID).StockQuantity)
}
