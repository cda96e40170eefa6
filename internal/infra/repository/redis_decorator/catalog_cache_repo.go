package redis_decorator

import (
	"context"
	"errors"
	"sync"

	"github.com/RoyceAzure/lab/storefront/internal/domain/model"
	"github.com/RoyceAzure/lab/storefront/internal/infra/repository/db"
	"github.com/RoyceAzure/lab/storefront/internal/infra/repository/redis_repo"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

/*
cache aside: 讀商品詳細資料時先查 redis，miss 再查 db 並回寫
任何會改到商品的操作都在 db 成功後刪除快取
交易內的修改先記錄 id，commit 成功後才刪除
*/
type CacheAsideCatalogRepo struct {
	db.ICatalogRepository
	cache redis_repo.IProductCache
}

func NewCacheAsideCatalogRepo(repo db.ICatalogRepository, cache redis_repo.IProductCache) *CacheAsideCatalogRepo {
	return &CacheAsideCatalogRepo{ICatalogRepository: repo, cache: cache}
}

func (c *CacheAsideCatalogRepo) GetProductByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	product, err := c.cache.GetProduct(ctx, id)
	if err == nil {
		return product, nil
	}
	if !errors.Is(err, redis_repo.ErrCacheMiss) {
		log.Warn().Err(err).Str("product_id", id.String()).Msg("product cache read failed, fallback to db")
	}

	product, err = c.ICatalogRepository.GetProductByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := c.cache.SetProduct(ctx, product); err != nil {
		log.Warn().Err(err).Str("product_id", id.String()).Msg("product cache write failed")
	}
	return product, nil
}

func (c *CacheAsideCatalogRepo) UpsertProductBySKU(ctx context.Context, product *model.Product) (*model.Product, error) {
	saved, err := c.ICatalogRepository.UpsertProductBySKU(ctx, product)
	if err != nil {
		return nil, err
	}
	c.invalidate(ctx, saved.ID)
	return saved, nil
}

func (c *CacheAsideCatalogRepo) DeductProductStock(ctx context.Context, id uuid.UUID, quantity int) error {
	if err := c.ICatalogRepository.DeductProductStock(ctx, id, quantity); err != nil {
		return err
	}
	c.invalidate(ctx, id)
	return nil
}

func (c *CacheAsideCatalogRepo) AddProductStock(ctx context.Context, id uuid.UUID, quantity int) error {
	if err := c.ICatalogRepository.AddProductStock(ctx, id, quantity); err != nil {
		return err
	}
	c.invalidate(ctx, id)
	return nil
}

// ExecTx 交易內的 repo 不讀快取，commit 後刪除被修改商品的快取
func (c *CacheAsideCatalogRepo) ExecTx(ctx context.Context, fn func(db.ICatalogRepository) error) error {
	touched := &touchedProducts{}
	err := c.ICatalogRepository.ExecTx(ctx, func(tx db.ICatalogRepository) error {
		return fn(&trackingCatalogRepo{ICatalogRepository: tx, touched: touched})
	})
	if err != nil {
		return err
	}
	c.invalidate(ctx, touched.list()...)
	return nil
}

func (c *CacheAsideCatalogRepo) invalidate(ctx context.Context, ids ...uuid.UUID) {
	if len(ids) == 0 {
		return
	}
	if err := c.cache.DeleteProducts(ctx, ids...); err != nil {
		log.Error().Err(err).Interface("product_ids", ids).Msg("product cache invalidation failed")
	}
}

// trackingCatalogRepo 記錄交易中修改過的商品
type trackingCatalogRepo struct {
	db.ICatalogRepository
	touched *touchedProducts
}

func (t *trackingCatalogRepo) DeductProductStock(ctx context.Context, id uuid.UUID, quantity int) error {
	if err := t.ICatalogRepository.DeductProductStock(ctx, id, quantity); err != nil {
		return err
	}
	t.touched.add(id)
	return nil
}

func (t *trackingCatalogRepo) AddProductStock(ctx context.Context, id uuid.UUID, quantity int) error {
	if err := t.ICatalogRepository.AddProductStock(ctx, id, quantity); err != nil {
		return err
	}
	t.touched.add(id)
	return nil
}

func (t *trackingCatalogRepo) UpsertProductBySKU(ctx context.Context, product *model.Product) (*model.Product, error) {
	saved, err := t.ICatalogRepository.UpsertProductBySKU(ctx, product)
	if err != nil {
		return nil, err
	}
	t.touched.add(saved.ID)
	return saved, nil
}

// ExecTx 巢狀交易沿用同一份記錄
func (t *trackingCatalogRepo) ExecTx(ctx context.Context, fn func(db.ICatalogRepository) error) error {
	return t.ICatalogRepository.ExecTx(ctx, func(tx db.ICatalogRepository) error {
		return fn(&trackingCatalogRepo{ICatalogRepository: tx, touched: t.touched})
	})
}

type touchedProducts struct {
	mu  sync.Mutex
	ids []uuid.UUID
}

func (t *touchedProducts) add(id uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, existing := range t.ids {
		if existing == id {
			return
		}
	}
	t.ids = append(t.ids, id)
}

func (t *touchedProducts) list() []uuid.UUID {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]uuid.UUID(nil), t.ids...)
}

var _ db.ICatalogRepository = (*CacheAsideCatalogRepo)(nil)
