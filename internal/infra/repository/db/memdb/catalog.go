// Package memdb 以記憶體實作 repository 介面，給 service / handler 測試使用
package memdb

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/RoyceAzure/lab/storefront/internal/domain/model"
	"github.com/RoyceAzure/lab/storefront/internal/infra/repository/db"
	"github.com/google/uuid"
)

type pairKey struct {
	userID    uuid.UUID
	productID uuid.UUID
}

type catalogState struct {
	products map[uuid.UUID]model.Product
	cart     map[pairKey]model.CartItem
	wishlist map[pairKey]model.WishlistItem
	reviews  []model.ProductReview
}

func (s catalogState) clone() catalogState {
	c := catalogState{
		products: make(map[uuid.UUID]model.Product, len(s.products)),
		cart:     make(map[pairKey]model.CartItem, len(s.cart)),
		wishlist: make(map[pairKey]model.WishlistItem, len(s.wishlist)),
		reviews:  append([]model.ProductReview(nil), s.reviews...),
	}
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.cart {
		c.cart[k] = v
	}
	for k, v := range s.wishlist {
		c.wishlist[k] = v
	}
	return c
}

// Catalog 記憶體版 products store，ExecTx 失敗時還原所有變更
type Catalog struct {
	txMu  sync.Mutex
	mu    sync.Mutex
	state catalogState
	clock time.Time

	// FailDeductFor 指定商品扣庫存時回傳的錯誤
	FailDeductFor map[uuid.UUID]error
}

func NewCatalog() *Catalog {
	return &Catalog{
		state: catalogState{
			products: map[uuid.UUID]model.Product{},
			cart:     map[pairKey]model.CartItem{},
			wishlist: map[pairKey]model.WishlistItem{},
		},
		clock:         time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		FailDeductFor: map[uuid.UUID]error{},
	}
}

// tick 產生遞增時間，讓排序穩定
func (c *Catalog) tick() time.Time {
	c.clock = c.clock.Add(time.Second)
	return c.clock
}

func (c *Catalog) ExecTx(ctx context.Context, fn func(db.ICatalogRepository) error) error {
	c.txMu.Lock()
	defer c.txMu.Unlock()

	c.mu.Lock()
	snapshot := c.state.clone()
	c.mu.Unlock()

	if err := fn(&catalogTx{Catalog: c}); err != nil {
		c.mu.Lock()
		c.state = snapshot
		c.mu.Unlock()
		return err
	}
	return nil
}

// catalogTx 交易內的 repo，巢狀交易直接沿用
type catalogTx struct {
	*Catalog
}

func (t *catalogTx) ExecTx(ctx context.Context, fn func(db.ICatalogRepository) error) error {
	return fn(t)
}

func (c *Catalog) CreateProduct(ctx context.Context, product *model.Product) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range c.state.products {
		if p.SKU == product.SKU || (product.Slug != "" && p.Slug == product.Slug) {
			return db.ErrDuplicate
		}
	}
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	if product.Status == "" {
		product.Status = model.ProductStatusActive
	}
	now := c.tick()
	product.CreatedAt, product.UpdatedAt = now, now
	c.state.products[product.ID] = *product
	return nil
}

func (c *Catalog) UpsertProductBySKU(ctx context.Context, product *model.Product) (*model.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.tick()
	for id, p := range c.state.products {
		if p.SKU == product.SKU {
			updated := *product
			updated.ID = id
			updated.CreatedAt = p.CreatedAt
			updated.UpdatedAt = now
			c.state.products[id] = updated
			return &updated, nil
		}
	}
	saved := *product
	if saved.ID == uuid.Nil {
		saved.ID = uuid.New()
	}
	saved.CreatedAt, saved.UpdatedAt = now, now
	c.state.products[saved.ID] = saved
	return &saved, nil
}

func (c *Catalog) GetProductByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.state.products[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &p, nil
}

func (c *Catalog) GetProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := c.state.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (c *Catalog) GetProductForUpdate(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	return c.GetProductByID(ctx, id)
}

func (c *Catalog) activeProducts(match func(model.Product) bool) []model.Product {
	out := make([]model.Product, 0)
	for _, p := range c.state.products {
		if p.Status == model.ProductStatusActive && match(p) {
			out = append(out, p)
		}
	}
	return out
}

func (c *Catalog) ListActiveProducts(ctx context.Context, filter db.ProductFilter) ([]model.Product, int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	products := c.activeProducts(func(p model.Product) bool {
		if filter.CategoryID != nil && (p.CategoryID == nil || *p.CategoryID != *filter.CategoryID) {
			return false
		}
		if filter.CollectionID != nil && (p.CollectionID == nil || *p.CollectionID != *filter.CollectionID) {
			return false
		}
		return true
	})
	sort.Slice(products, func(i, j int) bool { return products[i].CreatedAt.After(products[j].CreatedAt) })
	return page(products, filter.Offset, filter.Limit), int64(len(products)), nil
}

func (c *Catalog) SearchActiveProducts(ctx context.Context, q string, offset, limit int) ([]model.Product, int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	q = strings.ToLower(q)
	products := c.activeProducts(func(p model.Product) bool {
		return strings.Contains(strings.ToLower(p.Name), q) || strings.Contains(strings.ToLower(p.Description), q)
	})
	sort.Slice(products, func(i, j int) bool { return products[i].Name < products[j].Name })
	return page(products, offset, limit), int64(len(products)), nil
}

func (c *Catalog) DeductProductStock(ctx context.Context, id uuid.UUID, quantity int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.FailDeductFor[id]; err != nil {
		return err
	}
	p, ok := c.state.products[id]
	if !ok || p.StockQuantity < quantity {
		return fmt.Errorf("%w: product %s", db.ErrStockNotEnough, id)
	}
	p.StockQuantity -= quantity
	p.UpdatedAt = c.tick()
	c.state.products[id] = p
	return nil
}

func (c *Catalog) AddProductStock(ctx context.Context, id uuid.UUID, quantity int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.state.products[id]
	if !ok {
		return db.ErrNotFound
	}
	p.StockQuantity += quantity
	p.UpdatedAt = c.tick()
	c.state.products[id] = p
	return nil
}

func (c *Catalog) GetCartItems(ctx context.Context, userID uuid.UUID) ([]model.CartItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	items := make([]model.CartItem, 0)
	for k, item := range c.state.cart {
		if k.userID != userID {
			continue
		}
		if p, ok := c.state.products[item.ProductID]; ok {
			item.Product = &p
		}
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.Before(items[j].CreatedAt) })
	return items, nil
}

func (c *Catalog) GetCartItem(ctx context.Context, userID, productID uuid.UUID) (*model.CartItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	item, ok := c.state.cart[pairKey{userID, productID}]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &item, nil
}

func (c *Catalog) SetCartItem(ctx context.Context, item *model.CartItem) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := pairKey{item.UserID, item.ProductID}
	now := c.tick()
	if existing, ok := c.state.cart[key]; ok {
		existing.Quantity = item.Quantity
		existing.VariantAttributes = item.VariantAttributes
		existing.UpdatedAt = now
		c.state.cart[key] = existing
		return nil
	}
	stored := *item
	stored.Product = nil
	if stored.ID == uuid.Nil {
		stored.ID = uuid.New()
	}
	stored.CreatedAt, stored.UpdatedAt = now, now
	c.state.cart[key] = stored
	return nil
}

func (c *Catalog) MergeCartItem(ctx context.Context, item *model.CartItem) error {
	c.mu.Lock()
	key := pairKey{item.UserID, item.ProductID}
	existing, ok := c.state.cart[key]
	c.mu.Unlock()

	merged := *item
	if ok {
		merged.Quantity += existing.Quantity
	}
	return c.SetCartItem(ctx, &merged)
}

func (c *Catalog) DeleteCartItem(ctx context.Context, userID, productID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := pairKey{userID, productID}
	if _, ok := c.state.cart[key]; !ok {
		return db.ErrNotFound
	}
	delete(c.state.cart, key)
	return nil
}

func (c *Catalog) ClearCart(ctx context.Context, userID uuid.UUID) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var n int64
	for k := range c.state.cart {
		if k.userID == userID {
			delete(c.state.cart, k)
			n++
		}
	}
	return n, nil
}

func (c *Catalog) ListWishlist(ctx context.Context, userID uuid.UUID) ([]model.WishlistItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	items := make([]model.WishlistItem, 0)
	for k, item := range c.state.wishlist {
		if k.userID != userID {
			continue
		}
		if p, ok := c.state.products[item.ProductID]; ok {
			item.Product = &p
		}
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
	return items, nil
}

func (c *Catalog) AddWishlistItem(ctx context.Context, item *model.WishlistItem) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := pairKey{item.UserID, item.ProductID}
	if _, ok := c.state.wishlist[key]; ok {
		return nil
	}
	stored := *item
	stored.Product = nil
	if stored.ID == uuid.Nil {
		stored.ID = uuid.New()
	}
	now := c.tick()
	stored.CreatedAt, stored.UpdatedAt = now, now
	c.state.wishlist[key] = stored
	return nil
}

func (c *Catalog) DeleteWishlistItem(ctx context.Context, userID, productID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := pairKey{userID, productID}
	if _, ok := c.state.wishlist[key]; !ok {
		return db.ErrNotFound
	}
	delete(c.state.wishlist, key)
	return nil
}

func (c *Catalog) ListReviews(ctx context.Context, productID uuid.UUID, offset, limit int) ([]model.ProductReview, int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	reviews := make([]model.ProductReview, 0)
	for _, r := range c.state.reviews {
		if r.ProductID == productID {
			reviews = append(reviews, r)
		}
	}
	sort.Slice(reviews, func(i, j int) bool { return reviews[i].CreatedAt.After(reviews[j].CreatedAt) })
	return page(reviews, offset, limit), int64(len(reviews)), nil
}

func (c *Catalog) CreateReview(ctx context.Context, review *model.ProductReview) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range c.state.reviews {
		if r.ProductID == review.ProductID && r.UserID == review.UserID {
			return db.ErrDuplicate
		}
	}
	if review.ID == uuid.Nil {
		review.ID = uuid.New()
	}
	now := c.tick()
	review.CreatedAt, review.UpdatedAt = now, now
	c.state.reviews = append(c.state.reviews, *review)
	return nil
}

// Product 測試用，直接讀目前狀態
func (c *Catalog) Product(id uuid.UUID) model.Product {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.products[id]
}

// CartQuantity 測試用，購物車中該商品數量，不存在為 0
func (c *Catalog) CartQuantity(userID, productID uuid.UUID) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.cart[pairKey{userID, productID}].Quantity
}

func page[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}

var _ db.ICatalogRepository = (*Catalog)(nil)
