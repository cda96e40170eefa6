package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/RoyceAzure/lab/storefront/internal/domain/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProductFilter 商品列表查詢條件
type ProductFilter struct {
	CategoryID   *uuid.UUID
	CollectionID *uuid.UUID
	Offset       int
	Limit        int
}

// ICatalogRepository products store 的所有操作: 商品、購物車、願望清單、評論
type ICatalogRepository interface {
	CreateProduct(ctx context.Context, product *model.Product) error
	UpsertProductBySKU(ctx context.Context, product *model.Product) (*model.Product, error)
	GetProductByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	GetProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Product, error)
	// GetProductForUpdate 需在 ExecTx 內使用，鎖定商品列直到交易結束
	GetProductForUpdate(ctx context.Context, id uuid.UUID) (*model.Product, error)
	ListActiveProducts(ctx context.Context, filter ProductFilter) ([]model.Product, int64, error)
	SearchActiveProducts(ctx context.Context, q string, offset, limit int) ([]model.Product, int64, error)
	DeductProductStock(ctx context.Context, id uuid.UUID, quantity int) error
	AddProductStock(ctx context.Context, id uuid.UUID, quantity int) error

	GetCartItems(ctx context.Context, userID uuid.UUID) ([]model.CartItem, error)
	GetCartItem(ctx context.Context, userID, productID uuid.UUID) (*model.CartItem, error)
	SetCartItem(ctx context.Context, item *model.CartItem) error
	MergeCartItem(ctx context.Context, item *model.CartItem) error
	DeleteCartItem(ctx context.Context, userID, productID uuid.UUID) error
	ClearCart(ctx context.Context, userID uuid.UUID) (int64, error)

	ListWishlist(ctx context.Context, userID uuid.UUID) ([]model.WishlistItem, error)
	AddWishlistItem(ctx context.Context, item *model.WishlistItem) error
	DeleteWishlistItem(ctx context.Context, userID, productID uuid.UUID) error

	ListReviews(ctx context.Context, productID uuid.UUID, offset, limit int) ([]model.ProductReview, int64, error)
	CreateReview(ctx context.Context, review *model.ProductReview) error

	ExecTx(ctx context.Context, fn func(ICatalogRepository) error) error
}

type CatalogRepo struct {
	db *gorm.DB
}

func NewCatalogRepo(db *gorm.DB) *CatalogRepo {
	return &CatalogRepo{db: db}
}

// ExecTx 執行一個交易，fn 回傳錯誤時整個交易回滾
func (r *CatalogRepo) ExecTx(ctx context.Context, fn func(ICatalogRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&CatalogRepo{db: tx})
	})
}

func (r *CatalogRepo) CreateProduct(ctx context.Context, product *model.Product) error {
	return translate(r.db.WithContext(ctx).Create(product).Error)
}

// UpsertProductBySKU 以 sku 為鍵新增或覆蓋商品，回傳資料庫中的最新資料
func (r *CatalogRepo) UpsertProductBySKU(ctx context.Context, product *model.Product) (*model.Product, error) {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "sku"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "slug", "description", "price", "compare_at_price", "stock_quantity",
			"status", "category_id", "collection_id", "image_url", "attributes", "updated_at",
		}),
	}).Create(product).Error
	if err != nil {
		return nil, translate(err)
	}

	var saved model.Product
	if err := r.db.WithContext(ctx).Where("sku = ?", product.SKU).First(&saved).Error; err != nil {
		return nil, translate(err)
	}
	return &saved, nil
}

func (r *CatalogRepo) GetProductByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var product model.Product
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&product).Error; err != nil {
		return nil, translate(err)
	}
	return &product, nil
}

// GetProductsByIDs 依照傳入 ids 的順序回傳，不存在的 id 直接略過
func (r *CatalogRepo) GetProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Product, error) {
	if len(ids) == 0 {
		return []model.Product{}, nil
	}
	var products []model.Product
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]model.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	ordered := make([]model.Product, 0, len(products))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			ordered = append(ordered, p)
		}
	}
	return ordered, nil
}

func (r *CatalogRepo) GetProductForUpdate(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var product model.Product
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&product).Error
	if err != nil {
		return nil, translate(err)
	}
	return &product, nil
}

func (r *CatalogRepo) ListActiveProducts(ctx context.Context, filter ProductFilter) ([]model.Product, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.Product{}).Where("status = ?", model.ProductStatusActive)
	if filter.CategoryID != nil {
		query = query.Where("category_id = ?", *filter.CategoryID)
	}
	if filter.CollectionID != nil {
		query = query.Where("collection_id = ?", *filter.CollectionID)
	}
	return paginate[model.Product](query, filter.Offset, filter.Limit, "created_at DESC")
}

// SearchActiveProducts 不分大小寫比對名稱與描述
func (r *CatalogRepo) SearchActiveProducts(ctx context.Context, q string, offset, limit int) ([]model.Product, int64, error) {
	pattern := "%" + escapeLike(strings.ToLower(q)) + "%"
	query := r.db.WithContext(ctx).Model(&model.Product{}).
		Where("status = ?", model.ProductStatusActive).
		Where("(LOWER(name) LIKE ? OR LOWER(description) LIKE ?)", pattern, pattern)
	return paginate[model.Product](query, offset, limit, "name ASC")
}

// DeductProductStock 條件扣減，庫存不足時回傳 ErrStockNotEnough
func (r *CatalogRepo) DeductProductStock(ctx context.Context, id uuid.UUID, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("invalid quantity %d", quantity)
	}
	result := r.db.WithContext(ctx).Model(&model.Product{}).
		Where("id = ? AND stock_quantity >= ?", id, quantity).
		Updates(map[string]any{
			"stock_quantity": gorm.Expr("stock_quantity - ?", quantity),
			"updated_at":     time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: product %s", ErrStockNotEnough, id)
	}
	return nil
}

func (r *CatalogRepo) AddProductStock(ctx context.Context, id uuid.UUID, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("invalid quantity %d", quantity)
	}
	result := r.db.WithContext(ctx).Model(&model.Product{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"stock_quantity": gorm.Expr("stock_quantity + ?", quantity),
			"updated_at":     time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: product %s", ErrNotFound, id)
	}
	return nil
}

// GetCartItems 購物車項目，含商品資料，依加入時間排序
func (r *CatalogRepo) GetCartItems(ctx context.Context, userID uuid.UUID) ([]model.CartItem, error) {
	var items []model.CartItem
	err := r.db.WithContext(ctx).
		Preload("Product").
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&items).Error
	return items, err
}

func (r *CatalogRepo) GetCartItem(ctx context.Context, userID, productID uuid.UUID) (*model.CartItem, error) {
	var item model.CartItem
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		First(&item).Error
	if err != nil {
		return nil, translate(err)
	}
	return &item, nil
}

// SetCartItem 新增購物車項目，已存在時覆蓋數量
func (r *CatalogRepo) SetCartItem(ctx context.Context, item *model.CartItem) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "product_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"quantity", "variant_attributes", "updated_at"}),
	}).Create(item).Error
}

// MergeCartItem 新增購物車項目，已存在時數量相加
func (r *CatalogRepo) MergeCartItem(ctx context.Context, item *model.CartItem) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "product_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"quantity":   gorm.Expr("shopping_cart.quantity + ?", item.Quantity),
			"updated_at": time.Now().UTC(),
		}),
	}).Create(item).Error
}

func (r *CatalogRepo) DeleteCartItem(ctx context.Context, userID, productID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&model.CartItem{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *CatalogRepo) ClearCart(ctx context.Context, userID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&model.CartItem{})
	return result.RowsAffected, result.Error
}

func (r *CatalogRepo) ListWishlist(ctx context.Context, userID uuid.UUID) ([]model.WishlistItem, error) {
	var items []model.WishlistItem
	err := r.db.WithContext(ctx).
		Preload("Product").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&items).Error
	return items, err
}

// AddWishlistItem 冪等，已存在時不做任何事
func (r *CatalogRepo) AddWishlistItem(ctx context.Context, item *model.WishlistItem) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "product_id"}},
		DoNothing: true,
	}).Create(item).Error
}

func (r *CatalogRepo) DeleteWishlistItem(ctx context.Context, userID, productID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&model.WishlistItem{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *CatalogRepo) ListReviews(ctx context.Context, productID uuid.UUID, offset, limit int) ([]model.ProductReview, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.ProductReview{}).Where("product_id = ?", productID)
	return paginate[model.ProductReview](query, offset, limit, "created_at DESC")
}

// CreateReview 同一使用者對同一商品重複評論回傳 ErrDuplicate
func (r *CatalogRepo) CreateReview(ctx context.Context, review *model.ProductReview) error {
	return translate(r.db.WithContext(ctx).Create(review).Error)
}

// paginate 先計算總數再取分頁資料
func paginate[T any](query *gorm.DB, offset, limit int, order string) ([]T, int64, error) {
	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	items := make([]T, 0)
	if total == 0 || int64(offset) >= total {
		return items, total, nil
	}
	err := query.Session(&gorm.Session{}).
		Order(order).
		Offset(offset).
		Limit(limit).
		Find(&items).Error
	return items, total, err
}

func escapeLike(s string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(s)
}

var _ ICatalogRepository = (*CatalogRepo)(nil)
