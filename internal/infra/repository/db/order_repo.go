package db

import (
	"context"
	"fmt"
	"time"

	"github.com/RoyceAzure/lab/storefront/internal/domain/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// IOrderRepository orders store 操作，訂單只會新增與變更狀態
type IOrderRepository interface {
	CreateOrder(ctx context.Context, order *model.Order) error
	GetOrderByID(ctx context.Context, id uuid.UUID) (*model.Order, error)
	GetOrderByIdempotencyKey(ctx context.Context, userID uuid.UUID, key string) (*model.Order, error)
	ListOrdersByUser(ctx context.Context, userID uuid.UUID, offset, limit int) ([]model.Order, int64, error)
	// UpdateOrderStatus 只有目前狀態等於 from 時才會更新，否則回傳 ErrStaleState
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, from, to model.OrderStatus, at time.Time) error
	ExecTx(ctx context.Context, fn func(IOrderRepository) error) error
}

type OrderRepo struct {
	db *gorm.DB
}

func NewOrderRepo(db *gorm.DB) *OrderRepo {
	return &OrderRepo{db: db}
}

func (r *OrderRepo) ExecTx(ctx context.Context, fn func(IOrderRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&OrderRepo{db: tx})
	})
}

// CreateOrder 訂單與 Items 一起寫入
func (r *OrderRepo) CreateOrder(ctx context.Context, order *model.Order) error {
	return translate(r.db.WithContext(ctx).Create(order).Error)
}

func (r *OrderRepo) GetOrderByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).
		Preload("Items", orderItemsOrder).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, translate(err)
	}
	return &order, nil
}

func (r *OrderRepo) GetOrderByIdempotencyKey(ctx context.Context, userID uuid.UUID, key string) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).
		Preload("Items", orderItemsOrder).
		Where("user_id = ? AND idempotency_key = ?", userID, key).
		First(&order).Error
	if err != nil {
		return nil, translate(err)
	}
	return &order, nil
}

// ListOrdersByUser 新訂單在前
func (r *OrderRepo) ListOrdersByUser(ctx context.Context, userID uuid.UUID, offset, limit int) ([]model.Order, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&model.Order{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	orders := make([]model.Order, 0)
	if total == 0 || int64(offset) >= total {
		return orders, total, nil
	}
	err := r.db.WithContext(ctx).
		Preload("Items", orderItemsOrder).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&orders).Error
	return orders, total, err
}

func (r *OrderRepo) UpdateOrderStatus(ctx context.Context, id uuid.UUID, from, to model.OrderStatus, at time.Time) error {
	updates := map[string]any{
		"status":     to,
		"updated_at": at,
	}
	if column := model.LifecycleColumn(to); column != "" {
		updates[column] = at
	}

	result := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: order %s is no longer %s", ErrStaleState, id, from)
	}
	return nil
}

func orderItemsOrder(db *gorm.DB) *gorm.DB {
	// 同一訂單的品項 created_at 相同，以 id 固定順序
	return db.Order("created_at ASC, id ASC")
}

var _ IOrderRepository = (*OrderRepo)(nil)
