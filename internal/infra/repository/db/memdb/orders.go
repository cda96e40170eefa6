package memdb

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/RoyceAzure/lab/storefront/internal/domain/model"
	"github.com/RoyceAzure/lab/storefront/internal/infra/repository/db"
	"github.com/google/uuid"
)

// Orders 記憶體版 orders store
type Orders struct {
	mu     sync.Mutex
	orders map[uuid.UUID]model.Order

	// CreateErr 不為 nil 時 CreateOrder 直接回傳此錯誤
	CreateErr error
}

func NewOrders() *Orders {
	return &Orders{orders: map[uuid.UUID]model.Order{}}
}

// ExecTx orders store 只有單筆寫入，不需要還原
func (o *Orders) ExecTx(ctx context.Context, fn func(db.IOrderRepository) error) error {
	return fn(o)
}

func (o *Orders) CreateOrder(ctx context.Context, order *model.Order) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.CreateErr != nil {
		return o.CreateErr
	}
	if _, ok := o.orders[order.ID]; ok && order.ID != uuid.Nil {
		return db.ErrDuplicate
	}
	for _, existing := range o.orders {
		if existing.OrderNumber == order.OrderNumber {
			return db.ErrDuplicate
		}
		if order.IdempotencyKey != nil && existing.IdempotencyKey != nil &&
			existing.UserID == order.UserID && *existing.IdempotencyKey == *order.IdempotencyKey {
			return db.ErrDuplicate
		}
	}

	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	now := time.Now().UTC()
	order.CreatedAt, order.UpdatedAt = now, now
	for i := range order.Items {
		if order.Items[i].ID == uuid.Nil {
			order.Items[i].ID = uuid.New()
		}
		order.Items[i].OrderID = order.ID
		order.Items[i].CreatedAt, order.Items[i].UpdatedAt = now, now
	}
	o.orders[order.ID] = copyOrder(*order)
	return nil
}

func (o *Orders) GetOrderByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	order, ok := o.orders[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	out := copyOrder(order)
	return &out, nil
}

func (o *Orders) GetOrderByIdempotencyKey(ctx context.Context, userID uuid.UUID, key string) (*model.Order, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, order := range o.orders {
		if order.UserID == userID && order.IdempotencyKey != nil && *order.IdempotencyKey == key {
			out := copyOrder(order)
			return &out, nil
		}
	}
	return nil, db.ErrNotFound
}

func (o *Orders) ListOrdersByUser(ctx context.Context, userID uuid.UUID, offset, limit int) ([]model.Order, int64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	orders := make([]model.Order, 0)
	for _, order := range o.orders {
		if order.UserID == userID {
			orders = append(orders, copyOrder(order))
		}
	}
	sort.Slice(orders, func(i, j int) bool {
		if orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].OrderNumber > orders[j].OrderNumber
		}
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	return page(orders, offset, limit), int64(len(orders)), nil
}

func (o *Orders) UpdateOrderStatus(ctx context.Context, id uuid.UUID, from, to model.OrderStatus, at time.Time) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	order, ok := o.orders[id]
	if !ok || order.Status != from {
		return db.ErrStaleState
	}
	order.ApplyLifecycle(to, at)
	o.orders[id] = order
	return nil
}

// Count 測試用
func (o *Orders) Count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.orders)
}

// SetStatus 測試用，直接改狀態
func (o *Orders) SetStatus(id uuid.UUID, status model.OrderStatus) {
	o.mu.Lock()
	defer o.mu.Unlock()
	order := o.orders[id]
	order.Status = status
	o.orders[id] = order
}

// copyOrder 品項順序與 sql 版一致: created_at, id
func copyOrder(order model.Order) model.Order {
	order.Items = append([]model.OrderItem(nil), order.Items...)
	sort.Slice(order.Items, func(i, j int) bool {
		a, b := order.Items[i], order.Items[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID.String() < b.ID.String()
	})
	return order
}

var _ db.IOrderRepository = (*Orders)(nil)
