package event

import (
	"time"

	"github.com/RoyceAzure/lab/storefront/internal/domain/model"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderEventType string

const (
	OrderCreated       OrderEventType = "order.created"
	OrderCancelled     OrderEventType = "order.cancelled"
	OrderStatusChanged OrderEventType = "order.status_changed"
)

// OrderEvent 寫入 kafka 的訂單事件，key 為訂單 id
type OrderEvent struct {
	EventID     uuid.UUID         `json:"event_id"`
	Type        OrderEventType    `json:"type"`
	OrderID     uuid.UUID         `json:"order_id"`
	OrderNumber string            `json:"order_number"`
	UserID      uuid.UUID         `json:"user_id"`
	Status      model.OrderStatus `json:"status"`
	TotalAmount decimal.Decimal   `json:"total_amount"`
	OccurredAt  time.Time         `json:"occurred_at"`
}

func NewOrderEvent(eventType OrderEventType, order *model.Order, at time.Time) OrderEvent {
	return OrderEvent{
		EventID:     uuid.New(),
		Type:        eventType,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		Status:      order.Status,
		TotalAmount: order.TotalAmount,
		OccurredAt:  at.UTC(),
	}
}
