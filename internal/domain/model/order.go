package model

import (
	"database/sql/driver"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusReturned   OrderStatus = "returned"
)

// 允許的狀態轉換，cancelled / returned 為終態
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed:  {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered},
	OrderStatusDelivered:  {OrderStatusReturned},
}

func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled, OrderStatusReturned:
		return true
	}
	return false
}

func (s OrderStatus) CanTransitTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// 使用者可自行取消的狀態
func (s OrderStatus) Cancellable() bool {
	return s == OrderStatusPending || s == OrderStatusConfirmed
}

type PaymentMethod string

const (
	PaymentMethodCOD        PaymentMethod = "cod"
	PaymentMethodCard       PaymentMethod = "card"
	PaymentMethodUPI        PaymentMethod = "upi"
	PaymentMethodNetBanking PaymentMethod = "netbanking"
	PaymentMethodWallet     PaymentMethod = "wallet"
)

func ParsePaymentMethod(s string) (PaymentMethod, bool) {
	m := PaymentMethod(strings.ToLower(strings.TrimSpace(s)))
	switch m {
	case PaymentMethodCOD, PaymentMethodCard, PaymentMethodUPI, PaymentMethodNetBanking, PaymentMethodWallet:
		return m, true
	}
	return "", false
}

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusRefunded PaymentStatus = "refunded"
	PaymentStatusFailed   PaymentStatus = "failed"
)

// AddressSnapshot 下單當下的地址，與使用者地址簿脫鉤
type AddressSnapshot struct {
	FullName     string `json:"full_name"`
	Phone        string `json:"phone"`
	AddressLine1 string `json:"address_line1"`
	AddressLine2 string `json:"address_line2,omitempty"`
	City         string `json:"city"`
	State        string `json:"state"`
	PostalCode   string `json:"postal_code"`
	Country      string `json:"country"`
}

// MissingField 回傳第一個缺少的必填欄位
func (a AddressSnapshot) MissingField() string {
	switch {
	case strings.TrimSpace(a.FullName) == "":
		return "full_name"
	case strings.TrimSpace(a.AddressLine1) == "":
		return "address_line1"
	case strings.TrimSpace(a.City) == "":
		return "city"
	case strings.TrimSpace(a.PostalCode) == "":
		return "postal_code"
	case strings.TrimSpace(a.Country) == "":
		return "country"
	}
	return ""
}

func (a AddressSnapshot) Value() (driver.Value, error) {
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (a *AddressSnapshot) Scan(value any) error {
	return scanJSON(value, a)
}

type Order struct {
	BaseModel
	OrderNumber     string           `gorm:"not null;uniqueIndex;type:varchar(32)" json:"order_number"`
	UserID          uuid.UUID        `gorm:"not null;index;uniqueIndex:idx_orders_user_idempotency,priority:1;type:varchar(36)" json:"user_id"`
	Status          OrderStatus      `gorm:"not null;type:varchar(20);default:pending" json:"status"`
	PaymentMethod   PaymentMethod    `gorm:"not null;type:varchar(32)" json:"payment_method"`
	PaymentStatus   PaymentStatus    `gorm:"not null;type:varchar(20);default:pending" json:"payment_status"`
	Subtotal        decimal.Decimal  `gorm:"not null;type:decimal(12,2)" json:"subtotal" swaggertype:"number"`
	TaxAmount       decimal.Decimal  `gorm:"not null;type:decimal(12,2)" json:"tax_amount" swaggertype:"number"`
	ShippingAmount  decimal.Decimal  `gorm:"not null;type:decimal(12,2)" json:"shipping_amount" swaggertype:"number"`
	DiscountAmount  decimal.Decimal  `gorm:"not null;type:decimal(12,2)" json:"discount_amount" swaggertype:"number"`
	TotalAmount     decimal.Decimal  `gorm:"not null;type:decimal(12,2)" json:"total_amount" swaggertype:"number"`
	Currency        string           `gorm:"not null;type:varchar(3)" json:"currency"`
	ShippingAddress AddressSnapshot  `gorm:"not null;type:json" json:"shipping_address"`
	BillingAddress  *AddressSnapshot `gorm:"type:json" json:"billing_address,omitempty"`
	Notes           string           `gorm:"type:text" json:"notes,omitempty"`
	IdempotencyKey  *string          `gorm:"type:varchar(255);uniqueIndex:idx_orders_user_idempotency,priority:2" json:"-"`
	ConfirmedAt     *time.Time       `json:"confirmed_at,omitempty"`
	ShippedAt       *time.Time       `json:"shipped_at,omitempty"`
	DeliveredAt     *time.Time       `json:"delivered_at,omitempty"`
	CancelledAt     *time.Time       `json:"cancelled_at,omitempty"`
	Items           []OrderItem      `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
}

// OrderItem 下單當下的商品快照，之後商品修改不影響歷史訂單
type OrderItem struct {
	BaseModel
	OrderID           uuid.UUID       `gorm:"not null;index;type:varchar(36)" json:"order_id"`
	ProductID         uuid.UUID       `gorm:"not null;type:varchar(36)" json:"product_id"`
	ProductName       string          `gorm:"not null;type:varchar(255)" json:"product_name"`
	ProductSKU        string          `gorm:"column:product_sku;type:varchar(64)" json:"product_sku"`
	UnitPrice         decimal.Decimal `gorm:"not null;type:decimal(12,2)" json:"unit_price" swaggertype:"number"`
	Quantity          int             `gorm:"not null" json:"quantity"`
	TotalPrice        decimal.Decimal `gorm:"not null;type:decimal(12,2)" json:"total_price" swaggertype:"number"`
	VariantAttributes Attributes      `gorm:"type:json" json:"variant_attributes,omitempty"`
}

// LifecycleColumn 取得狀態對應的時間欄位，沒有對應欄位回傳空字串
func LifecycleColumn(status OrderStatus) string {
	switch status {
	case OrderStatusConfirmed:
		return "confirmed_at"
	case OrderStatusShipped:
		return "shipped_at"
	case OrderStatusDelivered:
		return "delivered_at"
	case OrderStatusCancelled:
		return "cancelled_at"
	}
	return ""
}

// ApplyLifecycle 設定記憶體中 order 的狀態與時間欄位
func (o *Order) ApplyLifecycle(status OrderStatus, at time.Time) {
	o.Status = status
	o.UpdatedAt = at
	switch status {
	case OrderStatusConfirmed:
		o.ConfirmedAt = &at
	case OrderStatusShipped:
		o.ShippedAt = &at
	case OrderStatusDelivered:
		o.DeliveredAt = &at
	case OrderStatusCancelled:
		o.CancelledAt = &at
	}
}
