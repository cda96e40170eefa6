package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ProductStatus string

const (
	ProductStatusActive   ProductStatus = "active"
	ProductStatusInactive ProductStatus = "inactive"
)

type Product struct {
	BaseModel
	SKU            string           `gorm:"column:sku;not null;uniqueIndex;type:varchar(64)" json:"sku" yaml:"sku"`
	Name           string           `gorm:"not null;type:varchar(255)" json:"name" yaml:"name"`
	Slug           string           `gorm:"not null;uniqueIndex;type:varchar(255)" json:"slug" yaml:"slug"`
	Description    string           `gorm:"type:text" json:"description" yaml:"description"`
	Price          decimal.Decimal  `gorm:"not null;type:decimal(12,2)" json:"price" swaggertype:"number" yaml:"-"`
	CompareAtPrice *decimal.Decimal `gorm:"type:decimal(12,2)" json:"compare_at_price,omitempty" swaggertype:"number" yaml:"-"`
	StockQuantity  int              `gorm:"not null;default:0" json:"stock_quantity" yaml:"stock_quantity"`
	Status         ProductStatus    `gorm:"not null;type:varchar(16);default:active" json:"status" yaml:"status"`
	CategoryID     *uuid.UUID       `gorm:"type:varchar(36);index" json:"category_id,omitempty" yaml:"-"`
	CollectionID   *uuid.UUID       `gorm:"type:varchar(36);index" json:"collection_id,omitempty" yaml:"-"`
	ImageURL       string           `gorm:"type:varchar(512)" json:"image_url,omitempty" yaml:"image_url"`
	Attributes     Attributes       `gorm:"type:json" json:"attributes,omitempty" yaml:"attributes"`
}

func (p *Product) IsActive() bool {
	return p != nil && p.Status == ProductStatusActive
}

type ProductReview struct {
	BaseModel
	ProductID uuid.UUID `gorm:"not null;uniqueIndex:idx_review_product_user;type:varchar(36)" json:"product_id"`
	UserID    uuid.UUID `gorm:"not null;uniqueIndex:idx_review_product_user;type:varchar(36)" json:"user_id"`
	Rating    int       `gorm:"not null" json:"rating"`
	Title     string    `gorm:"type:varchar(255)" json:"title,omitempty"`
	Body      string    `gorm:"type:text" json:"body,omitempty"`
}
