package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartItem 結帳前的購物車項目，結帳後轉為 OrderItem 並刪除
type CartItem struct {
	BaseModel
	UserID            uuid.UUID  `gorm:"not null;uniqueIndex:idx_cart_user_product;type:varchar(36)" json:"user_id"`
	ProductID         uuid.UUID  `gorm:"not null;uniqueIndex:idx_cart_user_product;type:varchar(36)" json:"product_id"`
	Quantity          int        `gorm:"not null" json:"quantity"`
	VariantAttributes Attributes `gorm:"type:json" json:"variant_attributes,omitempty"`
	Product           *Product   `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

func (CartItem) TableName() string {
	return "shopping_cart"
}

// LineTotal 以目前商品價格計算小計，商品未載入時為 0
func (c *CartItem) LineTotal() decimal.Decimal {
	if c.Product == nil {
		return decimal.Zero
	}
	return c.Product.Price.Mul(decimal.NewFromInt(int64(c.Quantity)))
}

type WishlistItem struct {
	BaseModel
	UserID    uuid.UUID `gorm:"not null;uniqueIndex:idx_wishlist_user_product;type:varchar(36)" json:"user_id"`
	ProductID uuid.UUID `gorm:"not null;uniqueIndex:idx_wishlist_user_product;type:varchar(36)" json:"product_id"`
	Product   *Product  `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}
