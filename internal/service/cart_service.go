package service

import (
	"context"
	"errors"

	"github.com/RoyceAzure/lab/storefront/internal/apperr"
	"github.com/RoyceAzure/lab/storefront/internal/domain/model"
	"github.com/RoyceAzure/lab/storefront/internal/infra/auth"
	"github.com/RoyceAzure/lab/storefront/internal/infra/repository/db"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type AddCartItemRequest struct {
	ProductID         uuid.UUID        `json:"product_id"`
	Quantity          int              `json:"quantity"`
	VariantAttributes model.Attributes `json:"variant_attributes,omitempty"`
}

type CartLine struct {
	ProductID         uuid.UUID        `json:"product_id"`
	Quantity          int              `json:"quantity"`
	VariantAttributes model.Attributes `json:"variant_attributes,omitempty"`
	Product           *model.Product   `json:"product,omitempty"`
	LineTotal         decimal.Decimal  `json:"line_total" swaggertype:"number"`
}

type Cart struct {
	Items     []CartLine      `json:"items"`
	ItemCount int             `json:"item_count"`
	Subtotal  decimal.Decimal `json:"subtotal" swaggertype:"number"`
}

// ICartService 購物車，每個商品只有一行
// 錯誤:
//   - apperr.KindUnauthorized 401: 未登入
//   - apperr.KindValidation 400: 數量錯誤、庫存不足、商品已下架
//   - apperr.KindNotFound 404: 購物車項目不存在
type ICartService interface {
	GetCart(ctx context.Context, identity *auth.Identity) (*Cart, error)
	AddItem(ctx context.Context, identity *auth.Identity, req AddCartItemRequest) (*Cart, error)
	UpdateItem(ctx context.Context, identity *auth.Identity, productID uuid.UUID, quantity int) (*Cart, error)
	RemoveItem(ctx context.Context, identity *auth.Identity, productID uuid.UUID) (*Cart, error)
	Clear(ctx context.Context, identity *auth.Identity) error
}

type CartService struct {
	catalog db.ICatalogRepository
}

func NewCartService(catalog db.ICatalogRepository) *CartService {
	if catalog == nil {
		panic("cart service missing required dependency catalog repository")
	}
	return &CartService{catalog: catalog}
}

func (s *CartService) GetCart(ctx context.Context, identity *auth.Identity) (*Cart, error) {
	if err := requireIdentity(identity); err != nil {
		return nil, err
	}
	return s.loadCart(ctx, s.catalog, identity.UserID)
}

func (s *CartService) loadCart(ctx context.Context, repo db.ICatalogRepository, userID uuid.UUID) (*Cart, error) {
	items, err := repo.GetCartItems(ctx, userID)
	if err != nil {
		return nil, apperr.Internalf(err, "get cart items")
	}

	cart := &Cart{Items: make([]CartLine, 0, len(items)), Subtotal: decimal.Zero}
	for i := range items {
		item := &items[i]
		line := CartLine{
			ProductID:         item.ProductID,
			Quantity:          item.Quantity,
			VariantAttributes: item.VariantAttributes,
			Product:           item.Product,
			LineTotal:         item.LineTotal(),
		}
		cart.Items = append(cart.Items, line)
		cart.ItemCount += item.Quantity
		cart.Subtotal = cart.Subtotal.Add(line.LineTotal)
	}
	return cart, nil
}

// checkAvailable 商品需上架且庫存足夠
func checkAvailable(ctx context.Context, repo db.ICatalogRepository, productID uuid.UUID, quantity int) error {
	product, err := repo.GetProductByID(ctx, productID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return apperr.Validation("product_id", "Product not available")
		}
		return apperr.Internalf(err, "get product %s", productID)
	}
	if !product.IsActive() {
		return apperr.Validation("product_id", "Product not available")
	}
	if quantity > product.StockQuantity {
		return apperr.Validation("quantity", apperr.MsgInsufficientStock)
	}
	return nil
}

// AddItem 已存在的商品合併數量，合併後仍需在庫存內
func (s *CartService) AddItem(ctx context.Context, identity *auth.Identity, req AddCartItemRequest) (*Cart, error) {
	if err := requireIdentity(identity); err != nil {
		return nil, err
	}
	if req.ProductID == uuid.Nil {
		return nil, apperr.Validation("product_id", apperr.MsgMissingFields)
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if req.Quantity < 0 {
		return nil, apperr.Validation("quantity", "Quantity must be positive")
	}
	userID := identity.UserID

	var cart *Cart
	err := s.catalog.ExecTx(ctx, func(repo db.ICatalogRepository) error {
		quantity := req.Quantity
		attrs := req.VariantAttributes
		existing, err := repo.GetCartItem(ctx, userID, req.ProductID)
		switch {
		case err == nil:
			quantity += existing.Quantity
			if attrs == nil {
				attrs = existing.VariantAttributes
			}
		case !errors.Is(err, db.ErrNotFound):
			return apperr.Internalf(err, "get cart item")
		}

		if err := checkAvailable(ctx, repo, req.ProductID, quantity); err != nil {
			return err
		}

		item := &model.CartItem{
			UserID:            userID,
			ProductID:         req.ProductID,
			Quantity:          quantity,
			VariantAttributes: attrs,
		}
		if err := repo.SetCartItem(ctx, item); err != nil {
			return apperr.Internalf(err, "set cart item")
		}
		cart, err = s.loadCart(ctx, repo, userID)
		return err
	})
	if err != nil {
		return nil, apperr.As(err)
	}
	return cart, nil
}

// UpdateItem quantity <= 0 視為移除
func (s *CartService) UpdateItem(ctx context.Context, identity *auth.Identity, productID uuid.UUID, quantity int) (*Cart, error) {
	if err := requireIdentity(identity); err != nil {
		return nil, err
	}
	if quantity <= 0 {
		return s.RemoveItem(ctx, identity, productID)
	}
	userID := identity.UserID

	var cart *Cart
	err := s.catalog.ExecTx(ctx, func(repo db.ICatalogRepository) error {
		existing, err := repo.GetCartItem(ctx, userID, productID)
		if err != nil {
			return mapRepoErr(err, "cart item")
		}
		if err := checkAvailable(ctx, repo, productID, quantity); err != nil {
			return err
		}
		existing.Quantity = quantity
		if err := repo.SetCartItem(ctx, existing); err != nil {
			return apperr.Internalf(err, "set cart item")
		}
		cart, err = s.loadCart(ctx, repo, userID)
		return err
	})
	if err != nil {
		return nil, apperr.As(err)
	}
	return cart, nil
}

func (s *CartService) RemoveItem(ctx context.Context, identity *auth.Identity, productID uuid.UUID) (*Cart, error) {
	if err := requireIdentity(identity); err != nil {
		return nil, err
	}
	if err := s.catalog.DeleteCartItem(ctx, identity.UserID, productID); err != nil {
		return nil, mapRepoErr(err, "cart item")
	}
	return s.loadCart(ctx, s.catalog, identity.UserID)
}

func (s *CartService) Clear(ctx context.Context, identity *auth.Identity) error {
	if err := requireIdentity(identity); err != nil {
		return err
	}
	if _, err := s.catalog.ClearCart(ctx, identity.UserID); err != nil {
		return apperr.Internalf(err, "clear cart")
	}
	return nil
}

var _ ICartService = (*CartService)(nil)
