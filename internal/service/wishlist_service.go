package service

import (
	"context"

	"github.com/RoyceAzure/lab/storefront/internal/apperr"
	"github.com/RoyceAzure/lab/storefront/internal/domain/model"
	"github.com/RoyceAzure/lab/storefront/internal/infra/auth"
	"github.com/RoyceAzure/lab/storefront/internal/infra/repository/db"
	"github.com/google/uuid"
)

type IWishlistService interface {
	ListWishlist(ctx context.Context, identity *auth.Identity) ([]model.WishlistItem, error)
	// AddItem 重複加入不會報錯
	AddItem(ctx context.Context, identity *auth.Identity, productID uuid.UUID) ([]model.WishlistItem, error)
	RemoveItem(ctx context.Context, identity *auth.Identity, productID uuid.UUID) error
}

type WishlistService struct {
	catalog db.ICatalogRepository
}

func NewWishlistService(catalog db.ICatalogRepository) *WishlistService {
	if catalog == nil {
		panic("wishlist service missing required dependency catalog repository")
	}
	return &WishlistService{catalog: catalog}
}

func (s *WishlistService) ListWishlist(ctx context.Context, identity *auth.Identity) ([]model.WishlistItem, error) {
	if err := requireIdentity(identity); err != nil {
		return nil, err
	}
	items, err := s.catalog.ListWishlist(ctx, identity.UserID)
	if err != nil {
		return nil, apperr.Internalf(err, "list wishlist")
	}
	return nonNil(items), nil
}

func (s *WishlistService) AddItem(ctx context.Context, identity *auth.Identity, productID uuid.UUID) ([]model.WishlistItem, error) {
	if err := requireIdentity(identity); err != nil {
		return nil, err
	}
	if productID == uuid.Nil {
		return nil, apperr.Validation("product_id", apperr.MsgMissingFields)
	}

	product, err := s.catalog.GetProductByID(ctx, productID)
	if err != nil {
		return nil, mapRepoErr(err, "product")
	}
	if !product.IsActive() {
		return nil, apperr.NotFound("product")
	}

	if err := s.catalog.AddWishlistItem(ctx, &model.WishlistItem{UserID: identity.UserID, ProductID: productID}); err != nil {
		return nil, apperr.Internalf(err, "add wishlist item")
	}
	return s.ListWishlist(ctx, identity)
}

func (s *WishlistService) RemoveItem(ctx context.Context, identity *auth.Identity, productID uuid.UUID) error {
	if err := requireIdentity(identity); err != nil {
		return err
	}
	if err := s.catalog.DeleteWishlistItem(ctx, identity.UserID, productID); err != nil {
		return mapRepoErr(err, "wishlist item")
	}
	return nil
}

var _ IWishlistService = (*WishlistService)(nil)
