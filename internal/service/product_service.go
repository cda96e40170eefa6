package service

import (
	"context"
	"errors"
	"strings"

	"github.com/RoyceAzure/lab/storefront/internal/apperr"
	"github.com/RoyceAzure/lab/storefront/internal/domain/model"
	"github.com/RoyceAzure/lab/storefront/internal/infra/auth"
	"github.com/RoyceAzure/lab/storefront/internal/infra/repository/db"
	"github.com/RoyceAzure/lab/storefront/internal/infra/search"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type ProductListFilter struct {
	CategoryID   *uuid.UUID
	CollectionID *uuid.UUID
}

type CreateReviewRequest struct {
	Rating int    `json:"rating"`
	Title  string `json:"title"`
	Body   string `json:"body"`
}

// IProductService 商品瀏覽與評論
// 錯誤:
//   - apperr.KindValidation 400: 參數錯誤
//   - apperr.KindNotFound 404: 商品不存在或已下架
//   - apperr.KindConflict 409: 重複評論
type IProductService interface {
	ListProducts(ctx context.Context, filter ProductListFilter, page PageRequest) (*Paged[model.Product], error)
	GetProduct(ctx context.Context, id uuid.UUID) (*model.Product, error)
	SearchProducts(ctx context.Context, q string, page PageRequest) (*Paged[model.Product], error)
	ListReviews(ctx context.Context, productID uuid.UUID, page PageRequest) (*Paged[model.ProductReview], error)
	CreateReview(ctx context.Context, identity *auth.Identity, productID uuid.UUID, req CreateReviewRequest) (*model.ProductReview, error)
}

type ProductService struct {
	catalog  db.ICatalogRepository
	searcher search.IProductSearcher
}

// NewProductService searcher 可為 nil，此時搜尋改用資料庫
func NewProductService(catalog db.ICatalogRepository, searcher search.IProductSearcher) *ProductService {
	if catalog == nil {
		panic("product service missing required dependency catalog repository")
	}
	return &ProductService{catalog: catalog, searcher: searcher}
}

func (s *ProductService) ListProducts(ctx context.Context, filter ProductListFilter, page PageRequest) (*Paged[model.Product], error) {
	page = page.Normalize()
	products, total, err := s.catalog.ListActiveProducts(ctx, db.ProductFilter{
		CategoryID:   filter.CategoryID,
		CollectionID: filter.CollectionID,
		Offset:       page.Offset(),
		Limit:        page.Limit,
	})
	if err != nil {
		return nil, apperr.Internalf(err, "list products")
	}
	return &Paged[model.Product]{Items: nonNil(products), Pagination: NewPageMeta(page, total)}, nil
}

func (s *ProductService) GetProduct(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	return s.getActiveProduct(ctx, id)
}

func (s *ProductService) getActiveProduct(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	product, err := s.catalog.GetProductByID(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err, "product")
	}
	if !product.IsActive() {
		return nil, apperr.NotFound("product")
	}
	return product, nil
}

// SearchProducts 有 elasticsearch 時用索引排序，結果一律以資料庫內容回傳
func (s *ProductService) SearchProducts(ctx context.Context, q string, page PageRequest) (*Paged[model.Product], error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, apperr.Validation("q", apperr.MsgMissingFields)
	}
	page = page.Normalize()

	if s.searcher != nil {
		result, err := s.searchIndex(ctx, q, page)
		if err == nil {
			return result, nil
		}
		log.Warn().Err(err).Str("q", q).Msg("search index unavailable, falling back to database")
	}

	products, total, err := s.catalog.SearchActiveProducts(ctx, q, page.Offset(), page.Limit)
	if err != nil {
		return nil, apperr.Internalf(err, "search products")
	}
	return &Paged[model.Product]{Items: nonNil(products), Pagination: NewPageMeta(page, total)}, nil
}

func (s *ProductService) searchIndex(ctx context.Context, q string, page PageRequest) (*Paged[model.Product], error) {
	ids, total, err := s.searcher.SearchProductIDs(ctx, q, page.Offset(), page.Limit)
	if err != nil {
		return nil, err
	}
	products, err := s.catalog.GetProductsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	// 索引可能落後資料庫，已下架的不回傳
	active := make([]model.Product, 0, len(products))
	for _, p := range products {
		if p.IsActive() {
			active = append(active, p)
		}
	}
	return &Paged[model.Product]{Items: active, Pagination: NewPageMeta(page, total)}, nil
}

func (s *ProductService) ListReviews(ctx context.Context, productID uuid.UUID, page PageRequest) (*Paged[model.ProductReview], error) {
	if _, err := s.getActiveProduct(ctx, productID); err != nil {
		return nil, err
	}
	page = page.Normalize()
	reviews, total, err := s.catalog.ListReviews(ctx, productID, page.Offset(), page.Limit)
	if err != nil {
		return nil, apperr.Internalf(err, "list reviews")
	}
	return &Paged[model.ProductReview]{Items: nonNil(reviews), Pagination: NewPageMeta(page, total)}, nil
}

func (s *ProductService) CreateReview(ctx context.Context, identity *auth.Identity, productID uuid.UUID, req CreateReviewRequest) (*model.ProductReview, error) {
	if err := requireIdentity(identity); err != nil {
		return nil, err
	}
	if req.Rating < 1 || req.Rating > 5 {
		return nil, apperr.Validation("rating", "Rating must be between 1 and 5")
	}
	if _, err := s.getActiveProduct(ctx, productID); err != nil {
		return nil, err
	}

	review := &model.ProductReview{
		ProductID: productID,
		UserID:    identity.UserID,
		Rating:    req.Rating,
		Title:     strings.TrimSpace(req.Title),
		Body:      strings.TrimSpace(req.Body),
	}
	if err := s.catalog.CreateReview(ctx, review); err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			return nil, apperr.Conflict("You have already reviewed this product")
		}
		return nil, apperr.Internalf(err, "create review")
	}
	return review, nil
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

var _ IProductService = (*ProductService)(nil)
