package service

import (
	"context"
	"errors"
	"testing"

	"github.com/RoyceAzure/lab/storefront/internal/apperr"
	"github.com/RoyceAzure/lab/storefront/internal/domain/model"
	"github.com/RoyceAzure/lab/storefront/internal/infra/auth"
	"github.com/RoyceAzure/lab/storefront/internal/infra/repository/db/memdb"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type fakeSearcher struct {
	ids   []uuid.UUID
	total int64
	err   error
	query string
}

func (f *fakeSearcher) EnsureIndex(ctx context.Context) error { return nil }

func (f *fakeSearcher) IndexProduct(ctx context.Context, product *model.Product) error { return nil }

func (f *fakeSearcher) SearchProductIDs(ctx context.Context, q string, offset, limit int) ([]uuid.UUID, int64, error) {
	f.query = q
	return f.ids, f.total, f.err
}

func seedCatalog(t *testing.T, catalog *memdb.Catalog) (silk, cotton, hidden model.Product) {
	t.Helper()
	ctx := context.Background()
	category := uuid.New()
	products := []*model.Product{
		{SKU: "SILK-1", Name: "Silk Saree", Slug: "silk-saree", Description: "Banarasi silk", Price: decimal.NewFromInt(1200), StockQuantity: 5, CategoryID: &category},
		{SKU: "COT-1", Name: "Cotton Kurta", Slug: "cotton-kurta", Description: "Handloom cotton", Price: decimal.NewFromInt(499), StockQuantity: 10},
		{SKU: "HID-1", Name: "Hidden Silk", Slug: "hidden-silk", Price: decimal.NewFromInt(10), StockQuantity: 1, Status: model.ProductStatusInactive},
	}
	for _, p := range products {
		status := p.Status
		require.NoError(t, catalog.CreateProduct(ctx, p))
		if status == model.ProductStatusInactive {
			p.Status = status
			_, err := catalog.UpsertProductBySKU(ctx, p)
			require.NoError(t, err)
		}
	}
	return *products[0], *products[1], *products[2]
}

func TestProductServiceList(t *testing.T) {
	catalog := memdb.NewCatalog()
	silk, cotton, _ := seedCatalog(t, catalog)
	svc := NewProductService(catalog, nil)
	ctx := context.Background()

	page, err := svc.ListProducts(ctx, ProductListFilter{}, PageRequest{})
	require.NoError(t, err)
	require.EqualValues(t, 2, page.Pagination.Total)
	// 新的在前
	require.Equal(t, cotton.ID, page.Items[0].ID)
	require.Equal(t, 20, page.Pagination.Limit)

	page, err = svc.ListProducts(ctx, ProductListFilter{CategoryID: silk.CategoryID}, PageRequest{Page: 1, Limit: 1})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	require.Equal(t, silk.ID, page.Items[0].ID)
}

func TestProductServiceGet(t *testing.T) {
	catalog := memdb.NewCatalog()
	silk, _, hidden := seedCatalog(t, catalog)
	svc := NewProductService(catalog, nil)
	ctx := context.Background()

	got, err := svc.GetProduct(ctx, silk.ID)
	require.NoError(t, err)
	require.Equal(t, "Silk Saree", got.Name)

	_, err = svc.GetProduct(ctx, hidden.ID)
	requireKind(t, err, apperr.KindNotFound)

	_, err = svc.GetProduct(ctx, uuid.New())
	requireKind(t, err, apperr.KindNotFound)
}

func TestProductServiceSearch(t *testing.T) {
	catalog := memdb.NewCatalog()
	silk, cotton, hidden := seedCatalog(t, catalog)
	ctx := context.Background()

	t.Run("database", func(t *testing.T) {
		svc := NewProductService(catalog, nil)
		page, err := svc.SearchProducts(ctx, "SILK", PageRequest{})
		require.NoError(t, err)
		require.Len(t, page.Items, 1)
		require.Equal(t, silk.ID, page.Items[0].ID)
	})

	t.Run("index order kept, inactive dropped", func(t *testing.T) {
		searcher := &fakeSearcher{ids: []uuid.UUID{cotton.ID, hidden.ID, silk.ID}, total: 3}
		svc := NewProductService(catalog, searcher)
		page, err := svc.SearchProducts(ctx, " handloom ", PageRequest{})
		require.NoError(t, err)
		require.Equal(t, "handloom", searcher.query)
		require.Len(t, page.Items, 2)
		require.Equal(t, cotton.ID, page.Items[0].ID)
		require.Equal(t, silk.ID, page.Items[1].ID)
	})

	t.Run("index failure falls back", func(t *testing.T) {
		svc := NewProductService(catalog, &fakeSearcher{err: errors.New("es down")})
		page, err := svc.SearchProducts(ctx, "cotton", PageRequest{})
		require.NoError(t, err)
		require.Len(t, page.Items, 1)
		require.Equal(t, cotton.ID, page.Items[0].ID)
	})

	t.Run("empty query", func(t *testing.T) {
		svc := NewProductService(catalog, nil)
		_, err := svc.SearchProducts(ctx, "  ", PageRequest{})
		requireKind(t, err, apperr.KindValidation)
	})
}

func TestProductServiceReviews(t *testing.T) {
	catalog := memdb.NewCatalog()
	silk, _, hidden := seedCatalog(t, catalog)
	svc := NewProductService(catalog, nil)
	ctx := context.Background()
	reviewer := &auth.Identity{UserID: uuid.New()}

	_, err := svc.CreateReview(ctx, nil, silk.ID, CreateReviewRequest{Rating: 5})
	requireKind(t, err, apperr.KindUnauthorized)

	_, err = svc.CreateReview(ctx, reviewer, silk.ID, CreateReviewRequest{Rating: 6})
	appErr := requireKind(t, err, apperr.KindValidation)
	require.Equal(t, "rating", appErr.Field)

	_, err = svc.CreateReview(ctx, reviewer, hidden.ID, CreateReviewRequest{Rating: 4})
	requireKind(t, err, apperr.KindNotFound)

	review, err := svc.CreateReview(ctx, reviewer, silk.ID, CreateReviewRequest{Rating: 4, Title: " Lovely ", Body: "Soft fabric"})
	require.NoError(t, err)
	require.Equal(t, "Lovely", review.Title)

	_, err = svc.CreateReview(ctx, reviewer, silk.ID, CreateReviewRequest{Rating: 3})
	requireKind(t, err, apperr.KindConflict)

	page, err := svc.ListReviews(ctx, silk.ID, PageRequest{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	require.Equal(t, 4, page.Items[0].Rating)
}
