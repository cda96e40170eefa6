package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/RoyceAzure/lab/storefront/internal/domain/model"
	"github.com/RoyceAzure/lab/storefront/internal/infra/repository/db/memdb"
	"github.com/RoyceAzure/lab/storefront/internal/service"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func seedProduct(t *testing.T, catalog *memdb.Catalog, sku string, price int64, stock int) model.Product {
	t.Helper()
	p := &model.Product{
		SKU:           sku,
		Name:          "Product " + sku,
		Slug:          "product-" + sku,
		Description:   "handwoven " + sku,
		Price:         decimal.NewFromInt(price),
		StockQuantity: stock,
	}
	require.NoError(t, catalog.CreateProduct(context.Background(), p))
	return *p
}

func TestProductHandler(t *testing.T) {
	catalog := memdb.NewCatalog()
	silk := seedProduct(t, catalog, "SILK", 1200, 5)
	seedProduct(t, catalog, "COTTON", 499, 10)
	h := NewProductHandler(service.NewProductService(catalog, nil))

	rec, env := serve(t, http.MethodGet, "/products", "/products?limit=1", h.ListProducts, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var page service.Paged[model.Product]
	require.NoError(t, json.Unmarshal(env.Data, &page))
	require.Len(t, page.Items, 1)
	require.EqualValues(t, 2, page.Pagination.Total)
	require.Equal(t, 2, page.Pagination.TotalPages)

	rec, env = serve(t, http.MethodGet, "/products", "/products?category_id=bad", h.ListProducts, nil, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "invalid field: category_id", env.Message)

	rec, env = serve(t, http.MethodGet, "/products/search", "/products/search?q=silk", h.SearchProducts, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &page))
	require.Len(t, page.Items, 1)
	require.Equal(t, silk.ID, page.Items[0].ID)

	rec, _ = serve(t, http.MethodGet, "/products/search", "/products/search", h.SearchProducts, nil, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env = serve(t, http.MethodGet, "/products/{id}", "/products/"+silk.ID.String(), h.GetProduct, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got model.Product
	require.NoError(t, json.Unmarshal(env.Data, &got))
	require.Equal(t, silk.SKU, got.SKU)

	rec, env = serve(t, http.MethodGet, "/products/{id}", "/products/"+uuid.NewString(), h.GetProduct, nil, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "product not found", env.Error)
}

func TestProductHandlerReviews(t *testing.T) {
	catalog := memdb.NewCatalog()
	silk := seedProduct(t, catalog, "SILK", 1200, 5)
	h := NewProductHandler(service.NewProductService(catalog, nil))
	identity := newIdentity()
	path := "/products/" + silk.ID.String() + "/reviews"

	rec, _ := serve(t, http.MethodPost, "/products/{id}/reviews", path, h.CreateReview, nil, service.CreateReviewRequest{Rating: 5})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, env := serve(t, http.MethodPost, "/products/{id}/reviews", path, h.CreateReview, identity, service.CreateReviewRequest{Rating: 9})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "invalid field: rating", env.Message)

	rec, _ = serve(t, http.MethodPost, "/products/{id}/reviews", path, h.CreateReview, identity, service.CreateReviewRequest{Rating: 4, Title: "Lovely"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, _ = serve(t, http.MethodPost, "/products/{id}/reviews", path, h.CreateReview, identity, service.CreateReviewRequest{Rating: 3})
	require.Equal(t, http.StatusConflict, rec.Code)

	rec, env = serve(t, http.MethodGet, "/products/{id}/reviews", path, h.ListReviews, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var page service.Paged[model.ProductReview]
	require.NoError(t, json.Unmarshal(env.Data, &page))
	require.Len(t, page.Items, 1)
	require.Equal(t, "Lovely", page.Items[0].Title)
}

func TestCartHandler(t *testing.T) {
	catalog := memdb.NewCatalog()
	silk := seedProduct(t, catalog, "SILK", 1200, 5)
	h := NewCartHandler(service.NewCartService(catalog), service.NewWishlistService(catalog))
	identity := newIdentity()

	rec, _ := serve(t, http.MethodGet, "/cart", "/cart", h.GetCart, nil, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, env := serve(t, http.MethodPost, "/cart", "/cart", h.AddItem, identity, service.AddCartItemRequest{ProductID: silk.ID, Quantity: 2})
	require.Equal(t, http.StatusOK, rec.Code)
	var cart service.Cart
	require.NoError(t, json.Unmarshal(env.Data, &cart))
	require.Equal(t, 2, cart.ItemCount)
	require.True(t, decimal.NewFromInt(2400).Equal(cart.Subtotal))

	rec, env = serve(t, http.MethodPost, "/cart", "/cart", h.AddItem, identity, service.AddCartItemRequest{ProductID: silk.ID, Quantity: 4})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "invalid field: quantity", env.Message)

	itemPath := "/cart/" + silk.ID.String()
	rec, env = serve(t, http.MethodPut, "/cart/{productId}", itemPath, h.UpdateItem, identity, UpdateCartItemRequest{Quantity: 3})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &cart))
	require.Equal(t, 3, cart.ItemCount)

	rec, env = serve(t, http.MethodDelete, "/cart/{productId}", itemPath, h.RemoveItem, identity, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &cart))
	require.Empty(t, cart.Items)

	rec, _ = serve(t, http.MethodDelete, "/cart/{productId}", itemPath, h.RemoveItem, identity, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec, env = serve(t, http.MethodDelete, "/cart", "/cart", h.ClearCart, identity, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, env.Success)
}

func TestWishlistHandler(t *testing.T) {
	catalog := memdb.NewCatalog()
	silk := seedProduct(t, catalog, "SILK", 1200, 5)
	h := NewCartHandler(service.NewCartService(catalog), service.NewWishlistService(catalog))
	identity := newIdentity()

	rec, env := serve(t, http.MethodPost, "/wishlist", "/wishlist", h.AddWishlistItem, identity, WishlistRequest{ProductID: silk.ID})
	require.Equal(t, http.StatusOK, rec.Code)
	var items []model.WishlistItem
	require.NoError(t, json.Unmarshal(env.Data, &items))
	require.Len(t, items, 1)

	// 重複加入不報錯
	rec, _ = serve(t, http.MethodPost, "/wishlist", "/wishlist", h.AddWishlistItem, identity, WishlistRequest{ProductID: silk.ID})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env = serve(t, http.MethodGet, "/wishlist", "/wishlist", h.ListWishlist, identity, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &items))
	require.Len(t, items, 1)

	rec, _ = serve(t, http.MethodDelete, "/wishlist/{productId}", "/wishlist/"+silk.ID.String(), h.RemoveWishlistItem, identity, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = serve(t, http.MethodPost, "/wishlist", "/wishlist", h.AddWishlistItem, identity, WishlistRequest{ProductID: uuid.New()})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUserHandler(t *testing.T) {
	h := NewUserHandler(service.NewUserService(memdb.NewUsers()))
	identity := newIdentity()

	rec, env := serve(t, http.MethodGet, "/user/profile", "/user/profile", h.GetProfile, identity, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var profile model.UserProfile
	require.NoError(t, json.Unmarshal(env.Data, &profile))
	require.Equal(t, identity.Email, profile.Email)

	name := "Asha Rao"
	rec, env = serve(t, http.MethodPut, "/user/profile", "/user/profile", h.UpdateProfile, identity, service.UpdateProfileRequest{FullName: &name})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &profile))
	require.Equal(t, name, profile.FullName)

	rec, env = serve(t, http.MethodPost, "/user/addresses", "/user/addresses", h.CreateAddress, identity, service.AddressRequest{FullName: "Asha"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "invalid field: address_line1", env.Message)

	req := service.AddressRequest{
		IsDefault:    true,
		FullName:     "Asha",
		AddressLine1: "1 MG Road",
		City:         "Pune",
		PostalCode:   "411001",
		Country:      "IN",
	}
	rec, env = serve(t, http.MethodPost, "/user/addresses", "/user/addresses", h.CreateAddress, identity, req)
	require.Equal(t, http.StatusCreated, rec.Code)
	var address model.Address
	require.NoError(t, json.Unmarshal(env.Data, &address))
	require.Equal(t, model.AddressTypeShipping, address.Type)

	req.City = "Mumbai"
	addrPath := "/user/addresses/" + address.ID.String()
	rec, env = serve(t, http.MethodPut, "/user/addresses/{id}", addrPath, h.UpdateAddress, identity, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &address))
	require.Equal(t, "Mumbai", address.City)

	// 別人的地址視為不存在
	rec, _ = serve(t, http.MethodPut, "/user/addresses/{id}", addrPath, h.UpdateAddress, newIdentity(), req)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec, env = serve(t, http.MethodGet, "/user/addresses", "/user/addresses", h.ListAddresses, identity, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var addresses []model.Address
	require.NoError(t, json.Unmarshal(env.Data, &addresses))
	require.Len(t, addresses, 1)

	rec, _ = serve(t, http.MethodDelete, "/user/addresses/{id}", addrPath, h.DeleteAddress, identity, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec, _ = serve(t, http.MethodDelete, "/user/addresses/{id}", addrPath, h.DeleteAddress, identity, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
