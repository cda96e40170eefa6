package handler

import (
	"net/http"

	"github.com/RoyceAzure/lab/storefront/internal/api/response"
	"github.com/RoyceAzure/lab/storefront/internal/infra/auth"
	"github.com/RoyceAzure/lab/storefront/internal/service"
)

type ProductHandler struct {
	productService service.IProductService
}

func NewProductHandler(productService service.IProductService) *ProductHandler {
	if productService == nil {
		panic("productService cannot be nil")
	}
	return &ProductHandler{productService: productService}
}

// @Summary list products
// @Description 只列出上架商品，新的在前
// @Tags products
// @Produce json
// @Param page query int false "page, default 1"
// @Param limit query int false "page size, default 20, max 100"
// @Param category_id query string false "category id"
// @Param collection_id query string false "collection id"
// @Success 200 {object} response.Response{data=service.Paged[model.Product]}
// @Failure 400 {object} response.Response
// @Failure 500 {object} response.Response
// @Router /products [get]
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	categoryID, err := optionalUUIDQuery(r, "category_id")
	if err != nil {
		response.Error(w, r, err)
		return
	}
	collectionID, err := optionalUUIDQuery(r, "collection_id")
	if err != nil {
		response.Error(w, r, err)
		return
	}

	page, err := h.productService.ListProducts(r.Context(), service.ProductListFilter{
		CategoryID:   categoryID,
		CollectionID: collectionID,
	}, pageQuery(r))
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, page)
}

// @Summary search products
// @Tags products
// @Produce json
// @Param q query string true "keyword"
// @Param page query int false "page"
// @Param limit query int false "page size"
// @Success 200 {object} response.Response{data=service.Paged[model.Product]}
// @Failure 400 {object} response.Response
// @Failure 500 {object} response.Response
// @Router /products/search [get]
func (h *ProductHandler) SearchProducts(w http.ResponseWriter, r *http.Request) {
	page, err := h.productService.SearchProducts(r.Context(), r.URL.Query().Get("q"), pageQuery(r))
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, page)
}

// @Summary get product
// @Tags products
// @Produce json
// @Param id path string true "product id"
// @Success 200 {object} response.Response{data=model.Product}
// @Failure 404 {object} response.Response
// @Router /products/{id} [get]
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		response.Error(w, r, err)
		return
	}
	product, err := h.productService.GetProduct(r.Context(), id)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, product)
}

// @Summary list product reviews
// @Tags products
// @Produce json
// @Param id path string true "product id"
// @Param page query int false "page"
// @Param limit query int false "page size"
// @Success 200 {object} response.Response{data=service.Paged[model.ProductReview]}
// @Failure 404 {object} response.Response
// @Router /products/{id}/reviews [get]
func (h *ProductHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		response.Error(w, r, err)
		return
	}
	page, err := h.productService.ListReviews(r.Context(), id, pageQuery(r))
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, page)
}

// @Summary create product review
// @Description 每位使用者對同一商品只能評論一次
// @Tags products
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "product id"
// @Param review body service.CreateReviewRequest true "review"
// @Success 201 {object} response.Response{data=model.ProductReview}
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /products/{id}/reviews [post]
func (h *ProductHandler) CreateReview(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		response.Error(w, r, err)
		return
	}
	var req service.CreateReviewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.Error(w, r, err)
		return
	}
	review, err := h.productService.CreateReview(r.Context(), auth.IdentityFromContext(r.Context()), id, req)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.Created(w, review)
}
