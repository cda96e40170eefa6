package handler

import (
	"net/http"

	"github.com/RoyceAzure/lab/storefront/internal/api/response"
	"github.com/RoyceAzure/lab/storefront/internal/infra/auth"
	"github.com/RoyceAzure/lab/storefront/internal/service"
	"github.com/google/uuid"
)

type UpdateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

type WishlistRequest struct {
	ProductID uuid.UUID `json:"product_id"`
}

type CartHandler struct {
	cartService     service.ICartService
	wishlistService service.IWishlistService
}

func NewCartHandler(cartService service.ICartService, wishlistService service.IWishlistService) *CartHandler {
	if cartService == nil || wishlistService == nil {
		panic("cartService and wishlistService cannot be nil")
	}
	return &CartHandler{cartService: cartService, wishlistService: wishlistService}
}

// @Summary get cart
// @Tags cart
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=service.Cart}
// @Failure 401 {object} response.Response
// @Router /cart [get]
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.cartService.GetCart(r.Context(), auth.IdentityFromContext(r.Context()))
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, cart)
}

// @Summary add cart item
// @Description 已在購物車的商品會合併數量
// @Tags cart
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param item body service.AddCartItemRequest true "item"
// @Success 200 {object} response.Response{data=service.Cart}
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /cart [post]
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req service.AddCartItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.Error(w, r, err)
		return
	}
	cart, err := h.cartService.AddItem(r.Context(), auth.IdentityFromContext(r.Context()), req)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, cart)
}

// @Summary update cart item quantity
// @Description quantity <= 0 會移除該商品
// @Tags cart
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param productId path string true "product id"
// @Param item body UpdateCartItemRequest true "quantity"
// @Success 200 {object} response.Response{data=service.Cart}
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /cart/{productId} [put]
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	productID, err := uuidParam(r, "productId")
	if err != nil {
		response.Error(w, r, err)
		return
	}
	var req UpdateCartItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.Error(w, r, err)
		return
	}
	cart, err := h.cartService.UpdateItem(r.Context(), auth.IdentityFromContext(r.Context()), productID, req.Quantity)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, cart)
}

// @Summary remove cart item
// @Tags cart
// @Produce json
// @Security BearerAuth
// @Param productId path string true "product id"
// @Success 200 {object} response.Response{data=service.Cart}
// @Failure 404 {object} response.Response
// @Router /cart/{productId} [delete]
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	productID, err := uuidParam(r, "productId")
	if err != nil {
		response.Error(w, r, err)
		return
	}
	cart, err := h.cartService.RemoveItem(r.Context(), auth.IdentityFromContext(r.Context()), productID)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, cart)
}

// @Summary clear cart
// @Tags cart
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /cart [delete]
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.cartService.Clear(r.Context(), auth.IdentityFromContext(r.Context())); err != nil {
		response.Error(w, r, err)
		return
	}
	response.Message(w, "Cart cleared")
}

// @Summary list wishlist
// @Tags wishlist
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=[]model.WishlistItem}
// @Failure 401 {object} response.Response
// @Router /wishlist [get]
func (h *CartHandler) ListWishlist(w http.ResponseWriter, r *http.Request) {
	items, err := h.wishlistService.ListWishlist(r.Context(), auth.IdentityFromContext(r.Context()))
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, items)
}

// @Summary add wishlist item
// @Tags wishlist
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param item body WishlistRequest true "product"
// @Success 200 {object} response.Response{data=[]model.WishlistItem}
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /wishlist [post]
func (h *CartHandler) AddWishlistItem(w http.ResponseWriter, r *http.Request) {
	var req WishlistRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.Error(w, r, err)
		return
	}
	items, err := h.wishlistService.AddItem(r.Context(), auth.IdentityFromContext(r.Context()), req.ProductID)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, items)
}

// @Summary remove wishlist item
// @Tags wishlist
// @Produce json
// @Security BearerAuth
// @Param productId path string true "product id"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /wishlist/{productId} [delete]
func (h *CartHandler) RemoveWishlistItem(w http.ResponseWriter, r *http.Request) {
	productID, err := uuidParam(r, "productId")
	if err != nil {
		response.Error(w, r, err)
		return
	}
	if err := h.wishlistService.RemoveItem(r.Context(), auth.IdentityFromContext(r.Context()), productID); err != nil {
		response.Error(w, r, err)
		return
	}
	response.Message(w, "Removed from wishlist")
}
