package handler

import (
	"net/http"
	"strings"

	"github.com/RoyceAzure/lab/storefront/internal/api/response"
	"github.com/RoyceAzure/lab/storefront/internal/constants"
	"github.com/RoyceAzure/lab/storefront/internal/domain/model"
	"github.com/RoyceAzure/lab/storefront/internal/infra/auth"
	"github.com/RoyceAzure/lab/storefront/internal/service"
)

type UpdateOrderStatusRequest struct {
	Status model.OrderStatus `json:"status"`
}

type OrderHandler struct {
	orderService service.IOrderService
}

func NewOrderHandler(orderService service.IOrderService) *OrderHandler {
	if orderService == nil {
		panic("orderService cannot be nil")
	}
	return &OrderHandler{orderService: orderService}
}

// @Summary list my orders
// @Tags orders
// @Produce json
// @Security BearerAuth
// @Param page query int false "page"
// @Param limit query int false "page size"
// @Success 200 {object} response.Response{data=service.Paged[model.Order]}
// @Failure 401 {object} response.Response
// @Router /orders [get]
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	page, err := h.orderService.ListOrders(r.Context(), auth.IdentityFromContext(r.Context()), pageQuery(r))
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, page)
}

// @Summary checkout
// @Description 以購物車內容建立訂單，扣庫存並清空購物車
// @Description 帶相同 Idempotency-Key 重送會回傳同一筆訂單
// @Tags orders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param Idempotency-Key header string false "idempotency key"
// @Param order body service.CreateOrderRequest true "checkout"
// @Success 201 {object} response.Response{data=model.Order}
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 409 {object} response.Response
// @Failure 429 {object} response.Response
// @Failure 500 {object} response.Response
// @Router /orders [post]
func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req service.CreateOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.Error(w, r, err)
		return
	}
	req.IdempotencyKey = strings.TrimSpace(r.Header.Get(constants.IdempotencyKeyHeader))

	order, err := h.orderService.CreateOrder(r.Context(), auth.IdentityFromContext(r.Context()), req)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.Created(w, order)
}

// @Summary get order
// @Tags orders
// @Produce json
// @Security BearerAuth
// @Param id path string true "order id"
// @Success 200 {object} response.Response{data=model.Order}
// @Failure 404 {object} response.Response
// @Router /orders/{id} [get]
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		response.Error(w, r, err)
		return
	}
	order, err := h.orderService.GetOrder(r.Context(), auth.IdentityFromContext(r.Context()), id)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, order)
}

// @Summary cancel order
// @Description 只有 pending 或 confirmed 可取消，取消後回補庫存
// @Tags orders
// @Produce json
// @Security BearerAuth
// @Param id path string true "order id"
// @Success 200 {object} response.Response{data=model.Order}
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /orders/{id}/cancel [post]
func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		response.Error(w, r, err)
		return
	}
	order, err := h.orderService.CancelOrder(r.Context(), auth.IdentityFromContext(r.Context()), id)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, order)
}

// @Summary update order status
// @Description 管理者專用
// @Tags orders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "order id"
// @Param status body UpdateOrderStatusRequest true "status"
// @Success 200 {object} response.Response{data=model.Order}
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /orders/{id}/status [patch]
func (h *OrderHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		response.Error(w, r, err)
		return
	}
	var req UpdateOrderStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.Error(w, r, err)
		return
	}
	order, err := h.orderService.UpdateOrderStatus(r.Context(), auth.IdentityFromContext(r.Context()), id, req.Status)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, order)
}
