package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/RoyceAzure/lab/storefront/internal/apperr"
	"github.com/RoyceAzure/lab/storefront/internal/constants"
	"github.com/RoyceAzure/lab/storefront/internal/domain/model"
	"github.com/RoyceAzure/lab/storefront/internal/infra/auth"
	"github.com/RoyceAzure/lab/storefront/internal/service"
	mock_service "github.com/RoyceAzure/lab/storefront/internal/service/mock"
	"github.com/go-chi/chi/v5"
	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type OrderHandlerTestSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	svc      *mock_service.MockIOrderService
	handler  *OrderHandler
	identity *auth.Identity
}

func TestOrderHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(OrderHandlerTestSuite))
}

func (s *OrderHandlerTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.svc = mock_service.NewMockIOrderService(s.ctrl)
	s.handler = NewOrderHandler(s.svc)
	s.identity = newIdentity()
}

func (s *OrderHandlerTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *OrderHandlerTestSuite) sampleOrder() *model.Order {
	return &model.Order{
		BaseModel:   model.BaseModel{ID: uuid.New()},
		OrderNumber: "ORD-20240301-ABCDEF12",
		UserID:      s.identity.UserID,
		Status:      model.OrderStatusPending,
		TotalAmount: decimal.NewFromInt(1310),
		Items:       []model.OrderItem{},
	}
}

func (s *OrderHandlerTestSuite) TestCreateOrder() {
	order := s.sampleOrder()
	s.svc.EXPECT().
		CreateOrder(gomock.Any(), s.identity, gomock.Any()).
		DoAndReturn(func(ctx context.Context, identity *auth.Identity, req service.CreateOrderRequest) (*model.Order, error) {
			s.Equal("key-1", req.IdempotencyKey)
			s.Equal("cod", req.PaymentMethod)
			s.Require().NotNil(req.ShippingAddress)
			s.Equal("Asha", req.ShippingAddress.FullName)
			return order, nil
		})

	router := chi.NewRouter()
	router.Post("/orders", s.handler.CreateOrder)
	body := `{"payment_method":"cod","shipping_address":{"full_name":"Asha","address_line1":"1 MG Road","city":"Pune","postal_code":"411001","country":"IN"}}`
	rec, env := serveWithHeader(s.T(), router, http.MethodPost, "/orders", body, s.identity, map[string]string{constants.IdempotencyKeyHeader: " key-1 "})
	s.Equal(http.StatusCreated, rec.Code)
	s.True(env.Success)

	var got model.Order
	s.Require().NoError(json.Unmarshal(env.Data, &got))
	s.Equal(order.OrderNumber, got.OrderNumber)
	s.True(order.TotalAmount.Equal(got.TotalAmount))
}

func (s *OrderHandlerTestSuite) TestCreateOrderErrors() {
	testCases := []struct {
		name     string
		body     string
		err      error
		wantCode int
		wantErr  string
		wantMsg  string
	}{
		{"empty body", "", nil, http.StatusBadRequest, apperr.MsgMissingFields, "invalid field: body"},
		{"malformed body", "{", nil, http.StatusBadRequest, "Invalid request body", "invalid field: body"},
		{"unauthenticated", "{}", apperr.Unauthorized(apperr.MsgUnauthorized), http.StatusUnauthorized, apperr.MsgUnauthorized, ""},
		{"cart empty", "{}", apperr.Validation("cart", apperr.MsgCartEmpty), http.StatusBadRequest, apperr.MsgCartEmpty, "invalid field: cart"},
		{"in progress", "{}", apperr.Conflict(apperr.MsgCheckoutInProgress), http.StatusConflict, apperr.MsgCheckoutInProgress, ""},
		{"internal", "{}", apperr.Internalf(context.DeadlineExceeded, "create order"), http.StatusInternalServerError, apperr.MsgInternal, ""},
	}
	for _, tc := range testCases {
		s.Run(tc.name, func() {
			if tc.err != nil {
				s.svc.EXPECT().CreateOrder(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, tc.err)
			}
			rec, env := serve(s.T(), http.MethodPost, "/orders", "/orders", s.handler.CreateOrder, s.identity, tc.body)
			s.Equal(tc.wantCode, rec.Code)
			s.False(env.Success)
			s.Equal(tc.wantErr, env.Error)
			s.Equal(tc.wantMsg, env.Message)
		})
	}
}

func (s *OrderHandlerTestSuite) TestListOrders() {
	page := &service.Paged[model.Order]{
		Items:      []model.Order{*s.sampleOrder()},
		Pagination: service.NewPageMeta(service.PageRequest{Page: 2, Limit: 1}, 3),
	}
	s.svc.EXPECT().ListOrders(gomock.Any(), s.identity, service.PageRequest{Page: 2, Limit: 1}).Return(page, nil)

	rec, env := serve(s.T(), http.MethodGet, "/orders", "/orders?page=2&limit=1", s.handler.ListOrders, s.identity, nil)
	s.Equal(http.StatusOK, rec.Code)

	var got service.Paged[model.Order]
	s.Require().NoError(json.Unmarshal(env.Data, &got))
	s.Len(got.Items, 1)
	s.EqualValues(3, got.Pagination.Total)
	s.True(got.Pagination.HasNext)
	s.True(got.Pagination.HasPrev)
}

func (s *OrderHandlerTestSuite) TestGetOrder() {
	order := s.sampleOrder()
	s.svc.EXPECT().GetOrder(gomock.Any(), s.identity, order.ID).Return(order, nil)
	rec, _ := serve(s.T(), http.MethodGet, "/orders/{id}", "/orders/"+order.ID.String(), s.handler.GetOrder, s.identity, nil)
	s.Equal(http.StatusOK, rec.Code)

	missing := uuid.New()
	s.svc.EXPECT().GetOrder(gomock.Any(), s.identity, missing).Return(nil, apperr.NotFound("order"))
	rec, env := serve(s.T(), http.MethodGet, "/orders/{id}", "/orders/"+missing.String(), s.handler.GetOrder, s.identity, nil)
	s.Equal(http.StatusNotFound, rec.Code)
	s.Equal("order not found", env.Error)

	// 不合法的 id 不會呼叫 service
	rec, env = serve(s.T(), http.MethodGet, "/orders/{id}", "/orders/not-a-uuid", s.handler.GetOrder, s.identity, nil)
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("invalid field: id", env.Message)
}

func (s *OrderHandlerTestSuite) TestCancelOrder() {
	order := s.sampleOrder()
	order.Status = model.OrderStatusCancelled
	s.svc.EXPECT().CancelOrder(gomock.Any(), s.identity, order.ID).Return(order, nil)

	rec, env := serve(s.T(), http.MethodPost, "/orders/{id}/cancel", "/orders/"+order.ID.String()+"/cancel", s.handler.CancelOrder, s.identity, nil)
	s.Equal(http.StatusOK, rec.Code)
	var got model.Order
	s.Require().NoError(json.Unmarshal(env.Data, &got))
	s.Equal(model.OrderStatusCancelled, got.Status)
}

func (s *OrderHandlerTestSuite) TestUpdateOrderStatus() {
	order := s.sampleOrder()
	s.svc.EXPECT().
		UpdateOrderStatus(gomock.Any(), s.identity, order.ID, model.OrderStatusShipped).
		Return(nil, apperr.Forbidden("Admin access required"))

	rec, env := serve(s.T(), http.MethodPatch, "/orders/{id}/status", "/orders/"+order.ID.String()+"/status", s.handler.UpdateOrderStatus, s.identity, UpdateOrderStatusRequest{Status: model.OrderStatusShipped})
	s.Equal(http.StatusForbidden, rec.Code)
	s.False(env.Success)
}

func TestNewOrderHandlerPanicsOnNil(t *testing.T) {
	require.Panics(t, func() { NewOrderHandler(nil) })
}
