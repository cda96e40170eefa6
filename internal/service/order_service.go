package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/RoyceAzure/lab/storefront/internal/apperr"
	"github.com/RoyceAzure/lab/storefront/internal/domain/model"
	"github.com/RoyceAzure/lab/storefront/internal/infra/auth"
	"github.com/RoyceAzure/lab/storefront/internal/infra/event"
	"github.com/RoyceAzure/lab/storefront/internal/infra/repository/db"
	"github.com/RoyceAzure/lab/storefront/internal/infra/repository/redis_repo"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const publishTimeout = 5 * time.Second

// CreateOrderRequest 結帳內容，地址可直接帶入或使用地址簿 id
type CreateOrderRequest struct {
	ShippingAddress   *model.AddressSnapshot `json:"shipping_address,omitempty"`
	ShippingAddressID *uuid.UUID             `json:"shipping_address_id,omitempty"`
	BillingAddress    *model.AddressSnapshot `json:"billing_address,omitempty"`
	BillingAddressID  *uuid.UUID             `json:"billing_address_id,omitempty"`
	PaymentMethod     string                 `json:"payment_method"`
	TaxAmount         *decimal.Decimal       `json:"tax_amount,omitempty" swaggertype:"number"`
	ShippingAmount    *decimal.Decimal       `json:"shipping_amount,omitempty" swaggertype:"number"`
	DiscountAmount    *decimal.Decimal       `json:"discount_amount,omitempty" swaggertype:"number"`
	Notes             string                 `json:"notes,omitempty"`
	// IdempotencyKey 來自 Idempotency-Key header
	IdempotencyKey string `json:"-"`
}

//go:generate mockgen -source=order_service.go -destination=mock/mock_order_service.go -package=mock_service

// IOrderService 訂單服務
// 錯誤:
//   - apperr.KindUnauthorized 401: 未登入
//   - apperr.KindValidation 400: 參數錯誤、購物車為空、庫存不足
//   - apperr.KindForbidden 403: 非管理員變更狀態
//   - apperr.KindNotFound 404: 訂單不存在或不屬於呼叫者
//   - apperr.KindConflict 409: 結帳進行中、狀態不允許變更
//   - apperr.KindInternal 500: 資料庫操作錯誤
type IOrderService interface {
	CreateOrder(ctx context.Context, identity *auth.Identity, req CreateOrderRequest) (*model.Order, error)
	ListOrders(ctx context.Context, identity *auth.Identity, page PageRequest) (*Paged[model.Order], error)
	GetOrder(ctx context.Context, identity *auth.Identity, id uuid.UUID) (*model.Order, error)
	CancelOrder(ctx context.Context, identity *auth.Identity, id uuid.UUID) (*model.Order, error)
	UpdateOrderStatus(ctx context.Context, identity *auth.Identity, id uuid.UUID, status model.OrderStatus) (*model.Order, error)
}

type OrderService struct {
	orders    db.IOrderRepository
	catalog   db.ICatalogRepository
	users     db.IUserRepository
	locker    redis_repo.ICheckoutLocker
	publisher event.IOrderEventPublisher
	pricing   PricingPolicy
	nowFn     func() time.Time
}

func NewOrderService(
	orders db.IOrderRepository,
	catalog db.ICatalogRepository,
	users db.IUserRepository,
	locker redis_repo.ICheckoutLocker,
	publisher event.IOrderEventPublisher,
	pricing PricingPolicy,
) *OrderService {
	if orders == nil || catalog == nil || users == nil || locker == nil || publisher == nil {
		panic("order service missing required dependency")
	}
	return &OrderService{
		orders:    orders,
		catalog:   catalog,
		users:     users,
		locker:    locker,
		publisher: publisher,
		pricing:   pricing,
		nowFn:     time.Now,
	}
}

// reservedLine 已扣庫存、已移出購物車的項目
type reservedLine struct {
	product           model.Product
	quantity          int
	variantAttributes model.Attributes
}

func (l reservedLine) toOrderItem() model.OrderItem {
	return model.OrderItem{
		ProductID:         l.product.ID,
		ProductName:       l.product.Name,
		ProductSKU:        l.product.SKU,
		UnitPrice:         l.product.Price,
		Quantity:          l.quantity,
		TotalPrice:        l.product.Price.Mul(decimal.NewFromInt(int64(l.quantity))),
		VariantAttributes: l.variantAttributes,
	}
}

func generateOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("ORD-%s-%s", now.UTC().Format("20060102"), suffix)
}

// CreateOrder 將購物車轉為訂單
// 流程: 驗證 -> idempotency 檢查 -> 使用者結帳鎖 -> products 交易(扣庫存、清購物車)
// -> 計價 -> orders 交易，orders 寫入失敗時補償 products
func (s *OrderService) CreateOrder(ctx context.Context, identity *auth.Identity, req CreateOrderRequest) (*model.Order, error) {
	if err := requireIdentity(identity); err != nil {
		return nil, err
	}
	userID := identity.UserID

	paymentMethod, shipping, billing, err := s.validateCreateOrder(ctx, userID, req)
	if err != nil {
		return nil, err
	}

	var idempotencyKey *string
	if key := strings.TrimSpace(req.IdempotencyKey); key != "" {
		idempotencyKey = &key
		if existing, err := s.findByIdempotencyKey(ctx, userID, key); err != nil || existing != nil {
			return existing, err
		}
	}

	release, err := s.locker.Acquire(ctx, userID)
	if err != nil {
		if errors.Is(err, redis_repo.ErrLockHeld) {
			return nil, apperr.Conflict(apperr.MsgCheckoutInProgress)
		}
		return nil, apperr.Internalf(err, "acquire checkout lock")
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			log.Warn().Err(err).Str("user_id", userID.String()).Msg("failed to release checkout lock")
		}
	}()

	// 取得鎖後再查一次，前一個相同 key 的請求可能剛完成
	if idempotencyKey != nil {
		if existing, err := s.findByIdempotencyKey(ctx, userID, *idempotencyKey); err != nil || existing != nil {
			return existing, err
		}
	}

	lines, err := s.reserve(ctx, userID)
	if err != nil {
		return nil, err
	}

	priced := make([]PricedLine, 0, len(lines))
	for _, line := range lines {
		priced = append(priced, PricedLine{UnitPrice: line.product.Price, Quantity: line.quantity})
	}
	totals, err := s.pricing.Price(priced, PriceAdjustments{
		TaxAmount:      req.TaxAmount,
		ShippingAmount: req.ShippingAmount,
		DiscountAmount: req.DiscountAmount,
	})
	if err != nil {
		s.compensate(ctx, userID, "", lines)
		return nil, err
	}

	now := s.nowFn().UTC()
	order := &model.Order{
		OrderNumber:     generateOrderNumber(now),
		UserID:          userID,
		Status:          model.OrderStatusPending,
		PaymentMethod:   paymentMethod,
		PaymentStatus:   model.PaymentStatusPending,
		Subtotal:        totals.Subtotal,
		TaxAmount:       totals.TaxAmount,
		ShippingAmount:  totals.ShippingAmount,
		DiscountAmount:  totals.DiscountAmount,
		TotalAmount:     totals.TotalAmount,
		Currency:        s.pricing.Currency,
		ShippingAddress: shipping,
		BillingAddress:  billing,
		Notes:           req.Notes,
		IdempotencyKey:  idempotencyKey,
	}
	for _, line := range lines {
		order.Items = append(order.Items, line.toOrderItem())
	}

	err = s.orders.ExecTx(ctx, func(repo db.IOrderRepository) error {
		return repo.CreateOrder(ctx, order)
	})
	if err != nil {
		s.compensate(ctx, userID, order.OrderNumber, lines)
		// 鎖過期時相同 key 的訂單可能已由另一個請求寫入
		if idempotencyKey != nil && errors.Is(err, db.ErrDuplicate) {
			if existing, findErr := s.findByIdempotencyKey(ctx, userID, *idempotencyKey); findErr == nil && existing != nil {
				return existing, nil
			}
		}
		return nil, apperr.Internalf(err, "create order %s", order.OrderNumber)
	}

	log.Info().
		Str("order_number", order.OrderNumber).
		Str("user_id", userID.String()).
		Str("total_amount", order.TotalAmount.StringFixed(2)).
		Int("items", len(order.Items)).
		Msg("order created")

	s.publish(ctx, event.OrderCreated, order)
	return order, nil
}

func (s *OrderService) validateCreateOrder(ctx context.Context, userID uuid.UUID, req CreateOrderRequest) (model.PaymentMethod, model.AddressSnapshot, *model.AddressSnapshot, error) {
	if strings.TrimSpace(req.PaymentMethod) == "" {
		return "", model.AddressSnapshot{}, nil, apperr.Validation("payment_method", apperr.MsgMissingFields)
	}
	paymentMethod, ok := model.ParsePaymentMethod(req.PaymentMethod)
	if !ok {
		return "", model.AddressSnapshot{}, nil, apperr.Validation("payment_method", "Invalid payment method")
	}

	// 先擋下不合法金額，避免扣庫存後才回滾
	adj := PriceAdjustments{TaxAmount: req.TaxAmount, ShippingAmount: req.ShippingAmount, DiscountAmount: req.DiscountAmount}
	if err := adj.Validate(); err != nil {
		return "", model.AddressSnapshot{}, nil, err
	}

	shipping, err := s.resolveAddress(ctx, userID, "shipping_address", req.ShippingAddress, req.ShippingAddressID)
	if err != nil {
		return "", model.AddressSnapshot{}, nil, err
	}
	if shipping == nil {
		return "", model.AddressSnapshot{}, nil, apperr.Validation("shipping_address", apperr.MsgMissingFields)
	}

	billing, err := s.resolveAddress(ctx, userID, "billing_address", req.BillingAddress, req.BillingAddressID)
	if err != nil {
		return "", model.AddressSnapshot{}, nil, err
	}
	if billing == nil {
		billing = shipping
	}
	return paymentMethod, *shipping, billing, nil
}

// resolveAddress 回傳 nil 表示兩種來源都沒有提供
func (s *OrderService) resolveAddress(ctx context.Context, userID uuid.UUID, field string, inline *model.AddressSnapshot, id *uuid.UUID) (*model.AddressSnapshot, error) {
	if inline != nil {
		if missing := inline.MissingField(); missing != "" {
			return nil, apperr.Validation(field+"."+missing, apperr.MsgMissingFields)
		}
		snapshot := *inline
		return &snapshot, nil
	}
	if id == nil {
		return nil, nil
	}

	address, err := s.users.GetAddress(ctx, *id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, apperr.Validation(field+"_id", "Address not found")
		}
		return nil, apperr.Internalf(err, "get address %s", id)
	}
	if address.UserID != userID {
		return nil, apperr.Validation(field+"_id", "Address not found")
	}
	snapshot := address.Snapshot()
	return &snapshot, nil
}

func (s *OrderService) findByIdempotencyKey(ctx context.Context, userID uuid.UUID, key string) (*model.Order, error) {
	order, err := s.orders.GetOrderByIdempotencyKey(ctx, userID, key)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, nil
		}
		return nil, apperr.Internalf(err, "get order by idempotency key")
	}
	log.Info().Str("order_number", order.OrderNumber).Msg("idempotent checkout replay")
	return order, nil
}

// reserve 在 products store 單一交易內鎖定商品、扣庫存並移除購物車項目
// 任一步失敗整個交易回滾
func (s *OrderService) reserve(ctx context.Context, userID uuid.UUID) ([]reservedLine, error) {
	var lines []reservedLine

	err := s.catalog.ExecTx(ctx, func(repo db.ICatalogRepository) error {
		lines = nil
		items, err := repo.GetCartItems(ctx, userID)
		if err != nil {
			return apperr.Internalf(err, "get cart items")
		}
		if len(items) == 0 {
			return apperr.Validation("cart", apperr.MsgCartEmpty)
		}

		// 固定鎖定順序，避免兩筆交易互相等待
		locked := make([]model.CartItem, len(items))
		copy(locked, items)
		sort.Slice(locked, func(i, j int) bool {
			return locked[i].ProductID.String() < locked[j].ProductID.String()
		})

		products := make(map[uuid.UUID]model.Product, len(locked))
		for _, item := range locked {
			product, err := repo.GetProductForUpdate(ctx, item.ProductID)
			if err != nil {
				if errors.Is(err, db.ErrNotFound) {
					return apperr.Validation("product_id", fmt.Sprintf("Product %s is no longer available", item.ProductID))
				}
				return apperr.Internalf(err, "lock product %s", item.ProductID)
			}
			if !product.IsActive() {
				return apperr.Validation("product_id", fmt.Sprintf("Product %s is no longer available", product.Name))
			}
			if item.Quantity > product.StockQuantity {
				return apperr.Validation("quantity", apperr.MsgInsufficientStock)
			}
			if err := repo.DeductProductStock(ctx, product.ID, item.Quantity); err != nil {
				return mapRepoErr(err, "product")
			}
			if err := repo.DeleteCartItem(ctx, userID, item.ProductID); err != nil {
				return apperr.Internalf(err, "delete cart item %s", item.ProductID)
			}
			products[product.ID] = *product
		}

		for _, item := range items {
			lines = append(lines, reservedLine{
				product:           products[item.ProductID],
				quantity:          item.Quantity,
				variantAttributes: item.VariantAttributes,
			})
		}
		return nil
	})
	if err != nil {
		return nil, apperr.As(err)
	}
	return lines, nil
}

// compensate 歸還庫存並放回購物車，失敗時只能記錄等待人工處理
func (s *OrderService) compensate(ctx context.Context, userID uuid.UUID, orderNumber string, lines []reservedLine) {
	ctx = context.WithoutCancel(ctx)
	err := s.catalog.ExecTx(ctx, func(repo db.ICatalogRepository) error {
		for _, line := range lines {
			if err := repo.AddProductStock(ctx, line.product.ID, line.quantity); err != nil {
				return fmt.Errorf("restore stock of %s: %w", line.product.ID, err)
			}
			item := &model.CartItem{
				UserID:            userID,
				ProductID:         line.product.ID,
				Quantity:          line.quantity,
				VariantAttributes: line.variantAttributes,
			}
			if err := repo.MergeCartItem(ctx, item); err != nil {
				return fmt.Errorf("restore cart item %s: %w", line.product.ID, err)
			}
		}
		return nil
	})
	if err == nil {
		log.Warn().Str("order_number", orderNumber).Str("user_id", userID.String()).Msg("checkout compensated, stock and cart restored")
		return
	}

	logEvt := log.Error().Err(err).Str("order_number", orderNumber).Str("user_id", userID.String())
	for i, line := range lines {
		logEvt = logEvt.Str(fmt.Sprintf("line_%d", i), fmt.Sprintf("%s x%d", line.product.ID, line.quantity))
	}
	logEvt.Msg("checkout compensation failed, manual repair required")
}

func (s *OrderService) publish(ctx context.Context, eventType event.OrderEventType, order *model.Order) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := s.publisher.Publish(ctx, event.NewOrderEvent(eventType, order, s.nowFn())); err != nil {
		log.Error().Err(err).Str("type", string(eventType)).Str("order_number", order.OrderNumber).Msg("failed to publish order event")
	}
}

func (s *OrderService) ListOrders(ctx context.Context, identity *auth.Identity, page PageRequest) (*Paged[model.Order], error) {
	if err := requireIdentity(identity); err != nil {
		return nil, err
	}
	page = page.Normalize()

	orders, total, err := s.orders.ListOrdersByUser(ctx, identity.UserID, page.Offset(), page.Limit)
	if err != nil {
		return nil, apperr.Internalf(err, "list orders")
	}
	if orders == nil {
		orders = []model.Order{}
	}
	return &Paged[model.Order]{Items: orders, Pagination: NewPageMeta(page, total)}, nil
}

// getOwnedOrder 不屬於呼叫者的訂單視為不存在
func (s *OrderService) getOwnedOrder(ctx context.Context, identity *auth.Identity, id uuid.UUID) (*model.Order, error) {
	order, err := s.orders.GetOrderByID(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err, "order")
	}
	if !auth.BelongsTo(identity, order.UserID) && !auth.IsAdmin(identity) {
		return nil, apperr.NotFound("order")
	}
	return order, nil
}

func (s *OrderService) GetOrder(ctx context.Context, identity *auth.Identity, id uuid.UUID) (*model.Order, error) {
	if err := requireIdentity(identity); err != nil {
		return nil, err
	}
	return s.getOwnedOrder(ctx, identity, id)
}

func (s *OrderService) CancelOrder(ctx context.Context, identity *auth.Identity, id uuid.UUID) (*model.Order, error) {
	if err := requireIdentity(identity); err != nil {
		return nil, err
	}
	order, err := s.getOwnedOrder(ctx, identity, id)
	if err != nil {
		return nil, err
	}
	if !order.Status.Cancellable() {
		return nil, apperr.Conflict(fmt.Sprintf("Order cannot be cancelled in status %s", order.Status))
	}
	return s.transit(ctx, order, model.OrderStatusCancelled, event.OrderCancelled)
}

func (s *OrderService) UpdateOrderStatus(ctx context.Context, identity *auth.Identity, id uuid.UUID, status model.OrderStatus) (*model.Order, error) {
	if err := requireIdentity(identity); err != nil {
		return nil, err
	}
	if !auth.IsAdmin(identity) {
		return nil, apperr.Forbidden("Admin role required")
	}
	if !status.IsValid() {
		return nil, apperr.Validation("status", "Invalid order status")
	}

	order, err := s.orders.GetOrderByID(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err, "order")
	}
	if !order.Status.CanTransitTo(status) {
		return nil, apperr.Conflict(fmt.Sprintf("Invalid status transition from %s to %s", order.Status, status))
	}

	eventType := event.OrderStatusChanged
	if status == model.OrderStatusCancelled {
		eventType = event.OrderCancelled
	}
	return s.transit(ctx, order, status, eventType)
}

// transit 條件式更新狀態，取消時歸還庫存
func (s *OrderService) transit(ctx context.Context, order *model.Order, to model.OrderStatus, eventType event.OrderEventType) (*model.Order, error) {
	now := s.nowFn().UTC()
	if err := s.orders.UpdateOrderStatus(ctx, order.ID, order.Status, to, now); err != nil {
		return nil, mapRepoErr(err, "order")
	}
	from := order.Status
	order.ApplyLifecycle(to, now)

	if to == model.OrderStatusCancelled {
		s.restock(ctx, order)
	}

	log.Info().
		Str("order_number", order.OrderNumber).
		Str("from", string(from)).
		Str("to", string(to)).
		Msg("order status changed")

	s.publish(ctx, eventType, order)
	return order, nil
}

// restock 訂單已是取消狀態，歸還失敗只記錄
func (s *OrderService) restock(ctx context.Context, order *model.Order) {
	ctx = context.WithoutCancel(ctx)
	err := s.catalog.ExecTx(ctx, func(repo db.ICatalogRepository) error {
		for _, item := range order.Items {
			err := repo.AddProductStock(ctx, item.ProductID, item.Quantity)
			if errors.Is(err, db.ErrNotFound) {
				log.Warn().Str("order_number", order.OrderNumber).Str("product_id", item.ProductID.String()).Msg("skip restock of missing product")
				continue
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Error().Err(err).Str("order_number", order.OrderNumber).Msg("failed to restock cancelled order, manual repair required")
	}
}

var _ IOrderService = (*OrderService)(nil)
