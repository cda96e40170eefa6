package db

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

type StoreName string

const (
	StoreOrders   StoreName = "orders"
	StoreProducts StoreName = "products"
	StoreUsers    StoreName = "users"
)

var AllStores = []StoreName{StoreOrders, StoreProducts, StoreUsers}

const defaultProbeTimeout = 3 * time.Second

// ProbeFunc 對單一資料庫做健康檢查
type ProbeFunc func(ctx context.Context, conn *gorm.DB) error

// ConnectionStatus 各資料庫連線狀態，互不影響
type ConnectionStatus struct {
	Orders   bool `json:"orders"`
	Products bool `json:"products"`
	Users    bool `json:"user"`
}

func (s ConnectionStatus) AllUp() bool {
	return s.Orders && s.Products && s.Users
}

// Router 依 store 名稱取得對應的 gorm 連線
type Router struct {
	handles      map[StoreName]*gorm.DB
	probe        ProbeFunc
	probeTimeout time.Duration
}

type RouterOption func(*Router)

func WithProbe(probe ProbeFunc) RouterOption {
	return func(r *Router) {
		r.probe = probe
	}
}

func WithProbeTimeout(d time.Duration) RouterOption {
	return func(r *Router) {
		r.probeTimeout = d
	}
}

func NewRouter(handles map[StoreName]*gorm.DB, opts ...RouterOption) *Router {
	r := &Router{
		handles:      make(map[StoreName]*gorm.DB, len(handles)),
		probe:        pingProbe,
		probeTimeout: defaultProbeTimeout,
	}
	for name, conn := range handles {
		if conn != nil {
			r.handles[name] = conn
		}
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Router) Handle(name StoreName) (*gorm.DB, error) {
	conn, ok := r.handles[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStoreNotConfigured, name)
	}
	return conn, nil
}

func (r *Router) Orders() (*gorm.DB, error) {
	return r.Handle(StoreOrders)
}

func (r *Router) Products() (*gorm.DB, error) {
	return r.Handle(StoreProducts)
}

func (r *Router) Users() (*gorm.DB, error) {
	return r.Handle(StoreUsers)
}

// Validate 確認三個 store 都有設定
func (r *Router) Validate() error {
	var errs []error
	for _, name := range AllStores {
		if _, err := r.Handle(name); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// CheckConnections 同時檢查所有 store，單一 store 失敗不影響其他結果
func (r *Router) CheckConnections(ctx context.Context) ConnectionStatus {
	var (
		mu     sync.Mutex
		result = make(map[StoreName]bool, len(AllStores))
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, name := range AllStores {
		g.Go(func() error {
			ok := r.check(gctx, name)
			mu.Lock()
			result[name] = ok
			mu.Unlock()
			// 不回傳錯誤，避免 errgroup 取消其他 probe
			return nil
		})
	}
	_ = g.Wait()

	return ConnectionStatus{
		Orders:   result[StoreOrders],
		Products: result[StoreProducts],
		Users:    result[StoreUsers],
	}
}

func (r *Router) check(ctx context.Context, name StoreName) bool {
	conn, err := r.Handle(name)
	if err != nil {
		log.Warn().Str("store", string(name)).Err(err).Msg("db connection check skipped")
		return false
	}

	pctx, cancel := context.WithTimeout(ctx, r.probeTimeout)
	defer cancel()

	if err := r.probe(pctx, conn); err != nil {
		log.Error().Str("store", string(name)).Err(err).Msg("db connection check failed")
		return false
	}
	return true
}

// Close 關閉所有連線池
func (r *Router) Close() error {
	var errs []error
	for name, conn := range r.handles {
		sqlDB, err := conn.DB()
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		if err := sqlDB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

func pingProbe(ctx context.Context, conn *gorm.DB) error {
	var one int
	return conn.WithContext(ctx).Raw("SELECT 1").Scan(&one).Error
}
