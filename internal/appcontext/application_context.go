package appcontext

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/RoyceAzure/lab/storefront/internal/api"
	"github.com/RoyceAzure/lab/storefront/internal/api/handler"
	"github.com/RoyceAzure/lab/storefront/internal/config"
	"github.com/RoyceAzure/lab/storefront/internal/infra/auth"
	"github.com/RoyceAzure/lab/storefront/internal/infra/event"
	"github.com/RoyceAzure/lab/storefront/internal/infra/repository/db"
	"github.com/RoyceAzure/lab/storefront/internal/infra/repository/redis_decorator"
	"github.com/RoyceAzure/lab/storefront/internal/infra/repository/redis_repo"
	"github.com/RoyceAzure/lab/storefront/internal/infra/search"
	"github.com/RoyceAzure/lab/storefront/internal/ratelimit"
	"github.com/RoyceAzure/lab/storefront/internal/service"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const redisKeyPrefix = "storefront"

type ApplicationContext struct {
	Cf     *config.Config
	Logger zerolog.Logger

	DbRouter    *db.Router
	RedisClient *redis.Client
	KafkaWriter *kafka.Writer

	OrderRepo   db.IOrderRepository
	CatalogRepo db.ICatalogRepository
	UserRepo    db.IUserRepository

	Verifier        auth.IVerifier
	CheckoutLocker  redis_repo.ICheckoutLocker
	CheckoutLimiter ratelimit.Limiter
	Publisher       event.IOrderEventPublisher
	Searcher        search.IProductSearcher

	ProductService  service.IProductService
	CartService     service.ICartService
	WishlistService service.IWishlistService
	OrderService    service.IOrderService
	UserService     service.IUserService

	Server *api.Server
}

func NewApplicationContext(ctx context.Context, cf *config.Config) (*ApplicationContext, error) {
	if err := cf.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	app := ApplicationContext{
		Cf: cf,
	}
	app.setUpLogger()

	if err := app.Init(ctx); err != nil {
		// 已建立的連線要釋放
		app.closeResources()
		return nil, err
	}
	return &app, nil
}

func (app *ApplicationContext) Init(ctx context.Context) error {
	steps := []struct {
		name string
		fn   func(ctx context.Context) error
	}{
		{"database", app.setUpDb},
		{"redis", app.setUpRedis},
		{"repositories", app.setUpRepositories},
		{"checkout guard", app.setUpCheckoutGuard},
		{"event publisher", app.setUpPublisher},
		{"product search", app.setUpSearch},
		{"token verifier", app.setUpVerifier},
		{"services", app.setUpServices},
		{"handlers", app.setUpServer},
	}
	for _, step := range steps {
		log.Info().Str("step", step.name).Msg("start setup")
		if err := step.fn(ctx); err != nil {
			return fmt.Errorf("setup %s: %w", step.name, err)
		}
		log.Info().Str("step", step.name).Msg("finish setup")
	}
	return nil
}

func (app *ApplicationContext) setUpLogger() {
	app.Logger = newLogger(app.Cf, os.Stdout)
	log.Logger = app.Logger
	zerolog.SetGlobalLevel(app.Logger.GetLevel())
}

// newLogger debug 環境輸出易讀格式，其餘輸出 JSON
func newLogger(cf *config.Config, out io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cf.LogLevel)
	if err != nil || cf.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	if cf.IsDebug() {
		return zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}).
			Level(level).With().Timestamp().Caller().Logger()
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

func (app *ApplicationContext) setUpDb(ctx context.Context) error {
	stores := []struct {
		name   db.StoreName
		driver string
		dsn    string
	}{
		{db.StoreOrders, app.Cf.OrdersDbDriver, app.Cf.OrdersDbDSN},
		{db.StoreProducts, app.Cf.ProductsDbDriver, app.Cf.ProductsDbDSN},
		{db.StoreUsers, app.Cf.UsersDbDriver, app.Cf.UsersDbDSN},
	}

	handles := make(map[db.StoreName]*gorm.DB, len(stores))
	for _, s := range stores {
		conn, err := db.GetDbConn(db.ConnConfig{
			Driver:          s.driver,
			DSN:             s.dsn,
			MaxOpenConns:    app.Cf.DbMaxOpenConns,
			MaxIdleConns:    app.Cf.DbMaxIdleConns,
			ConnMaxLifetime: app.Cf.DbConnMaxLifetime,
		})
		if err != nil {
			app.DbRouter = db.NewRouter(handles)
			return fmt.Errorf("connect %s store: %w", s.name, err)
		}
		handles[s.name] = conn

		if app.Cf.DbAutoMigrate {
			if err := db.Migrate(ctx, s.name, s.driver, conn); err != nil {
				app.DbRouter = db.NewRouter(handles)
				return err
			}
		}
	}

	app.DbRouter = db.NewRouter(handles)
	return app.DbRouter.Validate()
}

// setUpRedis 沒有設定 REDIS_ADDR 時不使用 redis
func (app *ApplicationContext) setUpRedis(ctx context.Context) error {
	if app.Cf.RedisAddr == "" {
		log.Warn().Msg("REDIS_ADDR not set, product cache disabled and checkout guard runs in process")
		return nil
	}
	client, err := redis_repo.NewRedisClient(ctx, app.Cf.RedisAddr,
		redis_repo.WithPassword(app.Cf.RedisPassword),
		redis_repo.WithDB(app.Cf.RedisDB),
	)
	if err != nil {
		return err
	}
	app.RedisClient = client
	return nil
}

func (app *ApplicationContext) setUpRepositories(ctx context.Context) error {
	ordersDb, err := app.DbRouter.Orders()
	if err != nil {
		return err
	}
	productsDb, err := app.DbRouter.Products()
	if err != nil {
		return err
	}
	usersDb, err := app.DbRouter.Users()
	if err != nil {
		return err
	}

	app.OrderRepo = db.NewOrderRepo(ordersDb)
	app.UserRepo = db.NewUserRepo(usersDb)

	var catalog db.ICatalogRepository = db.NewCatalogRepo(productsDb)
	if app.RedisClient != nil {
		cache := redis_repo.NewProductCache(app.RedisClient, redisKeyPrefix, app.Cf.ProductCacheTTL)
		catalog = redis_decorator.NewCacheAsideCatalogRepo(catalog, cache)
	}
	app.CatalogRepo = catalog
	return nil
}

// setUpCheckoutGuard redis 可用時鎖與限流跨 instance 共享，限流在 redis 出錯時退回本機 bucket
func (app *ApplicationContext) setUpCheckoutGuard(ctx context.Context) error {
	limitCfg := ratelimit.Config{
		Capacity:      app.Cf.CheckoutRateCapacity,
		RatePerSecond: app.Cf.CheckoutRatePerSecond,
	}
	local := ratelimit.NewLocalTokenBucket(limitCfg)

	if app.RedisClient == nil {
		app.CheckoutLocker = redis_repo.NewLocalCheckoutLocker(app.Cf.CheckoutLockTTL)
		app.CheckoutLimiter = local
		return nil
	}
	app.CheckoutLocker = redis_repo.NewRedisCheckoutLocker(app.RedisClient, app.Cf.CheckoutLockTTL)
	app.CheckoutLimiter = ratelimit.NewFallbackLimiter(
		ratelimit.NewRedisTokenBucket(app.RedisClient, redisKeyPrefix, limitCfg),
		local,
	)
	return nil
}

func (app *ApplicationContext) setUpPublisher(ctx context.Context) error {
	brokers := app.Cf.Brokers()
	if len(brokers) == 0 {
		log.Warn().Msg("KAFKA_BROKERS not set, order events are dropped")
		app.Publisher = event.NopPublisher{}
		return nil
	}
	app.KafkaWriter = event.NewKafkaWriter(event.WriterConfig{
		Brokers: brokers,
		Topic:   app.Cf.KafkaOrderTopic,
	})
	app.Publisher = event.NewKafkaOrderPublisher(app.KafkaWriter)
	return nil
}

// setUpSearch 索引建立失敗不影響啟動，搜尋改用資料庫
func (app *ApplicationContext) setUpSearch(ctx context.Context) error {
	if app.Cf.ElasticsearchURL == "" {
		return nil
	}
	client, err := search.NewElasticClient(app.Cf.ElasticsearchURL)
	if err != nil {
		log.Warn().Err(err).Str("url", app.Cf.ElasticsearchURL).Msg("elasticsearch unavailable, search uses database")
		return nil
	}
	searcher := search.NewElasticProductSearcher(client, app.Cf.ElasticsearchProductIndex)
	ictx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := searcher.EnsureIndex(ictx); err != nil {
		log.Warn().Err(err).Str("index", app.Cf.ElasticsearchProductIndex).Msg("failed to ensure product index")
	}
	app.Searcher = searcher
	return nil
}

func (app *ApplicationContext) setUpVerifier(ctx context.Context) error {
	verifier, err := auth.NewJWTVerifier(app.Cf.AuthJWTSecret, app.Cf.AuthJWTAudience, app.Cf.AuthAdminRole)
	if err != nil {
		return err
	}
	app.Verifier = verifier
	return nil
}

func pricingPolicy(cf *config.Config) service.PricingPolicy {
	policy := service.DefaultPricingPolicy()
	policy.TaxRate = decimal.NewFromFloat(cf.TaxRate)
	policy.ShippingFee = decimal.NewFromFloat(cf.ShippingFee)
	policy.FreeShippingThreshold = decimal.NewFromFloat(cf.FreeShippingThreshold)
	if cf.Currency != "" {
		policy.Currency = cf.Currency
	}
	return policy
}

func (app *ApplicationContext) setUpServices(ctx context.Context) error {
	app.ProductService = service.NewProductService(app.CatalogRepo, app.Searcher)
	app.CartService = service.NewCartService(app.CatalogRepo)
	app.WishlistService = service.NewWishlistService(app.CatalogRepo)
	app.UserService = service.NewUserService(app.UserRepo)
	app.OrderService = service.NewOrderService(
		app.OrderRepo,
		app.CatalogRepo,
		app.UserRepo,
		app.CheckoutLocker,
		app.Publisher,
		pricingPolicy(app.Cf),
	)
	return nil
}

func (app *ApplicationContext) setUpServer(ctx context.Context) error {
	app.Server = api.NewServer(
		handler.NewHealthHandler(app.DbRouter),
		handler.NewProductHandler(app.ProductService),
		handler.NewCartHandler(app.CartService, app.WishlistService),
		handler.NewOrderHandler(app.OrderService),
		handler.NewUserHandler(app.UserService),
	)
	return nil
}

func (app *ApplicationContext) closeResources() error {
	var errs []error
	if app.Publisher != nil {
		if err := app.Publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close publisher: %w", err))
		}
	} else if app.KafkaWriter != nil {
		if err := app.KafkaWriter.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close kafka writer: %w", err))
		}
	}
	if app.RedisClient != nil {
		if err := app.RedisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if app.DbRouter != nil {
		if err := app.DbRouter.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close databases: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Shutdown 在 ctx 到期前關閉所有外部連線
func (app *ApplicationContext) Shutdown(ctx context.Context) error {
	log.Info().Msg("start application shutdown")

	done := make(chan error, 1)
	go func() {
		done <- app.closeResources()
	}()

	select {
	case err := <-done:
		if err != nil {
			return err
		}
		log.Info().Msg("application shutdown complete")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("application shutdown: %w", ctx.Err())
	}
}
