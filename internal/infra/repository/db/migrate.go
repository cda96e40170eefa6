package db

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/RoyceAzure/lab/storefront/internal/domain/model"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

//go:embed migrations
var migrationFS embed.FS

// 各 store 使用不同的 migration 版本表，三個 store 可以放在同一個 database
var migrationTables = map[StoreName]string{
	StoreOrders:   "schema_migrations_orders",
	StoreProducts: "schema_migrations_products",
	StoreUsers:    "schema_migrations_users",
}

// storeModels mysql 沒有 sql migration，改用 AutoMigrate
var storeModels = map[StoreName][]any{
	StoreOrders:   {&model.Order{}, &model.OrderItem{}},
	StoreProducts: {&model.Product{}, &model.CartItem{}, &model.WishlistItem{}, &model.ProductReview{}},
	StoreUsers:    {&model.UserProfile{}, &model.Address{}},
}

// Migrate 對指定 store 執行 schema migration，冪等
func Migrate(ctx context.Context, store StoreName, driver string, conn *gorm.DB) error {
	log.Info().Str("store", string(store)).Str("driver", driver).Msg("start db migration")

	var err error
	switch driver {
	case "", DriverPostgres:
		err = runSQLMigration(ctx, store, conn)
	case DriverMySQL:
		models, ok := storeModels[store]
		if !ok {
			return fmt.Errorf("unknown store %q", store)
		}
		err = conn.WithContext(ctx).AutoMigrate(models...)
	default:
		err = fmt.Errorf("unsupported db driver %q", driver)
	}
	if err != nil {
		return fmt.Errorf("migrate %s: %w", store, err)
	}

	log.Info().Str("store", string(store)).Msg("finish db migration")
	return nil
}

func runSQLMigration(ctx context.Context, store StoreName, conn *gorm.DB) error {
	table, ok := migrationTables[store]
	if !ok {
		return fmt.Errorf("unknown store %q", store)
	}

	src, err := iofs.New(migrationFS, "migrations/"+string(store))
	if err != nil {
		return err
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	// 使用獨立的 *sql.Conn，migrate 關閉時不會關掉整個連線池
	sqlConn, err := sqlDB.Conn(ctx)
	if err != nil {
		return err
	}
	driver, err := postgres.WithConnection(ctx, sqlConn, &postgres.Config{MigrationsTable: table})
	if err != nil {
		sqlConn.Close()
		return err
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		driver.Close()
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
