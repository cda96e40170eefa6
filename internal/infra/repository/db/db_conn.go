package db

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

type ConnConfig struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	// SlowThreshold 超過此時間的 sql 以 warn 記錄
	SlowThreshold time.Duration
}

// GetDbConn 依照 driver 開啟 gorm 連線並設定連線池
func GetDbConn(cf ConnConfig) (*gorm.DB, error) {
	dialector, err := dialectorFor(cf.Driver, cf.DSN)
	if err != nil {
		return nil, err
	}

	slow := cf.SlowThreshold
	if slow <= 0 {
		slow = 200 * time.Millisecond
	}

	conn, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger: logger.New(zerologWriter{logger: log.Logger}, logger.Config{
			SlowThreshold:             slow,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	if cf.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cf.MaxOpenConns)
	}
	if cf.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cf.MaxIdleConns)
	}
	if cf.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cf.ConnMaxLifetime)
	}
	return conn, nil
}

func dialectorFor(driver, dsn string) (gorm.Dialector, error) {
	if dsn == "" {
		return nil, fmt.Errorf("%w: empty dsn", ErrStoreNotConfigured)
	}
	switch driver {
	case "", DriverPostgres:
		return postgres.Open(dsn), nil
	case DriverMySQL:
		return mysql.Open(dsn), nil
	}
	return nil, fmt.Errorf("unsupported db driver %q", driver)
}

// zerologWriter 讓 gorm logger 輸出到 zerolog
type zerologWriter struct {
	logger zerolog.Logger
}

func (w zerologWriter) Printf(format string, args ...interface{}) {
	w.logger.Warn().Str("component", "gorm").Msgf(format, args...)
}
