package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

/*
把init config跟read config分開
init : 需要設置viper watch 與 onConfigChange
read : 一般讀取  需要使用讀寫鎖
*/
var configSingleton *ConfigSingleTon
var muonce sync.Once

const ConfigPathEnv = "STOREFRONT_CONFIG"

type ConfigSingleTon struct {
	Config *Config
	mu     sync.RWMutex
}

type Config struct {
	Env        string `mapstructure:"ENV"`
	ServerPort string `mapstructure:"SERVER_PORT"`
	LogLevel   string `mapstructure:"LOG_LEVEL"`

	OrdersDbDriver   string `mapstructure:"ORDERS_DB_DRIVER"`
	OrdersDbDSN      string `mapstructure:"ORDERS_DB_DSN"`
	ProductsDbDriver string `mapstructure:"PRODUCTS_DB_DRIVER"`
	ProductsDbDSN    string `mapstructure:"PRODUCTS_DB_DSN"`
	UsersDbDriver    string `mapstructure:"USERS_DB_DRIVER"`
	UsersDbDSN       string `mapstructure:"USERS_DB_DSN"`

	DbMaxOpenConns    int           `mapstructure:"DB_MAX_OPEN_CONNS"`
	DbMaxIdleConns    int           `mapstructure:"DB_MAX_IDLE_CONNS"`
	DbConnMaxLifetime time.Duration `mapstructure:"DB_CONN_MAX_LIFETIME"`
	DbAutoMigrate     bool          `mapstructure:"DB_AUTO_MIGRATE"`

	RedisAddr       string        `mapstructure:"REDIS_ADDR"`
	RedisPassword   string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB         int           `mapstructure:"REDIS_DB"`
	ProductCacheTTL time.Duration `mapstructure:"PRODUCT_CACHE_TTL"`
	CheckoutLockTTL time.Duration `mapstructure:"CHECKOUT_LOCK_TTL"`

	KafkaBrokers    string `mapstructure:"KAFKA_BROKERS"`
	KafkaOrderTopic string `mapstructure:"KAFKA_ORDER_TOPIC"`

	ElasticsearchURL          string `mapstructure:"ELASTICSEARCH_URL"`
	ElasticsearchProductIndex string `mapstructure:"ELASTICSEARCH_PRODUCT_INDEX"`

	AuthJWTSecret   string `mapstructure:"AUTH_JWT_SECRET"`
	AuthJWTAudience string `mapstructure:"AUTH_JWT_AUDIENCE"`
	AuthAdminRole   string `mapstructure:"AUTH_ADMIN_ROLE"`

	TaxRate               float64 `mapstructure:"TAX_RATE"`
	ShippingFee           float64 `mapstructure:"SHIPPING_FEE"`
	FreeShippingThreshold float64 `mapstructure:"FREE_SHIPPING_THRESHOLD"`
	Currency              string  `mapstructure:"CURRENCY"`

	CheckoutRateCapacity  int     `mapstructure:"CHECKOUT_RATE_CAPACITY"`
	CheckoutRatePerSecond float64 `mapstructure:"CHECKOUT_RATE_PER_SECOND"`

	CorsAllowedOrigins string `mapstructure:"CORS_ALLOWED_ORIGINS"`
}

var defaults = map[string]any{
	"ENV":                         "development",
	"SERVER_PORT":                 "8080",
	"LOG_LEVEL":                   "info",
	"ORDERS_DB_DRIVER":            "postgres",
	"ORDERS_DB_DSN":               "",
	"PRODUCTS_DB_DRIVER":          "postgres",
	"PRODUCTS_DB_DSN":             "",
	"USERS_DB_DRIVER":             "postgres",
	"USERS_DB_DSN":                "",
	"DB_MAX_OPEN_CONNS":           25,
	"DB_MAX_IDLE_CONNS":           5,
	"DB_CONN_MAX_LIFETIME":        "5m",
	"DB_AUTO_MIGRATE":             true,
	"REDIS_ADDR":                  "",
	"REDIS_PASSWORD":              "",
	"REDIS_DB":                    0,
	"PRODUCT_CACHE_TTL":           "5m",
	"CHECKOUT_LOCK_TTL":           "30s",
	"KAFKA_BROKERS":               "",
	"KAFKA_ORDER_TOPIC":           "storefront.orders",
	"ELASTICSEARCH_URL":           "",
	"ELASTICSEARCH_PRODUCT_INDEX": "products",
	"AUTH_JWT_SECRET":             "",
	"AUTH_JWT_AUDIENCE":           "authenticated",
	"AUTH_ADMIN_ROLE":             "service_role",
	"TAX_RATE":                    0.05,
	"SHIPPING_FEE":                50,
	"FREE_SHIPPING_THRESHOLD":     0,
	"CURRENCY":                    "INR",
	"CHECKOUT_RATE_CAPACITY":      5,
	"CHECKOUT_RATE_PER_SECOND":    0.2,
	"CORS_ALLOWED_ORIGINS":        "*",
}

func GetConfig() *Config {
	initConfig()
	configSingleton.mu.RLock()
	defer configSingleton.mu.RUnlock()
	return configSingleton.Config
}

func initConfig() {
	muonce.Do(func() {
		configSingleton = &ConfigSingleTon{}
		path := ConfigPath()
		v, cf, err := load(path)
		if err != nil {
			log.Fatal().Err(err).Str("path", path).Msg("error read config")
		}
		configSingleton.Config = cf

		if v.ConfigFileUsed() == "" {
			return
		}
		v.OnConfigChange(func(e fsnotify.Event) {
			_, cf, err := load(path)
			if err != nil {
				log.Error().Err(err).Str("file", e.Name).Msg("failed to reload config file, keep previous config")
				return
			}
			configSingleton.mu.Lock()
			configSingleton.Config = cf
			configSingleton.mu.Unlock()
			log.Info().Str("file", e.Name).Msg("config reloaded")
		})
		v.WatchConfig()
	})
}

// ConfigPath STOREFRONT_CONFIG 未設定時讀目前目錄的 .env
func ConfigPath() string {
	if p := os.Getenv(ConfigPathEnv); p != "" {
		return p
	}
	return ".env"
}

/*
單純回傳錯誤  由外部決定要不要Fatal
設定檔不存在時只讀環境變數
*/
func LoadConfig(path string) (*Config, error) {
	_, cf, err := load(path)
	return cf, err
}

func load(path string) (*viper.Viper, *Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			v.SetConfigType("env")
			if err := v.ReadInConfig(); err != nil {
				return nil, nil, fmt.Errorf("read config file %s: %w", path, err)
			}
		}
	}

	cf := &Config{}
	if err := v.Unmarshal(cf); err != nil {
		return nil, nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return v, cf, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.AuthJWTSecret == "" {
		errs = append(errs, errors.New("AUTH_JWT_SECRET is required"))
	}
	if c.TaxRate < 0 {
		errs = append(errs, errors.New("TAX_RATE must not be negative"))
	}
	if c.ShippingFee < 0 || c.FreeShippingThreshold < 0 {
		errs = append(errs, errors.New("SHIPPING_FEE and FREE_SHIPPING_THRESHOLD must not be negative"))
	}
	for _, driver := range []string{c.OrdersDbDriver, c.ProductsDbDriver, c.UsersDbDriver} {
		if driver != "postgres" && driver != "mysql" {
			errs = append(errs, fmt.Errorf("unsupported db driver %q", driver))
		}
	}
	return errors.Join(errs...)
}

func (c *Config) IsDebug() bool {
	return c.Env == "debug"
}

func (c *Config) Brokers() []string {
	return splitList(c.KafkaBrokers)
}

func (c *Config) AllowedOrigins() []string {
	return splitList(c.CorsAllowedOrigins)
}

func splitList(s string) []string {
	var res []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			res = append(res, part)
		}
	}
	return res
}
