package config

import (
	"fmt"
	"strings"

	"github.com/storefront-next/internal/logger"

	"github.com/spf13/viper"
)

// Config 应用配置结构
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	LocalStore LocalStoreConfig `mapstructure:"local_store"`
	Gateway    GatewayConfig    `mapstructure:"gateway"`
	Stock      StockConfig      `mapstructure:"stock"`
	Pricing    PricingConfig    `mapstructure:"pricing"`
	Queue      QueueConfig      `mapstructure:"queue"`
	UserJWT    JWTConfig        `mapstructure:"user_jwt"`
	CORS       CORSConfig       `mapstructure:"cors"`
	Session    SessionConfig    `mapstructure:"session"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug / release
}

// Addr 监听地址
func (c ServerConfig) Addr() string {
	return c.Host + ":" + c.Port
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level"` // debug / info / warn / error，空值按运行模式
	Dir        string `mapstructure:"dir"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// ToLoggerOptions 转换为 logger 配置
func (c LogConfig) ToLoggerOptions() logger.Options {
	return logger.Options{
		Level:      c.Level,
		Dir:        c.Dir,
		Filename:   c.Filename,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
	}
}

// DatabaseConfig 本地存储数据库配置
type DatabaseConfig struct {
	Driver string             `mapstructure:"driver"` // sqlite / postgres
	DSN    string             `mapstructure:"dsn"`
	Pool   DatabasePoolConfig `mapstructure:"pool"`
}

// DatabasePoolConfig 连接池配置
type DatabasePoolConfig struct {
	MaxOpenConns           int `mapstructure:"max_open_conns"`
	MaxIdleConns           int `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeSeconds int `mapstructure:"conn_max_lifetime_seconds"`
	ConnMaxIdleTimeSeconds int `mapstructure:"conn_max_idle_time_seconds"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// LocalStoreConfig 匿名购物车本地存储配置
type LocalStoreConfig struct {
	Backend    string `mapstructure:"backend"`     // database / redis
	QuotaBytes int64  `mapstructure:"quota_bytes"` // 0 表示不限制
	TTLHours   int    `mapstructure:"ttl_hours"`
}

// GatewayConfig 远端购物车网关配置
type GatewayConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	TimeoutMS int           `mapstructure:"timeout_ms"`
	Breaker   BreakerConfig `mapstructure:"breaker"`
}

// BreakerConfig 熔断器配置
type BreakerConfig struct {
	MaxRequests     uint32  `mapstructure:"max_requests"`
	IntervalSeconds int     `mapstructure:"interval_seconds"`
	TimeoutSeconds  int     `mapstructure:"timeout_seconds"`
	FailureRatio    float64 `mapstructure:"failure_ratio"`
	MinRequests     uint32  `mapstructure:"min_requests"`
}

// StockConfig 库存查询配置
type StockConfig struct {
	BaseURL     string `mapstructure:"base_url"`
	FieldPath   string `mapstructure:"field_path"` // gjson 路径
	Concurrency int    `mapstructure:"concurrency"`
	TimeoutMS   int    `mapstructure:"timeout_ms"`
}

// PricingConfig 运费与分期配置
type PricingConfig struct {
	FreeShippingThreshold string               `mapstructure:"free_shipping_threshold"`
	DefaultShipping       string               `mapstructure:"default_shipping"`
	ShippingTiers         []ShippingTierConfig `mapstructure:"shipping_tiers"`
	MinInstallment        string               `mapstructure:"min_installment"`
}

// ShippingTierConfig 按邮编首位数字划分的运费档位
type ShippingTierConfig struct {
	Digits string `mapstructure:"digits"` // 例如 "012"
	Amount string `mapstructure:"amount"`
}

// QueueConfig 异步队列配置
type QueueConfig struct {
	Enabled     bool           `mapstructure:"enabled"`
	Host        string         `mapstructure:"host"`
	Port        int            `mapstructure:"port"`
	Password    string         `mapstructure:"password"`
	DB          int            `mapstructure:"db"`
	Concurrency int            `mapstructure:"concurrency"`
	Queues      map[string]int `mapstructure:"queues"`
}

// JWTConfig JWT 配置
type JWTConfig struct {
	SecretKey string `mapstructure:"secret"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

// SessionConfig 购物车会话配置
type SessionConfig struct {
	IdleMinutes   int  `mapstructure:"idle_minutes"`
	CookieSecure  bool `mapstructure:"cookie_secure"`
	CookieMaxAgeH int  `mapstructure:"cookie_max_age_hours"`
}

// RateLimitConfig 购物车写接口限流（按会话计数，依赖 Redis）
type RateLimitConfig struct {
	WindowSeconds int `mapstructure:"window_seconds"`
	MaxRequests   int `mapstructure:"max_requests"`
}

// Load 从 config.yml 加载配置
func Load() *Config {
	return LoadFrom(".", "./", "../", "./etc")
}

// LoadFrom 从指定目录列表加载配置，找不到文件时回退到环境变量与默认值
func LoadFrom(paths ...string) *Config {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, path := range paths {
		v.AddConfigPath(path)
	}
	setDefaults(v)

	// 环境变量支持（例如 gateway.base_url -> GATEWAY_BASE_URL）
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		logger.Warnw("config_file_read_failed",
			"error", err,
			"fallback", "env_or_defaults",
		)
	} else {
		logger.Infow("config_file_loaded", "file", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		logger.Errorw("config_unmarshal_failed", "error", err)
		panic(fmt.Errorf("配置解析失败: %w", err))
	}
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8090")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("log.level", "")
	v.SetDefault("log.dir", "")
	v.SetDefault("log.filename", "storefront.log")
	v.SetDefault("log.max_size_mb", 50)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 14)
	v.SetDefault("log.compress", true)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "./db/local_store.db")
	v.SetDefault("database.pool.max_open_conns", 10)
	v.SetDefault("database.pool.max_idle_conns", 5)
	v.SetDefault("database.pool.conn_max_lifetime_seconds", 1800)
	v.SetDefault("database.pool.conn_max_idle_time_seconds", 600)
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "sf")
	v.SetDefault("local_store.backend", "database")
	v.SetDefault("local_store.quota_bytes", 5*1024*1024)
	v.SetDefault("local_store.ttl_hours", 24*30)
	v.SetDefault("gateway.base_url", "http://127.0.0.1:8080/api/v1")
	v.SetDefault("gateway.timeout_ms", 8000)
	v.SetDefault("gateway.breaker.max_requests", 1)
	v.SetDefault("gateway.breaker.interval_seconds", 60)
	v.SetDefault("gateway.breaker.timeout_seconds", 30)
	v.SetDefault("gateway.breaker.failure_ratio", 0.5)
	v.SetDefault("gateway.breaker.min_requests", 5)
	v.SetDefault("stock.base_url", "http://127.0.0.1:8080/api/v1/public")
	v.SetDefault("stock.field_path", "data.stock")
	v.SetDefault("stock.concurrency", 8)
	v.SetDefault("stock.timeout_ms", 3000)
	v.SetDefault("pricing.free_shipping_threshold", "200.00")
	v.SetDefault("pricing.default_shipping", "15.00")
	v.SetDefault("pricing.min_installment", "10.00")
	v.SetDefault("queue.enabled", false)
	v.SetDefault("queue.host", "127.0.0.1")
	v.SetDefault("queue.port", 6379)
	v.SetDefault("queue.password", "")
	v.SetDefault("queue.db", 1)
	v.SetDefault("queue.concurrency", 4)
	v.SetDefault("queue.queues", map[string]int{
		"default": 5,
		"low":     1,
	})
	v.SetDefault("user_jwt.secret", "user-change-me-in-production")
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{
		"Content-Type",
		"Authorization",
		"X-Requested-With",
		"X-Request-ID",
		"X-Session-ID",
	})
	v.SetDefault("cors.allow_credentials", true)
	v.SetDefault("cors.max_age", 600)
	v.SetDefault("session.idle_minutes", 120)
	v.SetDefault("session.cookie_secure", false)
	v.SetDefault("session.cookie_max_age_hours", 24*30)
	v.SetDefault("rate_limit.window_seconds", 60)
	v.SetDefault("rate_limit.max_requests", 120)
}
