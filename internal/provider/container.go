package provider

import (
	"net/http"
	"strings"
	"time"

	"github.com/storefront-next/internal/auth"
	"github.com/storefront-next/internal/cache"
	"github.com/storefront-next/internal/cart"
	"github.com/storefront-next/internal/config"
	"github.com/storefront-next/internal/constants"
	"github.com/storefront-next/internal/gateway"
	"github.com/storefront-next/internal/localstore"
	"github.com/storefront-next/internal/logger"
	"github.com/storefront-next/internal/models"
	"github.com/storefront-next/internal/notify"
	"github.com/storefront-next/internal/pricing"
	"github.com/storefront-next/internal/queue"
	"github.com/storefront-next/internal/repository"
	"github.com/storefront-next/internal/stock"

	"gorm.io/gorm"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	DB          *gorm.DB
	QueueClient *queue.Client

	// Repositories
	StoreEntryRepo repository.StoreEntryRepository

	// Services
	LocalStore    *localstore.Store
	Gateway       *gateway.Client
	StockLookup   *stock.Lookup
	Pricing       *pricing.Calculator
	Authenticator auth.Authenticator
	Notifier      notify.Notifier
	Carts         *cart.Registry
}

// NewContainer 初始化容器，db 为空时本地存储回退到 Redis
func NewContainer(cfg *config.Config, db *gorm.DB) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		DB:          db,
		QueueClient: queueClient,
	}
	c.initRepositories()
	c.initServices()
	return c
}

func (c *Container) initRepositories() {
	if c.DB != nil {
		c.StoreEntryRepo = repository.NewStoreEntryRepository(c.DB)
	}
}

func (c *Container) initServices() {
	cfg := c.Config
	c.LocalStore = localstore.New(c.buildLocalBackend())

	c.Gateway = gateway.NewClient(gateway.Options{
		BaseURL: cfg.Gateway.BaseURL,
		Timeout: time.Duration(cfg.Gateway.TimeoutMS) * time.Millisecond,
		Breaker: gateway.BreakerSettings{
			Name:         "remote_cart",
			MaxRequests:  cfg.Gateway.Breaker.MaxRequests,
			Interval:     time.Duration(cfg.Gateway.Breaker.IntervalSeconds) * time.Second,
			Timeout:      time.Duration(cfg.Gateway.Breaker.TimeoutSeconds) * time.Second,
			FailureRatio: cfg.Gateway.Breaker.FailureRatio,
			MinRequests:  cfg.Gateway.Breaker.MinRequests,
		},
	})

	source := stock.NewHTTPSource(
		cfg.Stock.BaseURL,
		cfg.Stock.FieldPath,
		time.Duration(cfg.Stock.TimeoutMS)*time.Millisecond,
		&http.Client{},
	)
	c.StockLookup = stock.NewLookup(source, cfg.Stock.Concurrency)

	rules, err := pricing.RulesFromConfig(cfg.Pricing)
	if err != nil {
		logger.Warnw("provider_pricing_rules_invalid", "error", err, "fallback", "defaults")
		rules = pricing.DefaultRules()
	}
	c.Pricing = pricing.NewCalculator(rules)

	c.Authenticator = auth.NewJWTAuthenticator(cfg.UserJWT.SecretKey)

	notifiers := notify.Multi{notify.LogNotifier{}}
	if c.QueueClient.Enabled() {
		notifiers = append(notifiers, notify.NewQueueNotifier(c.QueueClient))
	}
	c.Notifier = notifiers

	gw := c.Gateway
	c.Carts = cart.NewRegistry(cart.Deps{
		Store: c.LocalStore,
		Gateway: func(identity auth.Identity) gateway.Gateway {
			return gw.WithToken(identity.Token)
		},
		Stock:    c.StockLookup,
		Pricing:  c.Pricing,
		Notifier: c.Notifier,
		Queue:    c.QueueClient,
	}, time.Duration(cfg.Session.IdleMinutes)*time.Minute)
}

func (c *Container) buildLocalBackend() localstore.Backend {
	cfg := c.Config.LocalStore
	ttl := time.Duration(cfg.TTLHours) * time.Hour
	backend := strings.ToLower(strings.TrimSpace(cfg.Backend))
	if backend == constants.LocalStoreBackendRedis || c.StoreEntryRepo == nil {
		if client := cache.Client(); client != nil {
			return localstore.NewRedisBackend(client, ttl, cfg.QuotaBytes)
		}
		logger.Warnw("provider_local_store_redis_unavailable", "fallback", constants.LocalStoreBackendDatabase)
	}
	if c.StoreEntryRepo == nil {
		logger.Errorw("provider_local_store_unavailable")
		return nil
	}
	return localstore.NewDBBackend(c.StoreEntryRepo, cfg.QuotaBytes, ttl)
}

// OpenDatabase 按配置打开本地存储数据库并迁移
func OpenDatabase(cfg *config.Config) (*gorm.DB, error) {
	db, err := models.OpenDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}, cfg.Server.Mode == "debug")
	if err != nil {
		return nil, err
	}
	if err := models.AutoMigrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Close 释放容器持有的资源
func (c *Container) Close() {
	if c == nil {
		return
	}
	if c.Carts != nil {
		c.Carts.Close()
	}
	if err := c.QueueClient.Close(); err != nil {
		logger.Warnw("provider_close_queue_client_failed", "error", err)
	}
	cache.Reset()
	if c.DB != nil {
		if sqlDB, err := c.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}
