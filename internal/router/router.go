package router

import (
	"github.com/storefront-next/internal/cache"
	"github.com/storefront-next/internal/config"
	publichandlers "github.com/storefront-next/internal/http/handlers/public"
	"github.com/storefront-next/internal/http/response"
	"github.com/storefront-next/internal/logger"
	"github.com/storefront-next/internal/metrics"
	"github.com/storefront-next/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	publicHandler := publichandlers.New(c)
	cartWriteRule := RateLimitRule{
		Prefix:        cache.BuildKey("rate:cart"),
		WindowSeconds: cfg.RateLimit.WindowSeconds,
		MaxRequests:   cfg.RateLimit.MaxRequests,
	}
	limitCartWrites := RateLimitMiddleware(cache.Client(), cartWriteRule, KeyBySession)

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(MetricsMiddleware())
	r.Use(CORSMiddleware(cfg.CORS))

	r.GET("/healthz", func(ctx *gin.Context) {
		if err := cache.Ping(ctx.Request.Context()); err != nil {
			response.Error(ctx, response.CodeInternal, "redis unavailable")
			return
		}
		response.Success(ctx, gin.H{"status": "ok", "sessions": c.Carts.Len()})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	apiV1 := r.Group("/api/v1")
	apiV1.Use(SessionMiddleware(cfg.Session))
	apiV1.Use(IdentityMiddleware(c.Authenticator))
	{
		cartGroup := apiV1.Group("/cart")
		{
			cartGroup.GET("", publicHandler.GetCart)
			cartGroup.POST("/items", limitCartWrites, publicHandler.AddItem)
			cartGroup.PUT("/items/:product_id", limitCartWrites, publicHandler.UpdateItem)
			cartGroup.DELETE("/items/:product_id", limitCartWrites, publicHandler.RemoveItem)
			cartGroup.DELETE("", limitCartWrites, publicHandler.ClearCart)
			cartGroup.POST("/refresh", limitCartWrites, publicHandler.RefreshCart)
		}
		apiV1.POST("/checkout/quote", publicHandler.Quote)
	}

	return r
}
