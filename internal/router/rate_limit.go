package router

import (
	"context"
	"fmt"
	"strings"

	handlershared "github.com/storefront-next/internal/http/handlers/shared"
	"github.com/storefront-next/internal/http/response"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const defaultRateLimitMessage = "Too many cart updates. Please retry in %d seconds."

// RateLimitKeyFunc 生成限流 key 的函数
type RateLimitKeyFunc func(*gin.Context) string

// RateLimitRule 固定窗口限流规则，Message 可包含一个 %d 占位符（等待秒数）
type RateLimitRule struct {
	Prefix        string
	WindowSeconds int
	MaxRequests   int
	Message       string
}

func (r RateLimitRule) active() bool {
	return r.WindowSeconds > 0 && r.MaxRequests > 0
}

func (r RateLimitRule) key(raw string) string {
	if r.Prefix == "" {
		return raw
	}
	return fmt.Sprintf("%s:%s", r.Prefix, raw)
}

func (r RateLimitRule) message(waitSeconds int) string {
	format := strings.TrimSpace(r.Message)
	if format == "" {
		format = defaultRateLimitMessage
	}
	if strings.Contains(format, "%d") {
		return fmt.Sprintf(format, waitSeconds)
	}
	return format
}

// 计数与 TTL 原子返回，首次计数时设置窗口过期
var rateLimitScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
	redis.call("EXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("TTL", KEYS[1])
return {current, ttl}
`)

// allow 返回是否放行以及被拒绝时的等待秒数
func allow(ctx context.Context, client *redis.Client, rule RateLimitRule, key string) (bool, int, error) {
	values, err := rateLimitScript.Run(ctx, client, []string{key}, rule.WindowSeconds).Int64Slice()
	if err != nil {
		return true, 0, err
	}
	if len(values) < 2 || values[0] <= int64(rule.MaxRequests) {
		return true, 0, nil
	}
	wait := int(values[1])
	if wait < 1 {
		wait = rule.WindowSeconds
	}
	return false, wait, nil
}

// RateLimitMiddleware Redis 固定窗口限流，Redis 不可用时放行
func RateLimitMiddleware(client *redis.Client, rule RateLimitRule, keyFunc RateLimitKeyFunc) gin.HandlerFunc {
	if keyFunc == nil {
		keyFunc = KeyByIP
	}
	return func(c *gin.Context) {
		if client == nil || !rule.active() {
			c.Next()
			return
		}
		raw := strings.TrimSpace(keyFunc(c))
		if raw == "" {
			raw = c.ClientIP()
		}
		key := rule.key(raw)

		ok, wait, err := allow(c.Request.Context(), client, rule, key)
		if err != nil {
			handlershared.RequestLog(c).Warnw("rate_limit_unavailable", "key", key, "error", err)
		}
		if !ok {
			handlershared.RequestLog(c).Infow("rate_limit_rejected", "key", key, "retry_after", wait)
			response.TooManyRequests(c, rule.message(wait), wait)
			c.Abort()
			return
		}
		c.Next()
	}
}

// KeyByIP 使用 IP 作为限流 key
func KeyByIP(c *gin.Context) string {
	return c.ClientIP()
}

// KeyBySession 使用购物车会话ID作为限流 key，缺失时回退到 IP
func KeyBySession(c *gin.Context) string {
	if sessionID := handlershared.GetSessionID(c); sessionID != "" {
		return sessionID
	}
	return c.ClientIP()
}
