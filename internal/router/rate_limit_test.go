package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	handlershared "github.com/storefront-next/internal/http/handlers/shared"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func TestKeyBySession(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", nil)
	c.Request.RemoteAddr = "1.2.3.4:5678"

	if key := KeyBySession(c); key != "1.2.3.4" {
		t.Fatalf("key without session want 1.2.3.4 got %s", key)
	}
	c.Set(handlershared.SessionIDKey, "sess-1")
	if key := KeyBySession(c); key != "sess-1" {
		t.Fatalf("key want sess-1 got %s", key)
	}
}

func TestRateLimitMiddlewareWithoutClient(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(RateLimitMiddleware(nil, RateLimitRule{WindowSeconds: 60, MaxRequests: 1}, KeyByIP))
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status want 200 got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"ok":true`) {
		t.Fatalf("expected handler response body, got %s", w.Body.String())
	}
}

func TestRateLimitMiddlewareBlocksAfterLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(handlershared.SessionIDKey, "sess-1")
		c.Next()
	})
	r.Use(RateLimitMiddleware(client, RateLimitRule{Prefix: "sf:rate:cart", WindowSeconds: 60, MaxRequests: 2}, KeyBySession))
	r.POST("/cart/items", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status_code": 0})
	})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/cart/items", nil))
		var resp struct {
			StatusCode int    `json:"status_code"`
			Msg        string `json:"msg"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshal response failed: %v", err)
		}
		codes = append(codes, resp.StatusCode)
		if i == 2 {
			if !strings.Contains(resp.Msg, "60 seconds") {
				t.Fatalf("unexpected limit message: %s", resp.Msg)
			}
			if w.Header().Get("Retry-After") != "60" {
				t.Fatalf("retry-after header want 60 got %q", w.Header().Get("Retry-After"))
			}
		}
	}
	if codes[0] != 0 || codes[1] != 0 || codes[2] != 429 {
		t.Fatalf("unexpected status codes: %v", codes)
	}
	if !mr.Exists("sf:rate:cart:sess-1") {
		t.Fatalf("rate limit key should be namespaced by session")
	}
}

func TestRateLimitRuleMessage(t *testing.T) {
	cases := []struct {
		name string
		rule RateLimitRule
		want string
	}{
		{name: "default", rule: RateLimitRule{}, want: "Too many cart updates. Please retry in 30 seconds."},
		{name: "custom with wait", rule: RateLimitRule{Message: "Slow down for %d s"}, want: "Slow down for 30 s"},
		{name: "custom plain", rule: RateLimitRule{Message: "Slow down"}, want: "Slow down"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.rule.message(30); got != tc.want {
				t.Fatalf("message want %q got %q", tc.want, got)
			}
		})
	}
}

func TestRateLimitMiddlewareFailsOpen(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	r := gin.New()
	r.Use(RateLimitMiddleware(client, RateLimitRule{WindowSeconds: 60, MaxRequests: 1}, KeyBySession))
	r.POST("/cart/items", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status_code": 0})
	})
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/cart/items", nil))
		if !strings.Contains(w.Body.String(), `"status_code":0`) {
			t.Fatalf("request %d should pass when redis is down, got %s", i, w.Body.String())
		}
	}
}
