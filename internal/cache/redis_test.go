package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupMiniRedis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	Use(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "test")
	t.Cleanup(Reset)
	return mr
}

func TestDisabledCacheIsNoop(t *testing.T) {
	Reset()
	ctx := context.Background()
	if err := SetJSON(ctx, "k", map[string]int{"a": 1}, 0); err != nil {
		t.Fatalf("disabled set should not fail: %v", err)
	}
	var dest map[string]int
	hit, err := GetJSON(ctx, "k", &dest)
	if err != nil || hit {
		t.Fatalf("disabled get should miss, hit=%v err=%v", hit, err)
	}
}

func TestSetGetJSONWithPrefix(t *testing.T) {
	mr := setupMiniRedis(t)
	ctx := context.Background()
	if err := SetJSON(ctx, "cart:s1", []string{"a", "b"}, 0); err != nil {
		t.Fatalf("set json failed: %v", err)
	}
	if !mr.Exists("test:cart:s1") {
		t.Fatalf("expected prefixed key in redis, keys=%v", mr.Keys())
	}
	var dest []string
	hit, err := GetJSON(ctx, "cart:s1", &dest)
	if err != nil || !hit {
		t.Fatalf("expected hit, hit=%v err=%v", hit, err)
	}
	if len(dest) != 2 || dest[1] != "b" {
		t.Fatalf("unexpected value: %v", dest)
	}
	if err := Del(ctx, "cart:s1"); err != nil {
		t.Fatalf("del failed: %v", err)
	}
	if mr.Exists("test:cart:s1") {
		t.Fatalf("key should be deleted")
	}
}

func TestStockStateRoundTripAndTTL(t *testing.T) {
	mr := setupMiniRedis(t)
	ctx := context.Background()
	if err := SetStockState(ctx, "p1", 7); err != nil {
		t.Fatalf("set stock state failed: %v", err)
	}
	state, hit, err := GetStockState(ctx, "p1")
	if err != nil || !hit || state.Stock != 7 {
		t.Fatalf("unexpected stock state: %+v hit=%v err=%v", state, hit, err)
	}
	mr.FastForward(stockStateCacheTTL + 1)
	if _, hit, _ := GetStockState(ctx, "p1"); hit {
		t.Fatalf("stock state should expire")
	}
}
