package stock

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/storefront-next/internal/cache"
	"github.com/storefront-next/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestFetchStocksFailureIsolatedToOneID(t *testing.T) {
	source := SourceFunc(func(ctx context.Context, productID string) (int, error) {
		switch productID {
		case "a":
			return 5, nil
		case "b":
			return 0, errors.New("boom")
		default:
			return 2, nil
		}
	})
	stocks := NewLookup(source, 2).FetchStocks(context.Background(), []string{"a", "b", "c"})
	if stocks["a"] != 5 || stocks["b"] != 0 || stocks["c"] != 2 {
		t.Fatalf("unexpected stocks: %+v", stocks)
	}
	if len(stocks) != 3 {
		t.Fatalf("every id should have an entry, got %+v", stocks)
	}
}

func TestFetchStocksRespectsConcurrencyLimit(t *testing.T) {
	var inflight, peak int32
	source := SourceFunc(func(ctx context.Context, productID string) (int, error) {
		n := atomic.AddInt32(&inflight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&inflight, -1)
		return 1, nil
	})
	ids := []string{"1", "2", "3", "4", "5", "6", "7", "8"}
	stocks := NewLookup(source, 3).FetchStocks(context.Background(), ids)
	if len(stocks) != len(ids) {
		t.Fatalf("unexpected stock count: %d", len(stocks))
	}
	if atomic.LoadInt32(&peak) > 3 {
		t.Fatalf("concurrency limit exceeded: %d", peak)
	}
}

func TestAnnotateWritesAvailableStock(t *testing.T) {
	source := SourceFunc(func(ctx context.Context, productID string) (int, error) {
		return len(productID), nil
	})
	lines := []models.LineItem{{ProductID: "ab", Quantity: 1}, {ProductID: "abcd", Quantity: 1}}
	annotated := NewLookup(source, 0).Annotate(context.Background(), lines)
	if annotated[0].AvailableStock != 2 || annotated[1].AvailableStock != 4 {
		t.Fatalf("unexpected annotation: %+v", annotated)
	}
	if lines[0].AvailableStock != 0 {
		t.Fatalf("input lines should not be mutated")
	}
}

func TestHTTPSourceReadsConfiguredPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/public/products/p1":
			_, _ = io.WriteString(w, `{"status_code":0,"data":{"stock":7}}`)
		case "/public/products/p2":
			_, _ = io.WriteString(w, `{"status_code":0,"data":{"stock":"many"}}`)
		case "/public/products/p3":
			_, _ = io.WriteString(w, `{"status_code":0,"data":{}}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	source := NewHTTPSource(srv.URL+"/public/", "", time.Second, nil)
	ctx := context.Background()
	if qty, err := source.FetchStock(ctx, "p1"); err != nil || qty != 7 {
		t.Fatalf("unexpected p1 result: qty=%d err=%v", qty, err)
	}
	if _, err := source.FetchStock(ctx, "p2"); !errors.Is(err, ErrStockUnavailable) {
		t.Fatalf("non numeric stock should fail, got %v", err)
	}
	if _, err := source.FetchStock(ctx, "p3"); !errors.Is(err, ErrStockUnavailable) {
		t.Fatalf("missing stock should fail, got %v", err)
	}
	if _, err := source.FetchStock(ctx, "missing"); err == nil {
		t.Fatalf("404 should fail")
	}

	stocks := NewLookup(source, 4).FetchStocks(ctx, []string{"p1", "p2", "missing"})
	if stocks["p1"] != 7 || stocks["p2"] != 0 || stocks["missing"] != 0 {
		t.Fatalf("unexpected stocks: %+v", stocks)
	}
}

func TestFetchStocksUsesCache(t *testing.T) {
	mr := miniredis.RunT(t)
	cache.Use(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "test")
	t.Cleanup(cache.Reset)

	var calls int32
	source := SourceFunc(func(ctx context.Context, productID string) (int, error) {
		atomic.AddInt32(&calls, 1)
		if productID == "bad" {
			return 0, errors.New("down")
		}
		return 9, nil
	})
	lookup := NewLookup(source, 2)
	ctx := context.Background()
	lookup.FetchStocks(ctx, []string{"good", "bad"})
	stocks := lookup.FetchStocks(ctx, []string{"good", "bad"})
	if stocks["good"] != 9 || stocks["bad"] != 0 {
		t.Fatalf("unexpected stocks: %+v", stocks)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("successful lookups should be cached and failures retried, calls=%d", got)
	}
}
