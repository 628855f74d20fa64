package stock

import (
	"context"
	"strings"
	"sync"

	"github.com/storefront-next/internal/cache"
	"github.com/storefront-next/internal/logger"
	"github.com/storefront-next/internal/metrics"
	"github.com/storefront-next/internal/models"

	"golang.org/x/sync/errgroup"
)

const defaultConcurrency = 8

// Lookup 并发查询多个商品库存，单个失败按 0 处理
type Lookup struct {
	source      Source
	concurrency int
}

// NewLookup 创建库存查询器
func NewLookup(source Source, concurrency int) *Lookup {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Lookup{source: source, concurrency: concurrency}
}

// FetchStocks 返回每个商品的可用库存
func (l *Lookup) FetchStocks(ctx context.Context, productIDs []string) map[string]int {
	stocks := make(map[string]int, len(productIDs))
	if l == nil || l.source == nil || len(productIDs) == 0 {
		for _, id := range productIDs {
			stocks[id] = 0
		}
		return stocks
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)
	seen := make(map[string]struct{}, len(productIDs))
	for _, id := range productIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		productID := id
		g.Go(func() error {
			qty := l.fetchOne(gctx, productID)
			mu.Lock()
			stocks[productID] = qty
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return stocks
}

func (l *Lookup) fetchOne(ctx context.Context, productID string) int {
	if strings.TrimSpace(productID) == "" {
		return 0
	}
	if state, hit, err := cache.GetStockState(ctx, productID); err == nil && hit {
		return state.Stock
	}
	qty, err := l.source.FetchStock(ctx, productID)
	if err != nil {
		metrics.IncStockLookupFailure()
		logger.Warnw("stock_lookup_failed", "product_id", productID, "error", err)
		return 0
	}
	if err := cache.SetStockState(ctx, productID, qty); err != nil {
		logger.Debugw("stock_cache_set_failed", "product_id", productID, "error", err)
	}
	return qty
}

// Annotate 返回写入 AvailableStock 后的行副本
func (l *Lookup) Annotate(ctx context.Context, lines []models.LineItem) []models.LineItem {
	annotated := make([]models.LineItem, len(lines))
	copy(annotated, lines)
	if len(annotated) == 0 {
		return annotated
	}
	ids := make([]string, 0, len(annotated))
	for _, line := range annotated {
		ids = append(ids, line.ProductID)
	}
	stocks := l.FetchStocks(ctx, ids)
	for i := range annotated {
		annotated[i].AvailableStock = stocks[annotated[i].ProductID]
	}
	return annotated
}
