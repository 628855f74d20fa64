package cache

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const stockStateCacheTTL = 15 * time.Second

// StockState 商品库存快照
// 仅缓存查询成功的结果，失败按 0 处理且不写入缓存
type StockState struct {
	ProductID string `json:"product_id"`
	Stock     int    `json:"stock"`
	FetchedAt int64  `json:"fetched_at"`
}

func stockStateKey(productID string) string {
	return fmt.Sprintf("stock:%s", strings.TrimSpace(productID))
}

// GetStockState 获取库存快照
func GetStockState(ctx context.Context, productID string) (*StockState, bool, error) {
	if strings.TrimSpace(productID) == "" {
		return nil, false, nil
	}
	var state StockState
	hit, err := GetJSON(ctx, stockStateKey(productID), &state)
	if err != nil || !hit {
		return nil, hit, err
	}
	return &state, true, nil
}

// SetStockState 写入库存快照
func SetStockState(ctx context.Context, productID string, stock int) error {
	if strings.TrimSpace(productID) == "" {
		return nil
	}
	state := &StockState{
		ProductID: productID,
		Stock:     stock,
		FetchedAt: time.Now().Unix(),
	}
	return SetJSON(ctx, stockStateKey(productID), state, stockStateCacheTTL)
}
