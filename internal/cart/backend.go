package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/storefront-next/internal/constants"
	"github.com/storefront-next/internal/gateway"
	"github.com/storefront-next/internal/localstore"
	"github.com/storefront-next/internal/models"
	"github.com/storefront-next/internal/stock"
)

// Backend 购物车持久化策略
// 返回的行集合为操作后的完整状态；出错时若返回非 nil 行集合，调用方仍应采纳（用于重新同步）
type Backend interface {
	Name() string
	Load(ctx context.Context) ([]models.LineItem, error)
	Add(ctx context.Context, current []models.LineItem, product models.Product, quantity int) ([]models.LineItem, error)
	Remove(ctx context.Context, current []models.LineItem, productID string) ([]models.LineItem, error)
	Update(ctx context.Context, current []models.LineItem, productID string, quantity int) ([]models.LineItem, error)
	Clear(ctx context.Context, current []models.LineItem) ([]models.LineItem, error)
}

// LocalBackend 匿名购物车，持久化到本地存储
type LocalBackend struct {
	store *localstore.Store
	key   string
	// onDegraded 写入本地存储失败时回调，在执行器内调用
	onDegraded func(ctx context.Context)
}

// NewLocalBackend 创建本地后端
func NewLocalBackend(store *localstore.Store, key string) *LocalBackend {
	return &LocalBackend{store: store, key: key}
}

// Name 后端名称
func (b *LocalBackend) Name() string {
	return constants.CartBackendLocal
}

// Load 从本地存储读取，数据损坏时视为空购物车
func (b *LocalBackend) Load(ctx context.Context) ([]models.LineItem, error) {
	var lines []models.LineItem
	if !b.store.Get(ctx, b.key, &lines) {
		return []models.LineItem{}, nil
	}
	return sanitizeLines(lines), nil
}

// Add 累加已有行或追加新行，超出已知库存时拒绝
func (b *LocalBackend) Add(ctx context.Context, current []models.LineItem, product models.Product, quantity int) ([]models.LineItem, error) {
	cart := &models.Cart{Lines: current}
	next := cart.Clone()
	if idx := next.IndexOf(product.ID); idx >= 0 {
		existing := next.Lines[idx]
		total := existing.Quantity + quantity
		if total > product.Stock {
			return nil, fmt.Errorf("%w: product %s requested %d, stock %d", ErrInsufficientStock, product.ID, total, product.Stock)
		}
		// 展示信息与价格按本次加入时的商品刷新
		line := product.ToLineItem(total)
		line.RemoteLineID = existing.RemoteLineID
		next.Lines[idx] = line
	} else {
		if quantity > product.Stock {
			return nil, fmt.Errorf("%w: product %s requested %d, stock %d", ErrInsufficientStock, product.ID, quantity, product.Stock)
		}
		next.Lines = append(next.Lines, product.ToLineItem(quantity))
	}
	b.persist(ctx, next.Lines)
	return next.Lines, nil
}

// Remove 移除商品行
func (b *LocalBackend) Remove(ctx context.Context, current []models.LineItem, productID string) ([]models.LineItem, error) {
	next := make([]models.LineItem, 0, len(current))
	for _, line := range current {
		if line.ProductID != productID {
			next = append(next, line)
		}
	}
	b.persist(ctx, next)
	return next, nil
}

// Update 修改数量，超出已知库存时拒绝且不截断
func (b *LocalBackend) Update(ctx context.Context, current []models.LineItem, productID string, quantity int) ([]models.LineItem, error) {
	next := (&models.Cart{Lines: current}).Clone()
	idx := next.IndexOf(productID)
	if idx < 0 {
		return nil, fmt.Errorf("%w: product %s", ErrLineNotFound, productID)
	}
	if quantity > next.Lines[idx].AvailableStock {
		return nil, fmt.Errorf("%w: product %s requested %d, stock %d", ErrInsufficientStock, productID, quantity, next.Lines[idx].AvailableStock)
	}
	next.Lines[idx].Quantity = quantity
	b.persist(ctx, next.Lines)
	return next.Lines, nil
}

// Clear 清空并删除本地存储条目
func (b *LocalBackend) Clear(ctx context.Context, _ []models.LineItem) ([]models.LineItem, error) {
	b.store.Remove(ctx, b.key)
	return []models.LineItem{}, nil
}

// Save 覆盖写入当前行集合
func (b *LocalBackend) Save(ctx context.Context, lines []models.LineItem) {
	b.persist(ctx, lines)
}

// Discard 删除本地存储条目
func (b *LocalBackend) Discard(ctx context.Context) {
	b.store.Remove(ctx, b.key)
}

func (b *LocalBackend) persist(ctx context.Context, lines []models.LineItem) {
	if len(lines) == 0 {
		b.store.Remove(ctx, b.key)
		return
	}
	// 写入失败时内存状态仍然有效
	if !b.store.Set(ctx, b.key, lines) && b.onDegraded != nil {
		b.onDegraded(ctx)
	}
}

// RemoteBackend 登录购物车，以服务端快照为准
type RemoteBackend struct {
	gateway gateway.Gateway
	stock   *stock.Lookup
}

// NewRemoteBackend 创建远端后端
func NewRemoteBackend(gw gateway.Gateway, lookup *stock.Lookup) *RemoteBackend {
	return &RemoteBackend{gateway: gw, stock: lookup}
}

// Name 后端名称
func (b *RemoteBackend) Name() string {
	return constants.CartBackendRemote
}

// Load 获取远端购物车，不存在时视为空
func (b *RemoteBackend) Load(ctx context.Context) ([]models.LineItem, error) {
	snapshot, err := b.gateway.FetchCart(ctx)
	if err != nil {
		if errors.Is(err, gateway.ErrCartNotFound) {
			return []models.LineItem{}, nil
		}
		return nil, err
	}
	return b.adopt(ctx, snapshot), nil
}

// Add 添加商品，不做本地库存校验
func (b *RemoteBackend) Add(ctx context.Context, _ []models.LineItem, product models.Product, quantity int) ([]models.LineItem, error) {
	snapshot, err := b.gateway.AddLine(ctx, product.ID, quantity)
	if err != nil {
		return nil, err
	}
	return b.adopt(ctx, snapshot), nil
}

// Remove 按远端行ID删除
func (b *RemoteBackend) Remove(ctx context.Context, current []models.LineItem, productID string) ([]models.LineItem, error) {
	lineID, err := remoteLineID(current, productID)
	if err != nil {
		return nil, err
	}
	snapshot, err := b.gateway.RemoveLine(ctx, lineID)
	if err != nil {
		return nil, err
	}
	return b.adopt(ctx, snapshot), nil
}

// Update 修改数量，失败时重新拉取远端购物车
func (b *RemoteBackend) Update(ctx context.Context, current []models.LineItem, productID string, quantity int) ([]models.LineItem, error) {
	lineID, err := remoteLineID(current, productID)
	if err != nil {
		return nil, err
	}
	snapshot, err := b.gateway.UpdateLine(ctx, lineID, quantity)
	if err == nil {
		return b.adopt(ctx, snapshot), nil
	}
	resynced, fetchErr := b.Load(ctx)
	if fetchErr != nil {
		return nil, err
	}
	return resynced, err
}

// Clear 清空远端购物车，失败时仍返回空集合
func (b *RemoteBackend) Clear(ctx context.Context, _ []models.LineItem) ([]models.LineItem, error) {
	if _, err := b.gateway.Clear(ctx); err != nil {
		return []models.LineItem{}, err
	}
	return []models.LineItem{}, nil
}

func (b *RemoteBackend) adopt(ctx context.Context, snapshot *models.CartSnapshot) []models.LineItem {
	if snapshot.IsEmpty() {
		return []models.LineItem{}
	}
	lines := sanitizeLines(snapshot.Lines)
	if b.stock == nil {
		return lines
	}
	return b.stock.Annotate(ctx, lines)
}

func remoteLineID(current []models.LineItem, productID string) (string, error) {
	line, ok := (&models.Cart{Lines: current}).Find(productID)
	if !ok || line.RemoteLineID == "" {
		return "", fmt.Errorf("%w: product %s", ErrLineNotFound, productID)
	}
	return line.RemoteLineID, nil
}

// sanitizeLines 丢弃无效行（含负价格）并合并重复商品，保持首次出现的顺序
func sanitizeLines(lines []models.LineItem) []models.LineItem {
	out := make([]models.LineItem, 0, len(lines))
	index := make(map[string]int, len(lines))
	for _, line := range lines {
		line.Normalize()
		if line.ProductID == "" || line.Quantity <= 0 || line.UnitPrice.Decimal.IsNegative() {
			continue
		}
		if idx, ok := index[line.ProductID]; ok {
			out[idx].Quantity += line.Quantity
			continue
		}
		index[line.ProductID] = len(out)
		out = append(out, line)
	}
	return out
}
