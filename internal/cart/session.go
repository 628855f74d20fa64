package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/storefront-next/internal/auth"
	"github.com/storefront-next/internal/constants"
	"github.com/storefront-next/internal/gateway"
	"github.com/storefront-next/internal/localstore"
	"github.com/storefront-next/internal/logger"
	"github.com/storefront-next/internal/metrics"
	"github.com/storefront-next/internal/models"
	"github.com/storefront-next/internal/notify"
	"github.com/storefront-next/internal/pricing"
	"github.com/storefront-next/internal/queue"
	"github.com/storefront-next/internal/stock"

	"go.uber.org/zap"
)

// 操作名称
const (
	opAdd     = "add"
	opRemove  = "remove"
	opUpdate  = "update"
	opClear   = "clear"
	opRefresh = "refresh"
)

// Deps 会话依赖
type Deps struct {
	Store    *localstore.Store
	Gateway  func(identity auth.Identity) gateway.Gateway
	Stock    *stock.Lookup
	Pricing  *pricing.Calculator
	Notifier notify.Notifier
	Queue    *queue.Client
}

// Session 单个浏览器会话的购物车
// 写操作经由执行器串行化，读操作持读锁访问当前行集合
type Session struct {
	id    string
	deps  Deps
	local *LocalBackend
	inbox *notify.Inbox
	exec  *executor

	mu           sync.RWMutex
	state        string
	identity     auth.Identity
	backend      Backend
	lines        []models.LineItem
	loaded       bool
	pendingMerge []models.LineItem
	mergePending bool

	lastUsed atomic.Int64
}

// NewSession 创建匿名会话
func NewSession(id string, deps Deps) *Session {
	if deps.Pricing == nil {
		deps.Pricing = pricing.NewCalculator(pricing.DefaultRules())
	}
	local := NewLocalBackend(deps.Store, LocalKey(id))
	s := &Session{
		id:      id,
		deps:    deps,
		local:   local,
		inbox:   notify.NewInbox(0),
		exec:    newExecutor(),
		state:   constants.CartStateAnonymous,
		backend: local,
		lines:   []models.LineItem{},
	}
	local.onDegraded = s.storageDegraded
	s.touch(time.Now())
	return s
}

// LocalKey 会话在本地存储中的键
func LocalKey(sessionID string) string {
	return fmt.Sprintf("%s:%s", constants.LocalCartKey, sessionID)
}

// ID 会话ID
func (s *Session) ID() string {
	return s.id
}

// Close 停止执行器
func (s *Session) Close() {
	s.exec.Close()
}

// log 仅在执行器内调用，读取 identity 无需加锁
func (s *Session) log() *zap.SugaredLogger {
	return logger.ForSession(s.id, s.identity.UserID)
}

func (s *Session) touch(now time.Time) {
	s.lastUsed.Store(now.UnixNano())
}

// LastUsed 最近一次访问时间
func (s *Session) LastUsed() time.Time {
	return time.Unix(0, s.lastUsed.Load())
}

// Notices 取出待返回的通知
func (s *Session) Notices() []notify.Notice {
	return s.inbox.Drain()
}

// SyncIdentity 根据鉴权结果切换匿名/登录状态，登录时执行一次合并
func (s *Session) SyncIdentity(ctx context.Context, identity auth.Identity) error {
	var opErr error
	if err := s.exec.Do(ctx, func(ctx context.Context) {
		opErr = s.syncIdentity(ctx, identity)
	}); err != nil {
		return err
	}
	return opErr
}

func (s *Session) syncIdentity(ctx context.Context, identity auth.Identity) error {
	current := s.identity
	switch {
	case !identity.Authenticated() && !current.Authenticated():
		return s.ensureLoaded(ctx)
	case !identity.Authenticated():
		s.logout(ctx)
		return nil
	case current.SameUser(identity):
		if current.Token != identity.Token {
			s.mu.Lock()
			s.identity = identity
			s.backend = NewRemoteBackend(s.gatewayFor(identity), s.deps.Stock)
			s.mu.Unlock()
		}
		return s.ensureLoaded(ctx)
	default:
		if current.Authenticated() {
			s.logout(ctx)
		}
		return s.login(ctx, identity)
	}
}

func (s *Session) gatewayFor(identity auth.Identity) gateway.Gateway {
	return s.deps.Gateway(identity)
}

// ensureLoaded 首次访问时从当前后端加载，登录合并未完成时重试合并
func (s *Session) ensureLoaded(ctx context.Context) error {
	if s.mergePending {
		return s.merge(ctx, s.pendingMerge)
	}
	if s.loaded {
		return nil
	}
	lines, err := s.backend.Load(ctx)
	if err != nil {
		return err
	}
	s.adopt(lines)
	return nil
}

func (s *Session) logout(ctx context.Context) {
	lines, _ := s.local.Load(ctx)
	s.mu.Lock()
	s.state = constants.CartStateAnonymous
	s.identity = auth.Identity{}
	s.backend = s.local
	s.lines = lines
	s.loaded = true
	s.mergePending = false
	s.pendingMerge = nil
	s.mu.Unlock()
	s.log().Debugw("cart_session_logout", "lines", len(lines))
}

func (s *Session) login(ctx context.Context, identity auth.Identity) error {
	var localLines []models.LineItem
	if s.state == constants.CartStateAnonymous && s.loaded {
		localLines = cloneLines(s.lines)
	} else {
		localLines, _ = s.local.Load(ctx)
	}

	s.mu.Lock()
	s.state = constants.CartStateAuthenticated
	s.identity = identity
	s.backend = NewRemoteBackend(s.gatewayFor(identity), s.deps.Stock)
	s.lines = []models.LineItem{}
	s.loaded = false
	s.mu.Unlock()

	return s.merge(ctx, localLines)
}

func (s *Session) adopt(lines []models.LineItem) {
	if lines == nil {
		lines = []models.LineItem{}
	}
	s.mu.Lock()
	s.lines = lines
	s.loaded = true
	s.mu.Unlock()
}

type mutation func(ctx context.Context, backend Backend, current []models.LineItem) ([]models.LineItem, error)

func (s *Session) mutate(ctx context.Context, op string, fn mutation, successKey, successMsg string) error {
	var opErr error
	if err := s.exec.Do(ctx, func(ctx context.Context) {
		if err := s.ensureLoaded(ctx); err != nil {
			opErr = err
			s.reportFailure(ctx, op, err)
			return
		}
		lines, err := fn(ctx, s.backend, cloneLines(s.lines))
		if lines != nil {
			s.adopt(lines)
		}
		if err != nil {
			opErr = err
			s.reportFailure(ctx, op, err)
			return
		}
		metrics.ObserveCartOperation(op, s.backend.Name(), metrics.OutcomeSuccess)
		s.notify(ctx, constants.NoticeLevelSuccess, successKey, successMsg)
	}); err != nil {
		return err
	}
	return opErr
}

// AddItem 加入商品：匿名时累加并校验库存，登录时以服务端结果为准
func (s *Session) AddItem(ctx context.Context, product models.Product, quantity int) error {
	product.ID = strings.TrimSpace(product.ID)
	return s.mutate(ctx, opAdd, func(ctx context.Context, backend Backend, current []models.LineItem) ([]models.LineItem, error) {
		if product.ID == "" {
			return nil, ErrInvalidProduct
		}
		if !product.HasValidPrices() {
			return nil, fmt.Errorf("%w: product %s has a negative price", ErrInvalidProduct, product.ID)
		}
		if quantity < 1 {
			return nil, fmt.Errorf("%w: %d", ErrInvalidQuantity, quantity)
		}
		return backend.Add(ctx, current, product, quantity)
	}, notify.KeyItemAdded, "Item added to your cart.")
}

// RemoveItem 移除商品行
func (s *Session) RemoveItem(ctx context.Context, productID string) error {
	productID = strings.TrimSpace(productID)
	return s.mutate(ctx, opRemove, func(ctx context.Context, backend Backend, current []models.LineItem) ([]models.LineItem, error) {
		return backend.Remove(ctx, current, productID)
	}, notify.KeyItemRemoved, "Item removed from your cart.")
}

// UpdateQuantity 修改数量，数量 <= 0 等同于移除
func (s *Session) UpdateQuantity(ctx context.Context, productID string, quantity int) error {
	if quantity <= 0 {
		return s.RemoveItem(ctx, productID)
	}
	productID = strings.TrimSpace(productID)
	return s.mutate(ctx, opUpdate, func(ctx context.Context, backend Backend, current []models.LineItem) ([]models.LineItem, error) {
		return backend.Update(ctx, current, productID, quantity)
	}, notify.KeyQuantityUpdated, "Quantity updated.")
}

// ClearCart 清空购物车；远端清空失败时仍清空本地状态，仅给出警告
func (s *Session) ClearCart(ctx context.Context) error {
	return s.exec.Do(ctx, func(ctx context.Context) {
		if err := s.ensureLoaded(ctx); err != nil {
			s.log().Debugw("cart_clear_load_failed", "error", err)
		}
		backend := s.backend
		_, err := backend.Clear(ctx, cloneLines(s.lines))
		s.local.Discard(ctx)
		s.pendingMerge = nil
		s.adopt([]models.LineItem{})
		if err != nil {
			s.log().Warnw("cart_clear_remote_failed", "error", err)
			metrics.ObserveCartOperation(opClear, backend.Name(), metrics.OutcomeFailed)
			s.notify(ctx, constants.NoticeLevelWarning, notify.KeyClearDegraded,
				"Your cart was cleared here, but we could not confirm it with the server.")
			return
		}
		metrics.ObserveCartOperation(opClear, backend.Name(), metrics.OutcomeSuccess)
		s.notify(ctx, constants.NoticeLevelSuccess, notify.KeyCartCleared, "Your cart is now empty.")
	})
}

// Refresh 从当前后端重新加载并刷新库存
func (s *Session) Refresh(ctx context.Context) error {
	var opErr error
	if err := s.exec.Do(ctx, func(ctx context.Context) {
		if s.mergePending {
			if err := s.merge(ctx, s.pendingMerge); err != nil {
				opErr = err
				s.reportFailure(ctx, opRefresh, err)
			}
			return
		}
		lines, err := s.backend.Load(ctx)
		if err != nil {
			opErr = err
			s.reportFailure(ctx, opRefresh, err)
			return
		}
		if s.state == constants.CartStateAnonymous {
			if s.deps.Stock != nil {
				lines = s.deps.Stock.Annotate(ctx, lines)
			}
			s.local.Save(ctx, lines)
		}
		s.adopt(lines)
		metrics.ObserveCartOperation(opRefresh, s.backend.Name(), metrics.OutcomeSuccess)
		s.notify(ctx, constants.NoticeLevelInfo, notify.KeyCartRefreshed, "Cart updated.")
	}); err != nil {
		return err
	}
	return opErr
}

func (s *Session) reportFailure(ctx context.Context, op string, err error) {
	level, key, msg, outcome := classify(err)
	metrics.ObserveCartOperation(op, s.backend.Name(), outcome)
	if outcome == metrics.OutcomeFailed {
		s.log().Warnw("cart_operation_failed",
			"op", op,
			"backend", s.backend.Name(),
			"error", err,
		)
	}
	s.notify(ctx, level, key, msg)
}

func classify(err error) (level, key, msg, outcome string) {
	switch {
	case errors.Is(err, ErrInvalidQuantity):
		return constants.NoticeLevelWarning, notify.KeyInvalidQuantity, "Quantity must be at least 1.", metrics.OutcomeRejected
	case errors.Is(err, ErrInvalidProduct):
		return constants.NoticeLevelWarning, notify.KeyInvalidQuantity, "This product is unavailable.", metrics.OutcomeRejected
	case errors.Is(err, ErrInsufficientStock):
		return constants.NoticeLevelWarning, notify.KeyInsufficientStock, "Not enough stock available for this item.", metrics.OutcomeRejected
	case errors.Is(err, ErrLineNotFound):
		return constants.NoticeLevelError, notify.KeyLineNotFound, "This item is no longer in your cart.", metrics.OutcomeRejected
	default:
		return constants.NoticeLevelError, notify.KeyRemoteFailed,
			gateway.UserMessage(err, "We could not update your cart. Please try again."), metrics.OutcomeFailed
	}
}

func (s *Session) storageDegraded(ctx context.Context) {
	s.log().Warnw("cart_local_persist_failed", "backend", s.local.Name())
	s.notify(ctx, constants.NoticeLevelWarning, notify.KeyStorageDegraded,
		"We could not save your cart on this device. Recent changes may be lost.")
}

func (s *Session) notify(ctx context.Context, level, key, msg string) {
	notice := notify.Notice{
		Level:     level,
		Key:       key,
		Message:   msg,
		SessionID: s.id,
		UserID:    s.identity.UserID,
		At:        time.Now(),
	}
	s.inbox.Notify(ctx, notice)
	if s.deps.Notifier != nil {
		s.deps.Notifier.Notify(ctx, notice)
	}
}

func cloneLines(lines []models.LineItem) []models.LineItem {
	out := make([]models.LineItem, len(lines))
	copy(out, lines)
	return out
}
