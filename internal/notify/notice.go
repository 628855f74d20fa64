package notify

import (
	"context"
	"sync"
	"time"

	"github.com/storefront-next/internal/constants"
	"github.com/storefront-next/internal/logger"
	"github.com/storefront-next/internal/queue"
)

// 通知文案键
const (
	KeyItemAdded         = "cart.item_added"
	KeyItemRemoved       = "cart.item_removed"
	KeyQuantityUpdated   = "cart.quantity_updated"
	KeyCartCleared       = "cart.cleared"
	KeyCartRefreshed     = "cart.refreshed"
	KeyInvalidQuantity   = "cart.invalid_quantity"
	KeyInsufficientStock = "cart.insufficient_stock"
	KeyLineNotFound      = "cart.line_not_found"
	KeyRemoteFailed      = "cart.remote_failed"
	KeyClearDegraded     = "cart.clear_degraded"
	KeyMergeCompleted    = "cart.merge_completed"
	KeyMergePartial      = "cart.merge_partial"
	KeyMergeFailed       = "cart.merge_failed"
	KeyMergeSkipped      = "cart.merge_skipped"
	KeyStorageDegraded   = "cart.storage_degraded"
)

// Notice 面向用户的操作结果通知
type Notice struct {
	Level     string    `json:"level"`
	Key       string    `json:"key"`
	Message   string    `json:"message"`
	SessionID string    `json:"-"`
	UserID    string    `json:"-"`
	At        time.Time `json:"at"`
}

// Notifier 通知通道
type Notifier interface {
	Notify(ctx context.Context, notice Notice)
}

// NotifierFunc 函数形式的 Notifier
type NotifierFunc func(ctx context.Context, notice Notice)

// Notify 实现 Notifier
func (f NotifierFunc) Notify(ctx context.Context, notice Notice) {
	f(ctx, notice)
}

// Multi 依次分发到多个通道
type Multi []Notifier

// Notify 实现 Notifier
func (m Multi) Notify(ctx context.Context, notice Notice) {
	for _, n := range m {
		if n != nil {
			n.Notify(ctx, notice)
		}
	}
}

// Discard 丢弃所有通知
var Discard Notifier = NotifierFunc(func(context.Context, Notice) {})

// LogNotifier 写入结构化日志
type LogNotifier struct{}

// Notify 实现 Notifier
func (LogNotifier) Notify(_ context.Context, notice Notice) {
	kv := []interface{}{
		"session_id", notice.SessionID,
		"user_id", notice.UserID,
		"key", notice.Key,
		"message", notice.Message,
	}
	switch notice.Level {
	case constants.NoticeLevelError:
		logger.Errorw("cart_notice", kv...)
	case constants.NoticeLevelWarning:
		logger.Warnw("cart_notice", kv...)
	default:
		logger.Debugw("cart_notice", kv...)
	}
}

// QueueNotifier 投递到异步队列供审计
type QueueNotifier struct {
	client *queue.Client
}

// NewQueueNotifier 创建队列通知通道
func NewQueueNotifier(client *queue.Client) *QueueNotifier {
	return &QueueNotifier{client: client}
}

// Notify 实现 Notifier，仅投递警告与错误
func (q *QueueNotifier) Notify(_ context.Context, notice Notice) {
	if q == nil || !q.client.Enabled() {
		return
	}
	if notice.Level != constants.NoticeLevelWarning && notice.Level != constants.NoticeLevelError {
		return
	}
	err := q.client.EnqueueCartNotice(queue.CartNoticePayload{
		SessionID:  notice.SessionID,
		UserID:     notice.UserID,
		Level:      notice.Level,
		Key:        notice.Key,
		Message:    notice.Message,
		OccurredAt: notice.At.Unix(),
	})
	if err != nil {
		logger.Warnw("cart_notice_enqueue_failed", "session_id", notice.SessionID, "key", notice.Key, "error", err)
	}
}

const defaultInboxLimit = 32

// Inbox 会话级通知收件箱，随 HTTP 响应一并返回
type Inbox struct {
	mu      sync.Mutex
	notices []Notice
	limit   int
}

// NewInbox 创建收件箱，超过上限时丢弃最早的通知
func NewInbox(limit int) *Inbox {
	if limit <= 0 {
		limit = defaultInboxLimit
	}
	return &Inbox{limit: limit}
}

// Notify 实现 Notifier
func (b *Inbox) Notify(_ context.Context, notice Notice) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.notices = append(b.notices, notice)
	if overflow := len(b.notices) - b.limit; overflow > 0 {
		b.notices = append([]Notice(nil), b.notices[overflow:]...)
	}
}

// Drain 取出并清空全部通知
func (b *Inbox) Drain() []Notice {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.notices
	b.notices = nil
	if out == nil {
		return []Notice{}
	}
	return out
}

// Len 当前通知数
func (b *Inbox) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.notices)
}
