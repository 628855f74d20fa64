package worker

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/storefront-next/internal/logger"
	"github.com/storefront-next/internal/queue"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// Consumer 异步任务消费者，将购物车事件写入审计日志
type Consumer struct {
	audit *zap.SugaredLogger
}

// NewConsumer 创建消费者
func NewConsumer(audit *zap.SugaredLogger) *Consumer {
	if audit == nil {
		audit = logger.Component("cart_audit")
	}
	return &Consumer{audit: audit}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskCartNotice, c.handleCartNotice)
	mux.HandleFunc(queue.TaskCartMergeReport, c.handleCartMergeReport)
}

func (c *Consumer) handleCartNotice(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_cart_notice_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.CartNoticePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_cart_notice_unmarshal_failed", "error", err)
		return err
	}
	if strings.TrimSpace(payload.SessionID) == "" {
		logger.Debugw("worker_cart_notice_skip_invalid_payload", "key", payload.Key)
		return nil
	}
	c.audit.Infow("cart_notice",
		"session_id", payload.SessionID,
		"user_id", payload.UserID,
		"level", payload.Level,
		"key", payload.Key,
		"message", payload.Message,
		"occurred_at", payload.OccurredAt,
	)
	return nil
}

func (c *Consumer) handleCartMergeReport(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_cart_merge_report_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.CartMergeReportPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_cart_merge_report_unmarshal_failed", "error", err)
		return err
	}
	if strings.TrimSpace(payload.SessionID) == "" {
		logger.Debugw("worker_cart_merge_report_skip_invalid_payload", "user_id", payload.UserID)
		return nil
	}
	fields := []interface{}{
		"session_id", payload.SessionID,
		"user_id", payload.UserID,
		"outcome", payload.Outcome,
		"attempted", payload.Attempted,
		"merged", payload.Merged,
		"occurred_at", payload.OccurredAt,
	}
	if len(payload.Failures) == 0 {
		c.audit.Infow("cart_merge_report", fields...)
		return nil
	}
	failed := make([]string, 0, len(payload.Failures))
	for _, failure := range payload.Failures {
		failed = append(failed, failure.ProductID)
	}
	fields = append(fields, "failed_products", failed, "failures", payload.Failures)
	c.audit.Warnw("cart_merge_report", fields...)
	return nil
}
