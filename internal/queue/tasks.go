package queue

import (
	"encoding/json"

	"github.com/storefront-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskCartNotice 购物车通知审计任务
	TaskCartNotice = constants.TaskCartNotice
	// TaskCartMergeReport 登录合并结果任务
	TaskCartMergeReport = constants.TaskCartMergeReport
)

// CartNoticePayload 购物车通知任务载荷
type CartNoticePayload struct {
	SessionID  string `json:"session_id"`
	UserID     string `json:"user_id,omitempty"`
	Level      string `json:"level"`
	Key        string `json:"key"`
	Message    string `json:"message"`
	OccurredAt int64  `json:"occurred_at"`
}

// MergeFailure 合并时单行失败详情
type MergeFailure struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Error     string `json:"error"`
}

// CartMergeReportPayload 合并结果任务载荷
type CartMergeReportPayload struct {
	SessionID  string         `json:"session_id"`
	UserID     string         `json:"user_id"`
	Outcome    string         `json:"outcome"`
	Attempted  int            `json:"attempted"`
	Merged     int            `json:"merged"`
	Failures   []MergeFailure `json:"failures,omitempty"`
	OccurredAt int64          `json:"occurred_at"`
}

// NewCartNoticeTask 创建购物车通知任务
func NewCartNoticeTask(payload CartNoticePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCartNotice, body), nil
}

// NewCartMergeReportTask 创建合并结果任务
func NewCartMergeReportTask(payload CartMergeReportPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCartMergeReport, body), nil
}
