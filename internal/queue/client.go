package queue

import (
	"fmt"
	"strings"
	"time"

	"github.com/storefront-next/internal/config"
	"github.com/storefront-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// DefaultQueue 合并报告所在队列
	DefaultQueue = constants.QueueDefault
	// LowQueue 通知审计所在队列
	LowQueue = constants.QueueLow

	mergeReportRetention = 24 * time.Hour
	taskTimeout          = 30 * time.Second
)

// Client 购物车审计任务投递端，未启用时所有投递为空操作
type Client struct {
	client *asynq.Client
}

// NewClient 创建队列客户端
func NewClient(cfg *config.QueueConfig) (*Client, error) {
	if cfg == nil || !cfg.Enabled {
		return &Client{}, nil
	}
	return &Client{client: asynq.NewClient(RedisOpt(cfg))}, nil
}

// Enabled 判断是否启用
func (c *Client) Enabled() bool {
	return c != nil && c.client != nil
}

// Close 关闭客户端
func (c *Client) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Close()
}

// EnqueueCartNotice 投递警告/错误通知，低优先级，最多重试 3 次
func (c *Client) EnqueueCartNotice(payload CartNoticePayload, opts ...asynq.Option) error {
	if !c.Enabled() {
		return nil
	}
	task, err := NewCartNoticeTask(payload)
	if err != nil {
		return err
	}
	return c.enqueue(task, []asynq.Option{asynq.Queue(LowQueue), asynq.MaxRetry(3)}, opts)
}

// EnqueueCartMergeReport 投递登录合并结果，完成后保留一天供排查
func (c *Client) EnqueueCartMergeReport(payload CartMergeReportPayload, opts ...asynq.Option) error {
	if !c.Enabled() {
		return nil
	}
	task, err := NewCartMergeReportTask(payload)
	if err != nil {
		return err
	}
	return c.enqueue(task, []asynq.Option{asynq.Queue(DefaultQueue), asynq.Retention(mergeReportRetention)}, opts)
}

func (c *Client) enqueue(task *asynq.Task, defaults, overrides []asynq.Option) error {
	options := make([]asynq.Option, 0, len(defaults)+len(overrides)+1)
	options = append(options, asynq.Timeout(taskTimeout))
	options = append(options, defaults...)
	options = append(options, overrides...)
	if _, err := c.client.Enqueue(task, options...); err != nil {
		return fmt.Errorf("enqueue %s: %w", task.Type(), err)
	}
	return nil
}

// BuildServerConfig 生成消费端配置，未配置队列权重时合并报告优先
func BuildServerConfig(cfg *config.QueueConfig) (asynq.RedisClientOpt, asynq.Config) {
	serverCfg := asynq.Config{
		Concurrency: 10,
		Queues:      map[string]int{DefaultQueue: 2, LowQueue: 1},
	}
	if cfg != nil && cfg.Concurrency > 0 {
		serverCfg.Concurrency = cfg.Concurrency
	}
	if cfg != nil && len(cfg.Queues) > 0 {
		serverCfg.Queues = cfg.Queues
	}
	return RedisOpt(cfg), serverCfg
}

// RedisOpt 队列使用的 Redis 连接参数
func RedisOpt(cfg *config.QueueConfig) asynq.RedisClientOpt {
	opt := asynq.RedisClientOpt{Addr: "127.0.0.1:6379"}
	if cfg == nil {
		return opt
	}
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		host = "127.0.0.1"
	}
	port := cfg.Port
	if port <= 0 {
		port = 6379
	}
	opt.Addr = fmt.Sprintf("%s:%d", host, port)
	opt.Password = cfg.Password
	opt.DB = cfg.DB
	return opt
}
