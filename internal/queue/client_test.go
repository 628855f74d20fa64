package queue

import (
	"encoding/json"
	"testing"

	"github.com/storefront-next/internal/config"
)

func TestDisabledClientIsNoop(t *testing.T) {
	client, err := NewClient(&config.QueueConfig{Enabled: false})
	if err != nil {
		t.Fatalf("new client failed: %v", err)
	}
	if client.Enabled() {
		t.Fatalf("client should be disabled")
	}
	if err := client.EnqueueCartNotice(CartNoticePayload{SessionID: "s1"}); err != nil {
		t.Fatalf("disabled enqueue should be noop: %v", err)
	}
	if err := client.EnqueueCartMergeReport(CartMergeReportPayload{SessionID: "s1"}); err != nil {
		t.Fatalf("disabled enqueue should be noop: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
}

func TestNewCartMergeReportTask(t *testing.T) {
	task, err := NewCartMergeReportTask(CartMergeReportPayload{
		SessionID: "s1",
		UserID:    "42",
		Outcome:   "partial",
		Attempted: 2,
		Merged:    1,
		Failures:  []MergeFailure{{ProductID: "p2", Quantity: 1, Error: "out of stock"}},
	})
	if err != nil {
		t.Fatalf("new task failed: %v", err)
	}
	if task.Type() != TaskCartMergeReport {
		t.Fatalf("unexpected task type: %s", task.Type())
	}
	var decoded CartMergeReportPayload
	if err := json.Unmarshal(task.Payload(), &decoded); err != nil {
		t.Fatalf("decode payload failed: %v", err)
	}
	if decoded.Outcome != "partial" || len(decoded.Failures) != 1 {
		t.Fatalf("unexpected payload: %+v", decoded)
	}
}

func TestBuildServerConfigDefaults(t *testing.T) {
	opt, cfg := BuildServerConfig(&config.QueueConfig{Host: " redis ", Port: 6380, DB: 2})
	if opt.Addr != "redis:6380" || opt.DB != 2 {
		t.Fatalf("unexpected redis opt: %+v", opt)
	}
	if cfg.Concurrency != 10 {
		t.Fatalf("unexpected concurrency: %d", cfg.Concurrency)
	}
	if cfg.Queues[DefaultQueue] != 2 || cfg.Queues[LowQueue] != 1 {
		t.Fatalf("unexpected queues: %+v", cfg.Queues)
	}
}

func TestRedisOptFallsBackToLocalhost(t *testing.T) {
	if opt := RedisOpt(nil); opt.Addr != "127.0.0.1:6379" {
		t.Fatalf("unexpected default addr: %s", opt.Addr)
	}
	opt := RedisOpt(&config.QueueConfig{Password: "pw", DB: 3})
	if opt.Addr != "127.0.0.1:6379" || opt.Password != "pw" || opt.DB != 3 {
		t.Fatalf("unexpected opt: %+v", opt)
	}
}
