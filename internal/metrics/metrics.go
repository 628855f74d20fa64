package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "storefront"

// 结果标签
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

var (
	cartOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_operations_total",
			Help:      "Total number of cart operations by backend and outcome",
		},
		[]string{"op", "backend", "outcome"},
	)

	cartMergesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_merges_total",
			Help:      "Total number of login merges by outcome",
		},
		[]string{"outcome"},
	)

	cartSessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cart_sessions_active",
			Help:      "Current number of cart sessions held in memory",
		},
	)

	gatewayBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "gateway_breaker_state",
			Help:      "Current state of the gateway circuit breaker (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	stockLookupFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_lookup_failures_total",
			Help:      "Total number of stock lookups that fell back to zero",
		},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

func init() {
	prometheus.MustRegister(
		cartOperationsTotal,
		cartMergesTotal,
		cartSessionsActive,
		gatewayBreakerState,
		stockLookupFailuresTotal,
		httpRequestsTotal,
		httpRequestDuration,
	)
}

// ObserveCartOperation 记录一次购物车操作
func ObserveCartOperation(op, backend, outcome string) {
	cartOperationsTotal.WithLabelValues(op, backend, outcome).Inc()
}

// ObserveMerge 记录一次登录合并
func ObserveMerge(outcome string) {
	cartMergesTotal.WithLabelValues(outcome).Inc()
}

// SetActiveSessions 设置内存中的会话数
func SetActiveSessions(n int) {
	cartSessionsActive.Set(float64(n))
}

// SetBreakerState 设置熔断器状态
func SetBreakerState(name string, state float64) {
	gatewayBreakerState.WithLabelValues(name).Set(state)
}

// IncStockLookupFailure 记录一次库存查询失败
func IncStockLookupFailure() {
	stockLookupFailuresTotal.Inc()
}

// ObserveHTTPRequest 记录一次 HTTP 请求
func ObserveHTTPRequest(method, path string, status int, elapsed time.Duration) {
	if path == "" {
		path = "unknown"
	}
	httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

// Handler 返回 /metrics 处理器
func Handler() http.Handler {
	return promhttp.Handler()
}
