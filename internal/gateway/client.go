package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/storefront-next/internal/logger"
	"github.com/storefront-next/internal/metrics"
	"github.com/storefront-next/internal/models"

	"github.com/sony/gobreaker/v2"
)

const (
	defaultTimeout     = 8 * time.Second
	defaultBreakerName = "remote_cart"
	maxResponseBytes   = 4 << 20
)

// Gateway 远端购物车持久化接口，每个操作都返回完整快照
type Gateway interface {
	FetchCart(ctx context.Context) (*models.CartSnapshot, error)
	AddLine(ctx context.Context, productID string, quantity int) (*models.CartSnapshot, error)
	UpdateLine(ctx context.Context, remoteLineID string, quantity int) (*models.CartSnapshot, error)
	RemoveLine(ctx context.Context, remoteLineID string) (*models.CartSnapshot, error)
	Clear(ctx context.Context) (*models.CartSnapshot, error)
}

// BreakerSettings 熔断参数
type BreakerSettings struct {
	Name         string
	MaxRequests  uint32
	Interval     time.Duration
	Timeout      time.Duration
	FailureRatio float64
	MinRequests  uint32
}

// Options 客户端配置
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	Breaker    BreakerSettings
	HTTPClient *http.Client
}

// Client 基于 HTTP 的远端购物车客户端
type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[[]byte]
	token      string
}

// NewClient 创建远端购物车客户端
func NewClient(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"),
		timeout:    timeout,
		httpClient: httpClient,
		breaker:    newBreaker(opts.Breaker),
	}
}

func newBreaker(cfg BreakerSettings) *gobreaker.CircuitBreaker[[]byte] {
	name := strings.TrimSpace(cfg.Name)
	if name == "" {
		name = defaultBreakerName
	}
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			if cfg.FailureRatio <= 0 {
				return counts.ConsecutiveFailures > 0
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warnw("gateway_breaker_state_change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
			metrics.SetBreakerState(name, stateToFloat(to))
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				return !apiErr.ServerFault()
			}
			return false
		},
	}
	metrics.SetBreakerState(name, 0)
	return gobreaker.NewCircuitBreaker[[]byte](settings)
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// WithToken 返回携带用户令牌的副本，熔断器共享
func (c *Client) WithToken(token string) *Client {
	cpy := *c
	cpy.token = strings.TrimSpace(token)
	return &cpy
}

// BreakerState 当前熔断状态
func (c *Client) BreakerState() gobreaker.State {
	return c.breaker.State()
}

// FetchCart 获取远端购物车，不存在时返回 ErrCartNotFound
func (c *Client) FetchCart(ctx context.Context) (*models.CartSnapshot, error) {
	snapshot, err := c.do(ctx, "fetch", http.MethodGet, "/cart", nil)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			return nil, ErrCartNotFound
		}
		return nil, err
	}
	return snapshot, nil
}

// AddLine 添加商品
func (c *Client) AddLine(ctx context.Context, productID string, quantity int) (*models.CartSnapshot, error) {
	return c.do(ctx, "add", http.MethodPost, "/cart/items", addLineRequest{
		ProductID: productID,
		Quantity:  quantity,
	})
}

// UpdateLine 修改行数量
func (c *Client) UpdateLine(ctx context.Context, remoteLineID string, quantity int) (*models.CartSnapshot, error) {
	return c.do(ctx, "update", http.MethodPut, "/cart/items/"+url.PathEscape(remoteLineID), updateLineRequest{
		Quantity: quantity,
	})
}

// RemoveLine 删除行
func (c *Client) RemoveLine(ctx context.Context, remoteLineID string) (*models.CartSnapshot, error) {
	return c.do(ctx, "remove", http.MethodDelete, "/cart/items/"+url.PathEscape(remoteLineID), nil)
}

// Clear 清空远端购物车
func (c *Client) Clear(ctx context.Context) (*models.CartSnapshot, error) {
	return c.do(ctx, "clear", http.MethodDelete, "/cart", nil)
}

func (c *Client) do(ctx context.Context, op, method, endpoint string, payload interface{}) (*models.CartSnapshot, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	var body []byte
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, &TransportError{Op: op, Err: err}
		}
		body = encoded
	}

	raw, err := c.breaker.Execute(func() ([]byte, error) {
		return c.roundTrip(ctx, method, endpoint, body)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &TransportError{Op: op, Err: err}
		}
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return nil, apiErr
		}
		return nil, &TransportError{Op: op, Err: err}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("decode envelope: %w", err)}
	}
	if env.StatusCode != 0 {
		return nil, &APIError{Status: http.StatusOK, Code: env.StatusCode, Message: env.Msg}
	}
	var cart cartPayload
	data := bytes.TrimSpace(env.Data)
	if len(data) > 0 && string(data) != "null" {
		if err := json.Unmarshal(data, &cart); err != nil {
			return nil, &TransportError{Op: op, Err: fmt.Errorf("decode cart: %w", err)}
		}
	}
	return cart.toSnapshot(), nil
}

func (c *Client) roundTrip(ctx context.Context, method, endpoint string, body []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		var env envelope
		if json.Unmarshal(respBody, &env) == nil {
			apiErr.Code = env.StatusCode
			apiErr.Message = strings.TrimSpace(env.Msg)
		}
		return nil, apiErr
	}
	return respBody, nil
}
