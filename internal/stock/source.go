package stock

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const (
	defaultFieldPath = "data.stock"
	defaultTimeout   = 3 * time.Second
)

// ErrStockUnavailable 响应中没有可用的库存字段
var ErrStockUnavailable = errors.New("stock field unavailable")

// Source 单个商品的库存来源
type Source interface {
	FetchStock(ctx context.Context, productID string) (int, error)
}

// SourceFunc 函数形式的 Source
type SourceFunc func(ctx context.Context, productID string) (int, error)

// FetchStock 实现 Source
func (f SourceFunc) FetchStock(ctx context.Context, productID string) (int, error) {
	return f(ctx, productID)
}

// HTTPSource 通过商品详情接口读取库存
type HTTPSource struct {
	baseURL    string
	fieldPath  string
	timeout    time.Duration
	httpClient *http.Client
}

// NewHTTPSource 创建 HTTP 库存来源，fieldPath 为 gjson 路径
func NewHTTPSource(baseURL, fieldPath string, timeout time.Duration, httpClient *http.Client) *HTTPSource {
	fieldPath = strings.TrimSpace(fieldPath)
	if fieldPath == "" {
		fieldPath = defaultFieldPath
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &HTTPSource{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		fieldPath:  fieldPath,
		timeout:    timeout,
		httpClient: httpClient,
	}
}

// FetchStock 请求 GET {base}/products/{id} 并按路径读取库存
func (s *HTTPSource) FetchStock(ctx context.Context, productID string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	endpoint := s.baseURL + "/products/" + url.PathEscape(productID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("build stock request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("stock request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, fmt.Errorf("read stock response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("stock status %d", resp.StatusCode)
	}
	if !gjson.ValidBytes(body) {
		return 0, fmt.Errorf("%w: invalid json", ErrStockUnavailable)
	}
	result := gjson.GetBytes(body, s.fieldPath)
	if !result.Exists() || result.Type != gjson.Number {
		return 0, fmt.Errorf("%w: path %s", ErrStockUnavailable, s.fieldPath)
	}
	qty := int(result.Int())
	if qty < 0 {
		qty = 0
	}
	return qty, nil
}
