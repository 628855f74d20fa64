package gateway

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrCartNotFound 远端尚未创建购物车
var ErrCartNotFound = errors.New("remote cart not found")

// TransportError 网络、熔断或响应不可读
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("remote cart %s transport failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// APIError 非 2xx 响应或业务状态码非 0
type APIError struct {
	Status  int
	Code    int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("remote cart api error: status=%d code=%d msg=%s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("remote cart api error: status=%d code=%d", e.Status, e.Code)
}

// ServerFault 是否为服务端故障（计入熔断）
func (e *APIError) ServerFault() bool {
	return e.Status >= http.StatusInternalServerError
}

// UserMessage 优先返回服务端提供的提示文案
func UserMessage(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if msg := strings.TrimSpace(apiErr.Message); msg != "" {
			return msg
		}
	}
	return fallback
}

// IsTransport 是否为传输层错误
func IsTransport(err error) bool {
	var transportErr *TransportError
	return errors.As(err, &transportErr)
}
