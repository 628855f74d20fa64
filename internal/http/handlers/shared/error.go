package shared

import (
	"github.com/storefront-next/internal/http/response"
	"github.com/storefront-next/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLog 提供携带 request_id 的日志实例。
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil {
		return logger.S()
	}
	if requestID, ok := c.Get("request_id"); ok {
		if id, ok := requestID.(string); ok && id != "" {
			return logger.SW("request_id", id)
		}
	}
	return logger.S()
}

// RespondError 返回错误响应，并在有原始错误时记录日志。
func RespondError(c *gin.Context, code int, msg string, err error) {
	RespondErrorWithData(c, code, msg, err, nil)
}

// RespondErrorWithData 返回带数据的错误响应，并在有原始错误时记录日志。
// err 链中已有 AppError 时沿用其状态码与文案。
func RespondErrorWithData(c *gin.Context, code int, msg string, err error, data interface{}) {
	appErr, ok := response.AsAppError(err)
	if !ok {
		appErr = response.WrapError(code, msg, err)
	}
	RespondAppError(c, appErr, data)
}

// RespondAppError 返回 AppError，上游可重试类错误按警告记录。
func RespondAppError(c *gin.Context, appErr *response.AppError, data interface{}) {
	if appErr == nil {
		appErr = response.WrapError(response.CodeInternal, "Internal error.", nil)
	}
	if appErr.Err != nil {
		log := RequestLog(c)
		kv := []interface{}{"code", appErr.Code, "message", appErr.Message, "error", appErr.Err}
		if appErr.Retryable() {
			log.Warnw("handler_upstream_error", kv...)
		} else {
			log.Errorw("handler_error", kv...)
		}
	}
	response.ErrorWithData(c, appErr.Code, appErr.Message, data)
}
