package public

import (
	"errors"

	"github.com/storefront-next/internal/cart"
	"github.com/storefront-next/internal/gateway"
	handlershared "github.com/storefront-next/internal/http/handlers/shared"
	"github.com/storefront-next/internal/http/response"
	"github.com/storefront-next/internal/models"
	"github.com/storefront-next/internal/pricing"

	"github.com/gin-gonic/gin"
)

// mappedHandlerError 定义业务错误到接口错误响应的映射关系。
type mappedHandlerError struct {
	target error
	code   int
	msg    string
}

func respondWithMappedError(c *gin.Context, err error, rules []mappedHandlerError, fallbackCode int, fallbackMsg string, data interface{}) {
	handlershared.RespondAppError(c, mapError(err, rules, fallbackCode, fallbackMsg), data)
}

// mapError 按规则表把业务错误转成 AppError；命中规则的校验类错误不记录原始错误
func mapError(err error, rules []mappedHandlerError, fallbackCode int, fallbackMsg string) *response.AppError {
	for _, rule := range rules {
		if errors.Is(err, rule.target) {
			return response.WrapError(rule.code, rule.msg, nil)
		}
	}
	if errors.Is(err, gateway.ErrCartNotFound) || gateway.IsTransport(err) || isAPIError(err) {
		return response.WrapError(response.CodeBadGateway, gateway.UserMessage(err, fallbackMsg), err)
	}
	return response.WrapError(fallbackCode, fallbackMsg, err)
}

func isAPIError(err error) bool {
	var apiErr *gateway.APIError
	return errors.As(err, &apiErr)
}

var cartErrorRules = []mappedHandlerError{
	{target: cart.ErrInvalidQuantity, code: response.CodeBadRequest, msg: "Quantity must be at least 1."},
	{target: cart.ErrInvalidProduct, code: response.CodeBadRequest, msg: "This product is unavailable."},
	{target: cart.ErrInsufficientStock, code: response.CodeConflict, msg: "Not enough stock available for this item."},
	{target: cart.ErrLineNotFound, code: response.CodeNotFound, msg: "This item is no longer in your cart."},
	{target: cart.ErrSessionClosed, code: response.CodeConflict, msg: "Your session expired. Please try again."},
}

var quoteErrorRules = []mappedHandlerError{
	{target: pricing.ErrUnsupportedPaymentMethod, code: response.CodeBadRequest, msg: "Unsupported payment method."},
	{target: models.ErrInvalidPostalCode, code: response.CodeBadRequest, msg: "Invalid postal code."},
	{target: models.ErrInvalidState, code: response.CodeBadRequest, msg: "Invalid state."},
}

func respondCartError(c *gin.Context, err error, data interface{}) {
	respondWithMappedError(c, err, cartErrorRules, response.CodeInternal, "We could not update your cart. Please try again.", data)
}

func respondQuoteError(c *gin.Context, err error) {
	respondWithMappedError(c, err, quoteErrorRules, response.CodeInternal, "We could not calculate your quote.", nil)
}
