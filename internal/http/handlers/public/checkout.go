package public

import (
	"github.com/storefront-next/internal/http/response"
	"github.com/storefront-next/internal/models"

	"github.com/gin-gonic/gin"
)

// QuoteRequest 结算报价请求
type QuoteRequest struct {
	Address       *models.DeliveryAddress `json:"address"`
	PaymentMethod string                  `json:"payment_method"`
}

// Quote 按收货地址与支付方式计算报价
func (h *Handler) Quote(c *gin.Context) {
	var req QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "Invalid request.", err)
		return
	}
	if req.Address != nil {
		if err := req.Address.Validate(); err != nil {
			respondQuoteError(c, err)
			return
		}
	}
	session := h.currentSession(c)
	quote, err := session.Quote(req.Address, req.PaymentMethod)
	if err != nil {
		respondQuoteError(c, err)
		return
	}
	response.Success(c, gin.H{
		"quote":   quote,
		"notices": session.Notices(),
	})
}
