package public

import (
	"strings"

	"github.com/storefront-next/internal/cart"
	"github.com/storefront-next/internal/http/response"
	"github.com/storefront-next/internal/models"
	"github.com/storefront-next/internal/notify"

	"github.com/gin-gonic/gin"
)

// AddItemRequest 加入购物车请求
type AddItemRequest struct {
	Product  models.Product `json:"product"`
	Quantity int            `json:"quantity"`
}

// UpdateQuantityRequest 修改数量请求
type UpdateQuantityRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

// CartResponse 购物车响应
type CartResponse struct {
	SessionID    string            `json:"session_id"`
	State        string            `json:"state"`
	Lines        []models.LineItem `json:"lines"`
	Totals       models.Totals     `json:"totals"`
	MergePending bool              `json:"merge_pending"`
	Notices      []notify.Notice   `json:"notices"`
}

func buildCartResponse(session *cart.Session) CartResponse {
	return CartResponse{
		SessionID:    session.ID(),
		State:        session.State(),
		Lines:        session.Lines(),
		Totals:       session.Totals(nil),
		MergePending: session.MergePending(),
		Notices:      session.Notices(),
	}
}

func (h *Handler) respondCart(c *gin.Context, session *cart.Session, err error) {
	view := buildCartResponse(session)
	if err != nil {
		respondCartError(c, err, view)
		return
	}
	response.Success(c, view)
}

// GetCart 获取购物车
func (h *Handler) GetCart(c *gin.Context) {
	session := h.currentSession(c)
	response.Success(c, buildCartResponse(session))
}

// AddItem 加入购物车
func (h *Handler) AddItem(c *gin.Context) {
	var req AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "Invalid request.", err)
		return
	}
	session := h.currentSession(c)
	err := session.AddItem(c.Request.Context(), req.Product, req.Quantity)
	h.respondCart(c, session, err)
}

// UpdateItem 修改数量（<= 0 时移除）
func (h *Handler) UpdateItem(c *gin.Context) {
	var req UpdateQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "Invalid request.", err)
		return
	}
	session := h.currentSession(c)
	err := session.UpdateQuantity(c.Request.Context(), strings.TrimSpace(c.Param("product_id")), *req.Quantity)
	h.respondCart(c, session, err)
}

// RemoveItem 移除商品
func (h *Handler) RemoveItem(c *gin.Context) {
	session := h.currentSession(c)
	err := session.RemoveItem(c.Request.Context(), strings.TrimSpace(c.Param("product_id")))
	h.respondCart(c, session, err)
}

// ClearCart 清空购物车
func (h *Handler) ClearCart(c *gin.Context) {
	session := h.currentSession(c)
	err := session.ClearCart(c.Request.Context())
	h.respondCart(c, session, err)
}

// RefreshCart 重新加载购物车与库存
func (h *Handler) RefreshCart(c *gin.Context) {
	session := h.currentSession(c)
	err := session.Refresh(c.Request.Context())
	h.respondCart(c, session, err)
}
