package public

import (
	"github.com/storefront-next/internal/cart"
	handlershared "github.com/storefront-next/internal/http/handlers/shared"
	"github.com/storefront-next/internal/provider"

	"github.com/gin-gonic/gin"
)

// Handler 购物车与报价接口，会话来自容器中的 Registry
type Handler struct {
	*provider.Container
}

// New 创建处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}

func respondError(c *gin.Context, code int, msg string, err error) {
	handlershared.RespondError(c, code, msg, err)
}

// currentSession 取出当前请求的购物车会话并同步身份
// 同步失败（如合并时远端不可用）不阻断请求，失败已通过通知告知用户
func (h *Handler) currentSession(c *gin.Context) *cart.Session {
	session := h.Carts.Get(handlershared.GetSessionID(c))
	identity := handlershared.GetIdentity(c)
	if err := session.SyncIdentity(c.Request.Context(), identity); err != nil {
		handlershared.RequestLog(c).Warnw("cart_identity_sync_failed",
			"session_id", session.ID(),
			"user_id", identity.UserID,
			"error", err,
		)
	}
	return session
}
