package shared

import (
	"github.com/storefront-next/internal/auth"

	"github.com/gin-gonic/gin"
)

// 上下文键
const (
	SessionIDKey = "session_id"
	IdentityKey  = "identity"
)

// GetSessionID 读取会话ID
func GetSessionID(c *gin.Context) string {
	return c.GetString(SessionIDKey)
}

// GetIdentity 读取当前身份，未设置时为匿名
func GetIdentity(c *gin.Context) auth.Identity {
	value, ok := c.Get(IdentityKey)
	if !ok {
		return auth.Identity{}
	}
	identity, _ := value.(auth.Identity)
	return identity
}
