package response

// 业务状态码，HTTP 状态恒为 200
const (
	CodeOK              = 0
	CodeBadRequest      = 400 // 数量或地址校验失败
	CodeUnauthorized    = 401 // 令牌无效
	CodeNotFound        = 404 // 购物车中无此商品
	CodeConflict        = 409 // 库存不足或会话已关闭
	CodeTooManyRequests = 429
	CodeInternal        = 500
	CodeBadGateway      = 502 // 远端购物车服务失败
)
