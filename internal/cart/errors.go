package cart

import "errors"

var (
	// ErrInvalidQuantity 数量必须大于 0
	ErrInvalidQuantity = errors.New("invalid quantity")
	// ErrInvalidProduct 商品信息缺失
	ErrInvalidProduct = errors.New("invalid product")
	// ErrInsufficientStock 数量超过已知库存
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrLineNotFound 购物车中没有该商品行
	ErrLineNotFound = errors.New("cart line not found")
	// ErrSessionClosed 会话已被回收
	ErrSessionClosed = errors.New("cart session closed")
)
