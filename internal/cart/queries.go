package cart

import (
	"github.com/storefront-next/internal/auth"
	"github.com/storefront-next/internal/models"
	"github.com/storefront-next/internal/pricing"
)

// Lines 当前行集合副本（按加入顺序）
func (s *Session) Lines() []models.LineItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneLines(s.lines)
}

// State 会话状态 anonymous / authenticated
func (s *Session) State() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Identity 当前身份
func (s *Session) Identity() auth.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity
}

// BackendName 当前后端名称
func (s *Session) BackendName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.backend.Name()
}

// MergePending 登录合并是否仍待重试
func (s *Session) MergePending() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mergePending
}

// IsInCart 商品是否在购物车中
func (s *Session) IsInCart(productID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return (&models.Cart{Lines: s.lines}).IndexOf(productID) >= 0
}

// QuantityOf 商品数量，不存在时为 0
func (s *Session) QuantityOf(productID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	line, ok := (&models.Cart{Lines: s.lines}).Find(productID)
	if !ok {
		return 0
	}
	return line.Quantity
}

// TotalItemCount 商品件数合计
func (s *Session) TotalItemCount() int {
	return pricing.ItemCount(s.Lines())
}

// Subtotal 按现价计算的小计
func (s *Session) Subtotal() models.Money {
	return pricing.Subtotal(s.Lines())
}

// TotalDiscount 活动优惠合计
func (s *Session) TotalDiscount() models.Money {
	return pricing.Discount(s.Lines())
}

// Total 应付总额 = max(0, 小计 - 优惠) + 运费
func (s *Session) Total(shipping models.Money) models.Money {
	lines := s.Lines()
	return pricing.Total(pricing.Subtotal(lines), pricing.Discount(lines), shipping)
}

// Totals 按收货地址计算完整金额汇总
func (s *Session) Totals(address *models.DeliveryAddress) models.Totals {
	return s.deps.Pricing.Totals(s.Lines(), address)
}

// Quote 结算报价（含分期选项）
func (s *Session) Quote(address *models.DeliveryAddress, method string) (*pricing.Quote, error) {
	return s.deps.Pricing.Quote(s.Lines(), address, method)
}
