package models

import "strings"

// LineItem 购物车行项目
type LineItem struct {
	ProductID         string `json:"product_id"`               // 商品ID（购物车内唯一）
	Name              string `json:"name"`                     // 商品名称
	ImageURL          string `json:"image_url,omitempty"`      // 商品图片
	CategoryLabel     string `json:"category_label,omitempty"` // 分类名称
	UnitPrice         Money  `json:"unit_price"`               // 当前生效单价（活动价或原价）
	OriginalUnitPrice Money  `json:"original_unit_price"`      // 原价
	Quantity          int    `json:"quantity"`                 // 数量（>= 1）
	AvailableStock    int    `json:"available_stock"`          // 最近一次查询到的库存（仅供参考）
	RemoteLineID      string `json:"remote_line_id,omitempty"` // 远端行ID（仅登录购物车存在）
}

// LineTotal 行小计
func (l LineItem) LineTotal() Money {
	return l.UnitPrice.Mul(l.Quantity)
}

// LineDiscount 行优惠金额（原价高于现价时）
func (l LineItem) LineDiscount() Money {
	if !l.OriginalUnitPrice.Decimal.GreaterThan(l.UnitPrice.Decimal) {
		return Money{}
	}
	return l.OriginalUnitPrice.Sub(l.UnitPrice).Mul(l.Quantity)
}

// Normalize 修正原价低于现价的行，保证 OriginalUnitPrice >= UnitPrice
func (l *LineItem) Normalize() {
	l.ProductID = strings.TrimSpace(l.ProductID)
	if l.OriginalUnitPrice.Decimal.LessThan(l.UnitPrice.Decimal) {
		l.OriginalUnitPrice = l.UnitPrice
	}
}

// Cart 购物车（按 ProductID 唯一的有序行集合）
type Cart struct {
	Lines []LineItem `json:"lines"`
}

// IndexOf 返回商品所在行下标，不存在时返回 -1
func (c *Cart) IndexOf(productID string) int {
	if c == nil {
		return -1
	}
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// Find 查找商品行
func (c *Cart) Find(productID string) (LineItem, bool) {
	idx := c.IndexOf(productID)
	if idx < 0 {
		return LineItem{}, false
	}
	return c.Lines[idx], true
}

// Clone 深拷贝行集合
func (c *Cart) Clone() *Cart {
	if c == nil {
		return &Cart{}
	}
	lines := make([]LineItem, len(c.Lines))
	copy(lines, c.Lines)
	return &Cart{Lines: lines}
}

// ProductIDs 返回全部商品ID（保持顺序）
func (c *Cart) ProductIDs() []string {
	if c == nil {
		return nil
	}
	ids := make([]string, 0, len(c.Lines))
	for _, line := range c.Lines {
		ids = append(ids, line.ProductID)
	}
	return ids
}

// IsEmpty 是否为空购物车
func (c *Cart) IsEmpty() bool {
	return c == nil || len(c.Lines) == 0
}

// CartSnapshot 远端购物车完整快照（每次操作后的全量状态）
type CartSnapshot struct {
	ID    string     `json:"id"`
	Lines []LineItem `json:"lines"`
	Total Money      `json:"total"`
}

// IsEmpty 快照是否为空
func (s *CartSnapshot) IsEmpty() bool {
	return s == nil || len(s.Lines) == 0
}

// Totals 派生金额汇总（不落库）
type Totals struct {
	Subtotal  Money `json:"subtotal"`
	Discount  Money `json:"discount"`
	Shipping  Money `json:"shipping"`
	Total     Money `json:"total"`
	ItemCount int   `json:"item_count"`
}
