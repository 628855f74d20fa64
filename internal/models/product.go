package models

import "strings"

// Product 加入购物车时的商品信息
type Product struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	ImageURL      string `json:"image_url"`
	CategoryLabel string `json:"category_label"`
	ListPrice     Money  `json:"list_price"`
	PromoPrice    *Money `json:"promo_price,omitempty"` // 活动价（可选）
	Stock         int    `json:"stock"`
}

// HasActivePromo 活动价存在、非负且低于原价（0 元活动价有效）
func (p Product) HasActivePromo() bool {
	return p.PromoPrice != nil &&
		!p.PromoPrice.Decimal.IsNegative() &&
		p.PromoPrice.Decimal.LessThan(p.ListPrice.Decimal)
}

// HasValidPrices 原价与活动价均不为负
func (p Product) HasValidPrices() bool {
	if p.ListPrice.Decimal.IsNegative() {
		return false
	}
	return p.PromoPrice == nil || !p.PromoPrice.Decimal.IsNegative()
}

// EffectivePrice 当前生效单价
func (p Product) EffectivePrice() Money {
	if p.HasActivePromo() {
		return *p.PromoPrice
	}
	return p.ListPrice
}

// OriginalPrice 原价
func (p Product) OriginalPrice() Money {
	return p.ListPrice
}

// ToLineItem 按数量生成购物车行
func (p Product) ToLineItem(quantity int) LineItem {
	line := LineItem{
		ProductID:         strings.TrimSpace(p.ID),
		Name:              p.Name,
		ImageURL:          p.ImageURL,
		CategoryLabel:     p.CategoryLabel,
		UnitPrice:         p.EffectivePrice(),
		OriginalUnitPrice: p.OriginalPrice(),
		Quantity:          quantity,
		AvailableStock:    p.Stock,
	}
	line.Normalize()
	return line
}
