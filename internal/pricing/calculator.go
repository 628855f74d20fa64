package pricing

import (
	"errors"
	"strings"

	"github.com/storefront-next/internal/constants"
	"github.com/storefront-next/internal/models"

	"github.com/shopspring/decimal"
)

// ErrUnsupportedPaymentMethod 不支持的支付方式
var ErrUnsupportedPaymentMethod = errors.New("unsupported payment method")

// Installment 分期选项
type Installment struct {
	Count  int          `json:"count"`
	Amount models.Money `json:"amount"`
}

// Quote 结算报价（仅用于展示）
type Quote struct {
	Totals               models.Totals `json:"totals"`
	PaymentMethod        string        `json:"payment_method"`
	Installments         []Installment `json:"installments"`
	FreeShipping         bool          `json:"free_shipping"`
	AmountToFreeShipping models.Money  `json:"amount_to_free_shipping"`
}

// Subtotal 按当前单价汇总
func Subtotal(lines []models.LineItem) models.Money {
	total := decimal.Zero
	for _, line := range lines {
		if line.Quantity <= 0 {
			continue
		}
		total = total.Add(line.UnitPrice.Decimal.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return models.NewMoneyFromDecimal(total).FloorZero()
}

// Discount 汇总原价与现价差额，原价不高于现价的行不计入
func Discount(lines []models.LineItem) models.Money {
	total := decimal.Zero
	for _, line := range lines {
		if line.Quantity <= 0 {
			continue
		}
		total = total.Add(line.LineDiscount().Decimal)
	}
	return models.NewMoneyFromDecimal(total).FloorZero()
}

// Total 应付金额：商品部分不低于 0，再加运费
func Total(subtotal, discount, shipping models.Money) models.Money {
	return subtotal.Sub(discount).FloorZero().Add(shipping.FloorZero())
}

// ItemCount 商品总件数
func ItemCount(lines []models.LineItem) int {
	count := 0
	for _, line := range lines {
		if line.Quantity > 0 {
			count += line.Quantity
		}
	}
	return count
}

// Calculator 按规则计算运费、分期与报价
type Calculator struct {
	rules Rules
}

// NewCalculator 创建计算器
func NewCalculator(rules Rules) *Calculator {
	return &Calculator{rules: rules}
}

// Rules 当前规则
func (c *Calculator) Rules() Rules {
	return c.rules
}

// ShippingCost 运费：达到包邮门槛为 0，否则按邮编首位数字取档位，地址未知时取默认值
func (c *Calculator) ShippingCost(subtotal models.Money, address *models.DeliveryAddress) models.Money {
	if subtotal.Decimal.GreaterThanOrEqual(c.rules.FreeShippingThreshold.Decimal) {
		return models.Money{}
	}
	digit, ok := address.FirstPostalDigit()
	if !ok {
		return c.rules.DefaultShipping
	}
	for _, tier := range c.rules.Tiers {
		if strings.IndexByte(tier.Digits, digit) >= 0 {
			return tier.Amount
		}
	}
	return c.rules.DefaultShipping
}

// Installments 分期选项：单期金额不低于最低值
func (c *Calculator) Installments(total models.Money) []Installment {
	if !total.Decimal.IsPositive() {
		return []Installment{}
	}
	maxCount := c.rules.BaseCap
	if total.Decimal.GreaterThanOrEqual(c.rules.ExtendedCapThreshold.Decimal) {
		maxCount = c.rules.ExtendedCap
	}
	options := make([]Installment, 0, maxCount)
	for i := 1; i <= maxCount; i++ {
		amount := total.Decimal.Div(decimal.NewFromInt(int64(i)))
		if amount.LessThan(c.rules.MinInstallment.Decimal) {
			continue
		}
		options = append(options, Installment{
			Count:  i,
			Amount: models.NewMoneyFromDecimal(amount),
		})
	}
	return options
}

// Totals 汇总金额，address 为空时按默认运费计算
func (c *Calculator) Totals(lines []models.LineItem, address *models.DeliveryAddress) models.Totals {
	subtotal := Subtotal(lines)
	discount := Discount(lines)
	shipping := c.ShippingCost(subtotal, address)
	return models.Totals{
		Subtotal:  subtotal,
		Discount:  discount,
		Shipping:  shipping,
		Total:     Total(subtotal, discount, shipping),
		ItemCount: ItemCount(lines),
	}
}

// Quote 结算报价，仅信用卡提供分期
func (c *Calculator) Quote(lines []models.LineItem, address *models.DeliveryAddress, method string) (*Quote, error) {
	method = strings.ToLower(strings.TrimSpace(method))
	if method == "" {
		method = constants.PaymentMethodCreditCard
	}
	if !IsSupportedPaymentMethod(method) {
		return nil, ErrUnsupportedPaymentMethod
	}
	totals := c.Totals(lines, address)
	quote := &Quote{
		Totals:        totals,
		PaymentMethod: method,
		Installments:  []Installment{},
		FreeShipping:  totals.Subtotal.Decimal.GreaterThanOrEqual(c.rules.FreeShippingThreshold.Decimal),
	}
	if !quote.FreeShipping {
		quote.AmountToFreeShipping = c.rules.FreeShippingThreshold.Sub(totals.Subtotal)
	}
	if method == constants.PaymentMethodCreditCard {
		quote.Installments = c.Installments(totals.Total)
	}
	return quote, nil
}

// IsSupportedPaymentMethod 是否为支持的支付方式
func IsSupportedPaymentMethod(method string) bool {
	switch method {
	case constants.PaymentMethodPix, constants.PaymentMethodBoleto, constants.PaymentMethodCreditCard:
		return true
	default:
		return false
	}
}
