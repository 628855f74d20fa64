package pricing

import (
	"fmt"
	"strings"

	"github.com/storefront-next/internal/config"
	"github.com/storefront-next/internal/models"
)

// ShippingTier 按邮编首位数字匹配的运费档位
type ShippingTier struct {
	Digits string
	Amount models.Money
}

// Rules 运费与分期规则
type Rules struct {
	FreeShippingThreshold models.Money
	DefaultShipping       models.Money
	Tiers                 []ShippingTier
	MinInstallment        models.Money
	ExtendedCapThreshold  models.Money // 达到该金额时分期上限提升
	ExtendedCap           int
	BaseCap               int
}

// DefaultRules 默认规则
func DefaultRules() Rules {
	return Rules{
		FreeShippingThreshold: models.MustMoney("200.00"),
		DefaultShipping:       models.MustMoney("15.00"),
		Tiers: []ShippingTier{
			{Digits: "012", Amount: models.MustMoney("30.00")},
			{Digits: "345", Amount: models.MustMoney("15.00")},
			{Digits: "6789", Amount: models.MustMoney("20.00")},
		},
		MinInstallment:       models.MustMoney("10.00"),
		ExtendedCapThreshold: models.MustMoney("100.00"),
		ExtendedCap:          12,
		BaseCap:              6,
	}
}

// RulesFromConfig 从配置构建规则，未配置的字段使用默认值
func RulesFromConfig(cfg config.PricingConfig) (Rules, error) {
	rules := DefaultRules()
	if err := parseOptional(cfg.FreeShippingThreshold, &rules.FreeShippingThreshold); err != nil {
		return Rules{}, fmt.Errorf("free_shipping_threshold: %w", err)
	}
	if err := parseOptional(cfg.DefaultShipping, &rules.DefaultShipping); err != nil {
		return Rules{}, fmt.Errorf("default_shipping: %w", err)
	}
	if err := parseOptional(cfg.MinInstallment, &rules.MinInstallment); err != nil {
		return Rules{}, fmt.Errorf("min_installment: %w", err)
	}
	if len(cfg.ShippingTiers) > 0 {
		tiers := make([]ShippingTier, 0, len(cfg.ShippingTiers))
		for _, tier := range cfg.ShippingTiers {
			amount, err := models.ParseMoney(strings.TrimSpace(tier.Amount))
			if err != nil {
				return Rules{}, fmt.Errorf("shipping tier %q: %w", tier.Digits, err)
			}
			if amount.Decimal.IsNegative() {
				return Rules{}, fmt.Errorf("shipping tier %q: negative amount", tier.Digits)
			}
			tiers = append(tiers, ShippingTier{Digits: strings.TrimSpace(tier.Digits), Amount: amount})
		}
		rules.Tiers = tiers
	}
	if rules.FreeShippingThreshold.Decimal.IsNegative() || rules.DefaultShipping.Decimal.IsNegative() {
		return Rules{}, fmt.Errorf("negative shipping rule")
	}
	if !rules.MinInstallment.Decimal.IsPositive() {
		return Rules{}, fmt.Errorf("min_installment must be positive")
	}
	return rules, nil
}

func parseOptional(raw string, dest *models.Money) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	value, err := models.ParseMoney(raw)
	if err != nil {
		return err
	}
	*dest = value
	return nil
}
