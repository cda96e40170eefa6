package service

import (
	"github.com/RoyceAzure/lab/storefront/internal/apperr"
	"github.com/shopspring/decimal"
)

// PricingPolicy 請求未提供金額時的預設值
type PricingPolicy struct {
	TaxRate     decimal.Decimal
	ShippingFee decimal.Decimal
	// FreeShippingThreshold 小計達到此金額免運，0 表示不啟用
	FreeShippingThreshold decimal.Decimal
	Currency              string
}

func DefaultPricingPolicy() PricingPolicy {
	return PricingPolicy{
		TaxRate:     decimal.NewFromFloat(0.05),
		ShippingFee: decimal.NewFromInt(50),
		Currency:    "INR",
	}
}

// PriceAdjustments 呼叫端指定的金額，nil 代表使用預設
type PriceAdjustments struct {
	TaxAmount      *decimal.Decimal
	ShippingAmount *decimal.Decimal
	DiscountAmount *decimal.Decimal
}

// Validate 檢查呼叫端金額：不可為負，最多兩位小數
func (a PriceAdjustments) Validate() error {
	for _, f := range []struct {
		field  string
		amount *decimal.Decimal
	}{
		{"tax_amount", a.TaxAmount},
		{"shipping_amount", a.ShippingAmount},
		{"discount_amount", a.DiscountAmount},
	} {
		if f.amount == nil {
			continue
		}
		if f.amount.IsNegative() {
			return apperr.Validation(f.field, "must not be negative")
		}
		if !f.amount.Equal(f.amount.Round(2)) {
			return apperr.Validation(f.field, "must have at most 2 decimal places")
		}
	}
	return nil
}

type PricedLine struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

type Totals struct {
	Subtotal       decimal.Decimal
	TaxAmount      decimal.Decimal
	ShippingAmount decimal.Decimal
	DiscountAmount decimal.Decimal
	TotalAmount    decimal.Decimal
}

// Price 計算訂單金額
// total = subtotal + tax + shipping - discount
// 錯誤:
//   - apperr.KindValidation: 金額為負、超過兩位小數或折扣超過應付金額
func (p PricingPolicy) Price(lines []PricedLine, adj PriceAdjustments) (Totals, error) {
	if err := adj.Validate(); err != nil {
		return Totals{}, err
	}

	subtotal := decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	subtotal = subtotal.Round(2)

	tax := subtotal.Mul(p.TaxRate).Round(2)
	if adj.TaxAmount != nil {
		tax = *adj.TaxAmount
	}

	shipping := p.ShippingFee.Round(2)
	if p.FreeShippingThreshold.IsPositive() && subtotal.GreaterThanOrEqual(p.FreeShippingThreshold) {
		shipping = decimal.Zero
	}
	if adj.ShippingAmount != nil {
		shipping = *adj.ShippingAmount
	}

	discount := decimal.Zero
	if adj.DiscountAmount != nil {
		discount = *adj.DiscountAmount
	}

	gross := subtotal.Add(tax).Add(shipping)
	if discount.GreaterThan(gross) {
		return Totals{}, apperr.Validation("discount_amount", "exceeds order amount")
	}

	return Totals{
		Subtotal:       subtotal,
		TaxAmount:      tax,
		ShippingAmount: shipping,
		DiscountAmount: discount,
		TotalAmount:    gross.Sub(discount),
	}, nil
}
