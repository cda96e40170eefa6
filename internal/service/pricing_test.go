package service

import (
	"testing"

	"github.com/RoyceAzure/lab/storefront/internal/apperr"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func TestPricingPolicyPrice(t *testing.T) {
	saree := []PricedLine{{UnitPrice: dec("1200"), Quantity: 1}}

	testCases := []struct {
		name     string
		policy   PricingPolicy
		lines    []PricedLine
		adj      PriceAdjustments
		total    string
		subtotal string
		field    string
	}{
		{
			name:     "explicit amounts",
			policy:   DefaultPricingPolicy(),
			lines:    saree,
			adj:      PriceAdjustments{TaxAmount: decPtr("60"), ShippingAmount: decPtr("50"), DiscountAmount: decPtr("0")},
			subtotal: "1200",
			total:    "1310",
		},
		{
			name:     "default pricing",
			policy:   DefaultPricingPolicy(),
			lines:    saree,
			subtotal: "1200",
			total:    "1310",
		},
		{
			name:     "multiple lines with discount",
			policy:   DefaultPricingPolicy(),
			lines:    []PricedLine{{UnitPrice: dec("199.99"), Quantity: 2}, {UnitPrice: dec("0.02"), Quantity: 3}},
			adj:      PriceAdjustments{DiscountAmount: decPtr("10")},
			subtotal: "400.04",
			// tax 20.002 -> 20.00
			total: "460.04",
		},
		{
			name: "free shipping threshold",
			policy: PricingPolicy{
				TaxRate:               decimal.Zero,
				ShippingFee:           dec("50"),
				FreeShippingThreshold: dec("1000"),
			},
			lines:    saree,
			subtotal: "1200",
			total:    "1200",
		},
		{
			name:   "negative tax",
			policy: DefaultPricingPolicy(),
			lines:  saree,
			adj:    PriceAdjustments{TaxAmount: decPtr("-1")},
			field:  "tax_amount",
		},
		{
			name:   "negative shipping",
			policy: DefaultPricingPolicy(),
			lines:  saree,
			adj:    PriceAdjustments{ShippingAmount: decPtr("-0.01")},
			field:  "shipping_amount",
		},
		{
			name:     "two decimal adjustments",
			policy:   DefaultPricingPolicy(),
			lines:    saree,
			adj:      PriceAdjustments{TaxAmount: decPtr("60.50"), ShippingAmount: decPtr("49.990"), DiscountAmount: decPtr("0.49")},
			subtotal: "1200",
			total:    "1310",
		},
		{
			name:   "sub-cent tax",
			policy: DefaultPricingPolicy(),
			lines:  saree,
			adj:    PriceAdjustments{TaxAmount: decPtr("0.005")},
			field:  "tax_amount",
		},
		{
			name:   "sub-cent shipping",
			policy: DefaultPricingPolicy(),
			lines:  saree,
			adj:    PriceAdjustments{ShippingAmount: decPtr("0.005")},
			field:  "shipping_amount",
		},
		{
			name:   "sub-cent discount",
			policy: DefaultPricingPolicy(),
			lines:  saree,
			adj:    PriceAdjustments{DiscountAmount: decPtr("10.001")},
			field:  "discount_amount",
		},
		{
			name:   "discount exceeds amount",
			policy: DefaultPricingPolicy(),
			lines:  saree,
			adj:    PriceAdjustments{DiscountAmount: decPtr("1310.01")},
			field:  "discount_amount",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			totals, err := tc.policy.Price(tc.lines, tc.adj)
			if tc.field != "" {
				require.Error(t, err)
				appErr := apperr.As(err)
				require.Equal(t, apperr.KindValidation, appErr.Kind)
				require.Equal(t, tc.field, appErr.Field)
				return
			}
			require.NoError(t, err)
			require.True(t, dec(tc.subtotal).Equal(totals.Subtotal), "subtotal %s", totals.Subtotal)
			require.True(t, dec(tc.total).Equal(totals.TotalAmount), "total %s", totals.TotalAmount)
			require.True(t, totals.TotalAmount.Equal(
				totals.Subtotal.Add(totals.TaxAmount).Add(totals.ShippingAmount).Sub(totals.DiscountAmount)))
			require.True(t, totals.TotalAmount.Equal(totals.TotalAmount.Round(2)), "total %s", totals.TotalAmount)
		})
	}
}

func TestPriceAdjustmentsValidate(t *testing.T) {
	require.NoError(t, PriceAdjustments{}.Validate())
	require.NoError(t, PriceAdjustments{TaxAmount: decPtr("0"), DiscountAmount: decPtr("12.30")}.Validate())

	err := PriceAdjustments{TaxAmount: decPtr("1"), DiscountAmount: decPtr("-0.01")}.Validate()
	require.Error(t, err)
	require.Equal(t, "discount_amount", apperr.As(err).Field)

	err = PriceAdjustments{ShippingAmount: decPtr("0.333")}.Validate()
	require.Error(t, err)
	require.Equal(t, apperr.KindValidation, apperr.As(err).Kind)
	require.Equal(t, "shipping_amount", apperr.As(err).Field)
}
