// Package pricing holds the pure money arithmetic for checkout. All
// functions are deterministic and side-effect free; amounts are
// decimal.Decimal end to end so no binary floating point error can leak
// into totals.
package pricing

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/safar/go-checkout/internal/models"
)

// NewMoney converts a float from an external boundary into money.
// Non-finite input yields zero.
func NewMoney(f float64) decimal.Decimal {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(f)
}

// RoundMoney rounds to 2 decimal places, half away from zero.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// ComputeDiscountAmount returns the discount a coupon yields against a
// subtotal. Unknown coupon types, non-positive subtotals and non-positive
// values all yield zero. The result is rounded, then clamped to
// [0, subtotal].
func ComputeDiscountAmount(subtotal decimal.Decimal, typ models.CouponType, value decimal.Decimal) decimal.Decimal {
	if subtotal.Sign() <= 0 || value.Sign() <= 0 {
		return decimal.Zero
	}

	var amount decimal.Decimal
	switch typ {
	case models.CouponTypePercentage:
		amount = subtotal.Mul(value).Div(decimal.NewFromInt(100))
	case models.CouponTypeFixed:
		amount = value
	default:
		return decimal.Zero
	}

	amount = RoundMoney(amount)
	if amount.Sign() < 0 {
		return decimal.Zero
	}
	if amount.GreaterThan(subtotal) {
		return subtotal
	}
	return amount
}

// Totals is the fully derived money breakdown of an order.
type Totals struct {
	Subtotal          decimal.Decimal
	ShippingPrice     decimal.Decimal
	DiscountAmount    decimal.Decimal
	Total             decimal.Decimal
	TotalWithShipping decimal.Decimal
}

// ComputeTotals rounds every input, clamps the discount to [0, subtotal]
// and derives total and totalWithShipping. It never fails.
func ComputeTotals(subtotal, shippingPrice, discountAmount decimal.Decimal) Totals {
	subtotal = RoundMoney(subtotal)
	shippingPrice = RoundMoney(shippingPrice)
	discountAmount = RoundMoney(discountAmount)

	if discountAmount.Sign() < 0 {
		discountAmount = decimal.Zero
	}
	if discountAmount.GreaterThan(subtotal) {
		discountAmount = subtotal
	}

	total := RoundMoney(subtotal.Sub(discountAmount))
	if total.Sign() < 0 {
		total = decimal.Zero
	}

	totalWithShipping := RoundMoney(total.Add(shippingPrice))
	if totalWithShipping.Sign() < 0 {
		totalWithShipping = decimal.Zero
	}

	return Totals{
		Subtotal:          subtotal,
		ShippingPrice:     shippingPrice,
		DiscountAmount:    discountAmount,
		Total:             total,
		TotalWithShipping: totalWithShipping,
	}
}
