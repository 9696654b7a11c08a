package pricing

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/safar/go-checkout/internal/models"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestNewMoneyNonFinite(t *testing.T) {
	require.True(t, NewMoney(math.NaN()).IsZero())
	require.True(t, NewMoney(math.Inf(1)).IsZero())
	require.True(t, NewMoney(math.Inf(-1)).IsZero())
	require.True(t, NewMoney(19.99).Equal(dec("19.99")))
}

func TestRoundMoneyHalfAwayFromZero(t *testing.T) {
	require.True(t, RoundMoney(dec("19.999")).Equal(dec("20.00")))
	require.True(t, RoundMoney(dec("2.005")).Equal(dec("2.01")))
	require.True(t, RoundMoney(dec("-2.005")).Equal(dec("-2.01")))
	require.True(t, RoundMoney(dec("2.004")).Equal(dec("2.00")))
}

func TestComputeDiscountAmountPercentage(t *testing.T) {
	got := ComputeDiscountAmount(dec("199.99"), models.CouponTypePercentage, dec("10"))
	require.True(t, got.Equal(dec("20.00")), "got %s", got)
}

func TestComputeDiscountAmountFixedClampsToSubtotal(t *testing.T) {
	got := ComputeDiscountAmount(dec("100"), models.CouponTypeFixed, dec("150"))
	require.True(t, got.Equal(dec("100")), "got %s", got)
}

func TestComputeDiscountAmountZeroCases(t *testing.T) {
	require.True(t, ComputeDiscountAmount(decimal.Zero, models.CouponTypeFixed, dec("10")).IsZero())
	require.True(t, ComputeDiscountAmount(dec("-5"), models.CouponTypeFixed, dec("10")).IsZero())
	require.True(t, ComputeDiscountAmount(dec("100"), models.CouponTypeFixed, decimal.Zero).IsZero())
	require.True(t, ComputeDiscountAmount(dec("100"), models.CouponTypeFixed, dec("-10")).IsZero())
	require.True(t, ComputeDiscountAmount(dec("100"), models.CouponType("bogus"), dec("10")).IsZero())
}

func TestComputeDiscountAmountBounded(t *testing.T) {
	subtotals := []string{"0.01", "1", "99.99", "100", "12345.67"}
	values := []string{"0.01", "1", "50", "100"}
	for _, s := range subtotals {
		for _, v := range values {
			for _, typ := range []models.CouponType{models.CouponTypePercentage, models.CouponTypeFixed} {
				sub := dec(s)
				got := ComputeDiscountAmount(sub, typ, dec(v))
				require.True(t, got.Sign() >= 0, "%s %s %s: negative discount %s", s, typ, v, got)
				require.True(t, got.LessThanOrEqual(sub), "%s %s %s: discount %s exceeds subtotal", s, typ, v, got)
			}
		}
	}
}

func TestComputeTotalsNoCoupon(t *testing.T) {
	got := ComputeTotals(dec("250.00"), dec("35.00"), decimal.Zero)
	require.True(t, got.Total.Equal(dec("250.00")), "total %s", got.Total)
	require.True(t, got.TotalWithShipping.Equal(dec("285.00")), "totalWithShipping %s", got.TotalWithShipping)
}

func TestComputeTotalsDiscountClampsToZeroTotal(t *testing.T) {
	got := ComputeTotals(dec("100.00"), dec("35.00"), dec("150"))
	require.True(t, got.DiscountAmount.Equal(dec("100.00")))
	require.True(t, got.Total.IsZero(), "total %s", got.Total)
	require.True(t, got.TotalWithShipping.Equal(dec("35.00")))
}

func TestComputeTotalsPercentageScenario(t *testing.T) {
	sub := dec("199.99")
	discount := ComputeDiscountAmount(sub, models.CouponTypePercentage, dec("10"))
	got := ComputeTotals(sub, dec("35.00"), discount)
	require.True(t, got.DiscountAmount.Equal(dec("20.00")))
	require.True(t, got.Total.Equal(dec("179.99")), "total %s", got.Total)
	require.True(t, got.TotalWithShipping.Equal(dec("214.99")))
}

func TestComputeTotalsIdempotent(t *testing.T) {
	first := ComputeTotals(dec("199.99"), dec("35.555"), dec("20.004"))
	second := ComputeTotals(first.Subtotal, first.ShippingPrice, first.DiscountAmount)
	require.True(t, first.Subtotal.Equal(second.Subtotal))
	require.True(t, first.ShippingPrice.Equal(second.ShippingPrice))
	require.True(t, first.DiscountAmount.Equal(second.DiscountAmount))
	require.True(t, first.Total.Equal(second.Total))
	require.True(t, first.TotalWithShipping.Equal(second.TotalWithShipping))
}

func TestComputeTotalsNegativeDiscountIgnored(t *testing.T) {
	got := ComputeTotals(dec("50"), dec("10"), dec("-5"))
	require.True(t, got.DiscountAmount.IsZero())
	require.True(t, got.Total.Equal(dec("50")))
	require.True(t, got.TotalWithShipping.Equal(dec("60")))
}
