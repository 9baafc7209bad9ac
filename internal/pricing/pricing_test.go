package pricing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solentra/storefront/internal/domain/coupon"
)

func line(id, price string, qty int) CartLine {
	return CartLine{
		ProductID: id,
		UnitPrice: decimal.RequireFromString(price),
		Quantity:  qty,
	}
}

func tenPercent() *coupon.Coupon {
	return &coupon.Coupon{
		Code:               "GIFTABC123",
		UserID:             "u1",
		DiscountPercentage: 10,
		IsActive:           true,
		ExpirationDate:     time.Now().Add(24 * time.Hour),
	}
}

func TestCompute_EmptyCart(t *testing.T) {
	_, err := Compute(nil, nil)
	require.ErrorIs(t, err, ErrEmptyCart)
}

func TestCompute_InvalidQuantity(t *testing.T) {
	_, err := Compute([]CartLine{line("p1", "10.00", 0)}, nil)

	var ilErr *InvalidLineError
	require.ErrorAs(t, err, &ilErr)
	assert.Equal(t, "p1", ilErr.ProductID)
}

func TestCompute_NegativePrice(t *testing.T) {
	_, err := Compute([]CartLine{line("p1", "-1.50", 1)}, nil)

	var ilErr *InvalidLineError
	require.ErrorAs(t, err, &ilErr)
}

func TestCompute_NoCoupon(t *testing.T) {
	q, err := Compute([]CartLine{line("p1", "100.00", 2)}, nil)

	require.NoError(t, err)
	assert.Equal(t, int64(20000), q.TotalPaise)
	assert.Equal(t, int64(0), q.DiscountPaise)
	assert.Nil(t, q.Coupon)
}

func TestCompute_WithCoupon(t *testing.T) {
	q, err := Compute([]CartLine{line("p1", "100.00", 2)}, tenPercent())

	require.NoError(t, err)
	assert.Equal(t, int64(18000), q.TotalPaise)
	assert.Equal(t, int64(2000), q.DiscountPaise)
	require.NotNil(t, q.Coupon)
}

// Rounding happens per unit, before the quantity multiply: 0.333 rounds to 33
// paise, so three of them cost 99 paise, not round(99.9) = 100.
func TestCompute_RoundsPerUnit(t *testing.T) {
	q, err := Compute([]CartLine{line("p1", "0.333", 3)}, nil)

	require.NoError(t, err)
	assert.Equal(t, int64(99), q.TotalPaise)
}

func TestCompute_RoundsHalfAwayFromZero(t *testing.T) {
	// 1.005 * 100 = 100.5 -> 101 paise per unit.
	q, err := Compute([]CartLine{line("p1", "1.005", 2)}, nil)

	require.NoError(t, err)
	assert.Equal(t, int64(202), q.TotalPaise)
}

func TestCompute_DiscountRounding(t *testing.T) {
	// Subtotal 1005 paise, 10% -> 100.5 rounds to 101.
	q, err := Compute([]CartLine{line("p1", "10.05", 1)}, tenPercent())

	require.NoError(t, err)
	assert.Equal(t, int64(1005-101), q.TotalPaise)
	assert.Equal(t, int64(101), q.DiscountPaise)
}

func TestCompute_MultiLineSubtotal(t *testing.T) {
	lines := []CartLine{
		line("p1", "19.99", 3),
		line("p2", "5.50", 1),
		line("p3", "0.01", 10),
	}

	q, err := Compute(lines, nil)

	require.NoError(t, err)
	// 1999*3 + 550 + 1*10
	assert.Equal(t, int64(5997+550+10), q.TotalPaise)
	assert.Equal(t, lines, q.Lines)
}

func TestQuote_QualifiesForLoyaltyCoupon(t *testing.T) {
	below, err := Compute([]CartLine{line("p1", "199.99", 1)}, nil)
	require.NoError(t, err)
	assert.False(t, below.QualifiesForLoyaltyCoupon())

	at, err := Compute([]CartLine{line("p1", "200.00", 1)}, nil)
	require.NoError(t, err)
	assert.True(t, at.QualifiesForLoyaltyCoupon())
}

// A discount can push the total below the loyalty threshold; qualification is
// checked on the discounted total.
func TestQuote_LoyaltyChecksDiscountedTotal(t *testing.T) {
	q, err := Compute([]CartLine{line("p1", "200.00", 1)}, tenPercent())
	require.NoError(t, err)

	assert.Equal(t, int64(18000), q.TotalPaise)
	assert.False(t, q.QualifiesForLoyaltyCoupon())
}
