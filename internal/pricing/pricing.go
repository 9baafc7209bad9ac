// Package pricing computes checkout totals in integer minor-currency units
// (paise). All arithmetic is exact: unit prices are rounded to paise before
// quantity multiplication, matching the gateway's integer amount contract.
package pricing

import (
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/solentra/storefront/internal/domain/coupon"
)

// LoyaltyThresholdPaise is the quoted total at or above which a checkout earns
// the user a fresh loyalty coupon. Fixed incentive mechanic, not caller-tunable.
const LoyaltyThresholdPaise int64 = 20000

// ErrEmptyCart is returned when a quote is requested for no line items.
var ErrEmptyCart = errors.New("cart must contain at least one item")

// InvalidLineError indicates a cart line with a non-positive quantity or an
// invalid unit price.
type InvalidLineError struct {
	ProductID string
	Reason    string
}

func (e *InvalidLineError) Error() string {
	return fmt.Sprintf("invalid cart line for product %s: %s", e.ProductID, e.Reason)
}

// CartLine is a client-supplied checkout position. Ephemeral: never persisted
// on its own.
type CartLine struct {
	ProductID string
	UnitPrice decimal.Decimal
	Quantity  int
}

// Quote is a priced cart: the paise total after any coupon discount, plus the
// inputs echoed back for client reconciliation.
type Quote struct {
	TotalPaise    int64
	DiscountPaise int64
	Lines         []CartLine
	Coupon        *coupon.Coupon
}

var hundred = decimal.NewFromInt(100)

// Compute prices the given lines with an optional already-resolved coupon.
// The coupon may be nil; unknown or inactive codes must be resolved to nil by
// the caller so the quote proceeds undiscounted without error.
//
// Each unit price is rounded to paise BEFORE multiplying by quantity. That
// per-unit rounding is load-bearing: round(1.005*100)*3 differs from
// round(1.005*3*100), and downstream signatures cover the exact amount.
func Compute(lines []CartLine, c *coupon.Coupon) (*Quote, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	var subtotal int64
	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, &InvalidLineError{ProductID: line.ProductID, Reason: "quantity must be greater than 0"}
		}
		if line.UnitPrice.IsNegative() {
			return nil, &InvalidLineError{ProductID: line.ProductID, Reason: "price must not be negative"}
		}
		unitPaise := line.UnitPrice.Mul(hundred).Round(0).IntPart()
		subtotal += unitPaise * int64(line.Quantity)
	}

	var discount int64
	if c != nil {
		pct := decimal.NewFromInt(int64(c.DiscountPercentage))
		discount = decimal.NewFromInt(subtotal).Mul(pct).Div(hundred).Round(0).IntPart()
	}

	return &Quote{
		TotalPaise:    subtotal - discount,
		DiscountPaise: discount,
		Lines:         lines,
		Coupon:        c,
	}, nil
}

// QualifiesForLoyaltyCoupon reports whether the quoted total earns the buyer
// a new loyalty coupon.
func (q *Quote) QualifiesForLoyaltyCoupon() bool {
	return q.TotalPaise >= LoyaltyThresholdPaise
}
