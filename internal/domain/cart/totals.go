package cart

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/bazaar-checkout/internal/domain/coupon"
)

// Totals is the price breakdown of a cart at checkout. All amounts are
// rounded to 2 decimal places.
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Discount decimal.Decimal `json:"discount"`
	Shipping decimal.Decimal `json:"shipping"`
	Total    decimal.Decimal `json:"total"`
}

// Calculator derives cart totals: subtotal from line extensions, a flat
// shipping fee, and an optional coupon discount. It performs no I/O beyond
// the coupon lookup and is deterministic for identical inputs.
type Calculator struct {
	shipping decimal.Decimal
	coupons  coupon.Validator
}

// NewCalculator creates a Calculator with the given flat shipping fee.
func NewCalculator(shippingFee decimal.Decimal, coupons coupon.Validator) *Calculator {
	return &Calculator{shipping: shippingFee, coupons: coupons}
}

// Compute validates the cart lines and returns the totals breakdown.
//
// When couponCode is rejected (unknown, expired, or exhausted), Compute
// still returns valid totals with a zero discount alongside the coupon
// error, so callers can proceed and surface the rejection. Structural cart
// errors return zero totals.
func (c *Calculator) Compute(ctx context.Context, lines []Line, couponCode string) (Totals, error) {
	if err := Validate(lines); err != nil {
		return Totals{}, err
	}

	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.Extension())
	}

	t := Totals{
		Subtotal: subtotal.Round(2),
		Discount: decimal.Zero,
		Shipping: c.shipping.Round(2),
	}

	var couponErr error
	if couponCode != "" {
		items := make([]coupon.Item, len(lines))
		for i, l := range lines {
			items[i] = coupon.Item{
				ProductID: l.ProductID,
				Price:     l.UnitPrice,
				Quantity:  l.Quantity,
			}
		}

		d, err := c.coupons.Validate(ctx, couponCode, items)
		switch {
		case err == nil:
			t.Discount = d.Amount.Round(2)
		case errors.Is(err, coupon.ErrInvalidCoupon),
			errors.Is(err, coupon.ErrCouponExpired),
			errors.Is(err, coupon.ErrCouponUsageLimitReached):
			couponErr = err
		default:
			return Totals{}, errors.Wrap(err, "validate coupon")
		}
	}

	total := t.Subtotal.Add(t.Shipping).Sub(t.Discount)
	if total.IsNegative() {
		total = decimal.Zero
	}
	t.Total = total.Round(2)

	return t, couponErr
}
