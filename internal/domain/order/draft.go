package order

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/bazaar-checkout/internal/domain/cart"
)

// Draft is the transient cart+address+totals snapshot produced at checkout
// confirmation and consumed exactly once by the payment step. It has no
// identity of its own: each session holds a single overwritable draft.
type Draft struct {
	UserID     string          `json:"userId"`
	Items      []cart.Line     `json:"items"`
	Address    ShippingAddress `json:"shippingAddress"`
	CouponCode string          `json:"couponCode,omitempty"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	Discount   decimal.Decimal `json:"discount"`
	Shipping   decimal.Decimal `json:"shipping"`
	Total      decimal.Decimal `json:"total"`
	CreatedAt  time.Time       `json:"createdAt"`
}
