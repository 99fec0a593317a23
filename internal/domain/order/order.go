package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/bazaar-checkout/internal/domain/cart"
)

// Status values for an order's lifecycle. Orders are created in
// StatusPlaced; later fulfilment states are owned by other services.
const (
	StatusPlaced = "placed"
)

// Payment method names as recorded on the order.
const (
	PaymentCard           = "Credit Card"
	PaymentCashOnDelivery = "Cash On Delivery"
)

// ErrDuplicateTransaction is returned by Repository.Create when an order
// with the same gateway transaction id already exists. Callers treat it as
// "already recorded": the charge must not produce a second order.
var ErrDuplicateTransaction = errors.New("order already recorded for transaction")

// PaymentInfo is the payment outcome attached to an order. For card
// payments TransactionID and Status come from the gateway and Status is
// always "succeeded"; cash-on-delivery carries the type alone.
type PaymentInfo struct {
	Type          string `json:"type"`
	TransactionID string `json:"transactionId,omitempty"`
	Status        string `json:"status,omitempty"`
}

// Order is the durable record of a completed checkout.
type Order struct {
	ID         string
	UserID     string
	Items      []cart.Line
	Address    ShippingAddress
	Subtotal   decimal.Decimal
	Discount   decimal.Decimal
	Shipping   decimal.Decimal
	Total      decimal.Decimal
	CouponCode string
	Payment    PaymentInfo
	Status     string
	CreatedAt  time.Time
}

// Repository defines persistence operations for orders.
type Repository interface {
	// Create persists a new order. When an order with the same gateway
	// transaction id already exists it returns ErrDuplicateTransaction.
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	// GetByTransactionID finds the order recorded for a gateway charge.
	GetByTransactionID(ctx context.Context, transactionID string) (*Order, error)
	ListByUser(ctx context.Context, userID string) ([]Order, error)
}
