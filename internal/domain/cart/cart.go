package cart

import (
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Sentinel errors for cart validation.
var (
	ErrEmptyCart = errors.New("cart is empty")
)

// InvalidQuantityError indicates a line has a non-positive quantity.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductID)
}

// InsufficientStockError indicates a requested quantity exceeds the
// product's available stock.
type InsufficientStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("product %s: requested %d exceeds available stock %d",
		e.ProductID, e.Requested, e.Available)
}

// Line is a single cart entry. UnitPrice is the effective price at the time
// the line was added (discounted price when present, original otherwise).
type Line struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// Extension returns quantity times unit price for this line.
func (l Line) Extension() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Validate checks the structural invariants of a cart: at least one line,
// positive quantities, non-negative prices.
func Validate(lines []Line) error {
	if len(lines) == 0 {
		return ErrEmptyCart
	}
	for _, l := range lines {
		if l.Quantity < 1 {
			return &InvalidQuantityError{ProductID: l.ProductID}
		}
		if l.UnitPrice.IsNegative() {
			return errors.Errorf("negative unit price for product %s", l.ProductID)
		}
	}
	return nil
}
