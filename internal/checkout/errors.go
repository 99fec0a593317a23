package checkout

import (
	"fmt"

	"github.com/go-faster/errors"
)

// ErrSubmissionInFlight is returned when a session submits a payment while
// a previous attempt is still running. The guard exists so a double-click
// can never produce duplicate charges or duplicate orders.
var ErrSubmissionInFlight = errors.New("payment submission already in flight")

// ValidationError blocks submission locally; the buyer corrects the input
// and retries immediately. Not retryable without correction.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid submission: %s", e.Reason)
}

// OrderCreationError means the backend rejected the finalized order after
// the payment outcome was already settled. For card payments the buyer has
// been charged: TransactionID identifies the charge so support can
// reconcile, and the draft is intentionally preserved for retry.
type OrderCreationError struct {
	TransactionID string
	Err           error
}

func (e *OrderCreationError) Error() string {
	if e.TransactionID != "" {
		return fmt.Sprintf("order creation failed after payment %s succeeded: %v", e.TransactionID, e.Err)
	}
	return fmt.Sprintf("order creation failed: %v", e.Err)
}

func (e *OrderCreationError) Unwrap() error { return e.Err }
