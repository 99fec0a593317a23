// Package gateway talks to the external payment provider that authorizes
// and confirms card charges. Amounts are integer minor units.
package gateway

import (
	"context"
	"fmt"
)

// StatusSucceeded is the gateway's terminal success status for a charge.
// A payment outcome may only be attached to an order when the confirmation
// reports this status.
const StatusSucceeded = "succeeded"

// Card holds the client-supplied payment instrument details forwarded to
// the gateway during confirmation. Never persisted.
type Card struct {
	Number   string `json:"number"`
	ExpMonth string `json:"expMonth"`
	ExpYear  string `json:"expYear"`
	CVC      string `json:"cvc"`
}

// Intent is a payment authorization handle scoped to a specific amount.
type Intent struct {
	ClientSecret string
}

// Confirmation is the gateway's verdict on a confirmed charge.
type Confirmation struct {
	TransactionID string
	Status        string
}

// Error is a rejection reported by the gateway itself (declined card,
// invalid amount). The message is surfaced to the buyer verbatim and the
// attempt is retryable.
type Error struct {
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("gateway: %s", e.Message)
}

// NetworkError is a transport-level failure reaching the gateway. Transient
// and retryable; no charge can have happened on intent creation, and a
// confirmation outcome is unknown.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("gateway unreachable: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Gateway is the payment provider surface the checkout pipeline depends on.
type Gateway interface {
	// CreateIntent requests an authorization handle for the given amount
	// in minor units.
	CreateIntent(ctx context.Context, amountMinor int64) (*Intent, error)
	// ConfirmIntent submits the card details against the authorization
	// handle. Gateway rejections are returned as *Error; transport
	// failures as *NetworkError.
	ConfirmIntent(ctx context.Context, clientSecret string, card Card) (*Confirmation, error)
}
