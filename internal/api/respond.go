package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/bazaar-checkout/internal/checkout"
	"github.com/xenking/bazaar-checkout/internal/domain/cart"
	"github.com/xenking/bazaar-checkout/internal/domain/order"
	"github.com/xenking/bazaar-checkout/internal/domain/product"
	"github.com/xenking/bazaar-checkout/internal/gateway"
	"github.com/xenking/bazaar-checkout/internal/session"
	"github.com/xenking/bazaar-checkout/internal/storage/postgres"
)

// errorResponse is the uniform error body.
type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	// TransactionID is set when order creation failed after a successful
	// charge, so the buyer and support can reconcile the payment.
	TransactionID string `json:"transactionId,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Code: status, Message: message})
}

// writeDomainError maps pipeline errors to HTTP statuses following the
// error taxonomy: local validation 422, missing draft or re-entrant submit
// 409, gateway rejection 402, transport failure 502, order creation after
// charge 500 with the transaction id attached.
func writeDomainError(ctx context.Context, w http.ResponseWriter, err error) {
	var (
		vErr  *checkout.ValidationError
		iqErr *cart.InvalidQuantityError
		isErr *cart.InsufficientStockError
		fErr  *order.FieldError
		gwErr *gateway.Error
		nwErr *gateway.NetworkError
		ocErr *checkout.OrderCreationError
	)

	switch {
	case errors.Is(err, product.ErrNotFound):
		writeError(w, http.StatusNotFound, "product not found")
	case errors.Is(err, postgres.ErrNotFound):
		writeError(w, http.StatusNotFound, "order not found")
	case errors.Is(err, session.ErrNoCart):
		writeError(w, http.StatusUnprocessableEntity, "cart is empty")
	case errors.Is(err, session.ErrNoDraft):
		writeError(w, http.StatusConflict, "no draft order in progress; confirm checkout first")
	case errors.Is(err, checkout.ErrSubmissionInFlight):
		writeError(w, http.StatusConflict, "a payment attempt is already in progress")
	case errors.As(err, &vErr), errors.As(err, &iqErr), errors.As(err, &isErr), errors.As(err, &fErr):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &gwErr):
		writeError(w, http.StatusPaymentRequired, gwErr.Message)
	case errors.As(err, &nwErr):
		writeError(w, http.StatusBadGateway, "payment service unavailable, please retry")
	case errors.As(err, &ocErr):
		zctx.From(ctx).Error("order creation failed after payment",
			zap.String("transaction_id", ocErr.TransactionID),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Code:          http.StatusInternalServerError,
			Message:       "your payment may have succeeded but the order could not be recorded; do not pay again, contact support",
			TransactionID: ocErr.TransactionID,
		})
	default:
		zctx.From(ctx).Error("internal error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
