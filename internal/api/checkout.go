package api

import (
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/xenking/bazaar-checkout/internal/checkout"
	"github.com/xenking/bazaar-checkout/internal/domain/order"
)

// checkoutRequest is the body of POST /checkout.
type checkoutRequest struct {
	UserID     string                `json:"userId"`
	Address    order.ShippingAddress `json:"shippingAddress"`
	CouponCode string                `json:"couponCode,omitempty"`
}

// checkoutResponse returns the computed totals of the saved draft. When the
// coupon was rejected the draft is still saved with no discount and
// CouponRejected carries the reason.
type checkoutResponse struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	Discount       decimal.Decimal `json:"discount"`
	Shipping       decimal.Decimal `json:"shipping"`
	Total          decimal.Decimal `json:"total"`
	CouponRejected string          `json:"couponRejected,omitempty"`
}

// Checkout validates the shipping address, snapshots the cart with totals
// into the session's draft slot, and returns the totals. The draft is
// saved before the response is written, so the payment step can rely on it.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusUnprocessableEntity, "userId required")
		return
	}

	result, err := h.service.Confirm(r.Context(), checkout.ConfirmRequest{
		SessionID:  sessionID(r.Context()),
		UserID:     req.UserID,
		Address:    req.Address,
		CouponCode: req.CouponCode,
	})
	if err != nil {
		writeDomainError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, checkoutResponse{
		Subtotal:       result.Draft.Subtotal,
		Discount:       result.Draft.Discount,
		Shipping:       result.Draft.Shipping,
		Total:          result.Draft.Total,
		CouponRejected: result.CouponRejected,
	})
}
