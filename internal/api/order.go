package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/xenking/bazaar-checkout/internal/checkout"
	"github.com/xenking/bazaar-checkout/internal/domain/cart"
	"github.com/xenking/bazaar-checkout/internal/domain/order"
	"github.com/xenking/bazaar-checkout/internal/gateway"
)

// placeOrderRequest is the body of POST /orders: the payment method for
// the session's current draft order.
type placeOrderRequest struct {
	Method string        `json:"method"`
	Card   *gateway.Card `json:"card,omitempty"`
}

// orderResponse is the representation of a recorded order.
type orderResponse struct {
	ID          string                `json:"id"`
	UserID      string                `json:"userId"`
	Items       []cart.Line           `json:"items"`
	Address     order.ShippingAddress `json:"shippingAddress"`
	Subtotal    decimal.Decimal       `json:"subtotal"`
	Discount    decimal.Decimal       `json:"discount"`
	Shipping    decimal.Decimal       `json:"shipping"`
	Total       decimal.Decimal       `json:"totalPrice"`
	PaymentInfo order.PaymentInfo     `json:"paymentInfo"`
	Status      string                `json:"status"`
	CreatedAt   time.Time             `json:"createdAt"`
}

func toOrderResponse(o *order.Order) orderResponse {
	return orderResponse{
		ID:          o.ID,
		UserID:      o.UserID,
		Items:       o.Items,
		Address:     o.Address,
		Subtotal:    o.Subtotal,
		Discount:    o.Discount,
		Shipping:    o.Shipping,
		Total:       o.Total,
		PaymentInfo: o.Payment,
		Status:      o.Status,
		CreatedAt:   o.CreatedAt,
	}
}

// PlaceOrder submits the session's draft order for payment. Card payments
// run the gateway confirmation; cash on delivery records directly.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var method checkout.PaymentMethod
	switch req.Method {
	case "card":
		method = checkout.MethodCard
	case "cashOnDelivery", "cod":
		method = checkout.MethodCashOnDelivery
	default:
		writeError(w, http.StatusUnprocessableEntity, "method must be card or cashOnDelivery")
		return
	}

	o, err := h.orchestrator.Submit(r.Context(), checkout.SubmitRequest{
		SessionID: sessionID(r.Context()),
		Method:    method,
		Card:      req.Card,
	})
	if err != nil {
		writeDomainError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toOrderResponse(o))
}

// GetOrder returns a recorded order by id.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.GetByID(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		writeDomainError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}
