package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"

	"github.com/xenking/bazaar-checkout/internal/domain/cart"
	"github.com/xenking/bazaar-checkout/internal/session"
)

// cartResponse wraps the session's cart lines.
type cartResponse struct {
	Items []cart.Line `json:"items"`
}

// addItemRequest is the body of POST /cart/items.
type addItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// GetCart returns the session's cart. An empty cart is a 200 with no items,
// not an error.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	lines, err := h.service.Cart(r.Context(), sessionID(r.Context()))
	if err != nil {
		if errors.Is(err, session.ErrNoCart) {
			writeJSON(w, http.StatusOK, cartResponse{Items: []cart.Line{}})
			return
		}
		writeDomainError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, cartResponse{Items: lines})
}

// AddCartItem adds a product to the session's cart, enforcing stock limits.
func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	lines, err := h.service.AddItem(r.Context(), sessionID(r.Context()), req.ProductID, req.Quantity)
	if err != nil {
		writeDomainError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, cartResponse{Items: lines})
}

// ClearCart empties the session's cart.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ClearCart(r.Context(), sessionID(r.Context())); err != nil {
		writeDomainError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
