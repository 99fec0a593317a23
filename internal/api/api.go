// Package api exposes the checkout pipeline over HTTP: product catalog,
// session cart, checkout confirmation, and payment submission.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xenking/bazaar-checkout/internal/checkout"
	"github.com/xenking/bazaar-checkout/internal/domain/auth"
	"github.com/xenking/bazaar-checkout/internal/domain/order"
	"github.com/xenking/bazaar-checkout/internal/domain/product"
)

// Handler holds the dependencies of the HTTP handlers.
type Handler struct {
	products     product.Repository
	orders       order.Repository
	service      *checkout.Service
	orchestrator *checkout.Orchestrator
}

// NewHandler constructs a Handler with the required dependencies.
func NewHandler(
	products product.Repository,
	orders order.Repository,
	service *checkout.Service,
	orchestrator *checkout.Orchestrator,
) *Handler {
	return &Handler{
		products:     products,
		orders:       orders,
		service:      service,
		orchestrator: orchestrator,
	}
}

// Router builds the /api route tree. Catalog reads are public; cart,
// checkout, and order routes require an API key and a session id.
func (h *Handler) Router(apikeys auth.Repository, pepper []byte) http.Handler {
	r := chi.NewRouter()

	r.Get("/products", h.ListProducts)
	r.Get("/products/{productID}", h.GetProduct)

	r.Group(func(r chi.Router) {
		r.Use(APIKey(apikeys, pepper))
		r.Use(RequireSession)

		r.Get("/cart", h.GetCart)
		r.Post("/cart/items", h.AddCartItem)
		r.Delete("/cart", h.ClearCart)

		r.Post("/checkout", h.Checkout)

		r.Post("/orders", h.PlaceOrder)
		r.Get("/orders/{orderID}", h.GetOrder)
	})

	return r
}
