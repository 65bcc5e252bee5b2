package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter assembles the storefront's routes. The gateway return route
// lives outside /api/v1 because its path is registered with the payment
// provider and must stay stable.
func NewRouter(cartHandler *CartHandler, checkoutHandler *CheckoutHandler, ordersHandler *OrdersHandler, requestTimeout time.Duration) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(middleware.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartHandler.GetCart)
			r.Delete("/", cartHandler.ClearCart)
			r.Post("/items", cartHandler.AddItem)
			r.Put("/items/{name}", cartHandler.UpdateQuantity)
			r.Delete("/items/{name}", cartHandler.RemoveItem)
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Post("/", checkoutHandler.Submit)
			r.Get("/status", checkoutHandler.Status)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/{id}", ordersHandler.GetOrder)
			r.Get("/{id}/checkout-attempt", ordersHandler.GetCheckoutAttempt)
			r.Post("/{id}/retry-payment", checkoutHandler.RetryPayment)
		})
	})

	r.Get("/payment/response", checkoutHandler.PaymentResponse)

	return r
}
