package wire

import (
	"travel-booking/internal/adaptor"
	"travel-booking/pkg/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireCart(r chi.Router, cartHandler *adaptor.CartHandler, log *zap.Logger) {
	// All cart routes act on the caller's own cart.
	r.Group(func(r chi.Router) {
		r.Use(middleware.UserContext(log))

		// GET /api/cart - Current open cart
		r.Get("/api/cart", cartHandler.GetCart)

		// POST /api/cart/items - Add an offer snapshot to the cart
		r.Post("/api/cart/items", cartHandler.AddItem)

		// DELETE /api/cart/items/{id} - Remove an item
		r.Delete("/api/cart/items/{id}", cartHandler.RemoveItem)
	})
}
