package wire

import (
	"travel-booking/internal/adaptor"
	"travel-booking/pkg/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireCheckout(r chi.Router, checkoutHandler *adaptor.CheckoutHandler, log *zap.Logger) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.UserContext(log))

		// POST /api/checkout - Start a session from the caller's cart
		r.Post("/api/checkout", checkoutHandler.Initialize)

		r.Route("/api/checkout/{id}", func(r chi.Router) {
			// GET /api/checkout/{id} - Session state
			r.Get("/", checkoutHandler.GetSession)

			// POST /api/checkout/{id}/travelers - Submit traveler details
			r.Post("/travelers", checkoutHandler.SubmitTravelers)

			// POST /api/checkout/{id}/verify-prices - Re-verify against the catalog
			r.Post("/verify-prices", checkoutHandler.VerifyPrices)

			// POST /api/checkout/{id}/acknowledge-price - Accept a price change
			r.Post("/acknowledge-price", checkoutHandler.AcknowledgePrice)

			// POST /api/checkout/{id}/pay - Authorize, book and capture
			r.Post("/pay", checkoutHandler.Pay)
		})
	})
}
