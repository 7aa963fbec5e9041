package wire

import (
	"travel-booking/internal/adaptor"
	"travel-booking/pkg/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireBooking(r chi.Router, bookingHandler *adaptor.BookingHandler, log *zap.Logger) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.UserContext(log))

		// GET /api/bookings - Booking history
		r.Get("/api/bookings", bookingHandler.GetUserBookings)

		r.Route("/api/bookings/{id}", func(r chi.Router) {
			// GET /api/bookings/{id} - Booking with items
			r.Get("/", bookingHandler.GetBooking)

			// GET /api/bookings/{id}/refund-preview - Dry-run refund math
			r.Get("/refund-preview", bookingHandler.RefundPreview)

			// POST /api/bookings/{id}/cancel - Cancel and refund
			r.Post("/cancel", bookingHandler.Cancel)
		})
	})
}
