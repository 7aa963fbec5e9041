package repository

import (
	"travel-booking/pkg/database"

	"go.uber.org/zap"
)

type Repository struct {
	Cart            CartRepository
	CartItem        CartItemRepository
	CheckoutSession CheckoutSessionRepository
	Payment         PaymentRepository
	Booking         BookingRepository
	BookingItem     BookingItemRepository
	WebhookEvent    WebhookEventRepository
	ScheduleChange  ScheduleChangeRepository
}

func NewRepository(db database.PgxIface, log *zap.Logger) *Repository {
	return &Repository{
		Cart:            NewCartRepository(db, log),
		CartItem:        NewCartItemRepository(db, log),
		CheckoutSession: NewCheckoutSessionRepository(db, log),
		Payment:         NewPaymentRepository(db, log),
		Booking:         NewBookingRepository(db, log),
		BookingItem:     NewBookingItemRepository(db, log),
		WebhookEvent:    NewWebhookEventRepository(db, log),
		ScheduleChange:  NewScheduleChangeRepository(db, log),
	}
}
