package wire

import (
	"travel-booking/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

func wireWebhook(r chi.Router, webhookHandler *adaptor.WebhookHandler) {
	// Gateway callbacks authenticate via shared signature at the edge proxy,
	// not via user context.
	r.Post("/webhooks/payment", webhookHandler.PaymentEvent)
}
