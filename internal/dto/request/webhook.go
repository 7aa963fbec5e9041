package request

// PaymentWebhookRequest is the gateway's asynchronous event payload.
type PaymentWebhookRequest struct {
	EventID   string `json:"event_id" validate:"required"`
	EventType string `json:"event_type" validate:"required,oneof=payment.captured payment.capture_failed payment.refunded"`
	IntentID  string `json:"intent_id" validate:"required"`
	// AmountCents is the cumulative refunded total for refund events.
	AmountCents int64 `json:"amount_cents,omitempty"`
}
