package gateway

import (
	"context"

	"github.com/google/uuid"
)

// NotificationSender delivers user-facing messages (push/email/SMS). It is
// fire-and-forget: delivery failures are the sender's problem, never the
// checkout engine's.
type NotificationSender interface {
	Send(ctx context.Context, userID uuid.UUID, templateID string, data map[string]any)
}

// Template ids consumed by the core.
const (
	TemplateBookingConfirmed   = "booking_confirmed"
	TemplateBookingFailed      = "booking_failed"
	TemplateScheduleChanged    = "schedule_changed"
	TemplateCancellationRefund = "cancellation_refund"
	TemplateBillingNeedsReview = "billing_needs_review"
)
