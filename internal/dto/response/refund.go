package response

import (
	"travel-booking/internal/data/entity"
)

type RefundBreakdownResponse struct {
	BookingItemID      string `json:"booking_item_id"`
	RefundableCents    int64  `json:"refundable_cents"`
	PenaltyCents       int64  `json:"penalty_cents"`
	NonRefundableCents int64  `json:"non_refundable_cents"`
	Currency           string `json:"currency"`
}

type RefundPreviewResponse struct {
	BookingID       string                    `json:"booking_id"`
	Items           []RefundBreakdownResponse `json:"items"`
	RefundableCents int64                     `json:"refundable_cents"`
	PenaltyCents    int64                     `json:"penalty_cents"`
}

// CancellationItemResult reports the per-item outcome of a cancellation.
// Cancellation is per-item atomic; one item failing leaves the others done.
type CancellationItemResult struct {
	BookingItemID   string `json:"booking_item_id"`
	Canceled        bool   `json:"canceled"`
	RefundedCents   int64  `json:"refunded_cents"`
	RefundID        string `json:"refund_id,omitempty"`
	FailureReason   string `json:"failure_reason,omitempty"`
	AlreadyCanceled bool   `json:"already_canceled,omitempty"`
}

type CancellationResponse struct {
	BookingID string                   `json:"booking_id"`
	Status    entity.BookingStatus     `json:"status"`
	Items     []CancellationItemResult `json:"items"`
}

func RefundBreakdownToResponse(b entity.RefundBreakdown) RefundBreakdownResponse {
	return RefundBreakdownResponse{
		BookingItemID:      b.BookingItemID.String(),
		RefundableCents:    b.RefundableCents,
		PenaltyCents:       b.PenaltyCents,
		NonRefundableCents: b.NonRefundableCents,
		Currency:           b.Currency,
	}
}
