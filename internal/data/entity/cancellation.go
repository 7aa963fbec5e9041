package entity

import (
	"github.com/google/uuid"
)

// PenaltyTier applies PenaltyPercent when cancellation happens fewer than
// HoursBeforeDeparture hours before departure. Tiers are evaluated most
// specific (smallest window) first.
type PenaltyTier struct {
	HoursBeforeDeparture int `json:"hours_before_departure"`
	PenaltyPercent       int `json:"penalty_percent"`
}

// CancellationPolicy is snapshotted from the offer at add-to-cart time and
// carried onto the booking item, so later policy changes by the provider do
// not affect an existing booking.
type CancellationPolicy struct {
	FreeCancellationHours int           `json:"free_cancellation_hours"`
	Tiers                 []PenaltyTier `json:"tiers,omitempty"`
	NonRefundableFeeCents int64         `json:"non_refundable_fee_cents"`
}

// RefundBreakdown is the per-item result of a refund calculation. The three
// parts always sum to the originally captured item amount.
type RefundBreakdown struct {
	BookingItemID      uuid.UUID `json:"booking_item_id"`
	RefundableCents    int64     `json:"refundable_cents"`
	PenaltyCents       int64     `json:"penalty_cents"`
	NonRefundableCents int64     `json:"non_refundable_cents"`
	Currency           string    `json:"currency"`
}
