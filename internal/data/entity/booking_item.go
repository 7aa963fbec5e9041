package entity

import (
	"time"

	"github.com/google/uuid"
)

type BookingItemStatus string

const (
	BookingItemStatusPending               BookingItemStatus = "pending"
	BookingItemStatusConfirmed             BookingItemStatus = "confirmed"
	BookingItemStatusBookingFailed         BookingItemStatus = "booking_failed"
	BookingItemStatusPendingReconciliation BookingItemStatus = "pending_reconciliation"
	BookingItemStatusCanceled              BookingItemStatus = "canceled"
	BookingItemStatusCompleted             BookingItemStatus = "completed"
)

// bookingItemTransitions: pending_reconciliation resolves to confirmed or
// booking_failed once the provider's actual outcome is known.
var bookingItemTransitions = map[BookingItemStatus][]BookingItemStatus{
	BookingItemStatusPending:               {BookingItemStatusConfirmed, BookingItemStatusBookingFailed, BookingItemStatusPendingReconciliation, BookingItemStatusCanceled},
	BookingItemStatusPendingReconciliation: {BookingItemStatusConfirmed, BookingItemStatusBookingFailed},
	BookingItemStatusConfirmed:             {BookingItemStatusCanceled, BookingItemStatusCompleted},
}

func (s BookingItemStatus) CanTransition(to BookingItemStatus) bool {
	for _, next := range bookingItemTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// ScheduleSnapshot is the provider schedule stored at booking time. The
// lifecycle service diffs the provider's current schedule against it and
// records a ScheduleChange instead of silently overwriting.
type ScheduleSnapshot struct {
	DepartureAt time.Time `json:"departure_at"`
	ArrivalAt   time.Time `json:"arrival_at,omitempty"`
	Origin      string    `json:"origin,omitempty"`
	Destination string    `json:"destination,omitempty"`
}

func (s ScheduleSnapshot) Equal(other ScheduleSnapshot) bool {
	return s.DepartureAt.Equal(other.DepartureAt) &&
		s.ArrivalAt.Equal(other.ArrivalAt) &&
		s.Origin == other.Origin &&
		s.Destination == other.Destination
}

type BookingItem struct {
	Base
	BookingID       uuid.UUID          `db:"booking_id"`
	ItemIndex       int                `db:"item_index"`
	OfferID         string             `db:"offer_id"`
	ItemType        ItemType           `db:"item_type"`
	ProviderID      string             `db:"provider_id"`
	ConfirmationRef *string            `db:"confirmation_ref"`
	Status          BookingItemStatus  `db:"status"`
	AmountCents     int64              `db:"amount_cents"`
	Currency        string             `db:"currency"`
	Travelers       []TravelerDetail   `db:"travelers"`
	Schedule        ScheduleSnapshot   `db:"schedule"`
	Policy          CancellationPolicy `db:"policy"`
	IdempotencyKey  string             `db:"idempotency_key"`
}

func (i *BookingItem) Transition(to BookingItemStatus) error {
	if !i.Status.CanTransition(to) {
		return &InvalidTransitionError{Entity: "booking_item", From: string(i.Status), To: string(to)}
	}
	i.Status = to
	return nil
}
