package entity

import (
	"github.com/google/uuid"
)

type BookingStatus string

const (
	BookingStatusPending            BookingStatus = "pending"
	BookingStatusConfirmed          BookingStatus = "confirmed"
	BookingStatusPartiallyConfirmed BookingStatus = "partially_confirmed"
	BookingStatusFailed             BookingStatus = "failed"
	BookingStatusCanceled           BookingStatus = "canceled"
	BookingStatusCompleted          BookingStatus = "completed"
)

var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending:            {BookingStatusConfirmed, BookingStatusPartiallyConfirmed, BookingStatusFailed, BookingStatusCanceled},
	BookingStatusConfirmed:          {BookingStatusPartiallyConfirmed, BookingStatusCanceled, BookingStatusCompleted},
	BookingStatusPartiallyConfirmed: {BookingStatusConfirmed, BookingStatusCanceled, BookingStatusCompleted},
}

func (s BookingStatus) CanTransition(to BookingStatus) bool {
	for _, next := range bookingTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

type Booking struct {
	Base
	BookingRef        string        `db:"booking_ref"`
	CheckoutSessionID uuid.UUID     `db:"checkout_session_id"`
	UserID            uuid.UUID     `db:"user_id"`
	PaymentID         uuid.UUID     `db:"payment_id"`
	Status            BookingStatus `db:"status"`
	TotalCents        int64         `db:"total_cents"`
	Currency          string        `db:"currency"`
}

func (b *Booking) Transition(to BookingStatus) error {
	if !b.Status.CanTransition(to) {
		return &InvalidTransitionError{Entity: "booking", From: string(b.Status), To: string(to)}
	}
	b.Status = to
	return nil
}

// AggregateStatus recomputes the booking status from its items per the
// lifecycle rules: confirmed only when every item confirmed; a mix of
// confirmed and failed/canceled is partially_confirmed; all failed is failed.
// Any pending or reconciling item keeps the aggregate at pending.
func AggregateStatus(items []*BookingItem) BookingStatus {
	if len(items) == 0 {
		return BookingStatusPending
	}

	var confirmed, failed, canceled, completed int
	for _, item := range items {
		switch item.Status {
		case BookingItemStatusPending, BookingItemStatusPendingReconciliation:
			return BookingStatusPending
		case BookingItemStatusConfirmed:
			confirmed++
		case BookingItemStatusBookingFailed:
			failed++
		case BookingItemStatusCanceled:
			canceled++
		case BookingItemStatusCompleted:
			completed++
		}
	}

	switch {
	case completed == len(items):
		return BookingStatusCompleted
	case confirmed+completed == len(items):
		return BookingStatusConfirmed
	case failed == len(items):
		return BookingStatusFailed
	case canceled == len(items):
		return BookingStatusCanceled
	case confirmed+completed > 0:
		return BookingStatusPartiallyConfirmed
	default:
		return BookingStatusFailed
	}
}
