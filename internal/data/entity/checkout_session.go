package entity

import (
	"time"

	"github.com/google/uuid"
)

type CheckoutStatus string

const (
	CheckoutStatusInitialized             CheckoutStatus = "initialized"
	CheckoutStatusPriceVerifying          CheckoutStatus = "price_verifying"
	CheckoutStatusPriceChanged            CheckoutStatus = "price_changed"
	CheckoutStatusAwaitingTravelerDetails CheckoutStatus = "awaiting_traveler_details"
	CheckoutStatusReadyForPayment         CheckoutStatus = "ready_for_payment"
	CheckoutStatusAuthorizing             CheckoutStatus = "authorizing"
	CheckoutStatusAuthorized              CheckoutStatus = "authorized"
	CheckoutStatusBooking                 CheckoutStatus = "booking"
	CheckoutStatusCompleted               CheckoutStatus = "completed"
	CheckoutStatusFailed                  CheckoutStatus = "failed"
	CheckoutStatusExpired                 CheckoutStatus = "expired"
)

// checkoutTransitions holds the forward-only adjacency table. The single loop
// is price_changed -> awaiting_traveler_details -> price_verifying, taken at
// most once after the user acknowledges a new price.
var checkoutTransitions = map[CheckoutStatus][]CheckoutStatus{
	CheckoutStatusInitialized:             {CheckoutStatusPriceVerifying, CheckoutStatusFailed, CheckoutStatusExpired},
	CheckoutStatusPriceVerifying:          {CheckoutStatusReadyForPayment, CheckoutStatusPriceChanged, CheckoutStatusFailed, CheckoutStatusExpired},
	CheckoutStatusPriceChanged:            {CheckoutStatusAwaitingTravelerDetails, CheckoutStatusFailed, CheckoutStatusExpired},
	CheckoutStatusAwaitingTravelerDetails: {CheckoutStatusPriceVerifying, CheckoutStatusReadyForPayment, CheckoutStatusFailed, CheckoutStatusExpired},
	CheckoutStatusReadyForPayment:         {CheckoutStatusAuthorizing, CheckoutStatusFailed, CheckoutStatusExpired},
	CheckoutStatusAuthorizing:             {CheckoutStatusAuthorized, CheckoutStatusFailed},
	CheckoutStatusAuthorized:              {CheckoutStatusBooking, CheckoutStatusFailed},
	CheckoutStatusBooking:                 {CheckoutStatusCompleted, CheckoutStatusFailed},
}

func (s CheckoutStatus) CanTransition(to CheckoutStatus) bool {
	for _, next := range checkoutTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

func (s CheckoutStatus) IsTerminal() bool {
	return s == CheckoutStatusCompleted || s == CheckoutStatusFailed || s == CheckoutStatusExpired
}

// TravelerDetail is one traveler record captured during checkout. Flights
// additionally require a travel document.
type TravelerDetail struct {
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	DateOfBirth    string `json:"date_of_birth"`
	DocumentType   string `json:"document_type,omitempty"`
	DocumentNumber string `json:"document_number,omitempty"`
}

// PriceSnapshotItem freezes one cart item's price at session start.
type PriceSnapshotItem struct {
	CartItemID uuid.UUID `json:"cart_item_id"`
	OfferID    string    `json:"offer_id"`
	PriceCents int64     `json:"price_cents"`
	Quantity   int       `json:"quantity"`
}

type CheckoutSession struct {
	Base
	CartID          uuid.UUID           `db:"cart_id"`
	UserID          uuid.UUID           `db:"user_id"`
	Status          CheckoutStatus      `db:"status"`
	PriceSnapshot   []PriceSnapshotItem `db:"price_snapshot"`
	TotalCents      int64               `db:"total_cents"`
	Currency        string              `db:"currency"`
	Travelers       []TravelerDetail    `db:"travelers"`
	ContactEmail    string              `db:"contact_email"`
	ContactPhone    string              `db:"contact_phone"`
	PriceChangeAcks int                 `db:"price_change_acks"`
	PaymentID       *uuid.UUID          `db:"payment_id"`
	ExpiresAt       time.Time           `db:"expires_at"`
}

func (s *CheckoutSession) Transition(to CheckoutStatus) error {
	if !s.Status.CanTransition(to) {
		return &InvalidTransitionError{Entity: "checkout_session", From: string(s.Status), To: string(to)}
	}
	s.Status = to
	return nil
}

func (s *CheckoutSession) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
