package response

import (
	"time"

	"travel-booking/internal/data/entity"
)

// PriceDelta reports one item whose current catalog price drifted from the
// session's snapshot beyond the configured tolerance.
type PriceDelta struct {
	CartItemID    string `json:"cart_item_id"`
	OfferID       string `json:"offer_id"`
	PreviousCents int64  `json:"previous_cents"`
	CurrentCents  int64  `json:"current_cents"`
}

type CheckoutSessionResponse struct {
	ID              string                `json:"id"`
	CartID          string                `json:"cart_id"`
	Status          entity.CheckoutStatus `json:"status"`
	TotalCents      int64                 `json:"total_cents"`
	Currency        string                `json:"currency"`
	TravelersCount  int                   `json:"travelers_count"`
	ContactEmail    string                `json:"contact_email,omitempty"`
	PriceChangeAcks int                   `json:"price_change_acks"`
	ExpiresAt       time.Time             `json:"expires_at"`
	PriceDeltas     []PriceDelta          `json:"price_deltas,omitempty"`
	CreatedAt       time.Time             `json:"created_at"`
}

func CheckoutSessionToResponse(session *entity.CheckoutSession, deltas []PriceDelta) *CheckoutSessionResponse {
	return &CheckoutSessionResponse{
		ID:              session.ID.String(),
		CartID:          session.CartID.String(),
		Status:          session.Status,
		TotalCents:      session.TotalCents,
		Currency:        session.Currency,
		TravelersCount:  len(session.Travelers),
		ContactEmail:    session.ContactEmail,
		PriceChangeAcks: session.PriceChangeAcks,
		ExpiresAt:       session.ExpiresAt,
		PriceDeltas:     deltas,
		CreatedAt:       session.CreatedAt,
	}
}
