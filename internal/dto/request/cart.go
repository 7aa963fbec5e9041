package request

import "time"

// AddCartItemRequest carries the offer snapshot selected from search results.
type AddCartItemRequest struct {
	OfferID     string    `json:"offer_id" validate:"required"`
	ItemType    string    `json:"item_type" validate:"required,oneof=flight hotel car experience"`
	ProviderID  string    `json:"provider_id" validate:"required"`
	Name        string    `json:"name" validate:"required"`
	PriceCents  int64     `json:"price_cents" validate:"required,gt=0"`
	Currency    string    `json:"currency" validate:"required,len=3"`
	Quantity    int       `json:"quantity" validate:"required,min=1"`
	Occupancy   int       `json:"occupancy" validate:"required,min=1"`
	OfferExpiry time.Time `json:"offer_expiry" validate:"required"`
	DepartureAt time.Time `json:"departure_at" validate:"required"`

	FreeCancellationHours int           `json:"free_cancellation_hours" validate:"min=0"`
	NonRefundableFeeCents int64         `json:"non_refundable_fee_cents" validate:"min=0"`
	PenaltyTiers          []PenaltyTier `json:"penalty_tiers" validate:"dive"`
}

type PenaltyTier struct {
	HoursBeforeDeparture int `json:"hours_before_departure" validate:"min=0"`
	PenaltyPercent       int `json:"penalty_percent" validate:"min=0,max=100"`
}
