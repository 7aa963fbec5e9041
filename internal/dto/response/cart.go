package response

import (
	"time"

	"travel-booking/internal/data/entity"
)

type CartItemResponse struct {
	ID          string                `json:"id"`
	OfferID     string                `json:"offer_id"`
	ItemType    entity.ItemType       `json:"item_type"`
	ProviderID  string                `json:"provider_id"`
	Name        string                `json:"name"`
	PriceCents  int64                 `json:"price_cents"`
	Currency    string                `json:"currency"`
	Quantity    int                   `json:"quantity"`
	Occupancy   int                   `json:"occupancy"`
	OfferExpiry time.Time             `json:"offer_expiry"`
	DepartureAt time.Time             `json:"departure_at"`
	Status      entity.CartItemStatus `json:"status"`
}

type CartResponse struct {
	ID         string             `json:"id"`
	UserID     string             `json:"user_id"`
	Status     entity.CartStatus  `json:"status"`
	Items      []CartItemResponse `json:"items"`
	TotalCents int64              `json:"total_cents"`
	Currency   string             `json:"currency,omitempty"`
	CreatedAt  time.Time          `json:"created_at"`
}

func CartItemToResponse(item *entity.CartItem) CartItemResponse {
	return CartItemResponse{
		ID:          item.ID.String(),
		OfferID:     item.OfferID,
		ItemType:    item.ItemType,
		ProviderID:  item.ProviderID,
		Name:        item.Name,
		PriceCents:  item.PriceCents,
		Currency:    item.Currency,
		Quantity:    item.Quantity,
		Occupancy:   item.Occupancy,
		OfferExpiry: item.OfferExpiry,
		DepartureAt: item.DepartureAt,
		Status:      item.Status,
	}
}

func CartToResponse(cart *entity.Cart, items []*entity.CartItem) *CartResponse {
	itemResponses := make([]CartItemResponse, len(items))
	var total int64
	var currency string
	for i, item := range items {
		itemResponses[i] = CartItemToResponse(item)
		total += item.TotalCents()
		currency = item.Currency
	}

	return &CartResponse{
		ID:         cart.ID.String(),
		UserID:     cart.UserID.String(),
		Status:     cart.Status,
		Items:      itemResponses,
		TotalCents: total,
		Currency:   currency,
		CreatedAt:  cart.CreatedAt,
	}
}
