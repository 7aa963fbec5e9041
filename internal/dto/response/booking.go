package response

import (
	"time"

	"travel-booking/internal/data/entity"
)

type BookingItemResponse struct {
	ID              string                   `json:"id"`
	ItemIndex       int                      `json:"item_index"`
	OfferID         string                   `json:"offer_id"`
	ItemType        entity.ItemType          `json:"item_type"`
	ProviderID      string                   `json:"provider_id"`
	ConfirmationRef *string                  `json:"confirmation_ref,omitempty"`
	Status          entity.BookingItemStatus `json:"status"`
	AmountCents     int64                    `json:"amount_cents"`
	Currency        string                   `json:"currency"`
	DepartureAt     time.Time                `json:"departure_at"`
}

type BookingResponse struct {
	ID         string                `json:"id"`
	BookingRef string                `json:"booking_ref"`
	UserID     string                `json:"user_id"`
	Status     entity.BookingStatus  `json:"status"`
	TotalCents int64                 `json:"total_cents"`
	Currency   string                `json:"currency"`
	Items      []BookingItemResponse `json:"items,omitempty"`
	CreatedAt  time.Time             `json:"created_at"`
}

func BookingItemToResponse(item *entity.BookingItem) BookingItemResponse {
	return BookingItemResponse{
		ID:              item.ID.String(),
		ItemIndex:       item.ItemIndex,
		OfferID:         item.OfferID,
		ItemType:        item.ItemType,
		ProviderID:      item.ProviderID,
		ConfirmationRef: item.ConfirmationRef,
		Status:          item.Status,
		AmountCents:     item.AmountCents,
		Currency:        item.Currency,
		DepartureAt:     item.Schedule.DepartureAt,
	}
}

func BookingToResponse(booking *entity.Booking, items []*entity.BookingItem) *BookingResponse {
	itemResponses := make([]BookingItemResponse, len(items))
	for i, item := range items {
		itemResponses[i] = BookingItemToResponse(item)
	}

	return &BookingResponse{
		ID:         booking.ID.String(),
		BookingRef: booking.BookingRef,
		UserID:     booking.UserID.String(),
		Status:     booking.Status,
		TotalCents: booking.TotalCents,
		Currency:   booking.Currency,
		Items:      itemResponses,
		CreatedAt:  booking.CreatedAt,
	}
}
