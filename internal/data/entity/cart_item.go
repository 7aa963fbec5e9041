package entity

import (
	"time"

	"github.com/google/uuid"
)

type ItemType string

const (
	ItemTypeFlight     ItemType = "flight"
	ItemTypeHotel      ItemType = "hotel"
	ItemTypeCar        ItemType = "car"
	ItemTypeExperience ItemType = "experience"
)

// RequiresTravelDocument reports whether bookings of this type need a travel
// document per traveler.
func (t ItemType) RequiresTravelDocument() bool {
	return t == ItemTypeFlight
}

type CartItemStatus string

const (
	CartItemStatusActive       CartItemStatus = "active"
	CartItemStatusRemoved      CartItemStatus = "removed"
	CartItemStatusPriceChanged CartItemStatus = "price_changed"
)

// CartItem is an offer snapshot taken when the user added it. PriceCents is
// the price at add time; re-verification compares it against the catalog's
// current price.
type CartItem struct {
	BaseSimple
	CartID      uuid.UUID      `db:"cart_id"`
	OfferID     string         `db:"offer_id"`
	ItemType    ItemType       `db:"item_type"`
	ProviderID  string         `db:"provider_id"`
	Name        string         `db:"name"`
	PriceCents  int64          `db:"price_cents"`
	Currency    string         `db:"currency"`
	Quantity    int            `db:"quantity"`
	Occupancy   int            `db:"occupancy"`
	OfferExpiry time.Time      `db:"offer_expiry"`
	DepartureAt time.Time      `db:"departure_at"`
	Status      CartItemStatus `db:"status"`

	Policy   CancellationPolicy `db:"policy"`
	Schedule ScheduleSnapshot   `db:"schedule"`
}

// TravelersRequired is the number of traveler records this item needs.
func (i *CartItem) TravelersRequired() int {
	return i.Quantity * i.Occupancy
}

// TotalCents is the line total for this item.
func (i *CartItem) TotalCents() int64 {
	return i.PriceCents * int64(i.Quantity)
}

func (i *CartItem) Expired(now time.Time) bool {
	return now.After(i.OfferExpiry)
}
