package gateway

import (
	"context"
	"fmt"

	"travel-booking/internal/data/entity"
)

// BookRequest carries the offer snapshot a provider needs to create a booking.
type BookRequest struct {
	OfferID   string
	ItemType  entity.ItemType
	Quantity  int
	Travelers []entity.TravelerDetail
}

// BookResult is a successful provider booking.
type BookResult struct {
	ConfirmationRef string
	Schedule        entity.ScheduleSnapshot
}

// ItemStatus is the provider-side state of a booking, used during lifecycle
// sync and reconciliation.
type ItemStatus string

const (
	ItemStatusUnknown   ItemStatus = "unknown"
	ItemStatusConfirmed ItemStatus = "confirmed"
	ItemStatusFailed    ItemStatus = "failed"
	ItemStatusCanceled  ItemStatus = "canceled"
	ItemStatusCompleted ItemStatus = "completed"
)

// StatusResult is a provider's answer to a status lookup by idempotency key.
// Providers index bookings by the client-supplied key, which is what makes
// reconciliation of timed-out calls possible.
type StatusResult struct {
	Status          ItemStatus
	ConfirmationRef string
	Schedule        entity.ScheduleSnapshot
}

// ProviderBookingAdapter wraps one external travel provider.
type ProviderBookingAdapter interface {
	Book(ctx context.Context, req BookRequest, idempotencyKey string) (*BookResult, error)
	Cancel(ctx context.Context, confirmationRef string) error
	GetStatus(ctx context.Context, idempotencyKey string) (*StatusResult, error)
	GetSchedule(ctx context.Context, confirmationRef string) (*entity.ScheduleSnapshot, error)
}

// ProviderRegistry resolves the adapter for a provider id.
type ProviderRegistry struct {
	adapters map[string]ProviderBookingAdapter
}

func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{adapters: make(map[string]ProviderBookingAdapter)}
}

func (r *ProviderRegistry) Register(providerID string, adapter ProviderBookingAdapter) {
	r.adapters[providerID] = adapter
}

func (r *ProviderRegistry) Adapter(providerID string) (ProviderBookingAdapter, error) {
	adapter, ok := r.adapters[providerID]
	if !ok {
		return nil, fmt.Errorf("no adapter registered for provider %s", providerID)
	}
	return adapter, nil
}
