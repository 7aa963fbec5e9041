package gateway

import (
	"context"
)

// Price is the catalog's current price for an offer.
type Price struct {
	AmountCents int64
	Currency    string
}

// ProviderCatalog is the black-box search/pricing aggregator. The checkout
// engine only ever asks it for the current price of a known offer.
type ProviderCatalog interface {
	GetCurrentPrice(ctx context.Context, offerID string) (*Price, error)
}
