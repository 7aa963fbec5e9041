package gateway

import (
	"context"
	"sync"
)

type CatalogMock struct {
	lock   sync.Mutex
	prices map[string]Price
}

func (m *CatalogMock) SetPrice(offerID string, amountCents int64, currency string) {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.prices == nil {
		m.prices = make(map[string]Price)
	}
	m.prices[offerID] = Price{AmountCents: amountCents, Currency: currency}
}

func (m *CatalogMock) RemovePrice(offerID string) {
	m.lock.Lock()
	defer m.lock.Unlock()
	delete(m.prices, offerID)
}

func (m *CatalogMock) GetCurrentPrice(_ context.Context, offerID string) (*Price, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	price, ok := m.prices[offerID]
	if !ok {
		return nil, ErrOfferNotAvailable
	}
	return &price, nil
}
