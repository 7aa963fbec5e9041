package gateway

import (
	"context"
	"fmt"
	"sync"

	"travel-booking/internal/data/entity"
)

// ProviderAdapterMock simulates one travel provider. Bookings are indexed by
// idempotency key, so a retried Book never creates a second booking.
type ProviderAdapterMock struct {
	lock sync.Mutex

	bookings map[string]*BookResult // idempotency key -> result
	canceled map[string]bool        // confirmation ref

	// Scripted behavior for tests.
	DeclineOffers   map[string]bool
	TimeoutOffers   map[string]bool
	TransientOffers map[string]int
	// TimeoutBooksSucceed makes a timed-out Book still create the booking on
	// the provider side, the unknown-outcome case reconciliation exists for.
	TimeoutBooksSucceed bool
	CancelError         error
	Schedules           map[string]entity.ScheduleSnapshot // offer id -> current schedule

	BookCalls   []string // idempotency keys in call order
	CancelCalls []string
}

func (m *ProviderAdapterMock) Book(_ context.Context, req BookRequest, idempotencyKey string) (*BookResult, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.ensure()

	m.BookCalls = append(m.BookCalls, idempotencyKey)

	if result, ok := m.bookings[idempotencyKey]; ok {
		return result, nil
	}

	if m.TransientOffers[req.OfferID] > 0 {
		m.TransientOffers[req.OfferID]--
		return nil, NewTransient("provider.book", "temporary provider error")
	}
	if m.DeclineOffers[req.OfferID] {
		return nil, NewTerminal("provider.book", "offer no longer available")
	}
	if m.TimeoutOffers[req.OfferID] {
		if m.TimeoutBooksSucceed {
			m.bookings[idempotencyKey] = m.newResult(req)
		}
		return nil, NewTimeout("provider.book")
	}

	result := m.newResult(req)
	m.bookings[idempotencyKey] = result
	return result, nil
}

func (m *ProviderAdapterMock) Cancel(_ context.Context, confirmationRef string) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.ensure()

	m.CancelCalls = append(m.CancelCalls, confirmationRef)

	if m.CancelError != nil {
		return m.CancelError
	}
	m.canceled[confirmationRef] = true
	return nil
}

func (m *ProviderAdapterMock) GetStatus(_ context.Context, idempotencyKey string) (*StatusResult, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.ensure()

	result, ok := m.bookings[idempotencyKey]
	if !ok {
		return &StatusResult{Status: ItemStatusFailed}, nil
	}
	if m.canceled[result.ConfirmationRef] {
		return &StatusResult{Status: ItemStatusCanceled, ConfirmationRef: result.ConfirmationRef}, nil
	}
	return &StatusResult{
		Status:          ItemStatusConfirmed,
		ConfirmationRef: result.ConfirmationRef,
		Schedule:        result.Schedule,
	}, nil
}

func (m *ProviderAdapterMock) GetSchedule(_ context.Context, confirmationRef string) (*entity.ScheduleSnapshot, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.ensure()

	for _, result := range m.bookings {
		if result.ConfirmationRef == confirmationRef {
			schedule := result.Schedule
			return &schedule, nil
		}
	}
	return nil, NewTerminal("provider.get_schedule", "unknown confirmation ref")
}

// SetSchedule changes the provider-side schedule of an existing booking, the
// trigger for schedule-change detection.
func (m *ProviderAdapterMock) SetSchedule(confirmationRef string, schedule entity.ScheduleSnapshot) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.ensure()

	for key, result := range m.bookings {
		if result.ConfirmationRef == confirmationRef {
			m.bookings[key] = &BookResult{ConfirmationRef: confirmationRef, Schedule: schedule}
		}
	}
}

func (m *ProviderAdapterMock) Canceled(confirmationRef string) bool {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.ensure()
	return m.canceled[confirmationRef]
}

func (m *ProviderAdapterMock) newResult(req BookRequest) *BookResult {
	schedule := m.Schedules[req.OfferID]
	return &BookResult{
		ConfirmationRef: fmt.Sprintf("CONF-%s-%d", req.OfferID, len(m.bookings)+1),
		Schedule:        schedule,
	}
}

func (m *ProviderAdapterMock) ensure() {
	if m.bookings == nil {
		m.bookings = make(map[string]*BookResult)
		m.canceled = make(map[string]bool)
	}
	if m.DeclineOffers == nil {
		m.DeclineOffers = make(map[string]bool)
	}
	if m.TimeoutOffers == nil {
		m.TimeoutOffers = make(map[string]bool)
	}
	if m.TransientOffers == nil {
		m.TransientOffers = make(map[string]int)
	}
	if m.Schedules == nil {
		m.Schedules = make(map[string]entity.ScheduleSnapshot)
	}
}
