package gateway

import (
	"context"
	"fmt"
	"sync"
)

// PaymentGatewayMock is an in-memory gateway honoring the idempotency
// contract: a repeated Authorize with the same key returns the original
// intent, a repeated Capture of a captured intent is a no-op.
type PaymentGatewayMock struct {
	lock sync.Mutex

	intents  map[string]string // idempotency key -> intent id
	amounts  map[string]int64  // intent id -> authorized amount
	captured map[string]bool
	voided   map[string]bool
	refunds  map[string]string // idempotency key -> refund id

	// Scripted failures for tests.
	DeclineAuthorize           bool
	AuthorizeTransientFailures int
	CaptureError               error
	RefundError                error

	AuthorizeCalls int
	CaptureCalls   int
}

func (m *PaymentGatewayMock) Authorize(_ context.Context, amountCents int64, currency, idempotencyKey string) (string, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.ensure()

	m.AuthorizeCalls++

	if intentID, ok := m.intents[idempotencyKey]; ok {
		return intentID, nil
	}

	if m.AuthorizeTransientFailures > 0 {
		m.AuthorizeTransientFailures--
		return "", NewTransient("gateway.authorize", "temporary gateway error")
	}
	if m.DeclineAuthorize {
		return "", NewTerminal("gateway.authorize", "card declined")
	}

	intentID := fmt.Sprintf("pi_%s_%d", currency, len(m.intents)+1)
	m.intents[idempotencyKey] = intentID
	m.amounts[intentID] = amountCents
	return intentID, nil
}

func (m *PaymentGatewayMock) Capture(_ context.Context, intentID, idempotencyKey string) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.ensure()

	m.CaptureCalls++

	if m.captured[intentID] {
		return nil
	}
	if m.CaptureError != nil {
		return m.CaptureError
	}
	if m.voided[intentID] {
		return NewTerminal("gateway.capture", "intent already voided")
	}

	m.captured[intentID] = true
	return nil
}

func (m *PaymentGatewayMock) Void(_ context.Context, intentID string) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.ensure()

	if m.captured[intentID] {
		return NewTerminal("gateway.void", "intent already captured")
	}
	m.voided[intentID] = true
	return nil
}

func (m *PaymentGatewayMock) Refund(_ context.Context, intentID string, amountCents int64, idempotencyKey string) (string, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.ensure()

	if refundID, ok := m.refunds[idempotencyKey]; ok {
		return refundID, nil
	}
	if m.RefundError != nil {
		return "", m.RefundError
	}

	refundID := fmt.Sprintf("re_%d", len(m.refunds)+1)
	m.refunds[idempotencyKey] = refundID
	return refundID, nil
}

// HoldCount reports how many distinct funds holds exist.
func (m *PaymentGatewayMock) HoldCount() int {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.ensure()
	return len(m.intents)
}

func (m *PaymentGatewayMock) Captured(intentID string) bool {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.ensure()
	return m.captured[intentID]
}

func (m *PaymentGatewayMock) Voided(intentID string) bool {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.ensure()
	return m.voided[intentID]
}

func (m *PaymentGatewayMock) RefundCount() int {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.ensure()
	return len(m.refunds)
}

func (m *PaymentGatewayMock) ensure() {
	if m.intents == nil {
		m.intents = make(map[string]string)
		m.amounts = make(map[string]int64)
		m.captured = make(map[string]bool)
		m.voided = make(map[string]bool)
		m.refunds = make(map[string]string)
	}
}
