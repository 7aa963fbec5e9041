package entity

import (
	"github.com/google/uuid"
)

type PaymentStatus string

const (
	PaymentStatusCreated           PaymentStatus = "created"
	PaymentStatusAuthorized        PaymentStatus = "authorized"
	PaymentStatusCaptureFailed     PaymentStatus = "capture_failed"
	PaymentStatusCaptured          PaymentStatus = "captured"
	PaymentStatusCanceled          PaymentStatus = "canceled"
	PaymentStatusRefunded          PaymentStatus = "refunded"
	PaymentStatusPartiallyRefunded PaymentStatus = "partially_refunded"
)

// paymentTransitions: capture_failed -> captured covers manual billing
// recovery and late capture webhooks.
var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusCreated:           {PaymentStatusAuthorized, PaymentStatusCanceled},
	PaymentStatusAuthorized:        {PaymentStatusCaptured, PaymentStatusCaptureFailed, PaymentStatusCanceled},
	PaymentStatusCaptureFailed:     {PaymentStatusCaptured},
	PaymentStatusCaptured:          {PaymentStatusRefunded, PaymentStatusPartiallyRefunded},
	PaymentStatusPartiallyRefunded: {PaymentStatusRefunded, PaymentStatusPartiallyRefunded},
}

func (s PaymentStatus) CanTransition(to PaymentStatus) bool {
	for _, next := range paymentTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// PaymentTransaction is owned by the payment component. Other components
// reference it by id and never mutate it directly.
type PaymentTransaction struct {
	Base
	CheckoutSessionID uuid.UUID     `db:"checkout_session_id"`
	GatewayIntentID   *string       `db:"gateway_intent_id"`
	AmountCents       int64         `db:"amount_cents"`
	RefundedCents     int64         `db:"refunded_cents"`
	Currency          string        `db:"currency"`
	Status            PaymentStatus `db:"status"`
	IdempotencyKey    string        `db:"idempotency_key"`
}

func (p *PaymentTransaction) Transition(to PaymentStatus) error {
	if !p.Status.CanTransition(to) {
		return &InvalidTransitionError{Entity: "payment_transaction", From: string(p.Status), To: string(to)}
	}
	p.Status = to
	return nil
}
