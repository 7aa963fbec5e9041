package gateway

import (
	"context"
)

// PaymentGateway wraps the external card-processing network.
//
// Authorize and Capture must be idempotent on the gateway side: a retried
// call with the same idempotency key returns the first result instead of
// creating a second hold or charge.
type PaymentGateway interface {
	Authorize(ctx context.Context, amountCents int64, currency, idempotencyKey string) (intentID string, err error)
	Capture(ctx context.Context, intentID, idempotencyKey string) error
	Void(ctx context.Context, intentID string) error
	Refund(ctx context.Context, intentID string, amountCents int64, idempotencyKey string) (refundID string, err error)
}
