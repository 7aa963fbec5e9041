package usecase

import (
	"context"
	"testing"

	"travel-booking/internal/data/entity"
	"travel-booking/internal/dto/request"
	"travel-booking/internal/gateway"
	"travel-booking/pkg/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bookedPayment completes a checkout and returns the booking id and its
// payment row.
func bookedPayment(t *testing.T, env *testEnv, userID uuid.UUID, offers ...offerSpec) (uuid.UUID, *entity.PaymentTransaction) {
	t.Helper()

	bookingID := confirmedBooking(t, env, userID, offers...)
	booking, err := env.repo.Booking.FindByID(context.Background(), bookingID)
	require.NoError(t, err)
	payment, err := env.repo.Payment.FindByID(context.Background(), booking.PaymentID)
	require.NoError(t, err)
	require.NotNil(t, payment.GatewayIntentID)
	return bookingID, payment
}

func TestWebhookDuplicateEventProcessedOnce(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	userID := utils.GenerateUUID()

	_, payment := bookedPayment(t, env, userID, offerSpec{id: "offer-1", priceCents: 10000})

	req := request.PaymentWebhookRequest{
		EventID:   "evt-1",
		EventType: "payment.captured",
		IntentID:  *payment.GatewayIntentID,
	}
	require.NoError(t, env.service.Webhook.HandlePaymentEvent(ctx, req))

	err := env.service.Webhook.HandlePaymentEvent(ctx, req)
	assert.ErrorIs(t, err, entity.ErrDuplicateEvent)

	event, err := env.repo.WebhookEvent.FindByExternalID(ctx, "evt-1")
	require.NoError(t, err)
	assert.True(t, event.Processed)
	assert.Zero(t, event.RetryCount)
}

func TestWebhookRecoversFailedCapture(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	userID := utils.GenerateUUID()

	// Capture fails during checkout; the booking is kept, billing parks and
	// the session waits at booking.
	env.payment.CaptureError = gateway.NewTerminal("payment.capture", "gateway busy")
	_, payment := bookedPayment(t, env, userID, offerSpec{id: "offer-1", priceCents: 10000})
	require.Equal(t, entity.PaymentStatusCaptureFailed, payment.Status)

	session, err := env.repo.CheckoutSession.FindByID(ctx, payment.CheckoutSessionID)
	require.NoError(t, err)
	require.Equal(t, entity.CheckoutStatusBooking, session.Status)

	// The gateway later reports the capture went through after all.
	err = env.service.Webhook.HandlePaymentEvent(ctx, request.PaymentWebhookRequest{
		EventID:   "evt-recover",
		EventType: "payment.captured",
		IntentID:  *payment.GatewayIntentID,
	})
	require.NoError(t, err)

	payment, err = env.repo.Payment.FindByID(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentStatusCaptured, payment.Status)

	// Recovery finishes the checkout the saga left parked.
	session, err = env.repo.CheckoutSession.FindByID(ctx, payment.CheckoutSessionID)
	require.NoError(t, err)
	assert.Equal(t, entity.CheckoutStatusCompleted, session.Status)
	cart, err := env.repo.Cart.FindByID(ctx, session.CartID)
	require.NoError(t, err)
	assert.Equal(t, entity.CartStatusConverted, cart.Status)
}

func TestWebhookCaptureFailedEvent(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	userID := utils.GenerateUUID()

	// A parked booking leaves the authorization open.
	sessionID := parkedSession(t, env, userID, true)
	session, err := env.repo.CheckoutSession.FindByID(ctx, sessionID)
	require.NoError(t, err)
	require.NotNil(t, session.PaymentID)
	payment, err := env.repo.Payment.FindByID(ctx, *session.PaymentID)
	require.NoError(t, err)
	require.Equal(t, entity.PaymentStatusAuthorized, payment.Status)

	err = env.service.Webhook.HandlePaymentEvent(ctx, request.PaymentWebhookRequest{
		EventID:   "evt-capfail",
		EventType: "payment.capture_failed",
		IntentID:  *payment.GatewayIntentID,
	})
	require.NoError(t, err)

	payment, err = env.repo.Payment.FindByID(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentStatusCaptureFailed, payment.Status)
}

func TestWebhookRefundAppliesOnlyTheDelta(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	userID := utils.GenerateUUID()

	// A 2000-cent non-refundable fee makes the synchronous refund partial.
	policy := entity.CancellationPolicy{FreeCancellationHours: 1, NonRefundableFeeCents: 2000}
	bookingID, payment := bookedPayment(t, env, userID, offerSpec{id: "offer-1", priceCents: 10000, policy: &policy})

	_, err := env.service.Cancellation.Cancel(ctx, userID, bookingID)
	require.NoError(t, err)

	payment, err = env.repo.Payment.FindByID(ctx, payment.ID)
	require.NoError(t, err)
	require.Equal(t, int64(8000), payment.RefundedCents)
	require.Equal(t, entity.PaymentStatusPartiallyRefunded, payment.Status)

	// Cumulative total matches what we already recorded: no-op.
	err = env.service.Webhook.HandlePaymentEvent(ctx, request.PaymentWebhookRequest{
		EventID:     "evt-refund-1",
		EventType:   "payment.refunded",
		IntentID:    *payment.GatewayIntentID,
		AmountCents: 8000,
	})
	require.NoError(t, err)
	payment, err = env.repo.Payment.FindByID(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(8000), payment.RefundedCents)
	assert.Equal(t, entity.PaymentStatusPartiallyRefunded, payment.Status)

	// A goodwill refund of the fee arrives only via the gateway.
	err = env.service.Webhook.HandlePaymentEvent(ctx, request.PaymentWebhookRequest{
		EventID:     "evt-refund-2",
		EventType:   "payment.refunded",
		IntentID:    *payment.GatewayIntentID,
		AmountCents: 10000,
	})
	require.NoError(t, err)
	payment, err = env.repo.Payment.FindByID(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), payment.RefundedCents)
	assert.Equal(t, entity.PaymentStatusRefunded, payment.Status)
}

func TestWebhookUnknownIntentRetries(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	req := request.PaymentWebhookRequest{
		EventID:   "evt-orphan",
		EventType: "payment.captured",
		IntentID:  "pi_unknown",
	}
	err := env.service.Webhook.HandlePaymentEvent(ctx, req)
	require.Error(t, err)
	assert.ErrorIs(t, err, entity.ErrNotFound)

	// The event stays in the ledger unprocessed; a redelivery reruns it.
	err = env.service.Webhook.HandlePaymentEvent(ctx, req)
	require.Error(t, err)
	assert.NotErrorIs(t, err, entity.ErrDuplicateEvent)

	event, err := env.repo.WebhookEvent.FindByExternalID(ctx, "evt-orphan")
	require.NoError(t, err)
	assert.False(t, event.Processed)
	assert.Equal(t, 1, event.RetryCount)
}

func TestWebhookRejectsMalformedEvent(t *testing.T) {
	env := newTestEnv()

	err := env.service.Webhook.HandlePaymentEvent(context.Background(), request.PaymentWebhookRequest{
		EventType: "payment.captured",
		IntentID:  "pi_x",
	})

	var validationErr *entity.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Fields, "EventID")
}
