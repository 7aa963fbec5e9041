package usecase

import (
	"context"
	"testing"

	"travel-booking/internal/data/entity"
	"travel-booking/internal/gateway"
	"travel-booking/pkg/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sessionState(t *testing.T, env *testEnv, sessionID uuid.UUID) (*entity.CheckoutSession, *entity.Cart, *entity.PaymentTransaction, *entity.Booking, []*entity.BookingItem) {
	t.Helper()
	ctx := context.Background()

	session, err := env.repo.CheckoutSession.FindByID(ctx, sessionID)
	require.NoError(t, err)
	require.NotNil(t, session)

	cart, err := env.repo.Cart.FindByID(ctx, session.CartID)
	require.NoError(t, err)

	payment, err := env.repo.Payment.FindBySessionID(ctx, sessionID)
	require.NoError(t, err)

	booking, err := env.repo.Booking.FindBySessionID(ctx, sessionID)
	require.NoError(t, err)

	var items []*entity.BookingItem
	if booking != nil {
		items, err = env.repo.BookingItem.FindByBookingID(ctx, booking.ID)
		require.NoError(t, err)
	}
	return session, cart, payment, booking, items
}

func TestPayHappyPath(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	userID := utils.GenerateUUID()

	sessionID := readySession(t, env, userID,
		offerSpec{id: "offer-1", priceCents: 25000},
		offerSpec{id: "offer-2", priceCents: 41000},
	)

	result, err := env.service.Coordinator.Pay(ctx, userID, sessionID)
	require.NoError(t, err)
	assert.Equal(t, entity.BookingStatusConfirmed, result.Status)
	require.Len(t, result.Items, 2)
	for _, item := range result.Items {
		assert.Equal(t, entity.BookingItemStatusConfirmed, item.Status)
		assert.NotNil(t, item.ConfirmationRef)
	}

	session, cart, payment, booking, _ := sessionState(t, env, sessionID)
	assert.Equal(t, entity.CheckoutStatusCompleted, session.Status)
	assert.Equal(t, entity.CartStatusConverted, cart.Status)
	assert.Equal(t, entity.PaymentStatusCaptured, payment.Status)
	assert.Equal(t, int64(66000), payment.AmountCents)
	assert.Equal(t, entity.BookingStatusConfirmed, booking.Status)

	// One hold, items booked in cart order under session-derived keys.
	assert.Equal(t, 1, env.payment.HoldCount())
	require.Len(t, env.provider.BookCalls, 2)
	assert.Equal(t, utils.ItemIdempotencyKey(sessionID, 0), env.provider.BookCalls[0])
	assert.Equal(t, utils.ItemIdempotencyKey(sessionID, 1), env.provider.BookCalls[1])

	assert.Contains(t, env.notifier.SentTemplates(), gateway.TemplateBookingConfirmed)
}

func TestPayDeclinedAuthorizationBooksNothing(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	userID := utils.GenerateUUID()

	sessionID := readySession(t, env, userID, offerSpec{id: "offer-1", priceCents: 25000})
	env.payment.DeclineAuthorize = true

	_, err := env.service.Coordinator.Pay(ctx, userID, sessionID)
	require.ErrorIs(t, err, entity.ErrPaymentDeclined)

	// No provider call may happen without an authorized payment.
	assert.Empty(t, env.provider.BookCalls)

	session, cart, payment, booking, _ := sessionState(t, env, sessionID)
	assert.Equal(t, entity.CheckoutStatusFailed, session.Status)
	assert.Equal(t, entity.CartStatusOpen, cart.Status)
	assert.Equal(t, entity.PaymentStatusCanceled, payment.Status)
	assert.Nil(t, booking)
}

func TestPayRetriesTransientAuthorizationOnce(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	userID := utils.GenerateUUID()

	sessionID := readySession(t, env, userID, offerSpec{id: "offer-1", priceCents: 25000})
	env.payment.AuthorizeTransientFailures = 2

	_, err := env.service.Coordinator.Pay(ctx, userID, sessionID)
	require.NoError(t, err)

	// Retries reuse the idempotency key: three attempts, one hold.
	assert.Equal(t, 3, env.payment.AuthorizeCalls)
	assert.Equal(t, 1, env.payment.HoldCount())
}

func TestPayHardFailureRollsBackInOrder(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	userID := utils.GenerateUUID()

	sessionID := readySession(t, env, userID,
		offerSpec{id: "offer-1", priceCents: 10000},
		offerSpec{id: "offer-2", priceCents: 20000},
		offerSpec{id: "offer-3", priceCents: 30000},
	)
	env.provider.DeclineOffers = map[string]bool{"offer-3": true}

	_, err := env.service.Coordinator.Pay(ctx, userID, sessionID)
	require.Error(t, err)

	session, cart, payment, booking, items := sessionState(t, env, sessionID)
	require.Len(t, items, 3)
	assert.Equal(t, entity.BookingItemStatusCanceled, items[0].Status)
	assert.Equal(t, entity.BookingItemStatusCanceled, items[1].Status)
	assert.Equal(t, entity.BookingItemStatusBookingFailed, items[2].Status)

	// Both confirmed bookings were canceled with the provider and the hold
	// was voided, not captured.
	assert.Len(t, env.provider.CancelCalls, 2)
	require.NotNil(t, payment.GatewayIntentID)
	assert.True(t, env.payment.Voided(*payment.GatewayIntentID))
	assert.False(t, env.payment.Captured(*payment.GatewayIntentID))
	assert.Equal(t, entity.PaymentStatusCanceled, payment.Status)

	assert.Equal(t, entity.BookingStatusFailed, booking.Status)
	assert.Equal(t, entity.CheckoutStatusFailed, session.Status)
	assert.Equal(t, entity.CartStatusOpen, cart.Status)

	assert.Contains(t, env.notifier.SentTemplates(), gateway.TemplateBookingFailed)
}

func TestPayTimeoutParksWithoutRollback(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	userID := utils.GenerateUUID()

	sessionID := readySession(t, env, userID,
		offerSpec{id: "offer-1", priceCents: 10000},
		offerSpec{id: "offer-2", priceCents: 20000},
	)
	env.provider.TimeoutOffers = map[string]bool{"offer-2": true}
	env.provider.TimeoutBooksSucceed = true

	_, err := env.service.Coordinator.Pay(ctx, userID, sessionID)
	require.ErrorIs(t, err, entity.ErrPendingReconciliation)

	session, cart, payment, booking, items := sessionState(t, env, sessionID)
	require.Len(t, items, 2)
	assert.Equal(t, entity.BookingItemStatusConfirmed, items[0].Status)
	assert.Equal(t, entity.BookingItemStatusPendingReconciliation, items[1].Status)

	// A timeout proves nothing: no compensation, no capture, booking open.
	assert.Empty(t, env.provider.CancelCalls)
	require.NotNil(t, payment.GatewayIntentID)
	assert.False(t, env.payment.Captured(*payment.GatewayIntentID))
	assert.False(t, env.payment.Voided(*payment.GatewayIntentID))
	assert.Equal(t, entity.PaymentStatusAuthorized, payment.Status)
	assert.Equal(t, entity.BookingStatusPending, booking.Status)
	assert.Equal(t, entity.CheckoutStatusBooking, session.Status)
	assert.Equal(t, entity.CartStatusLocked, cart.Status)
}

func TestPayCaptureFailureKeepsBookings(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	userID := utils.GenerateUUID()

	sessionID := readySession(t, env, userID, offerSpec{id: "offer-1", priceCents: 25000})
	env.payment.CaptureError = gateway.NewTerminal("gateway.capture", "downstream ledger rejected the charge")

	result, err := env.service.Coordinator.Pay(ctx, userID, sessionID)
	require.NoError(t, err)
	assert.Equal(t, entity.BookingStatusConfirmed, result.Status)

	session, cart, payment, booking, items := sessionState(t, env, sessionID)
	assert.Equal(t, entity.BookingItemStatusConfirmed, items[0].Status)
	assert.Equal(t, entity.BookingStatusConfirmed, booking.Status)
	assert.Equal(t, entity.PaymentStatusCaptureFailed, payment.Status)

	// Completed always implies captured, so the session parks at booking and
	// the cart stays locked until the gateway confirms the charge.
	assert.Equal(t, entity.CheckoutStatusBooking, session.Status)
	assert.Equal(t, entity.CartStatusLocked, cart.Status)

	// Nothing was rolled back; billing recovers manually.
	assert.Empty(t, env.provider.CancelCalls)
	assert.Contains(t, env.notifier.SentTemplates(), gateway.TemplateBillingNeedsReview)
	assert.NotContains(t, env.notifier.SentTemplates(), gateway.TemplateBookingConfirmed)
}

func TestPaySingleFlight(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	userID := utils.GenerateUUID()

	sessionID := readySession(t, env, userID, offerSpec{id: "offer-1", priceCents: 25000})

	_, err := env.service.Coordinator.Pay(ctx, userID, sessionID)
	require.NoError(t, err)

	_, err = env.service.Coordinator.Pay(ctx, userID, sessionID)
	var transitionErr *entity.InvalidTransitionError
	assert.ErrorAs(t, err, &transitionErr)

	assert.Equal(t, 1, env.payment.HoldCount())
	assert.Len(t, env.provider.BookCalls, 1)
}
