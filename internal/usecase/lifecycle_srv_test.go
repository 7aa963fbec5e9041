package usecase

import (
	"context"
	"testing"
	"time"

	"travel-booking/internal/data/entity"
	"travel-booking/internal/gateway"
	"travel-booking/pkg/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// parkedSession runs a checkout whose second item times out, leaving it at
// pending_reconciliation. bookedSucceeded scripts whether the provider
// actually created the booking behind the timeout.
func parkedSession(t *testing.T, env *testEnv, userID uuid.UUID, bookedSucceeded bool) uuid.UUID {
	t.Helper()

	sessionID := readySession(t, env, userID,
		offerSpec{id: "offer-1", priceCents: 10000},
		offerSpec{id: "offer-2", priceCents: 20000},
	)
	env.provider.TimeoutOffers = map[string]bool{"offer-2": true}
	env.provider.TimeoutBooksSucceed = bookedSucceeded

	_, err := env.service.Coordinator.Pay(context.Background(), userID, sessionID)
	require.ErrorIs(t, err, entity.ErrPendingReconciliation)

	// Later lookups must not time out again.
	env.provider.TimeoutOffers = map[string]bool{}
	return sessionID
}

func TestReconcileConfirmsAndResumesCapture(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	userID := utils.GenerateUUID()

	sessionID := parkedSession(t, env, userID, true)

	require.NoError(t, env.service.Lifecycle.Reconcile(ctx))

	session, cart, payment, booking, items := sessionState(t, env, sessionID)
	require.Len(t, items, 2)
	assert.Equal(t, entity.BookingItemStatusConfirmed, items[1].Status)
	assert.NotNil(t, items[1].ConfirmationRef)

	// With every item confirmed the held payment is captured and the
	// checkout finishes.
	assert.Equal(t, entity.PaymentStatusCaptured, payment.Status)
	assert.Equal(t, entity.BookingStatusConfirmed, booking.Status)
	assert.Equal(t, entity.CheckoutStatusCompleted, session.Status)
	assert.Equal(t, entity.CartStatusConverted, cart.Status)
}

func TestReconcileFailureCompensates(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	userID := utils.GenerateUUID()

	sessionID := parkedSession(t, env, userID, false)

	require.NoError(t, env.service.Lifecycle.Reconcile(ctx))

	session, cart, payment, booking, items := sessionState(t, env, sessionID)
	require.Len(t, items, 2)
	assert.Equal(t, entity.BookingItemStatusCanceled, items[0].Status)
	assert.Equal(t, entity.BookingItemStatusBookingFailed, items[1].Status)

	require.NotNil(t, payment.GatewayIntentID)
	assert.True(t, env.payment.Voided(*payment.GatewayIntentID))
	assert.Equal(t, entity.PaymentStatusCanceled, payment.Status)
	assert.Equal(t, entity.BookingStatusFailed, booking.Status)
	assert.Equal(t, entity.CheckoutStatusFailed, session.Status)
	assert.Equal(t, entity.CartStatusOpen, cart.Status)
}

// strandPending simulates a payment run that died mid-flight: the parked item
// is put back to pending, as if no one ever advanced it.
func strandPending(t *testing.T, env *testEnv, sessionID uuid.UUID) *entity.BookingItem {
	t.Helper()

	_, _, _, _, items := sessionState(t, env, sessionID)
	item := items[1]
	require.Equal(t, entity.BookingItemStatusPendingReconciliation, item.Status)
	item.Status = entity.BookingItemStatusPending
	item.ConfirmationRef = nil
	return item
}

func TestReconcileSweepsStaleStrandedItems(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	userID := utils.GenerateUUID()

	sessionID := parkedSession(t, env, userID, true)
	item := strandPending(t, env, sessionID)

	// Recently touched: a live run may still own it, so the sweep skips it.
	item.UpdatedAt = time.Now()
	require.NoError(t, env.service.Lifecycle.Reconcile(ctx))
	assert.Equal(t, entity.BookingItemStatusPending, item.Status)

	// Untouched for longer than any booking call can run: resolve it.
	item.UpdatedAt = time.Now().Add(-time.Hour)
	require.NoError(t, env.service.Lifecycle.Reconcile(ctx))

	session, cart, payment, booking, items := sessionState(t, env, sessionID)
	assert.Equal(t, entity.BookingItemStatusConfirmed, items[1].Status)
	assert.NotNil(t, items[1].ConfirmationRef)
	assert.Equal(t, entity.PaymentStatusCaptured, payment.Status)
	assert.Equal(t, entity.BookingStatusConfirmed, booking.Status)
	assert.Equal(t, entity.CheckoutStatusCompleted, session.Status)
	assert.Equal(t, entity.CartStatusConverted, cart.Status)
}

func TestReconcileStrandedItemWithoutProviderBookingCompensates(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	userID := utils.GenerateUUID()

	sessionID := parkedSession(t, env, userID, false)
	item := strandPending(t, env, sessionID)
	item.UpdatedAt = time.Now().Add(-time.Hour)

	require.NoError(t, env.service.Lifecycle.Reconcile(ctx))

	session, cart, payment, booking, items := sessionState(t, env, sessionID)
	assert.Equal(t, entity.BookingItemStatusCanceled, items[0].Status)
	assert.Equal(t, entity.BookingItemStatusBookingFailed, items[1].Status)
	require.NotNil(t, payment.GatewayIntentID)
	assert.True(t, env.payment.Voided(*payment.GatewayIntentID))
	assert.Equal(t, entity.PaymentStatusCanceled, payment.Status)
	assert.Equal(t, entity.BookingStatusFailed, booking.Status)
	assert.Equal(t, entity.CheckoutStatusFailed, session.Status)
	assert.Equal(t, entity.CartStatusOpen, cart.Status)
}

func TestSyncSchedulesRecordsChangeBeforeUpdating(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	userID := utils.GenerateUUID()

	departure := time.Now().Add(14 * 24 * time.Hour).Truncate(time.Second)
	env.provider.Schedules = map[string]entity.ScheduleSnapshot{
		"offer-1": {DepartureAt: departure, Origin: "AMS", Destination: "LIS"},
	}

	sessionID := readySession(t, env, userID, offerSpec{id: "offer-1", priceCents: 25000, itemType: entity.ItemTypeFlight})
	_, err := env.service.Coordinator.Pay(ctx, userID, sessionID)
	require.NoError(t, err)

	_, _, _, _, items := sessionState(t, env, sessionID)
	require.NotNil(t, items[0].ConfirmationRef)

	// The provider moves the departure by two hours.
	moved := entity.ScheduleSnapshot{DepartureAt: departure.Add(2 * time.Hour), Origin: "AMS", Destination: "LIS"}
	env.provider.SetSchedule(*items[0].ConfirmationRef, moved)

	require.NoError(t, env.service.Lifecycle.SyncSchedules(ctx))

	changes, err := env.repo.ScheduleChange.FindByBookingItemID(ctx, items[0].ID)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.True(t, changes[0].Previous.DepartureAt.Equal(departure))
	assert.True(t, changes[0].Current.DepartureAt.Equal(moved.DepartureAt))
	assert.True(t, changes[0].Notified)

	item, err := env.repo.BookingItem.FindByID(ctx, items[0].ID)
	require.NoError(t, err)
	assert.True(t, item.Schedule.DepartureAt.Equal(moved.DepartureAt))

	assert.Contains(t, env.notifier.SentTemplates(), gateway.TemplateScheduleChanged)

	// A second pass sees no further drift.
	require.NoError(t, env.service.Lifecycle.SyncSchedules(ctx))
	changes, err = env.repo.ScheduleChange.FindByBookingItemID(ctx, items[0].ID)
	require.NoError(t, err)
	assert.Len(t, changes, 1)
}

func TestCompleteDeparted(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	userID := utils.GenerateUUID()

	departure := time.Now().Add(24 * time.Hour)
	env.provider.Schedules = map[string]entity.ScheduleSnapshot{
		"offer-1": {DepartureAt: departure},
	}

	sessionID := readySession(t, env, userID, offerSpec{id: "offer-1", priceCents: 25000})
	_, err := env.service.Coordinator.Pay(ctx, userID, sessionID)
	require.NoError(t, err)

	_, _, _, booking, items := sessionState(t, env, sessionID)

	// Not yet departed: nothing changes.
	require.NoError(t, env.service.Lifecycle.CompleteDeparted(ctx))
	item, err := env.repo.BookingItem.FindByID(ctx, items[0].ID)
	require.NoError(t, err)
	assert.Equal(t, entity.BookingItemStatusConfirmed, item.Status)

	// Move the stored departure into the past.
	require.NoError(t, env.repo.BookingItem.UpdateSchedule(ctx, items[0].ID, entity.ScheduleSnapshot{
		DepartureAt: time.Now().Add(-time.Hour),
	}))

	require.NoError(t, env.service.Lifecycle.CompleteDeparted(ctx))

	item, err = env.repo.BookingItem.FindByID(ctx, items[0].ID)
	require.NoError(t, err)
	assert.Equal(t, entity.BookingItemStatusCompleted, item.Status)

	booking, err = env.repo.Booking.FindByID(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.BookingStatusCompleted, booking.Status)
}
