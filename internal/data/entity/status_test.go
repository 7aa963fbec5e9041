package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckoutTransitions(t *testing.T) {
	allowed := []struct{ from, to CheckoutStatus }{
		{CheckoutStatusInitialized, CheckoutStatusPriceVerifying},
		{CheckoutStatusPriceVerifying, CheckoutStatusReadyForPayment},
		{CheckoutStatusPriceVerifying, CheckoutStatusPriceChanged},
		{CheckoutStatusPriceChanged, CheckoutStatusAwaitingTravelerDetails},
		{CheckoutStatusAwaitingTravelerDetails, CheckoutStatusPriceVerifying},
		{CheckoutStatusReadyForPayment, CheckoutStatusAuthorizing},
		{CheckoutStatusAuthorizing, CheckoutStatusAuthorized},
		{CheckoutStatusAuthorized, CheckoutStatusBooking},
		{CheckoutStatusBooking, CheckoutStatusCompleted},
		{CheckoutStatusBooking, CheckoutStatusFailed},
		{CheckoutStatusInitialized, CheckoutStatusExpired},
	}
	for _, tc := range allowed {
		assert.True(t, tc.from.CanTransition(tc.to), "%s -> %s should be allowed", tc.from, tc.to)
	}

	denied := []struct{ from, to CheckoutStatus }{
		{CheckoutStatusInitialized, CheckoutStatusReadyForPayment},
		{CheckoutStatusReadyForPayment, CheckoutStatusCompleted},
		{CheckoutStatusAuthorizing, CheckoutStatusExpired},
		{CheckoutStatusAuthorized, CheckoutStatusExpired},
		{CheckoutStatusBooking, CheckoutStatusExpired},
		{CheckoutStatusCompleted, CheckoutStatusFailed},
		{CheckoutStatusFailed, CheckoutStatusInitialized},
		{CheckoutStatusExpired, CheckoutStatusPriceVerifying},
		{CheckoutStatusAuthorized, CheckoutStatusAuthorizing},
	}
	for _, tc := range denied {
		assert.False(t, tc.from.CanTransition(tc.to), "%s -> %s should be denied", tc.from, tc.to)
	}
}

func TestCheckoutTerminalStates(t *testing.T) {
	for _, s := range []CheckoutStatus{CheckoutStatusCompleted, CheckoutStatusFailed, CheckoutStatusExpired} {
		assert.True(t, s.IsTerminal(), "%s", s)
	}
	for _, s := range []CheckoutStatus{CheckoutStatusInitialized, CheckoutStatusReadyForPayment, CheckoutStatusBooking} {
		assert.False(t, s.IsTerminal(), "%s", s)
	}
}

func TestCheckoutTransitionMutates(t *testing.T) {
	session := &CheckoutSession{Status: CheckoutStatusReadyForPayment}
	require.NoError(t, session.Transition(CheckoutStatusAuthorizing))
	assert.Equal(t, CheckoutStatusAuthorizing, session.Status)

	err := session.Transition(CheckoutStatusReadyForPayment)
	var transitionErr *InvalidTransitionError
	require.ErrorAs(t, err, &transitionErr)
	assert.Equal(t, "checkout_session", transitionErr.Entity)
	// Status is untouched on a rejected transition.
	assert.Equal(t, CheckoutStatusAuthorizing, session.Status)
}

func TestCartTransitions(t *testing.T) {
	assert.True(t, CartStatusOpen.CanTransition(CartStatusLocked))
	assert.True(t, CartStatusLocked.CanTransition(CartStatusOpen))
	assert.True(t, CartStatusLocked.CanTransition(CartStatusConverted))
	assert.True(t, CartStatusOpen.CanTransition(CartStatusAbandoned))

	assert.False(t, CartStatusOpen.CanTransition(CartStatusConverted))
	assert.False(t, CartStatusConverted.CanTransition(CartStatusOpen))
	assert.False(t, CartStatusAbandoned.CanTransition(CartStatusOpen))

	assert.True(t, CartStatusConverted.IsTerminal())
	assert.True(t, CartStatusAbandoned.IsTerminal())
	assert.False(t, CartStatusLocked.IsTerminal())
}

func TestPaymentTransitions(t *testing.T) {
	assert.True(t, PaymentStatusCreated.CanTransition(PaymentStatusAuthorized))
	assert.True(t, PaymentStatusAuthorized.CanTransition(PaymentStatusCaptured))
	assert.True(t, PaymentStatusAuthorized.CanTransition(PaymentStatusCanceled))
	assert.True(t, PaymentStatusCaptureFailed.CanTransition(PaymentStatusCaptured))
	assert.True(t, PaymentStatusCaptured.CanTransition(PaymentStatusPartiallyRefunded))
	assert.True(t, PaymentStatusPartiallyRefunded.CanTransition(PaymentStatusPartiallyRefunded))
	assert.True(t, PaymentStatusPartiallyRefunded.CanTransition(PaymentStatusRefunded))

	assert.False(t, PaymentStatusCreated.CanTransition(PaymentStatusCaptured))
	assert.False(t, PaymentStatusCaptured.CanTransition(PaymentStatusCanceled))
	assert.False(t, PaymentStatusCanceled.CanTransition(PaymentStatusAuthorized))
	assert.False(t, PaymentStatusRefunded.CanTransition(PaymentStatusPartiallyRefunded))
	assert.False(t, PaymentStatusCaptureFailed.CanTransition(PaymentStatusCanceled))
}

func TestBookingItemTransitions(t *testing.T) {
	assert.True(t, BookingItemStatusPending.CanTransition(BookingItemStatusConfirmed))
	assert.True(t, BookingItemStatusPending.CanTransition(BookingItemStatusPendingReconciliation))
	assert.True(t, BookingItemStatusPendingReconciliation.CanTransition(BookingItemStatusConfirmed))
	assert.True(t, BookingItemStatusPendingReconciliation.CanTransition(BookingItemStatusBookingFailed))
	assert.True(t, BookingItemStatusConfirmed.CanTransition(BookingItemStatusCompleted))

	// A parked item never jumps straight to canceled; it must resolve first.
	assert.False(t, BookingItemStatusPendingReconciliation.CanTransition(BookingItemStatusCanceled))
	assert.False(t, BookingItemStatusCanceled.CanTransition(BookingItemStatusConfirmed))
	assert.False(t, BookingItemStatusCompleted.CanTransition(BookingItemStatusCanceled))
	assert.False(t, BookingItemStatusBookingFailed.CanTransition(BookingItemStatusConfirmed))
}

func TestAggregateStatus(t *testing.T) {
	items := func(statuses ...BookingItemStatus) []*BookingItem {
		out := make([]*BookingItem, len(statuses))
		for i, s := range statuses {
			out[i] = &BookingItem{Status: s}
		}
		return out
	}

	cases := []struct {
		name     string
		statuses []BookingItemStatus
		want     BookingStatus
	}{
		{"empty", nil, BookingStatusPending},
		{"all confirmed", []BookingItemStatus{BookingItemStatusConfirmed, BookingItemStatusConfirmed}, BookingStatusConfirmed},
		{"any pending wins", []BookingItemStatus{BookingItemStatusConfirmed, BookingItemStatusPending}, BookingStatusPending},
		{"reconciling counts as pending", []BookingItemStatus{BookingItemStatusConfirmed, BookingItemStatusPendingReconciliation}, BookingStatusPending},
		{"all failed", []BookingItemStatus{BookingItemStatusBookingFailed, BookingItemStatusBookingFailed}, BookingStatusFailed},
		{"all canceled", []BookingItemStatus{BookingItemStatusCanceled, BookingItemStatusCanceled}, BookingStatusCanceled},
		{"confirmed and canceled", []BookingItemStatus{BookingItemStatusConfirmed, BookingItemStatusCanceled}, BookingStatusPartiallyConfirmed},
		{"confirmed and failed", []BookingItemStatus{BookingItemStatusConfirmed, BookingItemStatusBookingFailed}, BookingStatusPartiallyConfirmed},
		{"failed and canceled", []BookingItemStatus{BookingItemStatusBookingFailed, BookingItemStatusCanceled}, BookingStatusFailed},
		{"all completed", []BookingItemStatus{BookingItemStatusCompleted, BookingItemStatusCompleted}, BookingStatusCompleted},
		{"completed and confirmed", []BookingItemStatus{BookingItemStatusCompleted, BookingItemStatusConfirmed}, BookingStatusConfirmed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, AggregateStatus(items(tc.statuses...)))
		})
	}
}

func TestScheduleSnapshotEqual(t *testing.T) {
	departure := time.Date(2026, 9, 12, 10, 30, 0, 0, time.UTC)
	base := ScheduleSnapshot{
		DepartureAt: departure,
		ArrivalAt:   departure.Add(2 * time.Hour),
		Origin:      "AMS",
		Destination: "LIS",
	}

	same := base
	// Equal compares instants, not locations.
	same.DepartureAt = departure.In(time.FixedZone("CET", 3600))
	assert.True(t, base.Equal(same))

	moved := base
	moved.DepartureAt = departure.Add(45 * time.Minute)
	assert.False(t, base.Equal(moved))

	rerouted := base
	rerouted.Destination = "OPO"
	assert.False(t, base.Equal(rerouted))
}

func TestSessionExpired(t *testing.T) {
	now := time.Now()
	session := &CheckoutSession{ExpiresAt: now.Add(time.Minute)}
	assert.False(t, session.Expired(now))
	assert.True(t, session.Expired(now.Add(2*time.Minute)))
}
