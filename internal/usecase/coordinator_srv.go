package usecase

import (
	"context"
	"fmt"
	"time"

	"travel-booking/internal/data/entity"
	"travel-booking/internal/data/repository"
	"travel-booking/internal/dto/response"
	"travel-booking/internal/gateway"
	"travel-booking/pkg/metrics"
	"travel-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BookingCoordinator executes the payment-and-booking sequence for a
// ready_for_payment session: authorize, book every item in order, capture.
//
// Compensation is asymmetric on purpose. A hard provider failure cancels the
// items already confirmed and voids the authorization. A timeout proves
// nothing, so there is no rollback: the item parks at pending_reconciliation
// and the background worker asks the provider what actually happened.
type BookingCoordinator interface {
	Pay(ctx context.Context, userID, sessionID uuid.UUID) (*response.BookingResponse, error)
	// ResumeCapture finishes the money side of a booking whose last
	// reconciling item just confirmed. No-op until every item is confirmed.
	ResumeCapture(ctx context.Context, bookingID uuid.UUID) error
	// ResolveReconciledFailure runs the hard-failure compensation for an
	// unresolved item the provider reported as failed.
	ResolveReconciledFailure(ctx context.Context, item *entity.BookingItem) error
}

type bookingCoordinator struct {
	repo   *repository.Repository
	collab Collaborators
	config *utils.Config
	log    *zap.Logger
}

func NewBookingCoordinator(repo *repository.Repository, collab Collaborators, config *utils.Config, log *zap.Logger) BookingCoordinator {
	return &bookingCoordinator{
		repo:   repo,
		collab: collab,
		config: config,
		log:    log.With(zap.String("service", "coordinator")),
	}
}

func (s *bookingCoordinator) Pay(ctx context.Context, userID, sessionID uuid.UUID) (*response.BookingResponse, error) {
	session, err := s.repo.CheckoutSession.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("pay session %s: %w", sessionID.String(), err)
	}
	if session == nil || session.UserID != userID {
		return nil, entity.ErrNotFound
	}
	if session.Expired(time.Now()) && session.Status == entity.CheckoutStatusReadyForPayment {
		return nil, entity.ErrOfferExpired
	}

	cartItems, err := s.repo.CartItem.FindActiveByCartID(ctx, session.CartID)
	if err != nil {
		return nil, fmt.Errorf("pay session %s: %w", sessionID.String(), err)
	}

	// Single-flight guard: only one caller wins the CAS into authorizing.
	moved, err := s.repo.CheckoutSession.UpdateStatusExpect(ctx, sessionID, entity.CheckoutStatusReadyForPayment, entity.CheckoutStatusAuthorizing)
	if err != nil {
		return nil, fmt.Errorf("pay session %s: %w", sessionID.String(), err)
	}
	if !moved {
		return nil, &entity.InvalidTransitionError{Entity: "checkout_session", From: string(session.Status), To: string(entity.CheckoutStatusAuthorizing)}
	}
	session.Status = entity.CheckoutStatusAuthorizing

	payment, err := s.authorize(ctx, session)
	if err != nil {
		return nil, err
	}

	booking, items, err := s.createBooking(ctx, session, payment, cartItems)
	if err != nil {
		return nil, err
	}

	if err := s.bookItems(ctx, session, payment, booking, items, cartItems); err != nil {
		return nil, err
	}

	s.capture(ctx, session, payment, booking, items)

	items, err = s.repo.BookingItem.FindByBookingID(ctx, booking.ID)
	if err != nil {
		return nil, fmt.Errorf("pay session %s: %w", sessionID.String(), err)
	}
	booking, err = s.repo.Booking.FindByID(ctx, booking.ID)
	if err != nil {
		return nil, fmt.Errorf("pay session %s: %w", sessionID.String(), err)
	}

	return response.BookingToResponse(booking, items), nil
}

// authorize places the hold. The idempotency key is derived from the session,
// so retries (and a later capture) land on the same gateway intent.
func (s *bookingCoordinator) authorize(ctx context.Context, session *entity.CheckoutSession) (*entity.PaymentTransaction, error) {
	now := time.Now()
	payment := &entity.PaymentTransaction{
		Base: entity.Base{
			ID:        utils.GenerateUUID(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		CheckoutSessionID: session.ID,
		AmountCents:       session.TotalCents,
		Currency:          session.Currency,
		Status:            entity.PaymentStatusCreated,
		IdempotencyKey:    utils.PaymentIdempotencyKey(session.ID),
	}
	if err := s.repo.Payment.Create(ctx, payment); err != nil {
		return nil, fmt.Errorf("create payment for session %s: %w", session.ID.String(), err)
	}
	session.PaymentID = &payment.ID
	if err := s.repo.CheckoutSession.Update(ctx, session); err != nil {
		return nil, fmt.Errorf("attach payment to session %s: %w", session.ID.String(), err)
	}

	var intentID string
	err := s.callWithRetry(ctx, true, func(callCtx context.Context) error {
		var callErr error
		intentID, callErr = s.collab.Payment.Authorize(callCtx, payment.AmountCents, payment.Currency, payment.IdempotencyKey)
		return callErr
	})
	if err != nil {
		s.log.Warn("Authorization failed",
			zap.Error(err),
			zap.String("session_id", session.ID.String()),
		)
		if _, casErr := s.repo.Payment.UpdateStatusExpect(ctx, payment.ID, entity.PaymentStatusCreated, entity.PaymentStatusCanceled); casErr != nil {
			return nil, casErr
		}
		if failErr := s.failSession(ctx, session, entity.CheckoutStatusAuthorizing); failErr != nil {
			return nil, failErr
		}
		return nil, fmt.Errorf("%w: %v", entity.ErrPaymentDeclined, err)
	}

	if err := s.repo.Payment.SetIntent(ctx, payment.ID, intentID); err != nil {
		return nil, fmt.Errorf("record intent for payment %s: %w", payment.ID.String(), err)
	}
	payment.GatewayIntentID = &intentID
	if _, err := s.repo.Payment.UpdateStatusExpect(ctx, payment.ID, entity.PaymentStatusCreated, entity.PaymentStatusAuthorized); err != nil {
		return nil, err
	}
	payment.Status = entity.PaymentStatusAuthorized

	if _, err := s.repo.CheckoutSession.UpdateStatusExpect(ctx, session.ID, entity.CheckoutStatusAuthorizing, entity.CheckoutStatusAuthorized); err != nil {
		return nil, err
	}
	session.Status = entity.CheckoutStatusAuthorized

	s.log.Info("Payment authorized",
		zap.String("session_id", session.ID.String()),
		zap.String("intent_id", intentID),
		zap.Int64("amount_cents", payment.AmountCents),
	)
	return payment, nil
}

func (s *bookingCoordinator) createBooking(ctx context.Context, session *entity.CheckoutSession, payment *entity.PaymentTransaction, cartItems []*entity.CartItem) (*entity.Booking, []*entity.BookingItem, error) {
	now := time.Now()
	booking := &entity.Booking{
		Base: entity.Base{
			ID:        utils.GenerateUUID(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		BookingRef:        utils.GenerateBookingRef(),
		CheckoutSessionID: session.ID,
		UserID:            session.UserID,
		PaymentID:         payment.ID,
		Status:            entity.BookingStatusPending,
		TotalCents:        session.TotalCents,
		Currency:          session.Currency,
	}
	if err := s.repo.Booking.Create(ctx, booking); err != nil {
		return nil, nil, fmt.Errorf("create booking for session %s: %w", session.ID.String(), err)
	}

	// Travelers are assigned to items in submission order, each item taking
	// as many as its quantity and occupancy require.
	items := make([]*entity.BookingItem, len(cartItems))
	next := 0
	for i, cartItem := range cartItems {
		take := cartItem.TravelersRequired()
		if next+take > len(session.Travelers) {
			take = len(session.Travelers) - next
		}
		item := &entity.BookingItem{
			Base: entity.Base{
				ID:        utils.GenerateUUID(),
				CreatedAt: now,
				UpdatedAt: now,
			},
			BookingID:      booking.ID,
			ItemIndex:      i,
			OfferID:        cartItem.OfferID,
			ItemType:       cartItem.ItemType,
			ProviderID:     cartItem.ProviderID,
			Status:         entity.BookingItemStatusPending,
			AmountCents:    cartItem.TotalCents(),
			Currency:       cartItem.Currency,
			Travelers:      session.Travelers[next : next+take],
			Schedule:       cartItem.Schedule,
			Policy:         cartItem.Policy,
			IdempotencyKey: utils.ItemIdempotencyKey(session.ID, i),
		}
		next += take
		if err := s.repo.BookingItem.Create(ctx, item); err != nil {
			return nil, nil, fmt.Errorf("create booking item %d for session %s: %w", i, session.ID.String(), err)
		}
		items[i] = item
	}

	if _, err := s.repo.CheckoutSession.UpdateStatusExpect(ctx, session.ID, entity.CheckoutStatusAuthorized, entity.CheckoutStatusBooking); err != nil {
		return nil, nil, err
	}
	session.Status = entity.CheckoutStatusBooking

	return booking, items, nil
}

func (s *bookingCoordinator) bookItems(ctx context.Context, session *entity.CheckoutSession, payment *entity.PaymentTransaction, booking *entity.Booking, items []*entity.BookingItem, cartItems []*entity.CartItem) error {
	for i, item := range items {
		req := gateway.BookRequest{
			OfferID:   item.OfferID,
			ItemType:  item.ItemType,
			Quantity:  cartItems[i].Quantity,
			Travelers: item.Travelers,
		}

		adapter, err := s.collab.Providers.Adapter(item.ProviderID)
		if err != nil {
			if compErr := s.compensate(ctx, session, payment, booking, items, item, err); compErr != nil {
				return compErr
			}
			return fmt.Errorf("book items for session %s: %w", session.ID.String(), err)
		}

		var result *gateway.BookResult
		bookErr := s.callWithRetry(ctx, false, func(callCtx context.Context) error {
			var callErr error
			result, callErr = adapter.Book(callCtx, req, item.IdempotencyKey)
			return callErr
		})

		switch {
		case bookErr == nil:
			if _, err := s.repo.BookingItem.SetConfirmation(ctx, item.ID, result.ConfirmationRef, result.Schedule, entity.BookingItemStatusPending); err != nil {
				return err
			}
			item.Status = entity.BookingItemStatusConfirmed
			item.ConfirmationRef = &result.ConfirmationRef
			item.Schedule = result.Schedule
			s.log.Info("Item booked",
				zap.String("booking_id", booking.ID.String()),
				zap.Int("item_index", item.ItemIndex),
				zap.String("confirmation_ref", result.ConfirmationRef),
			)

		case gateway.IsTimeout(bookErr):
			// Indeterminate: the provider may or may not hold a booking under
			// our key. Park the item and let reconciliation decide; nothing
			// already confirmed is rolled back and capture stays blocked.
			if _, err := s.repo.BookingItem.UpdateStatusExpect(ctx, item.ID, entity.BookingItemStatusPending, entity.BookingItemStatusPendingReconciliation); err != nil {
				return err
			}
			item.Status = entity.BookingItemStatusPendingReconciliation
			s.log.Warn("Item booking timed out, queued for reconciliation",
				zap.String("booking_id", booking.ID.String()),
				zap.Int("item_index", item.ItemIndex),
			)
			return entity.ErrPendingReconciliation

		default:
			if compErr := s.compensate(ctx, session, payment, booking, items, item, bookErr); compErr != nil {
				return compErr
			}
			return fmt.Errorf("book items for session %s: %w", session.ID.String(), bookErr)
		}
	}
	return nil
}

// compensate unwinds a hard item failure: the failed item is marked, every
// item confirmed earlier in this run is canceled with the provider, the hold
// is voided and the whole attempt fails. The cart reopens for another try.
func (s *bookingCoordinator) compensate(ctx context.Context, session *entity.CheckoutSession, payment *entity.PaymentTransaction, booking *entity.Booking, items []*entity.BookingItem, failed *entity.BookingItem, cause error) error {
	s.log.Warn("Item booking failed, compensating",
		zap.Error(cause),
		zap.String("booking_id", booking.ID.String()),
		zap.Int("item_index", failed.ItemIndex),
	)

	if _, err := s.repo.BookingItem.UpdateStatusExpect(ctx, failed.ID, failed.Status, entity.BookingItemStatusBookingFailed); err != nil {
		return err
	}
	failed.Status = entity.BookingItemStatusBookingFailed

	for _, item := range items {
		if item.Status != entity.BookingItemStatusConfirmed || item.ConfirmationRef == nil {
			continue
		}
		adapter, err := s.collab.Providers.Adapter(item.ProviderID)
		if err != nil {
			s.log.Error("No adapter for compensation", zap.Error(err), zap.String("item_id", item.ID.String()))
			continue
		}
		if err := adapter.Cancel(ctx, *item.ConfirmationRef); err != nil {
			// Leave the item confirmed for manual follow-up rather than
			// recording a cancellation that did not happen.
			s.log.Error("Compensating cancel failed",
				zap.Error(err),
				zap.String("item_id", item.ID.String()),
				zap.String("confirmation_ref", *item.ConfirmationRef),
			)
			continue
		}
		if _, err := s.repo.BookingItem.UpdateStatusExpect(ctx, item.ID, entity.BookingItemStatusConfirmed, entity.BookingItemStatusCanceled); err != nil {
			return err
		}
		item.Status = entity.BookingItemStatusCanceled
		metrics.SagaCompensations.WithLabelValues("provider_cancel").Inc()
	}

	if payment.GatewayIntentID != nil {
		if err := s.collab.Payment.Void(ctx, *payment.GatewayIntentID); err != nil {
			s.log.Error("Void failed, hold will lapse on its own",
				zap.Error(err),
				zap.String("payment_id", payment.ID.String()),
			)
		} else {
			metrics.SagaCompensations.WithLabelValues("void_authorization").Inc()
		}
	}
	if _, err := s.repo.Payment.UpdateStatusExpect(ctx, payment.ID, entity.PaymentStatusAuthorized, entity.PaymentStatusCanceled); err != nil {
		return err
	}

	if _, err := s.repo.Booking.UpdateStatusExpect(ctx, booking.ID, entity.BookingStatusPending, entity.BookingStatusFailed); err != nil {
		return err
	}
	if err := s.failSession(ctx, session, entity.CheckoutStatusBooking); err != nil {
		return err
	}

	s.collab.Notifier.Send(ctx, session.UserID, gateway.TemplateBookingFailed, map[string]any{
		"booking_ref": booking.BookingRef,
	})

	return nil
}

// capture charges the hold after every item confirmed. A capture failure is
// never unwound: the bookings are real, so the booking confirms anyway and
// billing recovers the charge manually.
func (s *bookingCoordinator) capture(ctx context.Context, session *entity.CheckoutSession, payment *entity.PaymentTransaction, booking *entity.Booking, items []*entity.BookingItem) {
	err := s.callWithRetry(ctx, true, func(callCtx context.Context) error {
		return s.collab.Payment.Capture(callCtx, *payment.GatewayIntentID, payment.IdempotencyKey)
	})

	// The provider bookings are real regardless of the charge.
	if _, casErr := s.repo.Booking.UpdateStatusExpect(ctx, booking.ID, entity.BookingStatusPending, entity.BookingStatusConfirmed); casErr != nil {
		s.log.Error("Failed to confirm booking", zap.Error(casErr))
	}

	if err != nil {
		metrics.CaptureFailures.Inc()
		s.log.Error("Capture failed after all items confirmed",
			zap.Error(err),
			zap.String("booking_id", booking.ID.String()),
			zap.String("payment_id", payment.ID.String()),
		)
		if _, casErr := s.repo.Payment.UpdateStatusExpect(ctx, payment.ID, entity.PaymentStatusAuthorized, entity.PaymentStatusCaptureFailed); casErr != nil {
			s.log.Error("Failed to record capture failure", zap.Error(casErr))
		}
		// The session stays at booking and the cart stays locked: completed
		// always means captured. The payment.captured webhook (or manual
		// billing action reported through it) finishes the checkout.
		s.collab.Notifier.Send(ctx, session.UserID, gateway.TemplateBillingNeedsReview, map[string]any{
			"booking_ref": booking.BookingRef,
			"payment_id":  payment.ID.String(),
		})
		return
	}

	if _, casErr := s.repo.Payment.UpdateStatusExpect(ctx, payment.ID, entity.PaymentStatusAuthorized, entity.PaymentStatusCaptured); casErr != nil {
		s.log.Error("Failed to record capture", zap.Error(casErr))
	}
	if _, err := s.repo.CheckoutSession.UpdateStatusExpect(ctx, session.ID, entity.CheckoutStatusBooking, entity.CheckoutStatusCompleted); err != nil {
		s.log.Error("Failed to complete session", zap.Error(err))
	}
	if _, err := s.repo.Cart.UpdateStatusExpect(ctx, session.CartID, entity.CartStatusLocked, entity.CartStatusConverted); err != nil {
		s.log.Error("Failed to convert cart", zap.Error(err))
	}

	metrics.CheckoutsCompleted.WithLabelValues("completed").Inc()
	s.collab.Notifier.Send(ctx, session.UserID, gateway.TemplateBookingConfirmed, map[string]any{
		"booking_ref": booking.BookingRef,
	})
	s.log.Info("Checkout completed",
		zap.String("session_id", session.ID.String()),
		zap.String("booking_ref", booking.BookingRef),
	)
}

func (s *bookingCoordinator) ResumeCapture(ctx context.Context, bookingID uuid.UUID) error {
	booking, err := s.repo.Booking.FindByID(ctx, bookingID)
	if err != nil {
		return fmt.Errorf("resume capture for booking %s: %w", bookingID.String(), err)
	}
	if booking == nil || booking.Status != entity.BookingStatusPending {
		return nil
	}

	items, err := s.repo.BookingItem.FindByBookingID(ctx, bookingID)
	if err != nil {
		return fmt.Errorf("resume capture for booking %s: %w", bookingID.String(), err)
	}
	for _, item := range items {
		if item.Status != entity.BookingItemStatusConfirmed {
			return nil
		}
	}

	payment, err := s.repo.Payment.FindByID(ctx, booking.PaymentID)
	if err != nil {
		return fmt.Errorf("resume capture for booking %s: %w", bookingID.String(), err)
	}
	if payment == nil || payment.Status != entity.PaymentStatusAuthorized || payment.GatewayIntentID == nil {
		return nil
	}

	session, err := s.repo.CheckoutSession.FindByID(ctx, booking.CheckoutSessionID)
	if err != nil {
		return fmt.Errorf("resume capture for booking %s: %w", bookingID.String(), err)
	}
	if session == nil {
		return nil
	}

	s.log.Info("Resuming capture after reconciliation",
		zap.String("booking_id", bookingID.String()),
	)
	s.capture(ctx, session, payment, booking, items)
	return nil
}

func (s *bookingCoordinator) ResolveReconciledFailure(ctx context.Context, item *entity.BookingItem) error {
	booking, err := s.repo.Booking.FindByID(ctx, item.BookingID)
	if err != nil {
		return fmt.Errorf("resolve failed item %s: %w", item.ID.String(), err)
	}
	if booking == nil || booking.Status != entity.BookingStatusPending {
		return nil
	}

	items, err := s.repo.BookingItem.FindByBookingID(ctx, booking.ID)
	if err != nil {
		return fmt.Errorf("resolve failed item %s: %w", item.ID.String(), err)
	}
	payment, err := s.repo.Payment.FindByID(ctx, booking.PaymentID)
	if err != nil {
		return fmt.Errorf("resolve failed item %s: %w", item.ID.String(), err)
	}
	session, err := s.repo.CheckoutSession.FindByID(ctx, booking.CheckoutSessionID)
	if err != nil {
		return fmt.Errorf("resolve failed item %s: %w", item.ID.String(), err)
	}
	if payment == nil || session == nil {
		return fmt.Errorf("resolve failed item %s: booking %s has no payment or session", item.ID.String(), booking.ID.String())
	}

	var failed *entity.BookingItem
	for _, candidate := range items {
		if candidate.ID == item.ID {
			failed = candidate
		}
	}
	if failed == nil {
		return nil
	}
	switch failed.Status {
	case entity.BookingItemStatusPendingReconciliation, entity.BookingItemStatusPending:
		// Unresolved either way: a timed-out booking call, or an item a dead
		// payment run never got to.
	default:
		return nil
	}

	if err := s.compensate(ctx, session, payment, booking, items, failed, fmt.Errorf("provider reported booking failed")); err != nil {
		return err
	}
	metrics.ReconciliationsResolved.WithLabelValues("failed").Inc()
	return nil
}

// failSession fails the session from the given phase and reopens the cart.
func (s *bookingCoordinator) failSession(ctx context.Context, session *entity.CheckoutSession, from entity.CheckoutStatus) error {
	if _, err := s.repo.CheckoutSession.UpdateStatusExpect(ctx, session.ID, from, entity.CheckoutStatusFailed); err != nil {
		return err
	}
	session.Status = entity.CheckoutStatusFailed
	if _, err := s.repo.Cart.UpdateStatusExpect(ctx, session.CartID, entity.CartStatusLocked, entity.CartStatusOpen); err != nil {
		return err
	}
	metrics.CheckoutsCompleted.WithLabelValues("failed").Inc()
	return nil
}

// callWithRetry runs op under the external-call timeout, retrying transient
// failures with a linear backoff. Timeouts are retried only when retryTimeout
// is set: payment calls are idempotent on the gateway side, provider booking
// timeouts must instead go through reconciliation.
func (s *bookingCoordinator) callWithRetry(ctx context.Context, retryTimeout bool, op func(ctx context.Context) error) error {
	var err error
	for attempt := 0; attempt <= s.config.Saga.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * s.config.Saga.RetryBackoff):
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, s.config.Saga.ExternalCallTimeout)
		err = op(callCtx)
		cancel()

		if err == nil {
			return nil
		}
		if gateway.IsTransient(err) {
			continue
		}
		if gateway.IsTimeout(err) && retryTimeout {
			continue
		}
		return err
	}
	return err
}
