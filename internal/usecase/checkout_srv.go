package usecase

import (
	"context"
	"fmt"
	"time"

	"travel-booking/internal/data/entity"
	"travel-booking/internal/data/repository"
	"travel-booking/internal/dto/request"
	"travel-booking/internal/dto/response"
	"travel-booking/pkg/metrics"
	"travel-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type CheckoutService interface {
	Initialize(ctx context.Context, userID uuid.UUID, req request.InitializeCheckoutRequest) (*response.CheckoutSessionResponse, error)
	// VerifyPrices re-reads every snapshot offer from the catalog and either
	// advances the session to ready_for_payment or parks it at price_changed
	// with the per-item deltas.
	VerifyPrices(ctx context.Context, userID, sessionID uuid.UUID) (*response.CheckoutSessionResponse, error)
	AcknowledgePriceChange(ctx context.Context, userID, sessionID uuid.UUID) (*response.CheckoutSessionResponse, error)
	SubmitTravelerDetails(ctx context.Context, userID, sessionID uuid.UUID, req request.SubmitTravelerDetailsRequest) (*response.CheckoutSessionResponse, error)
	GetSession(ctx context.Context, userID, sessionID uuid.UUID) (*response.CheckoutSessionResponse, error)
	// Expire moves an overdue session to expired and reopens its cart. It is
	// a no-op for terminal sessions and never interrupts payment execution.
	Expire(ctx context.Context, sessionID uuid.UUID) error
}

type checkoutService struct {
	repo   *repository.Repository
	collab Collaborators
	config *utils.Config
	log    *zap.Logger
}

func NewCheckoutService(repo *repository.Repository, collab Collaborators, config *utils.Config, log *zap.Logger) CheckoutService {
	return &checkoutService{
		repo:   repo,
		collab: collab,
		config: config,
		log:    log.With(zap.String("service", "checkout")),
	}
}

func (s *checkoutService) Initialize(ctx context.Context, userID uuid.UUID, req request.InitializeCheckoutRequest) (*response.CheckoutSessionResponse, error) {
	if fields := utils.ValidateStruct(req); fields != nil {
		return nil, &entity.ValidationError{Fields: fields}
	}

	cartID, err := utils.ParseUUID(req.CartID)
	if err != nil {
		return nil, &entity.ValidationError{Fields: map[string]string{"cart_id": "must be a valid UUID"}}
	}

	cart, err := s.repo.Cart.FindByID(ctx, cartID)
	if err != nil {
		return nil, fmt.Errorf("initialize checkout for cart %s: %w", cartID.String(), err)
	}
	if cart == nil || cart.UserID != userID {
		return nil, entity.ErrNotFound
	}
	// A converted or abandoned cart is gone for checkout purposes; only a
	// locked cart actually has a session in flight.
	if cart.Status.IsTerminal() {
		return nil, entity.ErrNotFound
	}
	if cart.Status != entity.CartStatusOpen {
		return nil, entity.ErrCartLocked
	}

	items, err := s.repo.CartItem.FindActiveByCartID(ctx, cartID)
	if err != nil {
		return nil, fmt.Errorf("initialize checkout for cart %s: %w", cartID.String(), err)
	}
	if len(items) == 0 {
		return nil, entity.ErrCartEmpty
	}

	now := time.Now()
	expiresAt := now.Add(time.Duration(s.config.Checkout.SessionTTLMinutes) * time.Minute)
	snapshot := make([]entity.PriceSnapshotItem, len(items))
	var total int64
	for i, item := range items {
		if item.Expired(now) {
			return nil, entity.ErrOfferExpired
		}
		// The session never outlives its shortest-lived offer.
		if item.OfferExpiry.Before(expiresAt) {
			expiresAt = item.OfferExpiry
		}
		snapshot[i] = entity.PriceSnapshotItem{
			CartItemID: item.ID,
			OfferID:    item.OfferID,
			PriceCents: item.PriceCents,
			Quantity:   item.Quantity,
		}
		total += item.TotalCents()
	}

	locked, err := s.repo.Cart.UpdateStatusExpect(ctx, cartID, entity.CartStatusOpen, entity.CartStatusLocked)
	if err != nil {
		return nil, fmt.Errorf("initialize checkout for cart %s: %w", cartID.String(), err)
	}
	if !locked {
		return nil, entity.ErrCartLocked
	}

	session := &entity.CheckoutSession{
		Base: entity.Base{
			ID:        utils.GenerateUUID(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		CartID:        cartID,
		UserID:        userID,
		Status:        entity.CheckoutStatusInitialized,
		PriceSnapshot: snapshot,
		TotalCents:    total,
		Currency:      items[0].Currency,
		ExpiresAt:     expiresAt,
	}

	if err := s.repo.CheckoutSession.Create(ctx, session); err != nil {
		// Best effort: give the cart back so the user is not stuck.
		if _, unlockErr := s.repo.Cart.UpdateStatusExpect(ctx, cartID, entity.CartStatusLocked, entity.CartStatusOpen); unlockErr != nil {
			s.log.Error("Failed to unlock cart after session create failure",
				zap.Error(unlockErr),
				zap.String("cart_id", cartID.String()),
			)
		}
		return nil, fmt.Errorf("initialize checkout for cart %s: %w", cartID.String(), err)
	}

	s.log.Info("Initialized checkout session",
		zap.String("session_id", session.ID.String()),
		zap.String("cart_id", cartID.String()),
		zap.Int64("total_cents", total),
	)

	return response.CheckoutSessionToResponse(session, nil), nil
}

func (s *checkoutService) VerifyPrices(ctx context.Context, userID, sessionID uuid.UUID) (*response.CheckoutSessionResponse, error) {
	session, err := s.loadOwnedSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	if expired, err := s.expireIfDue(ctx, session, time.Now()); err != nil {
		return nil, err
	} else if expired {
		return nil, entity.ErrOfferExpired
	}

	if session.Status != entity.CheckoutStatusInitialized && session.Status != entity.CheckoutStatusAwaitingTravelerDetails {
		return nil, &entity.InvalidTransitionError{Entity: "checkout_session", From: string(session.Status), To: string(entity.CheckoutStatusPriceVerifying)}
	}
	if len(session.Travelers) == 0 {
		return nil, &entity.ValidationError{Fields: map[string]string{"travelers": "traveler details must be submitted before price verification"}}
	}

	if err := session.Transition(entity.CheckoutStatusPriceVerifying); err != nil {
		return nil, err
	}

	var deltas []response.PriceDelta
	for _, snap := range session.PriceSnapshot {
		price, err := s.collab.Catalog.GetCurrentPrice(ctx, snap.OfferID)
		if err != nil {
			s.log.Warn("Offer no longer available",
				zap.Error(err),
				zap.String("session_id", sessionID.String()),
				zap.String("offer_id", snap.OfferID),
			)
			return nil, s.failSession(ctx, session, entity.ErrItemUnavailable)
		}

		drift := price.AmountCents - snap.PriceCents
		if drift < 0 {
			drift = -drift
		}
		if drift > s.config.Checkout.PriceToleranceCents {
			deltas = append(deltas, response.PriceDelta{
				CartItemID:    snap.CartItemID.String(),
				OfferID:       snap.OfferID,
				PreviousCents: snap.PriceCents,
				CurrentCents:  price.AmountCents,
			})
		}
	}

	if len(deltas) > 0 {
		// One acknowledged change is the limit; a second drift fails the
		// session so the user starts over against live prices.
		if session.PriceChangeAcks > 0 {
			return nil, s.failSession(ctx, session, entity.ErrPriceChangedTwice)
		}
		if err := session.Transition(entity.CheckoutStatusPriceChanged); err != nil {
			return nil, err
		}
		if err := s.repo.CheckoutSession.Update(ctx, session); err != nil {
			return nil, fmt.Errorf("verify prices for session %s: %w", sessionID.String(), err)
		}
		s.log.Info("Price changed during verification",
			zap.String("session_id", sessionID.String()),
			zap.Int("changed_items", len(deltas)),
		)
		return response.CheckoutSessionToResponse(session, deltas), nil
	}

	if err := session.Transition(entity.CheckoutStatusReadyForPayment); err != nil {
		return nil, err
	}
	if err := s.repo.CheckoutSession.Update(ctx, session); err != nil {
		return nil, fmt.Errorf("verify prices for session %s: %w", sessionID.String(), err)
	}

	return response.CheckoutSessionToResponse(session, nil), nil
}

func (s *checkoutService) AcknowledgePriceChange(ctx context.Context, userID, sessionID uuid.UUID) (*response.CheckoutSessionResponse, error) {
	session, err := s.loadOwnedSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	if expired, err := s.expireIfDue(ctx, session, time.Now()); err != nil {
		return nil, err
	} else if expired {
		return nil, entity.ErrOfferExpired
	}

	if session.Status != entity.CheckoutStatusPriceChanged {
		return nil, &entity.InvalidTransitionError{Entity: "checkout_session", From: string(session.Status), To: string(entity.CheckoutStatusAwaitingTravelerDetails)}
	}

	// Acknowledging adopts the catalog's current prices into the snapshot
	// and the cart, then sends the user back through traveler confirmation.
	var total int64
	for i, snap := range session.PriceSnapshot {
		price, err := s.collab.Catalog.GetCurrentPrice(ctx, snap.OfferID)
		if err != nil {
			return nil, s.failSession(ctx, session, entity.ErrItemUnavailable)
		}
		if price.AmountCents != snap.PriceCents {
			if err := s.repo.CartItem.UpdatePrice(ctx, snap.CartItemID, price.AmountCents); err != nil {
				return nil, fmt.Errorf("acknowledge price change for session %s: %w", sessionID.String(), err)
			}
			session.PriceSnapshot[i].PriceCents = price.AmountCents
		}
		total += price.AmountCents * int64(snap.Quantity)
	}
	session.TotalCents = total
	session.PriceChangeAcks++

	if err := session.Transition(entity.CheckoutStatusAwaitingTravelerDetails); err != nil {
		return nil, err
	}
	if err := s.repo.CheckoutSession.Update(ctx, session); err != nil {
		return nil, fmt.Errorf("acknowledge price change for session %s: %w", sessionID.String(), err)
	}

	s.log.Info("Price change acknowledged",
		zap.String("session_id", sessionID.String()),
		zap.Int64("total_cents", total),
	)

	return response.CheckoutSessionToResponse(session, nil), nil
}

func (s *checkoutService) SubmitTravelerDetails(ctx context.Context, userID, sessionID uuid.UUID, req request.SubmitTravelerDetailsRequest) (*response.CheckoutSessionResponse, error) {
	if fields := utils.ValidateStruct(req); fields != nil {
		return nil, &entity.ValidationError{Fields: fields}
	}

	session, err := s.loadOwnedSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	if expired, err := s.expireIfDue(ctx, session, time.Now()); err != nil {
		return nil, err
	} else if expired {
		return nil, entity.ErrOfferExpired
	}

	if session.Status != entity.CheckoutStatusInitialized && session.Status != entity.CheckoutStatusAwaitingTravelerDetails {
		return nil, &entity.InvalidTransitionError{Entity: "checkout_session", From: string(session.Status), To: string(session.Status)}
	}

	items, err := s.repo.CartItem.FindActiveByCartID(ctx, session.CartID)
	if err != nil {
		return nil, fmt.Errorf("submit travelers for session %s: %w", sessionID.String(), err)
	}

	fields := map[string]string{}
	required := 0
	documentRequired := false
	for _, item := range items {
		required += item.TravelersRequired()
		if item.ItemType.RequiresTravelDocument() {
			documentRequired = true
		}
	}
	if len(req.Travelers) != required {
		fields["travelers"] = fmt.Sprintf("expected %d traveler(s), got %d", required, len(req.Travelers))
	}
	if documentRequired {
		for i, traveler := range req.Travelers {
			if traveler.DocumentType == "" || traveler.DocumentNumber == "" {
				fields[fmt.Sprintf("travelers[%d].document_number", i)] = "travel document is required for flight bookings"
			}
		}
	}
	if len(fields) > 0 {
		// Validation failures leave the session exactly where it was.
		return nil, &entity.ValidationError{Fields: fields}
	}

	travelers := make([]entity.TravelerDetail, len(req.Travelers))
	for i, traveler := range req.Travelers {
		travelers[i] = entity.TravelerDetail{
			FirstName:      traveler.FirstName,
			LastName:       traveler.LastName,
			DateOfBirth:    traveler.DateOfBirth,
			DocumentType:   traveler.DocumentType,
			DocumentNumber: traveler.DocumentNumber,
		}
	}
	session.Travelers = travelers
	session.ContactEmail = req.ContactEmail
	session.ContactPhone = req.ContactPhone

	if err := s.repo.CheckoutSession.Update(ctx, session); err != nil {
		return nil, fmt.Errorf("submit travelers for session %s: %w", sessionID.String(), err)
	}

	s.log.Info("Traveler details submitted",
		zap.String("session_id", sessionID.String()),
		zap.Int("travelers", len(travelers)),
	)

	return response.CheckoutSessionToResponse(session, nil), nil
}

func (s *checkoutService) GetSession(ctx context.Context, userID, sessionID uuid.UUID) (*response.CheckoutSessionResponse, error) {
	session, err := s.loadOwnedSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	if _, err := s.expireIfDue(ctx, session, time.Now()); err != nil {
		return nil, err
	}

	return response.CheckoutSessionToResponse(session, nil), nil
}

func (s *checkoutService) Expire(ctx context.Context, sessionID uuid.UUID) error {
	session, err := s.repo.CheckoutSession.FindByID(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("expire session %s: %w", sessionID.String(), err)
	}
	if session == nil || session.Status.IsTerminal() {
		return nil
	}

	if _, err := s.expireIfDue(ctx, session, session.ExpiresAt.Add(time.Nanosecond)); err != nil {
		return err
	}
	return nil
}

func (s *checkoutService) loadOwnedSession(ctx context.Context, userID, sessionID uuid.UUID) (*entity.CheckoutSession, error) {
	session, err := s.repo.CheckoutSession.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("find session %s: %w", sessionID.String(), err)
	}
	if session == nil || session.UserID != userID {
		return nil, entity.ErrNotFound
	}
	return session, nil
}

// expireIfDue lazily expires an overdue session. Sessions in payment
// execution (authorizing, authorized, booking) are exempt: money is moving
// and only the coordinator decides their outcome.
func (s *checkoutService) expireIfDue(ctx context.Context, session *entity.CheckoutSession, now time.Time) (bool, error) {
	if !session.Expired(now) || session.Status.IsTerminal() {
		return false, nil
	}
	if !session.Status.CanTransition(entity.CheckoutStatusExpired) {
		return false, nil
	}

	moved, err := s.repo.CheckoutSession.UpdateStatusExpect(ctx, session.ID, session.Status, entity.CheckoutStatusExpired)
	if err != nil {
		return false, fmt.Errorf("expire session %s: %w", session.ID.String(), err)
	}
	if !moved {
		return false, nil
	}
	session.Status = entity.CheckoutStatusExpired

	if _, err := s.repo.Cart.UpdateStatusExpect(ctx, session.CartID, entity.CartStatusLocked, entity.CartStatusOpen); err != nil {
		return true, fmt.Errorf("unlock cart %s: %w", session.CartID.String(), err)
	}

	metrics.CheckoutsCompleted.WithLabelValues("expired").Inc()
	s.log.Info("Checkout session expired",
		zap.String("session_id", session.ID.String()),
		zap.String("cart_id", session.CartID.String()),
	)
	return true, nil
}

// failSession moves the session to failed, reopens the cart and returns the
// causing error.
func (s *checkoutService) failSession(ctx context.Context, session *entity.CheckoutSession, cause error) error {
	if err := session.Transition(entity.CheckoutStatusFailed); err != nil {
		return err
	}
	if err := s.repo.CheckoutSession.Update(ctx, session); err != nil {
		return fmt.Errorf("fail session %s: %w", session.ID.String(), err)
	}
	if _, err := s.repo.Cart.UpdateStatusExpect(ctx, session.CartID, entity.CartStatusLocked, entity.CartStatusOpen); err != nil {
		return fmt.Errorf("unlock cart %s: %w", session.CartID.String(), err)
	}

	metrics.CheckoutsCompleted.WithLabelValues("failed").Inc()
	return cause
}
