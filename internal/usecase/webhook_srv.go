package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"travel-booking/internal/data/entity"
	"travel-booking/internal/data/repository"
	"travel-booking/internal/dto/request"
	"travel-booking/pkg/metrics"
	"travel-booking/pkg/utils"

	"go.uber.org/zap"
)

// WebhookService records and applies asynchronous payment gateway events.
// Every event lands in the ledger before any side effect runs; a replayed
// event id short-circuits with ErrDuplicateEvent and does nothing twice.
type WebhookService interface {
	HandlePaymentEvent(ctx context.Context, req request.PaymentWebhookRequest) error
}

type webhookService struct {
	repo *repository.Repository
	log  *zap.Logger
}

func NewWebhookService(repo *repository.Repository, log *zap.Logger) WebhookService {
	return &webhookService{
		repo: repo,
		log:  log.With(zap.String("service", "webhook")),
	}
}

func (s *webhookService) HandlePaymentEvent(ctx context.Context, req request.PaymentWebhookRequest) error {
	if fields := utils.ValidateStruct(req); fields != nil {
		return &entity.ValidationError{Fields: fields}
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}

	event := &entity.WebhookEvent{
		BaseSimple: entity.BaseSimple{
			ID:        utils.GenerateUUID(),
			CreatedAt: time.Now(),
		},
		ExternalEventID: req.EventID,
		EventType:       req.EventType,
		Payload:         payload,
	}

	stored, inserted, err := s.repo.WebhookEvent.InsertIfAbsent(ctx, event)
	if err != nil {
		return fmt.Errorf("record webhook event %s: %w", req.EventID, err)
	}
	if !inserted {
		if stored.Processed {
			metrics.WebhookEvents.WithLabelValues("duplicate").Inc()
			s.log.Info("Duplicate webhook event ignored",
				zap.String("event_id", req.EventID),
				zap.String("event_type", req.EventType),
			)
			return entity.ErrDuplicateEvent
		}
		// Known but unprocessed: an earlier attempt died mid-flight. Run the
		// handler again; every effect below is guarded by a CAS.
		if err := s.repo.WebhookEvent.IncrementRetry(ctx, req.EventID); err != nil {
			return fmt.Errorf("record webhook retry %s: %w", req.EventID, err)
		}
	}

	if err := s.apply(ctx, req); err != nil {
		metrics.WebhookEvents.WithLabelValues("failed").Inc()
		return err
	}

	if err := s.repo.WebhookEvent.MarkProcessed(ctx, req.EventID); err != nil {
		return fmt.Errorf("mark webhook event %s processed: %w", req.EventID, err)
	}

	metrics.WebhookEvents.WithLabelValues("processed").Inc()
	return nil
}

func (s *webhookService) apply(ctx context.Context, req request.PaymentWebhookRequest) error {
	payment, err := s.repo.Payment.FindByIntentID(ctx, req.IntentID)
	if err != nil {
		return fmt.Errorf("apply webhook event %s: %w", req.EventID, err)
	}
	if payment == nil {
		return fmt.Errorf("apply webhook event %s: %w", req.EventID, entity.ErrNotFound)
	}

	switch req.EventType {
	case "payment.captured":
		// Confirms a capture the saga issued, or resolves a manual recovery
		// of a failed capture. A regression from any later state fails the
		// CAS and is dropped.
		moved, err := s.repo.Payment.UpdateStatusExpect(ctx, payment.ID, entity.PaymentStatusAuthorized, entity.PaymentStatusCaptured)
		if err != nil {
			return err
		}
		if !moved {
			moved, err = s.repo.Payment.UpdateStatusExpect(ctx, payment.ID, entity.PaymentStatusCaptureFailed, entity.PaymentStatusCaptured)
			if err != nil {
				return err
			}
			if moved {
				s.log.Info("Capture recovered via webhook",
					zap.String("payment_id", payment.ID.String()),
				)
			}
		}
		if moved {
			if err := s.completeCheckout(ctx, payment); err != nil {
				return err
			}
		}

	case "payment.capture_failed":
		if _, err := s.repo.Payment.UpdateStatusExpect(ctx, payment.ID, entity.PaymentStatusAuthorized, entity.PaymentStatusCaptureFailed); err != nil {
			return err
		}

	case "payment.refunded":
		if !payment.Status.CanTransition(entity.PaymentStatusPartiallyRefunded) {
			s.log.Warn("Refund event for payment not in refundable state, dropped",
				zap.String("payment_id", payment.ID.String()),
				zap.String("status", string(payment.Status)),
			)
			return nil
		}
		// AmountCents is the gateway's cumulative refunded total. Refunds we
		// issued synchronously are already on the row, so only the shortfall
		// is applied here.
		delta := req.AmountCents - payment.RefundedCents
		if delta <= 0 {
			return nil
		}
		status := entity.PaymentStatusPartiallyRefunded
		if req.AmountCents >= payment.AmountCents {
			status = entity.PaymentStatusRefunded
		}
		if err := s.repo.Payment.AddRefund(ctx, payment.ID, delta, status); err != nil {
			return err
		}

	default:
		return fmt.Errorf("apply webhook event %s: unsupported event type %s", req.EventID, req.EventType)
	}

	return nil
}

// completeCheckout finishes a checkout whose capture was confirmed out of
// band. A session still at booking means the saga parked on a capture failure;
// completed always implies captured, so the session only completes here. The
// synchronous capture path completes the session itself and both CAS guards
// find nothing to do.
func (s *webhookService) completeCheckout(ctx context.Context, payment *entity.PaymentTransaction) error {
	session, err := s.repo.CheckoutSession.FindByID(ctx, payment.CheckoutSessionID)
	if err != nil {
		return fmt.Errorf("complete checkout for payment %s: %w", payment.ID.String(), err)
	}
	if session == nil {
		return nil
	}

	moved, err := s.repo.CheckoutSession.UpdateStatusExpect(ctx, session.ID, entity.CheckoutStatusBooking, entity.CheckoutStatusCompleted)
	if err != nil {
		return fmt.Errorf("complete checkout for payment %s: %w", payment.ID.String(), err)
	}
	if !moved {
		return nil
	}
	if _, err := s.repo.Cart.UpdateStatusExpect(ctx, session.CartID, entity.CartStatusLocked, entity.CartStatusConverted); err != nil {
		return fmt.Errorf("complete checkout for payment %s: %w", payment.ID.String(), err)
	}

	metrics.CheckoutsCompleted.WithLabelValues("completed").Inc()
	s.log.Info("Checkout completed after capture recovery",
		zap.String("session_id", session.ID.String()),
		zap.String("payment_id", payment.ID.String()),
	)
	return nil
}
