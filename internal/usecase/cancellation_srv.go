package usecase

import (
	"context"
	"fmt"
	"time"

	"travel-booking/internal/data/entity"
	"travel-booking/internal/data/repository"
	"travel-booking/internal/dto/response"
	"travel-booking/internal/gateway"
	"travel-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CalculateItemRefund splits an item's captured amount into refundable,
// penalty and non-refundable parts against its snapshotted policy. The three
// parts always sum to the item amount. Pure: no clock, no I/O.
func CalculateItemRefund(item *entity.BookingItem, at time.Time) entity.RefundBreakdown {
	amount := item.AmountCents
	fee := item.Policy.NonRefundableFeeCents
	if fee > amount {
		fee = amount
	}
	base := amount - fee

	var penalty int64
	hoursBefore := item.Schedule.DepartureAt.Sub(at).Hours()
	switch {
	case hoursBefore <= 0:
		// Departure has passed; nothing beyond the fee comes back either.
		penalty = base
	case hoursBefore >= float64(item.Policy.FreeCancellationHours):
		penalty = 0
	default:
		// The tightest window containing the cancellation moment wins.
		pct, window := 0, -1
		for _, tier := range item.Policy.Tiers {
			if hoursBefore < float64(tier.HoursBeforeDeparture) {
				if window == -1 || tier.HoursBeforeDeparture < window {
					window = tier.HoursBeforeDeparture
					pct = tier.PenaltyPercent
				}
			}
		}
		penalty = base * int64(pct) / 100
	}

	return entity.RefundBreakdown{
		BookingItemID:      item.ID,
		RefundableCents:    base - penalty,
		PenaltyCents:       penalty,
		NonRefundableCents: fee,
		Currency:           item.Currency,
	}
}

// CancellationService cancels booked items and issues the matching refunds.
// Cancellation is per-item atomic: one item failing at the provider leaves
// the other items canceled and refunded.
type CancellationService interface {
	PreviewRefund(ctx context.Context, userID, bookingID uuid.UUID) (*response.RefundPreviewResponse, error)
	Cancel(ctx context.Context, userID, bookingID uuid.UUID) (*response.CancellationResponse, error)
}

type cancellationService struct {
	repo   *repository.Repository
	collab Collaborators
	log    *zap.Logger
}

func NewCancellationService(repo *repository.Repository, collab Collaborators, log *zap.Logger) CancellationService {
	return &cancellationService{
		repo:   repo,
		collab: collab,
		log:    log.With(zap.String("service", "cancellation")),
	}
}

func (s *cancellationService) PreviewRefund(ctx context.Context, userID, bookingID uuid.UUID) (*response.RefundPreviewResponse, error) {
	_, items, err := s.loadOwnedBooking(ctx, userID, bookingID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	preview := &response.RefundPreviewResponse{BookingID: bookingID.String()}
	for _, item := range items {
		if item.Status != entity.BookingItemStatusConfirmed {
			continue
		}
		breakdown := CalculateItemRefund(item, now)
		preview.Items = append(preview.Items, response.RefundBreakdownToResponse(breakdown))
		preview.RefundableCents += breakdown.RefundableCents
		preview.PenaltyCents += breakdown.PenaltyCents
	}
	return preview, nil
}

func (s *cancellationService) Cancel(ctx context.Context, userID, bookingID uuid.UUID) (*response.CancellationResponse, error) {
	booking, items, err := s.loadOwnedBooking(ctx, userID, bookingID)
	if err != nil {
		return nil, err
	}

	payment, err := s.repo.Payment.FindByID(ctx, booking.PaymentID)
	if err != nil {
		return nil, fmt.Errorf("cancel booking %s: %w", bookingID.String(), err)
	}

	now := time.Now()
	result := &response.CancellationResponse{BookingID: bookingID.String()}
	var totalRefunded int64
	for _, item := range items {
		itemResult := s.cancelItem(ctx, booking, payment, item, now)
		totalRefunded += itemResult.RefundedCents
		result.Items = append(result.Items, itemResult)
	}

	// Re-read items so the aggregate sees what actually happened.
	items, err = s.repo.BookingItem.FindByBookingID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("cancel booking %s: %w", bookingID.String(), err)
	}
	next := entity.AggregateStatus(items)
	if next != booking.Status && booking.Status.CanTransition(next) {
		if err := s.repo.Booking.UpdateStatus(ctx, bookingID, next); err != nil {
			return nil, fmt.Errorf("cancel booking %s: %w", bookingID.String(), err)
		}
		booking.Status = next
	}
	result.Status = booking.Status

	if totalRefunded > 0 {
		s.collab.Notifier.Send(ctx, booking.UserID, gateway.TemplateCancellationRefund, map[string]any{
			"booking_ref":    booking.BookingRef,
			"refunded_cents": totalRefunded,
		})
	}

	s.log.Info("Cancellation processed",
		zap.String("booking_id", bookingID.String()),
		zap.Int64("refunded_cents", totalRefunded),
		zap.String("status", string(booking.Status)),
	)
	return result, nil
}

func (s *cancellationService) cancelItem(ctx context.Context, booking *entity.Booking, payment *entity.PaymentTransaction, item *entity.BookingItem, now time.Time) response.CancellationItemResult {
	itemResult := response.CancellationItemResult{BookingItemID: item.ID.String()}

	switch item.Status {
	case entity.BookingItemStatusCanceled:
		// Second cancel of the same item: no provider call, no second refund.
		itemResult.AlreadyCanceled = true
		return itemResult
	case entity.BookingItemStatusConfirmed:
	default:
		itemResult.FailureReason = fmt.Sprintf("item is %s and cannot be canceled", item.Status)
		return itemResult
	}

	if item.ConfirmationRef == nil {
		itemResult.FailureReason = "item has no provider confirmation"
		return itemResult
	}

	adapter, err := s.collab.Providers.Adapter(item.ProviderID)
	if err != nil {
		itemResult.FailureReason = err.Error()
		return itemResult
	}

	breakdown := CalculateItemRefund(item, now)

	if err := adapter.Cancel(ctx, *item.ConfirmationRef); err != nil {
		s.log.Warn("Provider cancel failed",
			zap.Error(err),
			zap.String("item_id", item.ID.String()),
		)
		itemResult.FailureReason = "provider rejected the cancellation"
		return itemResult
	}

	moved, err := s.repo.BookingItem.UpdateStatusExpect(ctx, item.ID, entity.BookingItemStatusConfirmed, entity.BookingItemStatusCanceled)
	if err != nil {
		itemResult.FailureReason = err.Error()
		return itemResult
	}
	if !moved {
		itemResult.AlreadyCanceled = true
		return itemResult
	}
	itemResult.Canceled = true

	if breakdown.RefundableCents == 0 {
		return itemResult
	}
	if payment == nil || payment.GatewayIntentID == nil || !payment.Status.CanTransition(entity.PaymentStatusPartiallyRefunded) {
		// Nothing was captured (or the capture is still in manual recovery),
		// so there is no money to return yet.
		s.log.Warn("Skipping refund, payment not in a refundable state",
			zap.String("item_id", item.ID.String()),
			zap.String("payment_status", string(paymentStatus(payment))),
		)
		return itemResult
	}

	refundKey := utils.RefundIdempotencyKey(booking.ID, item.ID)
	refundID, err := s.collab.Payment.Refund(ctx, *payment.GatewayIntentID, breakdown.RefundableCents, refundKey)
	if err != nil {
		s.log.Error("Refund failed",
			zap.Error(err),
			zap.String("item_id", item.ID.String()),
		)
		itemResult.FailureReason = "cancellation succeeded but the refund failed"
		return itemResult
	}

	payment.RefundedCents += breakdown.RefundableCents
	status := entity.PaymentStatusPartiallyRefunded
	if payment.RefundedCents >= payment.AmountCents {
		status = entity.PaymentStatusRefunded
	}
	if err := s.repo.Payment.AddRefund(ctx, payment.ID, breakdown.RefundableCents, status); err != nil {
		itemResult.FailureReason = err.Error()
		return itemResult
	}
	payment.Status = status

	itemResult.RefundedCents = breakdown.RefundableCents
	itemResult.RefundID = refundID
	return itemResult
}

func (s *cancellationService) loadOwnedBooking(ctx context.Context, userID, bookingID uuid.UUID) (*entity.Booking, []*entity.BookingItem, error) {
	booking, err := s.repo.Booking.FindByID(ctx, bookingID)
	if err != nil {
		return nil, nil, fmt.Errorf("find booking %s: %w", bookingID.String(), err)
	}
	if booking == nil || booking.UserID != userID {
		return nil, nil, entity.ErrNotFound
	}

	items, err := s.repo.BookingItem.FindByBookingID(ctx, bookingID)
	if err != nil {
		return nil, nil, fmt.Errorf("load items for booking %s: %w", bookingID.String(), err)
	}
	return booking, items, nil
}

func paymentStatus(payment *entity.PaymentTransaction) entity.PaymentStatus {
	if payment == nil {
		return ""
	}
	return payment.Status
}
