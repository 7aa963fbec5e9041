package usecase

import (
	"context"
	"fmt"
	"time"

	"travel-booking/internal/data/entity"
	"travel-booking/internal/data/repository"
	"travel-booking/internal/gateway"
	"travel-booking/pkg/metrics"
	"travel-booking/pkg/utils"

	"go.uber.org/zap"
)

// LifecycleService keeps stored bookings aligned with provider reality: it
// resolves items parked at pending_reconciliation, detects provider-side
// schedule changes and completes items whose travel date has passed.
type LifecycleService interface {
	// Reconcile asks each provider for the true outcome of every
	// indeterminate item, looked up by the idempotency key our booking call
	// carried. This covers items parked at pending_reconciliation and items
	// stranded at pending by a payment run that died mid-flight.
	Reconcile(ctx context.Context) error
	// SyncSchedules diffs each confirmed item's provider schedule against the
	// stored snapshot, recording and notifying before updating the snapshot.
	SyncSchedules(ctx context.Context) error
	// CompleteDeparted marks confirmed items whose departure has passed as
	// completed and recomputes their booking status.
	CompleteDeparted(ctx context.Context) error
}

type lifecycleService struct {
	repo        *repository.Repository
	collab      Collaborators
	coordinator BookingCoordinator
	config      *utils.Config
	log         *zap.Logger
}

func NewLifecycleService(repo *repository.Repository, collab Collaborators, coordinator BookingCoordinator, config *utils.Config, log *zap.Logger) LifecycleService {
	return &lifecycleService{
		repo:        repo,
		collab:      collab,
		coordinator: coordinator,
		config:      config,
		log:         log.With(zap.String("service", "lifecycle")),
	}
}

func (s *lifecycleService) Reconcile(ctx context.Context) error {
	items, err := s.repo.BookingItem.FindPendingReconciliation(ctx)
	if err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}

	// A payment run that died mid-flight leaves items at pending with no one
	// to advance them. Once an item has sat there longer than any booking
	// call can still be running, the run is gone and the provider is the only
	// source of truth left.
	cutoff := time.Now().Add(-s.stalePendingAge())
	stale, err := s.repo.BookingItem.FindStalePending(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}
	items = append(items, stale...)

	for _, item := range items {
		if err := s.reconcileItem(ctx, item); err != nil {
			s.log.Error("Failed to reconcile item",
				zap.Error(err),
				zap.String("item_id", item.ID.String()),
			)
		}
	}
	return nil
}

// stalePendingAge bounds how long a live run can hold one item at pending:
// every attempt of the booking call, plus the backoff between attempts.
func (s *lifecycleService) stalePendingAge() time.Duration {
	attempts := time.Duration(s.config.Saga.MaxRetries + 1)
	return attempts*s.config.Saga.ExternalCallTimeout + attempts*s.config.Saga.RetryBackoff
}

func (s *lifecycleService) reconcileItem(ctx context.Context, item *entity.BookingItem) error {
	adapter, err := s.collab.Providers.Adapter(item.ProviderID)
	if err != nil {
		return err
	}

	status, err := adapter.GetStatus(ctx, item.IdempotencyKey)
	if err != nil {
		// Still unreachable; the next tick tries again.
		return err
	}

	switch status.Status {
	case gateway.ItemStatusConfirmed:
		// The CAS is keyed on the status the sweep saw, so a run that somehow
		// resumed in the meantime wins and this write is dropped.
		moved, err := s.repo.BookingItem.SetConfirmation(ctx, item.ID, status.ConfirmationRef, status.Schedule, item.Status)
		if err != nil {
			return err
		}
		if !moved {
			return nil
		}
		metrics.ReconciliationsResolved.WithLabelValues("confirmed").Inc()
		s.log.Info("Reconciliation resolved item as confirmed",
			zap.String("item_id", item.ID.String()),
			zap.String("confirmation_ref", status.ConfirmationRef),
		)
		return s.coordinator.ResumeCapture(ctx, item.BookingID)

	case gateway.ItemStatusFailed:
		s.log.Info("Reconciliation resolved item as failed",
			zap.String("item_id", item.ID.String()),
		)
		return s.coordinator.ResolveReconciledFailure(ctx, item)

	default:
		// The provider has not decided either. Leave the item parked.
		return nil
	}
}

func (s *lifecycleService) SyncSchedules(ctx context.Context) error {
	items, err := s.repo.BookingItem.FindConfirmed(ctx)
	if err != nil {
		return fmt.Errorf("sync schedules: %w", err)
	}

	for _, item := range items {
		if item.ConfirmationRef == nil {
			continue
		}
		if err := s.syncItemSchedule(ctx, item); err != nil {
			s.log.Error("Failed to sync item schedule",
				zap.Error(err),
				zap.String("item_id", item.ID.String()),
			)
		}
	}
	return nil
}

func (s *lifecycleService) syncItemSchedule(ctx context.Context, item *entity.BookingItem) error {
	adapter, err := s.collab.Providers.Adapter(item.ProviderID)
	if err != nil {
		return err
	}

	current, err := adapter.GetSchedule(ctx, *item.ConfirmationRef)
	if err != nil {
		return err
	}
	if current == nil || current.Equal(item.Schedule) {
		return nil
	}

	// Audit first, then notify, then adopt the new schedule. The stored
	// snapshot is never silently overwritten.
	change := &entity.ScheduleChange{
		BaseSimple: entity.BaseSimple{
			ID:        utils.GenerateUUID(),
			CreatedAt: time.Now(),
		},
		BookingItemID: item.ID,
		Previous:      item.Schedule,
		Current:       *current,
	}
	if err := s.repo.ScheduleChange.Create(ctx, change); err != nil {
		return err
	}
	metrics.ScheduleChanges.Inc()

	booking, err := s.repo.Booking.FindByID(ctx, item.BookingID)
	if err != nil {
		return err
	}
	if booking != nil {
		s.collab.Notifier.Send(ctx, booking.UserID, gateway.TemplateScheduleChanged, map[string]any{
			"booking_ref":   booking.BookingRef,
			"offer_id":      item.OfferID,
			"new_departure": current.DepartureAt,
		})
		if err := s.repo.ScheduleChange.MarkNotified(ctx, change.ID); err != nil {
			return err
		}
	}

	if err := s.repo.BookingItem.UpdateSchedule(ctx, item.ID, *current); err != nil {
		return err
	}

	s.log.Info("Schedule change recorded",
		zap.String("item_id", item.ID.String()),
		zap.Time("previous_departure", change.Previous.DepartureAt),
		zap.Time("current_departure", current.DepartureAt),
	)
	return nil
}

func (s *lifecycleService) CompleteDeparted(ctx context.Context) error {
	items, err := s.repo.BookingItem.FindConfirmed(ctx)
	if err != nil {
		return fmt.Errorf("complete departed: %w", err)
	}

	now := time.Now()
	touched := map[string]bool{}
	for _, item := range items {
		if item.Schedule.DepartureAt.IsZero() || item.Schedule.DepartureAt.After(now) {
			continue
		}
		moved, err := s.repo.BookingItem.UpdateStatusExpect(ctx, item.ID, entity.BookingItemStatusConfirmed, entity.BookingItemStatusCompleted)
		if err != nil {
			s.log.Error("Failed to complete item", zap.Error(err), zap.String("item_id", item.ID.String()))
			continue
		}
		if moved {
			touched[item.BookingID.String()] = true
		}
	}

	for _, item := range items {
		if !touched[item.BookingID.String()] {
			continue
		}
		touched[item.BookingID.String()] = false
		if err := s.recomputeBookingStatus(ctx, item); err != nil {
			s.log.Error("Failed to recompute booking status",
				zap.Error(err),
				zap.String("booking_id", item.BookingID.String()),
			)
		}
	}
	return nil
}

func (s *lifecycleService) recomputeBookingStatus(ctx context.Context, item *entity.BookingItem) error {
	booking, err := s.repo.Booking.FindByID(ctx, item.BookingID)
	if err != nil {
		return err
	}
	if booking == nil {
		return nil
	}

	siblings, err := s.repo.BookingItem.FindByBookingID(ctx, booking.ID)
	if err != nil {
		return err
	}

	next := entity.AggregateStatus(siblings)
	if next == booking.Status || !booking.Status.CanTransition(next) {
		return nil
	}
	return s.repo.Booking.UpdateStatus(ctx, booking.ID, next)
}
