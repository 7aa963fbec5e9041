package worker

import (
	"context"
	"time"

	"travel-booking/internal/data/entity"
	"travel-booking/internal/data/repository"
	"travel-booking/internal/usecase"
	"travel-booking/pkg/utils"

	"go.uber.org/zap"
)

// Worker drives the time-based parts of the engine on a fixed tick:
// reconciliation of indeterminate bookings, schedule sync, completion of
// departed items, session expiry and cart abandonment.
type Worker struct {
	repo     *repository.Repository
	service  *usecase.Service
	interval time.Duration
	cartTTL  time.Duration
	log      *zap.Logger
}

func New(repo *repository.Repository, service *usecase.Service, config *utils.Config, log *zap.Logger) *Worker {
	return &Worker{
		repo:     repo,
		service:  service,
		interval: config.Worker.ReconcileInterval,
		cartTTL:  time.Duration(config.Checkout.CartTTLHours) * time.Hour,
		log:      log.With(zap.String("component", "worker")),
	}
}

// Start runs the tick loop until ctx is canceled.
func (w *Worker) Start(ctx context.Context) {
	w.log.Info("Worker started", zap.Duration("interval", w.interval))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("Worker stopped")
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *Worker) tick(ctx context.Context) {
	if err := w.service.Lifecycle.Reconcile(ctx); err != nil {
		w.log.Error("Reconcile pass failed", zap.Error(err))
	}
	if err := w.service.Lifecycle.SyncSchedules(ctx); err != nil {
		w.log.Error("Schedule sync pass failed", zap.Error(err))
	}
	if err := w.service.Lifecycle.CompleteDeparted(ctx); err != nil {
		w.log.Error("Completion pass failed", zap.Error(err))
	}
	if err := w.expireSessions(ctx); err != nil {
		w.log.Error("Session expiry pass failed", zap.Error(err))
	}
	if err := w.abandonCarts(ctx); err != nil {
		w.log.Error("Cart abandonment pass failed", zap.Error(err))
	}
}

func (w *Worker) expireSessions(ctx context.Context) error {
	sessions, err := w.repo.CheckoutSession.FindExpiredActive(ctx, time.Now())
	if err != nil {
		return err
	}

	for _, session := range sessions {
		if err := w.service.Checkout.Expire(ctx, session.ID); err != nil {
			w.log.Error("Failed to expire session",
				zap.Error(err),
				zap.String("session_id", session.ID.String()),
			)
		}
	}
	return nil
}

func (w *Worker) abandonCarts(ctx context.Context) error {
	carts, err := w.repo.Cart.FindAbandonable(ctx, time.Now().Add(-w.cartTTL))
	if err != nil {
		return err
	}

	for _, cart := range carts {
		moved, err := w.repo.Cart.UpdateStatusExpect(ctx, cart.ID, entity.CartStatusOpen, entity.CartStatusAbandoned)
		if err != nil {
			w.log.Error("Failed to abandon cart",
				zap.Error(err),
				zap.String("cart_id", cart.ID.String()),
			)
			continue
		}
		if moved {
			w.log.Info("Cart abandoned", zap.String("cart_id", cart.ID.String()))
		}
	}
	return nil
}
