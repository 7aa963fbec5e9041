package usecase

import (
	"travel-booking/internal/data/repository"
	"travel-booking/internal/gateway"
	"travel-booking/pkg/utils"

	"go.uber.org/zap"
)

// Collaborators groups the external services the core consumes. All of them
// are opaque: the engine never looks behind these interfaces.
type Collaborators struct {
	Catalog   gateway.ProviderCatalog
	Payment   gateway.PaymentGateway
	Providers *gateway.ProviderRegistry
	Notifier  gateway.NotificationSender
}

type Service struct {
	Cart         CartService
	Checkout     CheckoutService
	Coordinator  BookingCoordinator
	Booking      BookingService
	Lifecycle    LifecycleService
	Cancellation CancellationService
	Webhook      WebhookService
}

func NewService(repo *repository.Repository, collab Collaborators, config *utils.Config, log *zap.Logger) *Service {
	coordinator := NewBookingCoordinator(repo, collab, config, log)

	return &Service{
		Cart:         NewCartService(repo, log),
		Checkout:     NewCheckoutService(repo, collab, config, log),
		Coordinator:  coordinator,
		Booking:      NewBookingService(repo, log),
		Lifecycle:    NewLifecycleService(repo, collab, coordinator, config, log),
		Cancellation: NewCancellationService(repo, collab, log),
		Webhook:      NewWebhookService(repo, log),
	}
}
