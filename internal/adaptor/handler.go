package adaptor

import (
	"errors"
	"net/http"

	"travel-booking/internal/data/entity"
	"travel-booking/internal/usecase"
	"travel-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Handler struct {
	Cart     *CartHandler
	Checkout *CheckoutHandler
	Booking  *BookingHandler
	Webhook  *WebhookHandler
}

func NewHandler(service *usecase.Service, log *zap.Logger) *Handler {
	return &Handler{
		Cart:     NewCartHandler(service.Cart, log),
		Checkout: NewCheckoutHandler(service.Checkout, service.Coordinator, log),
		Booking:  NewBookingHandler(service.Booking, service.Cancellation, log),
		Webhook:  NewWebhookHandler(service.Webhook, log),
	}
}

// handleServiceError maps service errors onto HTTP responses. Sentinels and
// typed errors from the entity package decide the status code; anything
// unrecognized is a 500.
func handleServiceError(w http.ResponseWriter, log *zap.Logger, err error, operation string) {
	var validationErr *entity.ValidationError
	var transitionErr *entity.InvalidTransitionError

	switch {
	case errors.Is(err, entity.ErrNotFound):
		log.Warn(operation+" failed - not found",
			zap.Error(err),
			zap.String("operation", operation))
		utils.ResponseNotFound(w, err.Error())

	case errors.As(err, &validationErr):
		log.Warn(operation+" validation failed",
			zap.Error(err),
			zap.String("operation", operation))
		utils.ResponseBadRequest(w, "Validation failed", validationErr.Fields)

	case errors.Is(err, entity.ErrCartEmpty),
		errors.Is(err, entity.ErrOfferExpired),
		errors.Is(err, entity.ErrPriceChangedTwice),
		errors.Is(err, entity.ErrItemUnavailable),
		errors.Is(err, entity.ErrPaymentDeclined):
		log.Warn(operation+" rejected",
			zap.Error(err),
			zap.String("operation", operation))
		utils.ResponseBadRequest(w, err.Error(), nil)

	case errors.Is(err, entity.ErrCartLocked),
		errors.Is(err, entity.ErrDuplicateEvent):
		log.Warn(operation+" failed - conflict",
			zap.Error(err),
			zap.String("operation", operation))
		utils.ResponseConflict(w, err.Error())

	case errors.As(err, &transitionErr):
		log.Warn(operation+" failed - invalid state",
			zap.Error(err),
			zap.String("operation", operation))
		utils.ResponseConflict(w, err.Error())

	case errors.Is(err, entity.ErrPendingReconciliation):
		// Indeterminate outcome: the client polls the booking until the
		// background worker settles it.
		log.Warn(operation+" pending reconciliation",
			zap.Error(err),
			zap.String("operation", operation))
		utils.ResponseJSON(w, http.StatusAccepted, true, "booking outcome pending, check back shortly", nil, nil)

	default:
		log.Error(operation+" failed",
			zap.Error(err),
			zap.String("operation", operation))
		utils.ResponseInternalError(w, "Internal server error")
	}
}

// parseIDParam reads and parses a UUID path parameter, writing the 400
// itself when the value is malformed.
func parseIDParam(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := utils.ParseUUID(chi.URLParam(r, param))
	if err != nil {
		utils.ResponseBadRequest(w, "Invalid "+param, nil)
		return uuid.Nil, false
	}
	return id, true
}
