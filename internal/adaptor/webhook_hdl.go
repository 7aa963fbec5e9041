package adaptor

import (
	"encoding/json"
	"errors"
	"net/http"

	"travel-booking/internal/data/entity"
	"travel-booking/internal/dto/request"
	"travel-booking/internal/usecase"
	"travel-booking/pkg/utils"

	"go.uber.org/zap"
)

type WebhookHandler struct {
	service usecase.WebhookService
	log     *zap.Logger
}

func NewWebhookHandler(service usecase.WebhookService, log *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		service: service,
		log:     log.With(zap.String("handler", "webhook")),
	}
}

// PaymentEvent handles POST /webhooks/payment. The gateway retries on
// non-2xx, so duplicates answer 200 to stop the redelivery loop.
func (h *WebhookHandler) PaymentEvent(w http.ResponseWriter, r *http.Request) {
	var req request.PaymentWebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	err := h.service.HandlePaymentEvent(r.Context(), req)
	if err != nil {
		if errors.Is(err, entity.ErrDuplicateEvent) {
			utils.ResponseSuccess(w, "already processed", nil)
			return
		}
		handleServiceError(w, h.log, err, "payment webhook")
		return
	}

	utils.ResponseSuccess(w, "success", nil)
}
