package adaptor

import (
	"encoding/json"
	"net/http"

	"travel-booking/internal/dto/request"
	"travel-booking/internal/usecase"
	"travel-booking/pkg/utils"

	"go.uber.org/zap"
)

type CheckoutHandler struct {
	service     usecase.CheckoutService
	coordinator usecase.BookingCoordinator
	log         *zap.Logger
}

func NewCheckoutHandler(service usecase.CheckoutService, coordinator usecase.BookingCoordinator, log *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		service:     service,
		coordinator: coordinator,
		log:         log.With(zap.String("handler", "checkout")),
	}
}

// Initialize handles POST /api/checkout (protected)
func (h *CheckoutHandler) Initialize(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	var req request.InitializeCheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	session, err := h.service.Initialize(r.Context(), userID, req)
	if err != nil {
		handleServiceError(w, h.log, err, "initialize checkout")
		return
	}

	utils.ResponseCreated(w, "success", session)
}

// GetSession handles GET /api/checkout/{id} (protected)
func (h *CheckoutHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	sessionID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	session, err := h.service.GetSession(r.Context(), userID, sessionID)
	if err != nil {
		handleServiceError(w, h.log, err, "get checkout session")
		return
	}

	utils.ResponseSuccess(w, "success", session)
}

// VerifyPrices handles POST /api/checkout/{id}/verify-prices (protected)
func (h *CheckoutHandler) VerifyPrices(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	sessionID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	session, err := h.service.VerifyPrices(r.Context(), userID, sessionID)
	if err != nil {
		handleServiceError(w, h.log, err, "verify prices")
		return
	}

	utils.ResponseSuccess(w, "success", session)
}

// AcknowledgePrice handles POST /api/checkout/{id}/acknowledge-price (protected)
func (h *CheckoutHandler) AcknowledgePrice(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	sessionID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	session, err := h.service.AcknowledgePriceChange(r.Context(), userID, sessionID)
	if err != nil {
		handleServiceError(w, h.log, err, "acknowledge price change")
		return
	}

	utils.ResponseSuccess(w, "success", session)
}

// SubmitTravelers handles POST /api/checkout/{id}/travelers (protected)
func (h *CheckoutHandler) SubmitTravelers(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	sessionID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	var req request.SubmitTravelerDetailsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	session, err := h.service.SubmitTravelerDetails(r.Context(), userID, sessionID, req)
	if err != nil {
		handleServiceError(w, h.log, err, "submit traveler details")
		return
	}

	utils.ResponseSuccess(w, "success", session)
}

// Pay handles POST /api/checkout/{id}/pay (protected)
func (h *CheckoutHandler) Pay(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	sessionID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	booking, err := h.coordinator.Pay(r.Context(), userID, sessionID)
	if err != nil {
		handleServiceError(w, h.log, err, "pay")
		return
	}

	utils.ResponseSuccess(w, "success", booking)
}
