package adaptor

import (
	"net/http"

	"travel-booking/internal/dto/request"
	"travel-booking/internal/usecase"
	"travel-booking/pkg/utils"

	"go.uber.org/zap"
)

type BookingHandler struct {
	service      usecase.BookingService
	cancellation usecase.CancellationService
	log          *zap.Logger
}

func NewBookingHandler(service usecase.BookingService, cancellation usecase.CancellationService, log *zap.Logger) *BookingHandler {
	return &BookingHandler{
		service:      service,
		cancellation: cancellation,
		log:          log.With(zap.String("handler", "booking")),
	}
}

// GetUserBookings handles GET /api/bookings (protected)
func (h *BookingHandler) GetUserBookings(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	query := r.URL.Query()
	page := request.PaginatedRequest{
		Page:    utils.ParseInt(query.Get("page"), 1),
		PerPage: utils.ParseInt(query.Get("per_page"), 10),
	}

	bookings, err := h.service.GetUserBookings(r.Context(), userID, page)
	if err != nil {
		handleServiceError(w, h.log, err, "get user bookings")
		return
	}

	utils.ResponseSuccess(w, "success", bookings)
}

// GetBooking handles GET /api/bookings/{id} (protected)
func (h *BookingHandler) GetBooking(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	bookingID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	booking, err := h.service.GetBooking(r.Context(), userID, bookingID)
	if err != nil {
		handleServiceError(w, h.log, err, "get booking")
		return
	}

	utils.ResponseSuccess(w, "success", booking)
}

// RefundPreview handles GET /api/bookings/{id}/refund-preview (protected)
func (h *BookingHandler) RefundPreview(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	bookingID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	preview, err := h.cancellation.PreviewRefund(r.Context(), userID, bookingID)
	if err != nil {
		handleServiceError(w, h.log, err, "refund preview")
		return
	}

	utils.ResponseSuccess(w, "success", preview)
}

// Cancel handles POST /api/bookings/{id}/cancel (protected)
func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	bookingID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	result, err := h.cancellation.Cancel(r.Context(), userID, bookingID)
	if err != nil {
		handleServiceError(w, h.log, err, "cancel booking")
		return
	}

	utils.ResponseSuccess(w, "success", result)
}
