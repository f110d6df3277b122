package adaptor

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"cinema-reservation/internal/dto/request"
	"cinema-reservation/internal/usecase"
	"cinema-reservation/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type ReservationHandler struct {
	holds         usecase.HoldService
	cancellations usecase.CancellationService
	log           *zap.Logger
}

func NewReservationHandler(holds usecase.HoldService, cancellations usecase.CancellationService, log *zap.Logger) *ReservationHandler {
	return &ReservationHandler{
		holds:         holds,
		cancellations: cancellations,
		log:           log.With(zap.String("handler", "reservation")),
	}
}

// AcquireHold handles POST /api/holds (protected)
func (h *ReservationHandler) AcquireHold(w http.ResponseWriter, r *http.Request) {
	buyerID, ok := utils.GetBuyerIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	var req request.AcquireHoldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	hold, err := h.holds.AcquireHold(r.Context(), buyerID, &req)
	if err != nil {
		h.handleServiceError(w, err, "acquire hold")
		return
	}

	utils.ResponseCreated(w, "success", hold)
}

// GetReservation handles GET /api/reservations/{id} (protected)
func (h *ReservationHandler) GetReservation(w http.ResponseWriter, r *http.Request) {
	buyerID, ok := utils.GetBuyerIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	reservationID, err := utils.ParseUUID(chi.URLParam(r, "id"))
	if err != nil {
		utils.ResponseBadRequest(w, "Invalid reservation ID", nil)
		return
	}

	reservation, err := h.holds.GetReservation(r.Context(), buyerID, reservationID)
	if err != nil {
		h.handleServiceError(w, err, "get reservation")
		return
	}

	utils.ResponseSuccess(w, "success", reservation)
}

// GetBuyerReservations handles GET /api/reservations (protected)
func (h *ReservationHandler) GetBuyerReservations(w http.ResponseWriter, r *http.Request) {
	buyerID, ok := utils.GetBuyerIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	query := r.URL.Query()
	req := &request.PaginatedRequest{
		Page:    utils.ParseInt(query.Get("page"), 1),
		PerPage: utils.ParseInt(query.Get("per_page"), 10),
	}

	reservations, err := h.holds.GetBuyerReservations(r.Context(), buyerID, req)
	if err != nil {
		h.handleServiceError(w, err, "get buyer reservations")
		return
	}

	utils.ResponseSuccess(w, "success", reservations)
}

// CancelReservation handles POST /api/reservations/{id}/cancel (protected)
func (h *ReservationHandler) CancelReservation(w http.ResponseWriter, r *http.Request) {
	buyerID, ok := utils.GetBuyerIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	reservationID, err := utils.ParseUUID(chi.URLParam(r, "id"))
	if err != nil {
		utils.ResponseBadRequest(w, "Invalid reservation ID", nil)
		return
	}

	if err := h.cancellations.Cancel(r.Context(), reservationID, buyerID); err != nil {
		h.handleServiceError(w, err, "cancel reservation")
		return
	}

	utils.ResponseSuccess(w, "success", nil)
}

// handleServiceError maps domain outcomes to HTTP responses
func (h *ReservationHandler) handleServiceError(w http.ResponseWriter, err error, operation string) {
	var seatNotFound *usecase.SeatNotFoundError
	var seatUnavailable *usecase.SeatUnavailableError

	switch {
	case errors.As(err, &seatNotFound):
		h.log.Warn(operation+" failed - seat not found",
			zap.Error(err),
			zap.String("seat", seatNotFound.Seat))
		utils.ResponseNotFound(w, err.Error())

	case errors.As(err, &seatUnavailable):
		h.log.Warn(operation+" failed - seat unavailable",
			zap.Error(err),
			zap.String("seat", seatUnavailable.Seat))
		utils.ResponseConflict(w, err.Error(), map[string]string{"seat": seatUnavailable.Seat})

	case errors.Is(err, usecase.ErrShowtimeNotFound), errors.Is(err, usecase.ErrReservationNotFound):
		h.log.Warn(operation+" failed - not found", zap.Error(err))
		utils.ResponseNotFound(w, err.Error())

	case errors.Is(err, usecase.ErrNotOwner):
		h.log.Warn(operation+" failed - not owner", zap.Error(err))
		utils.ResponseForbidden(w, err.Error())

	case errors.Is(err, usecase.ErrNotPaid), errors.Is(err, usecase.ErrEventAlreadyStarted), errors.Is(err, usecase.ErrEmptySeatList):
		h.log.Warn(operation+" failed - invalid state", zap.Error(err))
		utils.ResponseBadRequest(w, err.Error(), nil)

	case strings.Contains(err.Error(), "validation failed"), strings.Contains(err.Error(), "invalid"):
		h.log.Warn(operation+" validation failed", zap.Error(err))
		utils.ResponseBadRequest(w, err.Error(), nil)

	default:
		h.log.Error("Failed to "+operation, zap.Error(err))
		utils.ResponseInternalError(w, "Internal server error")
	}
}
