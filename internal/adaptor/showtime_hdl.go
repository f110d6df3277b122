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

type ShowtimeHandler struct {
	service usecase.ShowtimeService
	log     *zap.Logger
}

func NewShowtimeHandler(service usecase.ShowtimeService, log *zap.Logger) *ShowtimeHandler {
	return &ShowtimeHandler{
		service: service,
		log:     log.With(zap.String("handler", "showtime")),
	}
}

// CreateShowtime handles POST /api/showtimes
func (h *ShowtimeHandler) CreateShowtime(w http.ResponseWriter, r *http.Request) {
	var req request.CreateShowtimeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	showtime, err := h.service.CreateShowtime(r.Context(), &req)
	if err != nil {
		h.handleServiceError(w, err, "create showtime")
		return
	}

	utils.ResponseCreated(w, "success", showtime)
}

// ListShowtimes handles GET /api/showtimes (public)
func (h *ShowtimeHandler) ListShowtimes(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	req := &request.PaginatedRequest{
		Page:    utils.ParseInt(query.Get("page"), 1),
		PerPage: utils.ParseInt(query.Get("per_page"), 10),
	}

	showtimes, err := h.service.ListShowtimes(r.Context(), req)
	if err != nil {
		h.handleServiceError(w, err, "list showtimes")
		return
	}

	utils.ResponseSuccess(w, "success", showtimes)
}

// GetSeats handles GET /api/showtimes/{id}/seats (public)
func (h *ShowtimeHandler) GetSeats(w http.ResponseWriter, r *http.Request) {
	showtimeID, err := utils.ParseUUID(chi.URLParam(r, "id"))
	if err != nil {
		utils.ResponseBadRequest(w, "Invalid showtime ID", nil)
		return
	}

	seats, err := h.service.GetSeats(r.Context(), showtimeID)
	if err != nil {
		h.handleServiceError(w, err, "get seats")
		return
	}

	utils.ResponseSuccess(w, "success", seats)
}

// UpdateSeatPrice handles PUT /api/showtimes/{id}/seats/{label}/price
func (h *ShowtimeHandler) UpdateSeatPrice(w http.ResponseWriter, r *http.Request) {
	showtimeID, err := utils.ParseUUID(chi.URLParam(r, "id"))
	if err != nil {
		utils.ResponseBadRequest(w, "Invalid showtime ID", nil)
		return
	}

	label := chi.URLParam(r, "label")
	if label == "" {
		utils.ResponseBadRequest(w, "Seat label is required", nil)
		return
	}

	var req request.UpdateSeatPriceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	if err := h.service.UpdateSeatPrice(r.Context(), showtimeID, label, req.PriceCents); err != nil {
		h.handleServiceError(w, err, "update seat price")
		return
	}

	utils.ResponseSuccess(w, "success", nil)
}

func (h *ShowtimeHandler) handleServiceError(w http.ResponseWriter, err error, operation string) {
	var seatNotFound *usecase.SeatNotFoundError

	switch {
	case errors.As(err, &seatNotFound), errors.Is(err, usecase.ErrShowtimeNotFound):
		h.log.Warn(operation+" failed - not found", zap.Error(err))
		utils.ResponseNotFound(w, err.Error())

	case strings.Contains(err.Error(), "validation failed"),
		strings.Contains(err.Error(), "invalid"),
		strings.Contains(err.Error(), "duplicate"):
		h.log.Warn(operation+" failed - bad input", zap.Error(err))
		utils.ResponseBadRequest(w, err.Error(), nil)

	default:
		h.log.Error("Failed to "+operation, zap.Error(err))
		utils.ResponseInternalError(w, "Internal server error")
	}
}
