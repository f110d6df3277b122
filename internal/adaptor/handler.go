package adaptor

import (
	"cinema-reservation/internal/usecase"
	"cinema-reservation/pkg/utils"

	"go.uber.org/zap"
)

type Handler struct {
	Reservation *ReservationHandler
	Payment     *PaymentHandler
	Showtime    *ShowtimeHandler
}

func NewHandler(service *usecase.Service, config *utils.Config, log *zap.Logger) *Handler {
	return &Handler{
		Reservation: NewReservationHandler(service.Hold, service.Cancellation, log),
		Payment:     NewPaymentHandler(service.Settlement, config.Payment, log),
		Showtime:    NewShowtimeHandler(service.Showtime, log),
	}
}
