package wire

import (
	"cinema-reservation/internal/adaptor"
	"cinema-reservation/pkg/middleware"
	"cinema-reservation/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func wireReservation(
	r chi.Router,
	reservationHandler *adaptor.ReservationHandler,
	config *utils.Config,
	rdb *redis.Client,
	log *zap.Logger,
) {
	// ==================== BUYER ROUTES ====================
	// Semua route reservasi butuh identitas buyer dari header
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Identity(log))

		// POST /api/holds - Acquire seat hold (rate limited)
		r.Group(func(r chi.Router) {
			if config.RateLimit.Enabled && rdb != nil {
				r.Use(middleware.RateLimit(config.RateLimit, rdb, log))
			}
			r.Post("/holds", reservationHandler.AcquireHold)
		})

		// GET /api/reservations - List buyer reservations
		r.Get("/reservations", reservationHandler.GetBuyerReservations)

		// GET /api/reservations/{id} - Reservation details
		r.Get("/reservations/{id}", reservationHandler.GetReservation)

		// POST /api/reservations/{id}/cancel - Cancel paid reservation
		r.Post("/reservations/{id}/cancel", reservationHandler.CancelReservation)
	})
}
