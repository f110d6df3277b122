package wire

import (
	"cinema-reservation/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

func wireShowtime(r chi.Router, showtimeHandler *adaptor.ShowtimeHandler) {
	// ==================== PUBLIC ROUTES ====================
	// GET /api/showtimes - List showtimes (public, anyone can view)
	r.Get("/api/showtimes", showtimeHandler.ListShowtimes)

	// GET /api/showtimes/{id}/seats - Seat map with availability (public)
	r.Get("/api/showtimes/{id}/seats", showtimeHandler.GetSeats)

	// ==================== MANAGEMENT ROUTES ====================
	// POST /api/showtimes - Create showtime with seat layout
	r.Post("/api/showtimes", showtimeHandler.CreateShowtime)

	// PUT /api/showtimes/{id}/seats/{label}/price - Reprice a seat
	r.Put("/api/showtimes/{id}/seats/{label}/price", showtimeHandler.UpdateSeatPrice)
}
