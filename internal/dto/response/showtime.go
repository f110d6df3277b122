package response

import (
	"time"

	"cinema-reservation/internal/data/entity"
)

type ShowtimeResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Screen    string    `json:"screen"`
	StartsAt  time.Time `json:"starts_at"`
	Currency  string    `json:"currency"`
	CreatedAt time.Time `json:"created_at"`
}

type SeatResponse struct {
	Label         string     `json:"label"`
	Row           string     `json:"row"`
	Number        int        `json:"number"`
	Type          string     `json:"type"`
	PriceCents    int64      `json:"price_cents"`
	Status        string     `json:"status"`
	HoldExpiresAt *time.Time `json:"hold_expires_at,omitempty"`
}

func ShowtimeToResponse(showtime *entity.Showtime) ShowtimeResponse {
	return ShowtimeResponse{
		ID:        showtime.ID.String(),
		Title:     showtime.Title,
		Screen:    showtime.Screen,
		StartsAt:  showtime.StartsAt,
		Currency:  showtime.Currency,
		CreatedAt: showtime.CreatedAt,
	}
}

// SeatToResponse renders one ledger seat. A hold whose deadline has lapsed is
// reported as available: the deadline is data, enforcement is lazy, and the
// next hold attempt or sweep will reclaim the seat anyway.
func SeatToResponse(seat *entity.Seat, now time.Time) SeatResponse {
	status := seat.Status
	holdExpiry := seat.HoldExpiry
	if seat.HoldLapsed(now) {
		status = entity.SeatStatusAvailable
		holdExpiry = nil
	}

	return SeatResponse{
		Label:         seat.Label,
		Row:           seat.Row,
		Number:        seat.Number,
		Type:          string(seat.Type),
		PriceCents:    seat.PriceCents,
		Status:        string(status),
		HoldExpiresAt: holdExpiry,
	}
}
