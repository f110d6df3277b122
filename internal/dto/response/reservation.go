package response

import (
	"time"

	"cinema-reservation/internal/data/entity"
)

// HoldResponse is returned by a successful hold acquisition.
type HoldResponse struct {
	ReservationID string    `json:"reservation_id"`
	OrderID       string    `json:"order_id"`
	ShowtimeID    string    `json:"showtime_id"`
	Seats         []string  `json:"seats"`
	TotalCents    int64     `json:"total_cents"`
	Currency      string    `json:"currency"`
	HoldExpiresAt time.Time `json:"hold_expires_at"`
}

type ReservationSeatResponse struct {
	Label      string `json:"label"`
	Type       string `json:"type"`
	PriceCents int64  `json:"price_cents"`
}

type ReservationResponse struct {
	ID            string                    `json:"id"`
	OrderID       string                    `json:"order_id"`
	BuyerID       string                    `json:"buyer_id"`
	ShowtimeID    string                    `json:"showtime_id"`
	Status        entity.ReservationStatus  `json:"status"`
	Seats         []ReservationSeatResponse `json:"seats"`
	TotalCents    int64                     `json:"total_cents"`
	PaymentRef    *string                   `json:"payment_ref,omitempty"`
	HoldExpiresAt time.Time                 `json:"hold_expires_at"`
	CreatedAt     time.Time                 `json:"created_at"`
}

// ReservationToResponse converts a reservation plus its seat snapshots.
func ReservationToResponse(reservation *entity.Reservation, seats []*entity.ReservationSeat) ReservationResponse {
	seatResponses := make([]ReservationSeatResponse, len(seats))
	for i, seat := range seats {
		seatResponses[i] = ReservationSeatResponse{
			Label:      seat.SeatLabel,
			Type:       string(seat.SeatType),
			PriceCents: seat.PriceCents,
		}
	}

	return ReservationResponse{
		ID:            reservation.ID.String(),
		OrderID:       reservation.OrderID,
		BuyerID:       reservation.BuyerID.String(),
		ShowtimeID:    reservation.ShowtimeID.String(),
		Status:        reservation.Status,
		Seats:         seatResponses,
		TotalCents:    reservation.TotalCents,
		PaymentRef:    reservation.PaymentRef,
		HoldExpiresAt: reservation.HoldExpiry,
		CreatedAt:     reservation.CreatedAt,
	}
}
