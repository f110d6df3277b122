package entity

import (
	"time"

	"github.com/google/uuid"
)

type SeatType string

const (
	SeatTypeRegular     SeatType = "regular"
	SeatTypePremium     SeatType = "premium"
	SeatTypeVIP         SeatType = "vip"
	SeatTypeUnavailable SeatType = "unavailable"
)

type SeatStatus string

const (
	SeatStatusAvailable   SeatStatus = "available"
	SeatStatusHeld        SeatStatus = "held"
	SeatStatusBooked      SeatStatus = "booked"
	SeatStatusUnavailable SeatStatus = "unavailable"
)

// Seat is one sellable unit inside a showtime's ledger. Label is the stable
// identity copied from the screen template ("A1", "B12"), unique per showtime.
// HoldExpiresAt is non-nil only while Status is held.
type Seat struct {
	Base
	ShowtimeID uuid.UUID  `db:"showtime_id"`
	Label      string     `db:"label"`
	Row        string     `db:"seat_row"`
	Number     int        `db:"seat_number"`
	Type       SeatType   `db:"seat_type"`
	PriceCents int64      `db:"price_cents"`
	Status     SeatStatus `db:"status"`
	HoldExpiry *time.Time `db:"hold_expires_at"`
}

// HoldLapsed reports whether the seat carries a hold whose deadline has
// passed. Such a seat is reclaimable: by the sweeper, or inline by the next
// hold attempt that wants it.
func (s *Seat) HoldLapsed(now time.Time) bool {
	return s.Status == SeatStatusHeld && s.HoldExpiry != nil && !s.HoldExpiry.After(now)
}
