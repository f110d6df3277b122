package usecase

import (
	"errors"
	"fmt"
)

// Expected business outcomes. Handlers dispatch on these with errors.Is /
// errors.As; anything else that comes out of a service is an infrastructure
// fault.
var (
	ErrShowtimeNotFound    = errors.New("showtime not found")
	ErrReservationNotFound = errors.New("reservation not found")
	ErrEmptySeatList       = errors.New("seat list must not be empty")
	ErrNotOwner            = errors.New("reservation belongs to another buyer")
	ErrNotPaid             = errors.New("reservation is not paid")
	ErrEventAlreadyStarted = errors.New("showtime has already started")

	// ErrStaleReservation means payment was confirmed for a reservation whose
	// seats were lost to the expiry sweeper first. Money may have moved
	// without inventory; this needs manual reconciliation, never a blind
	// retry.
	ErrStaleReservation = errors.New("reservation seats are no longer held")
)

// SeatNotFoundError carries the seat label that does not exist on the
// showtime, so the caller can report exactly which selection failed.
type SeatNotFoundError struct {
	Seat string
}

func (e *SeatNotFoundError) Error() string {
	return fmt.Sprintf("seat %s not found", e.Seat)
}

// SeatUnavailableError carries the seat label that lost the race: booked,
// blocked, or claimed by a live competing hold.
type SeatUnavailableError struct {
	Seat string
}

func (e *SeatUnavailableError) Error() string {
	return fmt.Sprintf("seat %s is unavailable", e.Seat)
}
