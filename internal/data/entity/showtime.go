package entity

import "time"

// Showtime is the seat ledger aggregate. Every seat mutation for one showtime
// goes through a transaction that locks this row first, so concurrent
// operations on the same showtime serialize while different showtimes never
// contend.
type Showtime struct {
	Base
	Title    string    `db:"title"`
	Screen   string    `db:"screen"`
	StartsAt time.Time `db:"starts_at"`
	Currency string    `db:"currency"`
}

// Started reports whether the screening has already begun.
func (s *Showtime) Started(now time.Time) bool {
	return !s.StartsAt.After(now)
}
