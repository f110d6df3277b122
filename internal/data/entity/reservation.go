package entity

import (
	"time"

	"github.com/google/uuid"
)

type ReservationStatus string

const (
	ReservationStatusPendingPayment ReservationStatus = "pending_payment"
	ReservationStatusPaid           ReservationStatus = "paid"
	ReservationStatusCancelled      ReservationStatus = "cancelled"
)

// Reservation tracks one buyer's claim on a set of seats. PaymentRef is the
// idempotency key once a payment attempt has started; nil before that.
type Reservation struct {
	Base
	OrderID    string            `db:"order_id"`
	BuyerID    uuid.UUID         `db:"buyer_id"`
	ShowtimeID uuid.UUID         `db:"showtime_id"`
	TotalCents int64             `db:"total_cents"`
	Status     ReservationStatus `db:"status"`
	HoldExpiry time.Time         `db:"hold_expires_at"`
	PaymentRef *string           `db:"payment_ref"`
}

// ReservationSeat is a hold-time snapshot of one seat on a reservation.
// Price and type are copied, not re-read, so later seat edits never change a
// pending sale.
type ReservationSeat struct {
	BaseSimple
	ReservationID uuid.UUID `db:"reservation_id"`
	SeatID        uuid.UUID `db:"seat_id"`
	SeatLabel     string    `db:"seat_label"`
	SeatType      SeatType  `db:"seat_type"`
	PriceCents    int64     `db:"price_cents"`
}
