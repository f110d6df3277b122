// Package queue defines message payloads exchanged over the message broker.
package queue

// ReservationPaidEvent is published after a settlement commits. Downstream
// consumers (ticket rendering, email) work off this payload without querying
// the primary database.
type ReservationPaidEvent struct {
	ReservationID string   `json:"reservation_id"`
	OrderID       string   `json:"order_id"`
	BuyerID       string   `json:"buyer_id"`
	ShowtimeID    string   `json:"showtime_id"`
	ShowTitle     string   `json:"show_title"`
	Screen        string   `json:"screen"`
	StartsAt      string   `json:"starts_at"`
	SeatLabels    []string `json:"seats"`
	TotalCents    int64    `json:"total_cents"`
	Currency      string   `json:"currency"`
	PaymentRef    string   `json:"payment_ref"`
	PaidAt        string   `json:"paid_at"`
}
