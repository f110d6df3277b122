package request

// SeatTemplate is one seat entry from the catalog service's screen template,
// supplied once at showtime creation. PriceCents may be zero to take the
// default price for the seat type.
type SeatTemplate struct {
	Label      string `json:"label" validate:"required"`
	Row        string `json:"row" validate:"required"`
	Number     int    `json:"number" validate:"required,min=1"`
	Type       string `json:"type" validate:"required,oneof=regular premium vip unavailable"`
	PriceCents int64  `json:"price_cents" validate:"min=0"`
}

type CreateShowtimeRequest struct {
	Title    string         `json:"title" validate:"required"`
	Screen   string         `json:"screen" validate:"required"`
	StartsAt string         `json:"starts_at" validate:"required"`
	Currency string         `json:"currency" validate:"omitempty,len=3"`
	Seats    []SeatTemplate `json:"seats" validate:"required,min=1,dive"`
}

type UpdateSeatPriceRequest struct {
	PriceCents int64 `json:"price_cents" validate:"required,min=1"`
}
