package request

type AcquireHoldRequest struct {
	ShowtimeID string   `json:"showtime_id" validate:"required,uuid4"`
	Seats      []string `json:"seats" validate:"required,min=1,dive,required"`
}
