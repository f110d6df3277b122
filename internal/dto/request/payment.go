package request

// PaymentNotification is the body of the payment collaborator's inbound
// webhook. PaymentRef is the provider-side idempotency key.
type PaymentNotification struct {
	PaymentRef    string `json:"payment_ref" validate:"required"`
	ReservationID string `json:"reservation_id" validate:"required,uuid4"`
}
