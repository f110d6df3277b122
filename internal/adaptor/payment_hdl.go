package adaptor

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"cinema-reservation/internal/dto/request"
	"cinema-reservation/internal/usecase"
	"cinema-reservation/pkg/utils"

	"go.uber.org/zap"
)

// SignatureHeader carries the payment provider's HMAC over the raw body.
const SignatureHeader = "X-Payment-Signature"

type PaymentHandler struct {
	settlements usecase.SettlementService
	config      utils.PaymentConfig
	log         *zap.Logger
}

func NewPaymentHandler(settlements usecase.SettlementService, config utils.PaymentConfig, log *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		settlements: settlements,
		config:      config,
		log:         log.With(zap.String("handler", "payment")),
	}
}

// Webhook handles POST /api/webhooks/payment. Business outcomes are always
// acknowledged with 200 so the provider stops redelivering: a duplicate, an
// unmatched reservation, or a stale one cannot be fixed by retrying the same
// notification. Only a bad signature or an infrastructure fault is an error
// to the sender.
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		utils.ResponseBadRequest(w, "Unable to read request body", nil)
		return
	}

	if !utils.VerifySignature(body, r.Header.Get(SignatureHeader), h.config.WebhookSecret) {
		h.log.Warn("Webhook signature verification failed",
			zap.String("ip", r.RemoteAddr),
		)
		utils.ResponseUnauthorized(w, "Invalid signature")
		return
	}

	var notification request.PaymentNotification
	if err := json.Unmarshal(body, &notification); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	if validationErrors := utils.ValidateStruct(notification); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	reservationID, err := utils.ParseUUID(notification.ReservationID)
	if err != nil {
		utils.ResponseBadRequest(w, "Invalid reservation ID", nil)
		return
	}

	err = h.settlements.Finalize(r.Context(), notification.PaymentRef, reservationID)
	switch {
	case err == nil:
		utils.ResponseSuccess(w, "processed", nil)

	case errors.Is(err, usecase.ErrReservationNotFound):
		// Acked so the sender does not retry forever; already logged upstream.
		h.log.Warn("Payment notification for unknown reservation",
			zap.String("reservation_id", notification.ReservationID),
			zap.String("payment_ref", notification.PaymentRef),
		)
		utils.ResponseSuccess(w, "ignored", nil)

	case errors.Is(err, usecase.ErrStaleReservation):
		// Inventory lost to the expiry race after money moved. The service
		// already logged at Error for reconciliation; ack to stop redelivery.
		utils.ResponseSuccess(w, "stale", nil)

	default:
		h.log.Error("Failed to finalize payment",
			zap.Error(err),
			zap.String("reservation_id", notification.ReservationID),
		)
		utils.ResponseInternalError(w, "Internal server error")
	}
}
