package wire

import (
	"cinema-reservation/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

func wirePayment(r chi.Router, paymentHandler *adaptor.PaymentHandler) {
	// ==================== WEBHOOK ROUTES ====================
	// POST /api/webhooks/payment - Payment provider notification
	// Tidak pakai Identity middleware, diverifikasi lewat signature
	r.Post("/api/webhooks/payment", paymentHandler.Webhook)
}
