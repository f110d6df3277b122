package adaptor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"cinema-reservation/internal/usecase"
	"cinema-reservation/pkg/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubSettlements struct {
	err   error
	calls int
}

func (s *stubSettlements) Finalize(ctx context.Context, paymentRef string, reservationID uuid.UUID) error {
	s.calls++
	return s.err
}

const testWebhookSecret = "test-secret"

func postWebhook(t *testing.T, handler *PaymentHandler, body []byte, sign bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/payment", bytes.NewReader(body))
	if sign {
		req.Header.Set(SignatureHeader, utils.SignPayload(body, testWebhookSecret))
	}
	rec := httptest.NewRecorder()
	handler.Webhook(rec, req)
	return rec
}

func webhookBody(t *testing.T) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]string{
		"payment_ref":    "pay_123",
		"reservation_id": uuid.New().String(),
	})
	require.NoError(t, err)
	return body
}

func newPaymentHandler(settlements usecase.SettlementService) *PaymentHandler {
	return NewPaymentHandler(settlements, utils.PaymentConfig{WebhookSecret: testWebhookSecret}, zap.NewNop())
}

func TestWebhook(t *testing.T) {
	settlements := &stubSettlements{}
	handler := newPaymentHandler(settlements)

	rec := postWebhook(t, handler, webhookBody(t), true)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, settlements.calls)
	assert.Contains(t, rec.Body.String(), "processed")
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	settlements := &stubSettlements{}
	handler := newPaymentHandler(settlements)

	// Missing signature
	rec := postWebhook(t, handler, webhookBody(t), false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Signature over a different body
	body := webhookBody(t)
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/payment", bytes.NewReader(body))
	req.Header.Set(SignatureHeader, utils.SignPayload([]byte("other"), testWebhookSecret))
	rec = httptest.NewRecorder()
	handler.Webhook(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	assert.Equal(t, 0, settlements.calls)
}

// With no secret configured every notification bounces, signed or not.
func TestWebhookRejectsAllWithoutSecret(t *testing.T) {
	settlements := &stubSettlements{}
	handler := NewPaymentHandler(settlements, utils.PaymentConfig{}, zap.NewNop())

	rec := postWebhook(t, handler, webhookBody(t), true)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, 0, settlements.calls)
}

// Business outcomes are acked with 200 so the provider stops redelivering.
func TestWebhookAcksBusinessOutcomes(t *testing.T) {
	cases := []struct {
		name string
		err  error
		body string
	}{
		{"unknown reservation", usecase.ErrReservationNotFound, "ignored"},
		{"stale reservation", usecase.ErrStaleReservation, "stale"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := newPaymentHandler(&stubSettlements{err: tc.err})
			rec := postWebhook(t, handler, webhookBody(t), true)
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.body)
		})
	}
}

func TestWebhookInfrastructureFailure(t *testing.T) {
	handler := newPaymentHandler(&stubSettlements{err: fmt.Errorf("db down")})

	rec := postWebhook(t, handler, webhookBody(t), true)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestWebhookRejectsMalformedBody(t *testing.T) {
	settlements := &stubSettlements{}
	handler := newPaymentHandler(settlements)

	// Valid signature over garbage still fails on the body.
	rec := postWebhook(t, handler, []byte("not json"), true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Missing fields fail validation.
	body, _ := json.Marshal(map[string]string{"payment_ref": "pay_123"})
	rec = postWebhook(t, handler, body, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Equal(t, 0, settlements.calls)
}
