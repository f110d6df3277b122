package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// SignPayload menghitung HMAC-SHA256 hex digest dari payload.
func SignPayload(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks the webhook signature header against the raw body.
// Constant-time compare. An empty secret always fails: unsigned notifications
// are never trusted.
func VerifySignature(payload []byte, signature, secret string) bool {
	if secret == "" || signature == "" {
		return false
	}

	expected := SignPayload(payload, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}
