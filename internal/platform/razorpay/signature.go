package razorpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// VerifySignature checks a hex-encoded HMAC-SHA256 of payload keyed by
// secret. The comparison is case-insensitive (gateways emit lowercase
// hex, some clients re-encode uppercase) and constant-time.
func VerifySignature(payload, signature, secret string) bool {
	if signature == "" || secret == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
}

// SignPayload returns the hex HMAC-SHA256 of payload keyed by secret.
// Exposed for tests and for signing outbound callbacks.
func SignPayload(payload, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyWebhookSignature checks the X-Razorpay-Signature header against
// the raw webhook body using the webhook secret.
func VerifyWebhookSignature(body []byte, signature, webhookSecret string) bool {
	return VerifySignature(string(body), signature, webhookSecret)
}
