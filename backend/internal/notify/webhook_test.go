package notify

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

func sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyWebhookSignature(t *testing.T) {
	body := []byte(`{"event":"message.delivered","message_id":"wamid.123"}`)
	secret := "webhook-secret"

	t.Run("valid signature", func(t *testing.T) {
		if !VerifyWebhookSignature(body, sign(body, secret), secret) {
			t.Error("expected valid signature to verify")
		}
	})

	t.Run("valid signature with algorithm prefix", func(t *testing.T) {
		if !VerifyWebhookSignature(body, "sha256="+sign(body, secret), secret) {
			t.Error("expected prefixed signature to verify")
		}
	})

	t.Run("tampered body", func(t *testing.T) {
		sig := sign(body, secret)
		if VerifyWebhookSignature([]byte(`{"event":"tampered"}`), sig, secret) {
			t.Error("tampered body must not verify")
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		if VerifyWebhookSignature(body, sign(body, "other-secret"), secret) {
			t.Error("signature from a different secret must not verify")
		}
	})

	t.Run("missing signature or secret", func(t *testing.T) {
		if VerifyWebhookSignature(body, "", secret) {
			t.Error("empty signature must not verify")
		}
		if VerifyWebhookSignature(body, sign(body, secret), "") {
			t.Error("empty secret must not verify")
		}
	})
}
