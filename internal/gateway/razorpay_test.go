package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"travelbackend/internal/config"
)

func testClient() *Client {
	return NewClient(config.RazorpayConfig{
		KeyID:         "rzp_test_abc",
		KeySecret:     "key_secret_123",
		WebhookSecret: "wh_secret_456",
		BaseURL:       "https://api.razorpay.com",
	})
}

func webhookSign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyPaymentSignature(t *testing.T) {
	c := testClient()
	orderID := "order_N123"
	paymentID := "pay_M456"
	sig := SignPayment(orderID, paymentID, "key_secret_123")

	if !c.VerifyPaymentSignature(orderID, paymentID, sig) {
		t.Fatal("valid signature must verify")
	}
}

func TestVerifyPaymentSignatureRejectsForgery(t *testing.T) {
	c := testClient()
	orderID := "order_N123"
	paymentID := "pay_M456"

	if c.VerifyPaymentSignature(orderID, paymentID, "deadbeef") {
		t.Fatal("forged signature must not verify")
	}
	if c.VerifyPaymentSignature(orderID, paymentID, "") {
		t.Fatal("empty signature must not verify")
	}
	// signature over a different payment id must not transfer
	sig := SignPayment(orderID, "pay_OTHER", "key_secret_123")
	if c.VerifyPaymentSignature(orderID, paymentID, sig) {
		t.Fatal("signature bound to another payment must not verify")
	}
	// signed with the wrong secret
	sig = SignPayment(orderID, paymentID, "not_the_secret")
	if c.VerifyPaymentSignature(orderID, paymentID, sig) {
		t.Fatal("signature with wrong secret must not verify")
	}
}

func TestVerifyWebhookSignature(t *testing.T) {
	c := testClient()
	body := []byte(`{"event":"payment.captured"}`)

	good := webhookSign(body, "wh_secret_456")
	if !c.VerifyWebhookSignature(body, good) {
		t.Fatal("valid webhook signature must verify")
	}
	if c.VerifyWebhookSignature(body, webhookSign(body, "wrong")) {
		t.Fatal("webhook signature with wrong secret must not verify")
	}
	if c.VerifyWebhookSignature([]byte(`{"event":"tampered"}`), good) {
		t.Fatal("signature over a different body must not verify")
	}

	unconfigured := NewClient(config.RazorpayConfig{KeyID: "k", KeySecret: "s"})
	if unconfigured.VerifyWebhookSignature(body, good) {
		t.Fatal("missing webhook secret must reject everything")
	}
}
