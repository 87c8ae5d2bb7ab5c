package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"travelbackend/internal/config"
	"travelbackend/internal/domain"
)

// TestOrderPrefix marks orders that never touched the gateway. Outside
// production these let the reconciliation flow run deterministically.
const TestOrderPrefix = "order_test_"

// Order is the gateway's order-creation response.
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

// Refund is the gateway's refund response.
type Refund struct {
	ID        string `json:"id"`
	PaymentID string `json:"payment_id"`
	Amount    int64  `json:"amount"`
	Status    string `json:"status"`
}

// Client talks to a Razorpay-style gateway. Amounts are always in the minor
// unit (paise), matching platform-wide storage.
type Client struct {
	cfg  config.RazorpayConfig
	http *http.Client
}

func NewClient(cfg config.RazorpayConfig) *Client {
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: 15 * time.Second},
	}
}

// Configured reports whether real credentials are present.
func (c *Client) Configured() bool {
	return c.cfg.Configured()
}

// CreateOrder creates a provider order for the given amount.
func (c *Client) CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (Order, error) {
	body, _ := json.Marshal(map[string]any{
		"amount":   amountMinor,
		"currency": currency,
		"receipt":  receipt,
	})

	var order Order
	if err := c.do(ctx, http.MethodPost, "/v1/orders", body, &order); err != nil {
		return Order{}, err
	}
	return order, nil
}

// RefundPayment issues a full refund for a captured provider payment.
func (c *Client) RefundPayment(ctx context.Context, providerPaymentID string) (Refund, error) {
	var refund Refund
	path := fmt.Sprintf("/v1/payments/%s/refund", providerPaymentID)
	if err := c.do(ctx, http.MethodPost, path, []byte(`{}`), &refund); err != nil {
		return Refund{}, err
	}
	return refund, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return domain.InternalError{Err: err}
	}
	req.SetBasicAuth(c.cfg.KeyID, c.cfg.KeySecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.NetworkError{Op: "gateway " + path, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.NetworkError{Op: "gateway " + path, Err: err}
	}
	if resp.StatusCode >= 500 {
		return domain.NetworkError{Op: "gateway " + path, Err: fmt.Errorf("status %d", resp.StatusCode)}
	}
	if resp.StatusCode >= 400 {
		return domain.InternalError{Msg: fmt.Sprintf("gateway rejected %s: status %d", path, resp.StatusCode)}
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return domain.InternalError{Err: err}
		}
	}
	return nil
}

// VerifyPaymentSignature checks the checkout callback signature: an
// HMAC-SHA256 over "orderID|paymentID" keyed with the shared secret.
func (c *Client) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	return verifyHMAC([]byte(orderID+"|"+paymentID), signature, []byte(c.cfg.KeySecret))
}

// VerifyWebhookSignature checks the raw webhook body against the webhook
// secret.
func (c *Client) VerifyWebhookSignature(payload []byte, signature string) bool {
	if c.cfg.WebhookSecret == "" {
		return false
	}
	return verifyHMAC(payload, signature, []byte(c.cfg.WebhookSecret))
}

func verifyHMAC(payload []byte, signature string, secret []byte) bool {
	if signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// SignPayment produces a checkout signature, used by tests and the
// test-order bypass tooling.
func SignPayment(orderID, paymentID, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}
