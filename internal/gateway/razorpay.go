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
)

const defaultBaseURL = "https://api.razorpay.com"

// Error carries the provider's HTTP status and response body so callers can
// log the detail while surfacing a generic gateway failure upstream.
type Error struct {
	Status int
	Body   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("razorpay: status %d", e.Status)
}

type Client struct {
	keyID         string
	keySecret     string
	webhookSecret string
	baseURL       string
	httpClient    *http.Client
}

type Config struct {
	KeyID         string
	KeySecret     string
	WebhookSecret string
	// BaseURL overrides the Razorpay API host. Tests point this at a stub.
	BaseURL string
}

func New(cfg Config) *Client {
	base := cfg.BaseURL

	if base == "" {
		base = defaultBaseURL
	}

	return &Client{
		keyID:         cfg.KeyID,
		keySecret:     cfg.KeySecret,
		webhookSecret: cfg.WebhookSecret,
		baseURL:       base,
		httpClient:    &http.Client{Timeout: 10 * time.Second},
	}
}

// KeyID is exposed so checkout responses can hand the public key to clients.
func (c *Client) KeyID() string {
	return c.keyID
}

// Order is the provider-side payment intent created before checkout.
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// CreateOrder creates an order with the provider. Amount is in minor units
// (paise for INR).
func (c *Client) CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (Order, error) {
	payload := map[string]any{
		"amount":   amount,
		"currency": currency,
		"receipt":  receipt,
	}

	if len(notes) > 0 {
		payload["notes"] = notes
	}

	b, err := json.Marshal(payload)

	if err != nil {
		return Order{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/orders", bytes.NewReader(b))

	if err != nil {
		return Order{}, err
	}

	req.SetBasicAuth(c.keyID, c.keySecret)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)

	if err != nil {
		return Order{}, err
	}

	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)

	if err != nil {
		return Order{}, err
	}

	if res.StatusCode >= 300 {
		return Order{}, &Error{Status: res.StatusCode, Body: string(body)}
	}

	var out Order

	if err := json.Unmarshal(body, &out); err != nil {
		return Order{}, err
	}

	return out, nil
}

// VerifySignature recomputes HMAC-SHA256 over "orderID|paymentID" with the
// key secret and compares it to the supplied signature in constant time.
// It never errors; a mismatch is simply false.
func (c *Client) VerifySignature(orderID, paymentID, signature string) bool {
	mac := hmac.New(sha256.New, []byte(c.keySecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}

// VerifyWebhookSignature checks the X-Razorpay-Signature of a webhook
// delivery: HMAC-SHA256 over the raw request body with the webhook secret.
func (c *Client) VerifyWebhookSignature(rawBody []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(c.webhookSecret))
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}
