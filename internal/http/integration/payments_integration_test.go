package integration_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"testing"
)

func signPayment(orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(testGatewaySecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func signWebhook(body string) string {
	mac := hmac.New(sha256.New, []byte(testWebhookSecret))
	mac.Write([]byte(body))
	return hex.EncodeToString(mac.Sum(nil))
}

type createPaymentResponse struct {
	PaymentID string  `json:"payment_id"`
	OrderID   string  `json:"order_id"`
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
	Status    string  `json:"status"`
	KeyID     string  `json:"key_id"`
}

func createPayment(t *testing.T, env *testEnv, token, body string) createPaymentResponse {
	t.Helper()

	w := env.do(http.MethodPost, "/payments/create-payment", body, token)

	if w.Code != http.StatusOK {
		t.Fatalf("create-payment: got status %d, body=%s", w.Code, w.Body.String())
	}

	var resp createPaymentResponse

	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal create-payment response: %v", err)
	}

	return resp
}

func TestCreateAndVerifyPayment(t *testing.T) {
	env := newTestEnv(t)
	token := env.signupAndSignin(t, "payer@example.com", "Payer", "s3cret-pw")

	created := createPayment(t, env, token, `{"amount":1000,"currency":"INR","description":"annual plan"}`)

	if created.Amount != 1000 {
		t.Errorf("got amount %v, want 1000", created.Amount)
	}

	if created.Status != "pending" {
		t.Errorf("got status %q, want pending", created.Status)
	}

	if created.OrderID == "" || created.KeyID != testRazorpayKeyID {
		t.Errorf("unexpected create response: %+v", created)
	}

	// listing shows the pending payment
	w := env.do(http.MethodGet, "/payments/my-payments", "", token)

	if w.Code != http.StatusOK {
		t.Fatalf("my-payments: got status %d", w.Code)
	}

	var listing struct {
		Items []struct {
			OrderID string  `json:"orderId"`
			Amount  float64 `json:"amount"`
			Status  string  `json:"status"`
		} `json:"items"`
		Count int `json:"count"`
	}

	if err := json.Unmarshal(w.Body.Bytes(), &listing); err != nil {
		t.Fatalf("unmarshal listing: %v", err)
	}

	if listing.Count != 1 || len(listing.Items) != 1 {
		t.Fatalf("got %d items, want 1", listing.Count)
	}

	if listing.Items[0].Status != "pending" {
		t.Errorf("listed status %q, want pending", listing.Items[0].Status)
	}

	// verify with the provider's signature
	sig := signPayment(created.OrderID, "pay_itest1")

	verifyBody := `{"order_id":"` + created.OrderID + `","payment_id":"pay_itest1","signature":"` + sig + `"}`
	w = env.do(http.MethodPost, "/payments/verify-payment", verifyBody, token)

	if w.Code != http.StatusOK {
		t.Fatalf("verify-payment: got status %d, body=%s", w.Code, w.Body.String())
	}

	var verified struct {
		Payment struct {
			Status            string `json:"status"`
			ProviderPaymentID string `json:"providerPaymentId"`
		} `json:"payment"`
	}

	if err := json.Unmarshal(w.Body.Bytes(), &verified); err != nil {
		t.Fatalf("unmarshal verify response: %v", err)
	}

	if verified.Payment.Status != "completed" {
		t.Errorf("got status %q, want completed", verified.Payment.Status)
	}

	if verified.Payment.ProviderPaymentID != "pay_itest1" {
		t.Errorf("got provider payment id %q", verified.Payment.ProviderPaymentID)
	}

	// verifying an already completed order stays completed
	w = env.do(http.MethodPost, "/payments/verify-payment", verifyBody, token)

	if w.Code != http.StatusOK {
		t.Fatalf("repeat verify: got status %d, body=%s", w.Code, w.Body.String())
	}
}

func TestVerifyPaymentRejectsForgedSignature(t *testing.T) {
	env := newTestEnv(t)
	token := env.signupAndSignin(t, "forger@example.com", "Forger", "s3cret-pw")

	created := createPayment(t, env, token, `{"amount":500}`)

	body := `{"order_id":"` + created.OrderID + `","payment_id":"pay_forged","signature":"` + signPayment("some-other-order", "pay_forged") + `"}`
	w := env.do(http.MethodPost, "/payments/verify-payment", body, token)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want 400", w.Code)
	}

	// record stays pending
	p, err := env.payments.GetByOrderID(context.Background(), created.OrderID)

	if err != nil {
		t.Fatalf("GetByOrderID: %v", err)
	}

	if string(p.Status) != "pending" {
		t.Errorf("got status %q, want pending after rejected verification", p.Status)
	}
}

func TestPaymentsRequireAuth(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/payments/create-payment", `{"amount":1000}`, "")

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("create-payment without token: got status %d", w.Code)
	}

	w = env.do(http.MethodGet, "/payments/my-payments", "", "")

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("my-payments without token: got status %d", w.Code)
	}
}

func TestWebhookMarksPaymentFailed(t *testing.T) {
	env := newTestEnv(t)
	token := env.signupAndSignin(t, "hook@example.com", "Hook", "s3cret-pw")

	created := createPayment(t, env, token, `{"amount":250,"currency":"INR"}`)

	body := `{"event":"payment.failed","payload":{"payment":{"entity":{"id":"pay_hook1","order_id":"` + created.OrderID + `"}}}}`

	w := env.do(http.MethodPost, "/payments/webhook", body, "", [2]string{"X-Razorpay-Signature", signWebhook(body)})

	if w.Code != http.StatusOK {
		t.Fatalf("webhook: got status %d, body=%s", w.Code, w.Body.String())
	}

	p, err := env.payments.GetByOrderID(context.Background(), created.OrderID)

	if err != nil {
		t.Fatalf("GetByOrderID: %v", err)
	}

	if string(p.Status) != "failed" {
		t.Errorf("got status %q, want failed after payment.failed webhook", p.Status)
	}

	// a tampered body is rejected outright
	w = env.do(http.MethodPost, "/payments/webhook", body, "", [2]string{"X-Razorpay-Signature", signWebhook(body + " ")})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("tampered webhook: got status %d, want 400", w.Code)
	}
}
