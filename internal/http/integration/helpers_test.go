package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/paygate/paygate/internal/auth"
	"github.com/paygate/paygate/internal/config"
	"github.com/paygate/paygate/internal/gateway"
	apphttp "github.com/paygate/paygate/internal/http"
	"github.com/paygate/paygate/internal/observability"
	"github.com/paygate/paygate/internal/repo/memory"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	testJWTSecret     = "integration-test-secret"
	testGatewaySecret = "integration-gw-secret"
	testWebhookSecret = "integration-wh-secret"
	testRazorpayKeyID = "rzp_test_integration"
)

func testConfig() config.Config {
	return config.Config{
		Env:                 "test",
		JWTSecret:           testJWTSecret,
		JWTAccessTTLMinutes: 60,
		CORSAllowedOrigins:  []string{"http://localhost:3000"},
	}
}

// memRevoker is an in-process stand-in for the Redis denylist.

type memRevoker struct {
	mu sync.Mutex
	m  map[string]time.Time
}

func newMemRevoker() *memRevoker {
	return &memRevoker{m: make(map[string]time.Time)}
}

func (r *memRevoker) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[jti] = time.Now().Add(ttl)
	return nil
}

func (r *memRevoker) IsRevoked(ctx context.Context, jti string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	exp, ok := r.m[jti]
	return ok && time.Now().Before(exp), nil
}

type testEnv struct {
	router   *gin.Engine
	users    *memory.UsersRepo
	payments *memory.PaymentsRepo
	gateway  *gateway.Client
	stub     *httptest.Server
}

// newTestEnv wires the full router against in-memory repos and an httptest
// Razorpay stub, so requests run the same middleware chain as production.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	orderSeq := 0
	var stubMu sync.Mutex

	stub := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Amount   int64  `json:"amount"`
			Currency string `json:"currency"`
			Receipt  string `json:"receipt"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		stubMu.Lock()
		orderSeq++
		id := "order_itest" + strconv.Itoa(orderSeq)
		stubMu.Unlock()

		json.NewEncoder(w).Encode(gateway.Order{
			ID:       id,
			Amount:   payload.Amount,
			Currency: payload.Currency,
			Receipt:  payload.Receipt,
			Status:   "created",
		})
	}))

	t.Cleanup(stub.Close)

	gw := gateway.New(gateway.Config{
		KeyID:         testRazorpayKeyID,
		KeySecret:     testGatewaySecret,
		WebhookSecret: testWebhookSecret,
		BaseURL:       stub.URL,
	})

	cfg := testConfig()

	users := memory.NewUsersRepo()
	payments := memory.NewPaymentsRepo()

	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))

	registry := prometheus.NewRegistry()

	router := apphttp.NewRouter(logger, cfg, apphttp.Deps{
		Users:    users,
		Payments: payments,
		Gateway:  gw,
		JWT:      auth.NewManager(cfg.JWTSecret, cfg.AccessTTL()),
		Revoker:  newMemRevoker(),
		Prom:     observability.NewProm(registry),
		Metrics:  registry,
		Ping:     func() error { return nil },
	})

	return &testEnv{
		router:   router,
		users:    users,
		payments: payments,
		gateway:  gw,
		stub:     stub,
	}
}

func (e *testEnv) do(method, path, body, token string, headers ...[2]string) *httptest.ResponseRecorder {
	var reader io.Reader

	if body != "" {
		reader = bytes.NewBufferString(body)
	}

	req := httptest.NewRequest(method, path, reader)

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	for _, h := range headers {
		req.Header.Set(h[0], h[1])
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	return w
}

// signupAndSignin registers a user and returns an access token for it.
func (e *testEnv) signupAndSignin(t *testing.T, email, name, password string) string {
	t.Helper()

	w := e.do(http.MethodPost, "/auth/signup", `{"email":"`+email+`","full_name":"`+name+`","password":"`+password+`"}`, "")

	if w.Code != http.StatusCreated {
		t.Fatalf("signup: got status %d, body=%s", w.Code, w.Body.String())
	}

	w = e.do(http.MethodPost, "/auth/signin", `{"email":"`+email+`","password":"`+password+`"}`, "")

	if w.Code != http.StatusOK {
		t.Fatalf("signin: got status %d, body=%s", w.Code, w.Body.String())
	}

	var resp struct {
		AccessToken string `json:"accessToken"`
	}

	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal token: %v", err)
	}

	if resp.AccessToken == "" {
		t.Fatal("empty access token")
	}

	return resp.AccessToken
}
