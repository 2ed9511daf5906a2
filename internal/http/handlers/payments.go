package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/paygate/paygate/internal/cache"
	"github.com/paygate/paygate/internal/config"
	"github.com/paygate/paygate/internal/domain/payment"
	"github.com/paygate/paygate/internal/gateway"
	"github.com/paygate/paygate/internal/http/middlewares"
	"github.com/paygate/paygate/internal/observability"
)

type PaymentStore interface {
	CreatePending(ctx context.Context, p payment.Payment) (payment.Payment, error)
	MarkVerified(ctx context.Context, orderID string, success bool, providerPaymentID string) (payment.Payment, error)
	GetByOrderID(ctx context.Context, orderID string) (payment.Payment, error)
	ListByUser(ctx context.Context, userID string) ([]payment.Payment, error)
}

type PaymentGateway interface {
	KeyID() string
	CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (gateway.Order, error)
	VerifySignature(orderID, paymentID, signature string) bool
	VerifyWebhookSignature(rawBody []byte, signature string) bool
}

type PaymentsHandler struct {
	payments  PaymentStore
	gateway   PaymentGateway
	listCache *cache.Cache
	prom      *observability.Prom
}

func NewPaymentsHandler(payments PaymentStore, gw PaymentGateway, prom *observability.Prom) *PaymentsHandler {
	return &PaymentsHandler{
		payments:  payments,
		gateway:   gw,
		listCache: cache.New(10 * time.Second),
		prom:      prom,
	}
}

type CreatePaymentRequest struct {
	Amount      float64 `json:"amount" binding:"required,gt=0"`
	Currency    string  `json:"currency" binding:"omitempty,len=3,uppercase"`
	Description string  `json:"description" binding:"omitempty,max=255"`
}

type VerifyPaymentRequest struct {
	OrderID   string `json:"order_id" binding:"required"`
	PaymentID string `json:"payment_id" binding:"required"`
	Signature string `json:"signature" binding:"required"`
}

func (h *PaymentsHandler) CreatePayment(ctx *gin.Context) {
	var req CreatePaymentRequest

	if !BindJSON(ctx, &req) {
		return
	}

	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	currency := req.Currency

	if currency == "" {
		currency = "INR"
	}

	// provider wants minor units
	amountPaise := int64(math.Round(req.Amount * 100))

	notes := map[string]string{}

	if req.Description != "" {
		notes["description"] = req.Description
	}

	cctx, cancel := config.WithTimeout(10 * time.Second)
	defer cancel()

	receipt := "rcpt_" + uuid.NewString()

	order, err := h.gateway.CreateOrder(cctx, amountPaise, currency, receipt, notes)

	if err != nil {
		var gwErr *gateway.Error

		if errors.As(err, &gwErr) {
			RespondBadGateway(ctx, "Payment provider rejected the order")
			return
		}

		RespondBadGateway(ctx, "Payment provider unreachable")
		return
	}

	p, err := h.payments.CreatePending(cctx, payment.NewPending(order.ID, req.Amount, currency, userID, req.Description))

	if err != nil {
		RespondInternal(ctx, "Could not record payment")
		return
	}

	if h.prom != nil {
		h.prom.PaymentsCreated.Inc()
	}

	h.listCache.Delete(listCacheKey(userID))

	ctx.JSON(http.StatusOK, gin.H{
		"payment_id": p.ID,
		"order_id":   p.OrderID,
		"amount":     p.Amount,
		"currency":   p.Currency,
		"status":     p.Status,
		"key_id":     h.gateway.KeyID(),
	})
}

func (h *PaymentsHandler) VerifyPayment(ctx *gin.Context) {
	var req VerifyPaymentRequest

	if !BindJSON(ctx, &req) {
		return
	}

	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	p, err := h.payments.GetByOrderID(cctx, req.OrderID)

	if err != nil || p.UserID != userID {
		// unknown and unowned orders look the same to the caller
		RespondNotFound(ctx, "Payment not found")
		return
	}

	if !h.gateway.VerifySignature(req.OrderID, req.PaymentID, req.Signature) {
		if h.prom != nil {
			h.prom.PaymentsVerified.WithLabelValues("rejected").Inc()
		}

		// no state transition on a bad signature; record stays pending
		RespondError(ctx, http.StatusBadRequest, "invalid_signature", "Payment signature verification failed", nil)
		return
	}

	verified, err := h.payments.MarkVerified(cctx, req.OrderID, true, req.PaymentID)

	if err != nil {
		if errors.Is(err, payment.ErrNotFound) {
			RespondNotFound(ctx, "Payment not found")
			return
		}

		RespondInternal(ctx, "Could not update payment")
		return
	}

	if h.prom != nil {
		h.prom.PaymentsVerified.WithLabelValues(string(verified.Status)).Inc()
	}

	h.listCache.Delete(listCacheKey(userID))

	ctx.JSON(http.StatusOK, gin.H{"payment": verified})
}

func (h *PaymentsHandler) MyPayments(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	key := listCacheKey(userID)

	if cached, ok := h.listCache.Get(key); ok {
		RespondJSONWithETag(ctx, http.StatusOK, cached)
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	payments, err := h.payments.ListByUser(cctx, userID)

	if err != nil {
		RespondInternal(ctx, "Could not list payments")
		return
	}

	body := gin.H{
		"items": payments,
		"count": len(payments),
	}

	h.listCache.Set(key, body)

	RespondJSONWithETag(ctx, http.StatusOK, body)
}

// webhookEvent is the slice of the Razorpay webhook envelope we care about.
type webhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID      string `json:"id"`
				OrderID string `json:"order_id"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// Webhook handles provider-initiated verification. It drives the same
// MarkVerified transition as client-submitted verification, including the
// pending -> failed leg on payment.failed events.
func (h *PaymentsHandler) Webhook(ctx *gin.Context) {
	rawBody, err := io.ReadAll(ctx.Request.Body)

	if err != nil {
		RespondBadRequest(ctx, "Could not read body", nil)
		return
	}

	signature := ctx.GetHeader("X-Razorpay-Signature")

	if signature == "" || !h.gateway.VerifyWebhookSignature(rawBody, signature) {
		RespondError(ctx, http.StatusBadRequest, "invalid_signature", "Webhook signature verification failed", nil)
		return
	}

	var event webhookEvent

	if err := json.Unmarshal(rawBody, &event); err != nil {
		RespondBadRequest(ctx, "Malformed webhook payload", nil)
		return
	}

	var success bool

	switch event.Event {
	case "payment.captured":
		success = true
	case "payment.failed":
		success = false
	default:
		// event types we do not track; acknowledge so the provider stops retrying
		ctx.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	orderID := event.Payload.Payment.Entity.OrderID

	if orderID == "" {
		RespondBadRequest(ctx, "Malformed webhook payload", nil)
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	verified, err := h.payments.MarkVerified(cctx, orderID, success, event.Payload.Payment.Entity.ID)

	if err != nil {
		if errors.Is(err, payment.ErrNotFound) {
			// an order we never issued; acknowledge and move on
			ctx.JSON(http.StatusOK, gin.H{"status": "ignored"})
			return
		}

		RespondInternal(ctx, "Could not update payment")
		return
	}

	if h.prom != nil {
		h.prom.PaymentsVerified.WithLabelValues(string(verified.Status)).Inc()
	}

	h.listCache.Delete(listCacheKey(verified.UserID))

	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func listCacheKey(userID string) string {
	return "payments:" + userID
}
