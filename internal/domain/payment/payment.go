package payment

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound    = errors.New("payment not found")
	ErrOrderExists = errors.New("order id already recorded")
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether a status admits no further transition.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

type Payment struct {
	ID                string    `json:"id" bson:"_id"`
	OrderID           string    `json:"orderId" bson:"order_id"`
	Amount            float64   `json:"amount" bson:"amount"` // major units (rupees for INR)
	Currency          string    `json:"currency" bson:"currency"`
	Status            Status    `json:"status" bson:"status"`
	UserID            string    `json:"userId" bson:"user_id"`
	Description       string    `json:"description,omitempty" bson:"description,omitempty"`
	ProviderPaymentID string    `json:"providerPaymentId,omitempty" bson:"provider_payment_id,omitempty"`
	CreatedAt         time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt         time.Time `json:"updatedAt" bson:"updated_at"`
}

// NewPending builds the record persisted when an order has just been created
// with the provider. Status always starts at pending.
func NewPending(orderID string, amount float64, currency, userID, description string) Payment {
	now := time.Now().UTC()

	return Payment{
		ID:          uuid.NewString(),
		OrderID:     orderID,
		Amount:      amount,
		Currency:    currency,
		Status:      StatusPending,
		UserID:      userID,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
