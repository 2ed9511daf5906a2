package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/paygate/paygate/internal/domain/payment"
)

type PaymentsRepo struct {
	mu      sync.Mutex
	byOrder map[string]payment.Payment
}

func NewPaymentsRepo() *PaymentsRepo {
	return &PaymentsRepo{
		byOrder: make(map[string]payment.Payment),
	}
}

func (r *PaymentsRepo) CreatePending(ctx context.Context, p payment.Payment) (payment.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byOrder[p.OrderID]; exists {
		return payment.Payment{}, payment.ErrOrderExists
	}

	r.byOrder[p.OrderID] = p

	return p, nil
}

// MarkVerified transitions only out of pending, under the repo lock, so a
// repeat (or concurrent) call observes a no-op and gets the terminal record.
func (r *PaymentsRepo) MarkVerified(ctx context.Context, orderID string, success bool, providerPaymentID string) (payment.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.byOrder[orderID]

	if !ok {
		return payment.Payment{}, payment.ErrNotFound
	}

	if p.Status.Terminal() {
		return p, nil
	}

	if success {
		p.Status = payment.StatusCompleted
	} else {
		p.Status = payment.StatusFailed
	}

	if providerPaymentID != "" {
		p.ProviderPaymentID = providerPaymentID
	}

	p.UpdatedAt = time.Now().UTC()
	r.byOrder[orderID] = p

	return p, nil
}

func (r *PaymentsRepo) GetByOrderID(ctx context.Context, orderID string) (payment.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.byOrder[orderID]

	if !ok {
		return payment.Payment{}, payment.ErrNotFound
	}

	return p, nil
}

func (r *PaymentsRepo) ListByUser(ctx context.Context, userID string) ([]payment.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	payments := make([]payment.Payment, 0)

	for _, p := range r.byOrder {
		if p.UserID == userID {
			payments = append(payments, p)
		}
	}

	// newest first, id as tiebreaker for stable output
	sort.Slice(payments, func(i, j int) bool {
		if payments[i].CreatedAt.Equal(payments[j].CreatedAt) {
			return payments[i].ID < payments[j].ID
		}
		return payments[i].CreatedAt.After(payments[j].CreatedAt)
	})

	return payments, nil
}
