package mongodb

import (
	"context"
	"errors"
	"time"

	"github.com/paygate/paygate/internal/domain/payment"
	"github.com/paygate/paygate/internal/observability"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type PaymentsRepo struct {
	coll *mongo.Collection
	prom *observability.Prom
}

func NewPaymentsRepo(database *mongo.Database, prom *observability.Prom) *PaymentsRepo {
	return &PaymentsRepo{
		coll: database.Collection("payments"),
		prom: prom,
	}
}

func (r *PaymentsRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func (r *PaymentsRepo) CreatePending(ctx context.Context, p payment.Payment) (payment.Payment, error) {
	err := r.observe("payments.create_pending", func() error {
		_, e := r.coll.InsertOne(ctx, p)
		return e
	})

	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return payment.Payment{}, payment.ErrOrderExists
		}

		return payment.Payment{}, err
	}

	return p, nil
}

// MarkVerified applies the one-way pending -> completed|failed transition as
// a single conditional update. The filter pins status to "pending", so of two
// concurrent verification calls only one finds a document to update; the
// loser falls through to the already-terminal record and observes a no-op.
func (r *PaymentsRepo) MarkVerified(ctx context.Context, orderID string, success bool, providerPaymentID string) (payment.Payment, error) {
	status := payment.StatusCompleted

	if !success {
		status = payment.StatusFailed
	}

	set := bson.M{
		"status":     status,
		"updated_at": time.Now().UTC(),
	}

	if providerPaymentID != "" {
		set["provider_payment_id"] = providerPaymentID
	}

	var p payment.Payment

	err := r.observe("payments.mark_verified", func() error {
		return r.coll.FindOneAndUpdate(
			ctx,
			bson.M{"order_id": orderID, "status": payment.StatusPending},
			bson.M{"$set": set},
			options.FindOneAndUpdate().SetReturnDocument(options.After),
		).Decode(&p)
	})

	if err == nil {
		return p, nil
	}

	if !errors.Is(err, mongo.ErrNoDocuments) {
		return payment.Payment{}, err
	}

	// No pending record matched: either the transition already happened
	// (idempotent repeat) or the order id is unknown.
	return r.GetByOrderID(ctx, orderID)
}

func (r *PaymentsRepo) GetByOrderID(ctx context.Context, orderID string) (payment.Payment, error) {
	var p payment.Payment

	err := r.observe("payments.get_by_order_id", func() error {
		return r.coll.FindOne(ctx, bson.M{"order_id": orderID}).Decode(&p)
	})

	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return payment.Payment{}, payment.ErrNotFound
		}

		return payment.Payment{}, err
	}

	return p, nil
}

func (r *PaymentsRepo) ListByUser(ctx context.Context, userID string) ([]payment.Payment, error) {
	var cursor *mongo.Cursor

	err := r.observe("payments.list_by_user", func() error {
		var e error
		cursor, e = r.coll.Find(
			ctx,
			bson.M{"user_id": userID},
			options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}),
		)
		return e
	})

	if err != nil {
		return nil, err
	}

	defer cursor.Close(ctx)

	payments := make([]payment.Payment, 0)

	if err := cursor.All(ctx, &payments); err != nil {
		return nil, err
	}

	return payments, nil
}
