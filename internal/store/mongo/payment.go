package mongo

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	paymentdomain "github.com/smallbiznis/clinicbill/internal/payment/domain"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type paymentStore struct {
	col *mongo.Collection
}

func (s *paymentStore) Insert(ctx context.Context, payment *paymentdomain.InvoicePayment) error {
	if _, err := s.col.InsertOne(ctx, toPaymentModel(payment)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return paymentdomain.ErrDuplicatePayment
		}
		return fmt.Errorf("clinicbill/mongo: insert payment: %w", err)
	}
	return nil
}

func (s *paymentStore) ListByInvoice(ctx context.Context, invoiceID snowflake.ID) ([]paymentdomain.InvoicePayment, error) {
	cursor, err := s.col.Find(ctx,
		bson.M{"invoice_id": int64(invoiceID)},
		options.Find().SetSort(bson.D{{Key: "paid_at", Value: 1}, {Key: "_id", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("clinicbill/mongo: list payments: %w", err)
	}
	var models []paymentModel
	if err := cursor.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("clinicbill/mongo: list payments: %w", err)
	}

	out := make([]paymentdomain.InvoicePayment, 0, len(models))
	for i := range models {
		payment, err := fromPaymentModel(&models[i])
		if err != nil {
			return nil, err
		}
		out = append(out, payment)
	}
	return out, nil
}
