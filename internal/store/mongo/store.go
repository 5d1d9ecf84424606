// Package mongo stores invoices, payments, sequences, audit logs and settings
// in MongoDB. Each invoice document embeds its items so item entry and the
// draft guard are one atomic update.
package mongo

import (
	"context"
	"errors"
	"fmt"

	auditdomain "github.com/smallbiznis/clinicbill/internal/audit/domain"
	invoicedomain "github.com/smallbiznis/clinicbill/internal/invoice/domain"
	paymentdomain "github.com/smallbiznis/clinicbill/internal/payment/domain"
	sequencedomain "github.com/smallbiznis/clinicbill/internal/sequence/domain"
	settingsdomain "github.com/smallbiznis/clinicbill/internal/settings/domain"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

const (
	colInvoices  = "invoices"
	colPayments  = "invoice_payments"
	colSequences = "sequences"
	colAuditLogs = "audit_logs"
	colSettings  = "settings"
)

type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect dials uri and selects database.
func Connect(uri, database string) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("clinicbill/mongo: connect: %w", err)
	}
	return &Store{client: client, db: client.Database(database)}, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Migrate creates the indexes every collection relies on.
func (s *Store) Migrate(ctx context.Context) error {
	for col, models := range migrationIndexes() {
		if _, err := s.db.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("clinicbill/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

func (s *Store) Invoices() invoicedomain.Repository {
	return &invoiceStore{col: s.db.Collection(colInvoices)}
}

func (s *Store) Payments() paymentdomain.Repository {
	return &paymentStore{col: s.db.Collection(colPayments)}
}

func (s *Store) Sequences() sequencedomain.Repository {
	return &sequenceStore{col: s.db.Collection(colSequences)}
}

func (s *Store) AuditLogs() auditdomain.Repository {
	return &auditStore{col: s.db.Collection(colAuditLogs)}
}

func (s *Store) Settings() settingsdomain.Repository {
	return &settingsStore{col: s.db.Collection(colSettings)}
}

func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colInvoices: {
			{
				Keys: bson.D{{Key: "invoice_no", Value: 1}},
				Options: options.Index().SetUnique(true).
					SetPartialFilterExpression(bson.M{"invoice_no": bson.M{"$type": "string"}}),
			},
			{Keys: bson.D{{Key: "patient_id", Value: 1}, {Key: "_id", Value: -1}}},
			{Keys: bson.D{{Key: "doc_status", Value: 1}, {Key: "_id", Value: -1}}},
		},
		colPayments: {
			{Keys: bson.D{{Key: "invoice_id", Value: 1}, {Key: "paid_at", Value: 1}, {Key: "_id", Value: 1}}},
		},
		colAuditLogs: {
			{Keys: bson.D{{Key: "target_type", Value: 1}, {Key: "target_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "action", Value: 1}, {Key: "created_at", Value: -1}}},
		},
	}
}

func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}
