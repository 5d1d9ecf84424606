package mongo

import (
	"context"
	"fmt"
	"sort"

	"github.com/bwmarrin/snowflake"
	invoicedomain "github.com/smallbiznis/clinicbill/internal/invoice/domain"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type invoiceStore struct {
	col *mongo.Collection
}

func (s *invoiceStore) Create(ctx context.Context, invoice *invoicedomain.Invoice) error {
	if _, err := s.col.InsertOne(ctx, toInvoiceModel(invoice)); err != nil {
		return fmt.Errorf("clinicbill/mongo: create invoice: %w", err)
	}
	return nil
}

func (s *invoiceStore) FindByID(ctx context.Context, id snowflake.ID) (*invoicedomain.Invoice, error) {
	var m invoiceModel
	err := s.col.FindOne(ctx, bson.M{"_id": int64(id)}, options.FindOne().SetProjection(bson.M{"items": 0})).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("clinicbill/mongo: get invoice: %w", err)
	}
	return fromInvoiceModel(&m)
}

func (s *invoiceStore) List(ctx context.Context, filter invoicedomain.ListFilter) ([]*invoicedomain.Invoice, error) {
	query := bson.M{}
	if filter.PatientID != "" {
		query["patient_id"] = filter.PatientID
	}
	if filter.DocStatus != "" {
		query["doc_status"] = string(filter.DocStatus)
	}
	if filter.PaymentStatus != "" {
		query["payment_status"] = string(filter.PaymentStatus)
	}
	if filter.Archived != nil {
		query["is_archived"] = *filter.Archived
	}
	if filter.BeforeID != 0 {
		query["_id"] = bson.M{"$lt": int64(filter.BeforeID)}
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: -1}}).
		SetProjection(bson.M{"items": 0})
	if filter.Limit > 0 {
		opts = opts.SetLimit(int64(filter.Limit + 1))
	}

	cursor, err := s.col.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("clinicbill/mongo: list invoices: %w", err)
	}
	var models []invoiceModel
	if err := cursor.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("clinicbill/mongo: list invoices: %w", err)
	}

	out := make([]*invoicedomain.Invoice, 0, len(models))
	for i := range models {
		inv, err := fromInvoiceModel(&models[i])
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, nil
}

func (s *invoiceStore) Update(ctx context.Context, id snowflake.ID, expected invoicedomain.DocStatus, patch invoicedomain.Patch) error {
	return s.update(ctx, id, expected, bson.M{"$set": setDocument(patch)})
}

func (s *invoiceStore) AddItem(ctx context.Context, item *invoicedomain.InvoiceItem, patch invoicedomain.Patch) error {
	return s.update(ctx, item.InvoiceID, invoicedomain.DocStatusDraft, bson.M{
		"$set":  setDocument(patch),
		"$push": bson.M{"items": toItemModel(item)},
	})
}

func (s *invoiceStore) ListItems(ctx context.Context, invoiceID snowflake.ID) ([]invoicedomain.InvoiceItem, error) {
	var m struct {
		Items []itemModel `bson:"items"`
	}
	err := s.col.FindOne(ctx, bson.M{"_id": int64(invoiceID)}, options.FindOne().SetProjection(bson.M{"items": 1})).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("clinicbill/mongo: list items: %w", err)
	}

	items := make([]invoicedomain.InvoiceItem, 0, len(m.Items))
	for _, raw := range m.Items {
		item, err := fromItemModel(int64(invoiceID), raw)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Position < items[j].Position })
	return items, nil
}

// update runs a single-document conditional update guarded by doc_status.
func (s *invoiceStore) update(ctx context.Context, id snowflake.ID, expected invoicedomain.DocStatus, change bson.M) error {
	res, err := s.col.UpdateOne(ctx, bson.M{"_id": int64(id), "doc_status": string(expected)}, change)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return invoicedomain.ErrDuplicateInvoiceNo
		}
		return fmt.Errorf("clinicbill/mongo: update invoice: %w", err)
	}
	if res.MatchedCount == 0 {
		return invoicedomain.ErrInvoiceStateChanged
	}
	return nil
}

func setDocument(patch invoicedomain.Patch) bson.M {
	set := bson.M{}
	for field, value := range patch.Fields() {
		set[field] = bsonValue(value)
	}
	return set
}
