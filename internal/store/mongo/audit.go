package mongo

import (
	"context"
	"fmt"

	auditdomain "github.com/smallbiznis/clinicbill/internal/audit/domain"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type auditStore struct {
	col *mongo.Collection
}

func (s *auditStore) Insert(ctx context.Context, entry *auditdomain.AuditLog) error {
	if entry == nil {
		return nil
	}
	if _, err := s.col.InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("clinicbill/mongo: insert audit log: %w", err)
	}
	return nil
}

func (s *auditStore) List(ctx context.Context, filter auditdomain.ListFilter) ([]*auditdomain.AuditLog, error) {
	query := bson.M{}
	if filter.Action != "" {
		query["action"] = filter.Action
	}
	if filter.TargetType != "" {
		query["target_type"] = filter.TargetType
	}
	if filter.TargetID != "" {
		query["target_id"] = filter.TargetID
	}
	if c := filter.Cursor; c != nil {
		query["$or"] = bson.A{
			bson.M{"created_at": bson.M{"$lt": c.CreatedAt}},
			bson.M{"created_at": c.CreatedAt, "_id": bson.M{"$lt": int64(c.ID)}},
		}
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	if filter.Limit > 0 {
		opts = opts.SetLimit(int64(filter.Limit + 1))
	}

	cursor, err := s.col.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("clinicbill/mongo: list audit logs: %w", err)
	}
	var logs []*auditdomain.AuditLog
	if err := cursor.All(ctx, &logs); err != nil {
		return nil, fmt.Errorf("clinicbill/mongo: list audit logs: %w", err)
	}
	return logs, nil
}
