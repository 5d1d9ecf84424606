package mongo

import (
	"context"
	"fmt"
	"time"

	sequencedomain "github.com/smallbiznis/clinicbill/internal/sequence/domain"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

type sequenceStore struct {
	col *mongo.Collection
}

type sequenceModel struct {
	Key       string    `bson:"_id"`
	Stream    string    `bson:"stream"`
	ScopeKey  string    `bson:"scope_key"`
	Value     int64     `bson:"value"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func (s *sequenceStore) Find(ctx context.Context, key string) (*sequencedomain.Sequence, error) {
	var m sequenceModel
	if err := s.col.FindOne(ctx, bson.M{"_id": key}).Decode(&m); err != nil {
		if isNoDocuments(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("clinicbill/mongo: get sequence: %w", err)
	}
	return &sequencedomain.Sequence{
		Key:       m.Key,
		Stream:    m.Stream,
		ScopeKey:  m.ScopeKey,
		Value:     m.Value,
		CreatedAt: m.CreatedAt.UTC(),
		UpdatedAt: m.UpdatedAt.UTC(),
	}, nil
}

func (s *sequenceStore) Create(ctx context.Context, seq *sequencedomain.Sequence) error {
	_, err := s.col.InsertOne(ctx, sequenceModel{
		Key:       seq.Key,
		Stream:    seq.Stream,
		ScopeKey:  seq.ScopeKey,
		Value:     seq.Value,
		CreatedAt: seq.CreatedAt,
		UpdatedAt: seq.UpdatedAt,
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return sequencedomain.ErrSequenceExists
		}
		return fmt.Errorf("clinicbill/mongo: create sequence: %w", err)
	}
	return nil
}

func (s *sequenceStore) CompareAndSwap(ctx context.Context, key string, expected, next int64, at time.Time) (bool, error) {
	res, err := s.col.UpdateOne(ctx,
		bson.M{"_id": key, "value": expected},
		bson.M{"$set": bson.M{"value": next, "updated_at": at}},
	)
	if err != nil {
		return false, fmt.Errorf("clinicbill/mongo: swap sequence: %w", err)
	}
	return res.MatchedCount == 1, nil
}
