package mongo

import (
	"context"
	"fmt"

	settingsdomain "github.com/smallbiznis/clinicbill/internal/settings/domain"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"gorm.io/datatypes"
)

type settingsStore struct {
	col *mongo.Collection
}

func (s *settingsStore) Get(ctx context.Context, id string) (*settingsdomain.Document, error) {
	var m settingsModel
	if err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		if isNoDocuments(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("clinicbill/mongo: get settings: %w", err)
	}
	return &settingsdomain.Document{
		ID:        m.ID,
		Data:      datatypes.JSON(m.Data),
		UpdatedBy: m.UpdatedBy,
		UpdatedAt: m.UpdatedAt.UTC(),
	}, nil
}

func (s *settingsStore) Save(ctx context.Context, doc *settingsdomain.Document) error {
	_, err := s.col.ReplaceOne(ctx,
		bson.M{"_id": doc.ID},
		settingsModel{ID: doc.ID, Data: string(doc.Data), UpdatedBy: doc.UpdatedBy, UpdatedAt: doc.UpdatedAt},
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("clinicbill/mongo: save settings: %w", err)
	}
	return nil
}
