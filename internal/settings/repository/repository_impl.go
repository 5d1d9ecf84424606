package repository

import (
	"context"

	"github.com/smallbiznis/clinicbill/internal/settings/domain"
	"github.com/smallbiznis/clinicbill/pkg/repository"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct {
	db    *gorm.DB
	store repository.Repository[domain.Document]
}

func Provide(db *gorm.DB) domain.Repository {
	return &repo{
		db:    db,
		store: repository.ProvideStore[domain.Document](db),
	}
}

func (r *repo) Get(ctx context.Context, id string) (*domain.Document, error) {
	return r.store.FindOne(ctx, &domain.Document{ID: id})
}

func (r *repo) Save(ctx context.Context, doc *domain.Document) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "updated_by", "updated_at"}),
	}).Create(doc).Error
}
