package repository

import (
	"context"
	"time"

	"github.com/smallbiznis/clinicbill/internal/sequence/domain"
	"github.com/smallbiznis/clinicbill/pkg/db"
	"github.com/smallbiznis/clinicbill/pkg/repository"
	"gorm.io/gorm"
)

type repo struct {
	db    *gorm.DB
	store repository.Repository[domain.Sequence]
}

func Provide(conn *gorm.DB) domain.Repository {
	return &repo{
		db:    conn,
		store: repository.ProvideStore[domain.Sequence](conn),
	}
}

func (r *repo) Find(ctx context.Context, key string) (*domain.Sequence, error) {
	return r.store.FindOne(ctx, &domain.Sequence{Key: key})
}

func (r *repo) Create(ctx context.Context, seq *domain.Sequence) error {
	if err := r.store.Create(ctx, seq); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.ErrSequenceExists
		}
		return err
	}
	return nil
}

// CompareAndSwap is a single conditional UPDATE so the database arbitrates
// concurrent writers.
func (r *repo) CompareAndSwap(ctx context.Context, key string, expected, next int64, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&domain.Sequence{}).
		Where("seq_key = ? AND value = ?", key, expected).
		Updates(map[string]any{
			"value":      next,
			"updated_at": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
