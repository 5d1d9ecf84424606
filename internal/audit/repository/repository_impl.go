package repository

import (
	"context"

	"github.com/smallbiznis/clinicbill/internal/audit/domain"
	"gorm.io/gorm"
)

type repo struct {
	db *gorm.DB
}

func Provide(db *gorm.DB) domain.Repository {
	return &repo{db: db}
}

func (r *repo) Insert(ctx context.Context, entry *domain.AuditLog) error {
	if entry == nil {
		return nil
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repo) List(ctx context.Context, filter domain.ListFilter) ([]*domain.AuditLog, error) {
	stmt := r.db.WithContext(ctx).Model(&domain.AuditLog{})

	if filter.Action != "" {
		stmt = stmt.Where("action = ?", filter.Action)
	}
	if filter.TargetType != "" {
		stmt = stmt.Where("target_type = ?", filter.TargetType)
	}
	if filter.TargetID != "" {
		stmt = stmt.Where("target_id = ?", filter.TargetID)
	}
	if filter.Cursor != nil {
		stmt = stmt.Where("(created_at < ?) OR (created_at = ? AND id < ?)",
			filter.Cursor.CreatedAt,
			filter.Cursor.CreatedAt,
			filter.Cursor.ID,
		)
	}

	stmt = stmt.Order("created_at desc, id desc")
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit + 1)
	}

	var logs []*domain.AuditLog
	if err := stmt.Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}
