package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/clinicbill/internal/payment/domain"
	"github.com/smallbiznis/clinicbill/pkg/db"
	"gorm.io/gorm"
)

type repo struct {
	db *gorm.DB
}

func Provide(conn *gorm.DB) domain.Repository {
	return &repo{db: conn}
}

func (r *repo) Insert(ctx context.Context, payment *domain.InvoicePayment) error {
	if err := r.db.WithContext(ctx).Create(payment).Error; err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.ErrDuplicatePayment
		}
		return err
	}
	return nil
}

func (r *repo) ListByInvoice(ctx context.Context, invoiceID snowflake.ID) ([]domain.InvoicePayment, error) {
	var items []domain.InvoicePayment
	err := r.db.WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		Order("paid_at asc, id asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
