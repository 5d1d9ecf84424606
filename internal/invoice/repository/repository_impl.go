package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/clinicbill/internal/invoice/domain"
	"github.com/smallbiznis/clinicbill/pkg/db"
	"github.com/smallbiznis/clinicbill/pkg/db/option"
	"github.com/smallbiznis/clinicbill/pkg/repository"
	"gorm.io/gorm"
)

type repo struct {
	db    *gorm.DB
	store repository.Repository[domain.Invoice]
	items repository.Repository[domain.InvoiceItem]
}

func Provide(conn *gorm.DB) domain.Repository {
	return &repo{
		db:    conn,
		store: repository.ProvideStore[domain.Invoice](conn),
		items: repository.ProvideStore[domain.InvoiceItem](conn),
	}
}

func (r *repo) Create(ctx context.Context, invoice *domain.Invoice) error {
	return r.store.Create(ctx, invoice)
}

func (r *repo) FindByID(ctx context.Context, id snowflake.ID) (*domain.Invoice, error) {
	return r.store.FindOne(ctx, &domain.Invoice{ID: id})
}

func (r *repo) List(ctx context.Context, filter domain.ListFilter) ([]*domain.Invoice, error) {
	stmt := r.db.WithContext(ctx).Model(&domain.Invoice{})

	if filter.PatientID != "" {
		stmt = stmt.Where("patient_id = ?", filter.PatientID)
	}
	if filter.DocStatus != "" {
		stmt = stmt.Where("doc_status = ?", filter.DocStatus)
	}
	if filter.PaymentStatus != "" {
		stmt = stmt.Where("payment_status = ?", filter.PaymentStatus)
	}
	if filter.Archived != nil {
		stmt = stmt.Where("is_archived = ?", *filter.Archived)
	}
	if filter.BeforeID != 0 {
		stmt = stmt.Where("id < ?", filter.BeforeID)
	}

	stmt = stmt.Order("id desc")
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit + 1)
	}

	var invoices []*domain.Invoice
	if err := stmt.Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *repo) Update(ctx context.Context, id snowflake.ID, expected domain.DocStatus, patch domain.Patch) error {
	return updateWhere(ctx, r.db, id, expected, patch)
}

func (r *repo) AddItem(ctx context.Context, item *domain.InvoiceItem, patch domain.Patch) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := updateWhere(ctx, tx, item.InvoiceID, domain.DocStatusDraft, patch); err != nil {
			return err
		}
		return r.items.WithTrx(tx).Create(ctx, item)
	})
}

func (r *repo) ListItems(ctx context.Context, invoiceID snowflake.ID) ([]domain.InvoiceItem, error) {
	rows, err := r.items.Find(ctx, &domain.InvoiceItem{InvoiceID: invoiceID},
		option.WithOrder("position asc, id asc"),
	)
	if err != nil {
		return nil, err
	}
	items := make([]domain.InvoiceItem, 0, len(rows))
	for _, row := range rows {
		if row != nil {
			items = append(items, *row)
		}
	}
	return items, nil
}

// updateWhere is the conditional write behind every transition: it only
// touches the row while doc_status still equals expected.
func updateWhere(ctx context.Context, conn *gorm.DB, id snowflake.ID, expected domain.DocStatus, patch domain.Patch) error {
	result := conn.WithContext(ctx).
		Model(&domain.Invoice{}).
		Where("id = ? AND doc_status = ?", id, expected).
		Updates(patch.Fields())
	if result.Error != nil {
		if db.IsDuplicateKeyErr(result.Error) {
			return domain.ErrDuplicateInvoiceNo
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrInvoiceStateChanged
	}
	return nil
}
