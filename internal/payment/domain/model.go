package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/clinicbill/internal/payment/ledger"
)

// InvoicePayment is one payment or refund against an invoice. Entries are
// never edited or deleted.
type InvoicePayment struct {
	ID        snowflake.ID     `json:"id" gorm:"primaryKey"`
	InvoiceID snowflake.ID     `json:"invoiceId" gorm:"not null;index:idx_invoice_payments_invoice,priority:1"`
	Type      ledger.EntryType `json:"type" gorm:"type:text;not null"`
	Amount    decimal.Decimal  `json:"amount" gorm:"type:decimal(18,4);not null"`
	Currency  string           `json:"currency" gorm:"type:text;not null"`
	Method    string           `json:"method" gorm:"type:text;not null"`
	PaidAt    time.Time        `json:"paidAt" gorm:"not null;index:idx_invoice_payments_invoice,priority:2"`
	Note      *string          `json:"note,omitempty" gorm:"type:text"`
	CreatedBy string           `json:"createdBy" gorm:"type:text;not null"`
	CreatedAt time.Time        `json:"createdAt" gorm:"not null"`
}

func (InvoicePayment) TableName() string { return "invoice_payments" }

// Record projects the entry onto the ledger input.
func (p InvoicePayment) Record() ledger.Record {
	return ledger.Record{Type: p.Type, Amount: p.Amount}
}

// Records converts a payment history for ledger.Summarize.
func Records(payments []InvoicePayment) []ledger.Record {
	out := make([]ledger.Record, 0, len(payments))
	for _, p := range payments {
		out = append(out, p.Record())
	}
	return out
}

// Repository is append-only on purpose: there is no update or delete.
type Repository interface {
	Insert(ctx context.Context, payment *InvoicePayment) error
	// ListByInvoice returns every entry for the invoice ordered by paid_at, id.
	ListByInvoice(ctx context.Context, invoiceID snowflake.ID) ([]InvoicePayment, error)
}

var ErrDuplicatePayment = errors.New("duplicate_payment")
