// Package domain contains the invoice models and lifecycle contracts.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/clinicbill/internal/payment/ledger"
	"github.com/smallbiznis/clinicbill/internal/totals"
)

// DocStatus is the document lifecycle stage.
type DocStatus string

const (
	DocStatusDraft DocStatus = "draft"
	DocStatusFinal DocStatus = "final"
	DocStatusVoid  DocStatus = "void"
)

func ParseDocStatus(value string) (DocStatus, bool) {
	switch DocStatus(value) {
	case DocStatusDraft, DocStatusFinal, DocStatusVoid:
		return DocStatus(value), true
	default:
		return "", false
	}
}

// Invoice is a patient bill. Totals on a draft are previews; they are frozen
// together with the effective rates when the invoice is finalized.
type Invoice struct {
	ID            snowflake.ID  `json:"id" gorm:"primaryKey"`
	PatientID     string        `json:"patientId" gorm:"type:varchar(64);not null;index"`
	Currency      string        `json:"currency" gorm:"type:varchar(3);not null"`
	DocStatus     DocStatus     `json:"docStatus" gorm:"type:varchar(16);not null;index"`
	PaymentStatus ledger.Status `json:"paymentStatus" gorm:"type:varchar(16);not null;index"`

	InvoiceDiscount decimal.Decimal `json:"invoiceDiscount" gorm:"type:decimal(18,4);not null;default:0"`
	// TaxRate and ServiceChargeRate are per-invoice overrides in percent.
	// Nil means the settings value at finalize time.
	TaxRate           *decimal.Decimal `json:"taxRate,omitempty" gorm:"type:decimal(9,4)"`
	ServiceChargeRate *decimal.Decimal `json:"serviceChargeRate,omitempty" gorm:"type:decimal(9,4)"`
	CalculationOrder  totals.Order     `json:"calculationOrder,omitempty" gorm:"type:varchar(1)"`

	LineSum             decimal.Decimal `json:"lineSum" gorm:"type:decimal(18,4);not null;default:0"`
	TaxableSum          decimal.Decimal `json:"taxableSum" gorm:"type:decimal(18,4);not null;default:0"`
	ServiceChargeAmount decimal.Decimal `json:"serviceChargeAmount" gorm:"type:decimal(18,4);not null;default:0"`
	TaxAmount           decimal.Decimal `json:"taxAmount" gorm:"type:decimal(18,4);not null;default:0"`
	TotalAmount         decimal.Decimal `json:"totalAmount" gorm:"type:decimal(18,4);not null;default:0"`

	PaidAmount     decimal.Decimal `json:"paidAmount" gorm:"type:decimal(18,4);not null;default:0"`
	RefundedAmount decimal.Decimal `json:"refundedAmount" gorm:"type:decimal(18,4);not null;default:0"`
	AmountDue      decimal.Decimal `json:"amountDue" gorm:"type:decimal(18,4);not null;default:0"`

	InvoiceNo   *string `json:"invoiceNo,omitempty" gorm:"type:varchar(64);uniqueIndex:ux_invoices_invoice_no"`
	SequenceKey *string `json:"sequenceKey,omitempty" gorm:"type:varchar(191)"`

	IsArchived    bool   `json:"isArchived" gorm:"not null;default:false;index"`
	ArchiveReason string `json:"archiveReason,omitempty" gorm:"type:text"`
	VoidReason    string `json:"voidReason,omitempty" gorm:"type:text"`

	CreatedBy   string     `json:"createdBy" gorm:"type:varchar(64)"`
	CreatedAt   time.Time  `json:"createdAt" gorm:"not null"`
	UpdatedAt   time.Time  `json:"updatedAt" gorm:"not null"`
	FinalizedAt *time.Time `json:"finalizedAt,omitempty"`
	VoidedAt    *time.Time `json:"voidedAt,omitempty"`
	PrintedAt   *time.Time `json:"printedAt,omitempty"`
	ArchivedAt  *time.Time `json:"archivedAt,omitempty"`
}

func (Invoice) TableName() string { return "invoices" }

// Number returns the assigned invoice number or "".
func (i Invoice) Number() string {
	if i.InvoiceNo == nil {
		return ""
	}
	return *i.InvoiceNo
}

// InvoiceItem is one billable row. Items cannot change once the invoice is
// final.
type InvoiceItem struct {
	ID          snowflake.ID    `json:"id" gorm:"primaryKey"`
	InvoiceID   snowflake.ID    `json:"invoiceId" gorm:"not null;index:idx_invoice_items_invoice,priority:1"`
	Position    int             `json:"position" gorm:"not null;index:idx_invoice_items_invoice,priority:2"`
	Type        totals.ItemType `json:"type" gorm:"type:varchar(16);not null"`
	RefID       *string         `json:"refId,omitempty" gorm:"type:varchar(64)"`
	Description string          `json:"description" gorm:"type:text"`
	Quantity    decimal.Decimal `json:"unit" gorm:"type:decimal(18,4);not null"`
	UnitPrice   decimal.Decimal `json:"price" gorm:"type:decimal(18,4);not null"`
	Discount    decimal.Decimal `json:"discount" gorm:"type:decimal(18,4);not null;default:0"`
	Taxable     *bool           `json:"taxable,omitempty"`
	Subtotal    decimal.Decimal `json:"subtotal" gorm:"type:decimal(18,4);not null"`
	CreatedAt   time.Time       `json:"createdAt" gorm:"not null"`
}

func (InvoiceItem) TableName() string { return "invoice_items" }

func (i InvoiceItem) TotalsItem() totals.Item {
	return totals.Item{
		Type:      i.Type,
		Quantity:  i.Quantity,
		UnitPrice: i.UnitPrice,
		Discount:  i.Discount,
		Taxable:   i.Taxable,
	}
}

func TotalsItems(items []InvoiceItem) []totals.Item {
	out := make([]totals.Item, 0, len(items))
	for _, item := range items {
		out = append(out, item.TotalsItem())
	}
	return out
}
