package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/clinicbill/internal/payment/ledger"
	"github.com/smallbiznis/clinicbill/internal/totals"
)

// Patch is a partial invoice update. Nil fields are left untouched, so the
// same value can drive a SQL update, a mongo $set and the memory store.
type Patch struct {
	DocStatus     *DocStatus
	PaymentStatus *ledger.Status

	InvoiceNo   *string
	SequenceKey *string

	TaxRate           *decimal.Decimal
	ServiceChargeRate *decimal.Decimal
	CalculationOrder  *totals.Order

	LineSum             *decimal.Decimal
	TaxableSum          *decimal.Decimal
	ServiceChargeAmount *decimal.Decimal
	TaxAmount           *decimal.Decimal
	TotalAmount         *decimal.Decimal

	PaidAmount     *decimal.Decimal
	RefundedAmount *decimal.Decimal
	AmountDue      *decimal.Decimal

	IsArchived    *bool
	ArchiveReason *string
	VoidReason    *string

	FinalizedAt *time.Time
	VoidedAt    *time.Time
	PrintedAt   *time.Time
	ArchivedAt  *time.Time

	UpdatedAt time.Time
}

// SetTotals copies the computed figures onto the patch.
func (p *Patch) SetTotals(r totals.Result) {
	p.LineSum = ptr(r.LineSum)
	p.TaxableSum = ptr(r.TaxableSum)
	p.ServiceChargeAmount = ptr(r.ServiceChargeAmount)
	p.TaxAmount = ptr(r.TaxAmount)
	p.TotalAmount = ptr(r.TotalAmount)
}

// SetSummary copies the ledger aggregates onto the patch.
func (p *Patch) SetSummary(s ledger.Summary) {
	p.PaymentStatus = ptr(s.Status)
	p.PaidAmount = ptr(s.NetAmount)
	p.RefundedAmount = ptr(s.RefundedSum)
	p.AmountDue = ptr(s.Outstanding)
}

// Fields returns the column/value map of the set fields.
func (p Patch) Fields() map[string]any {
	fields := map[string]any{"updated_at": p.UpdatedAt}
	set := func(column string, ok bool, value func() any) {
		if ok {
			fields[column] = value()
		}
	}
	set("doc_status", p.DocStatus != nil, func() any { return *p.DocStatus })
	set("payment_status", p.PaymentStatus != nil, func() any { return *p.PaymentStatus })
	set("invoice_no", p.InvoiceNo != nil, func() any { return *p.InvoiceNo })
	set("sequence_key", p.SequenceKey != nil, func() any { return *p.SequenceKey })
	set("tax_rate", p.TaxRate != nil, func() any { return *p.TaxRate })
	set("service_charge_rate", p.ServiceChargeRate != nil, func() any { return *p.ServiceChargeRate })
	set("calculation_order", p.CalculationOrder != nil, func() any { return *p.CalculationOrder })
	set("line_sum", p.LineSum != nil, func() any { return *p.LineSum })
	set("taxable_sum", p.TaxableSum != nil, func() any { return *p.TaxableSum })
	set("service_charge_amount", p.ServiceChargeAmount != nil, func() any { return *p.ServiceChargeAmount })
	set("tax_amount", p.TaxAmount != nil, func() any { return *p.TaxAmount })
	set("total_amount", p.TotalAmount != nil, func() any { return *p.TotalAmount })
	set("paid_amount", p.PaidAmount != nil, func() any { return *p.PaidAmount })
	set("refunded_amount", p.RefundedAmount != nil, func() any { return *p.RefundedAmount })
	set("amount_due", p.AmountDue != nil, func() any { return *p.AmountDue })
	set("is_archived", p.IsArchived != nil, func() any { return *p.IsArchived })
	set("archive_reason", p.ArchiveReason != nil, func() any { return *p.ArchiveReason })
	set("void_reason", p.VoidReason != nil, func() any { return *p.VoidReason })
	set("finalized_at", p.FinalizedAt != nil, func() any { return *p.FinalizedAt })
	set("voided_at", p.VoidedAt != nil, func() any { return *p.VoidedAt })
	set("printed_at", p.PrintedAt != nil, func() any { return *p.PrintedAt })
	set("archived_at", p.ArchivedAt != nil, func() any { return *p.ArchivedAt })
	return fields
}

// Apply writes the set fields onto inv.
func (p Patch) Apply(inv *Invoice) {
	if p.DocStatus != nil {
		inv.DocStatus = *p.DocStatus
	}
	if p.PaymentStatus != nil {
		inv.PaymentStatus = *p.PaymentStatus
	}
	if p.InvoiceNo != nil {
		inv.InvoiceNo = ptr(*p.InvoiceNo)
	}
	if p.SequenceKey != nil {
		inv.SequenceKey = ptr(*p.SequenceKey)
	}
	if p.TaxRate != nil {
		inv.TaxRate = ptr(*p.TaxRate)
	}
	if p.ServiceChargeRate != nil {
		inv.ServiceChargeRate = ptr(*p.ServiceChargeRate)
	}
	if p.CalculationOrder != nil {
		inv.CalculationOrder = *p.CalculationOrder
	}
	if p.LineSum != nil {
		inv.LineSum = *p.LineSum
	}
	if p.TaxableSum != nil {
		inv.TaxableSum = *p.TaxableSum
	}
	if p.ServiceChargeAmount != nil {
		inv.ServiceChargeAmount = *p.ServiceChargeAmount
	}
	if p.TaxAmount != nil {
		inv.TaxAmount = *p.TaxAmount
	}
	if p.TotalAmount != nil {
		inv.TotalAmount = *p.TotalAmount
	}
	if p.PaidAmount != nil {
		inv.PaidAmount = *p.PaidAmount
	}
	if p.RefundedAmount != nil {
		inv.RefundedAmount = *p.RefundedAmount
	}
	if p.AmountDue != nil {
		inv.AmountDue = *p.AmountDue
	}
	if p.IsArchived != nil {
		inv.IsArchived = *p.IsArchived
	}
	if p.ArchiveReason != nil {
		inv.ArchiveReason = *p.ArchiveReason
	}
	if p.VoidReason != nil {
		inv.VoidReason = *p.VoidReason
	}
	if p.FinalizedAt != nil {
		inv.FinalizedAt = ptr(*p.FinalizedAt)
	}
	if p.VoidedAt != nil {
		inv.VoidedAt = ptr(*p.VoidedAt)
	}
	if p.PrintedAt != nil {
		inv.PrintedAt = ptr(*p.PrintedAt)
	}
	if p.ArchivedAt != nil {
		inv.ArchivedAt = ptr(*p.ArchivedAt)
	}
	if !p.UpdatedAt.IsZero() {
		inv.UpdatedAt = p.UpdatedAt
	}
}

func ptr[T any](v T) *T { return &v }
