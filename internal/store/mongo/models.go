package mongo

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	invoicedomain "github.com/smallbiznis/clinicbill/internal/invoice/domain"
	"github.com/smallbiznis/clinicbill/internal/payment/ledger"
	paymentdomain "github.com/smallbiznis/clinicbill/internal/payment/domain"
	"github.com/smallbiznis/clinicbill/internal/totals"
)

// Amounts are stored as decimal strings so no precision is lost.

type invoiceModel struct {
	ID            int64  `bson:"_id"`
	PatientID     string `bson:"patient_id"`
	Currency      string `bson:"currency"`
	DocStatus     string `bson:"doc_status"`
	PaymentStatus string `bson:"payment_status"`

	InvoiceDiscount   string  `bson:"invoice_discount"`
	TaxRate           *string `bson:"tax_rate,omitempty"`
	ServiceChargeRate *string `bson:"service_charge_rate,omitempty"`
	CalculationOrder  string  `bson:"calculation_order,omitempty"`

	LineSum             string `bson:"line_sum"`
	TaxableSum          string `bson:"taxable_sum"`
	ServiceChargeAmount string `bson:"service_charge_amount"`
	TaxAmount           string `bson:"tax_amount"`
	TotalAmount         string `bson:"total_amount"`
	PaidAmount          string `bson:"paid_amount"`
	RefundedAmount      string `bson:"refunded_amount"`
	AmountDue           string `bson:"amount_due"`

	InvoiceNo   *string `bson:"invoice_no,omitempty"`
	SequenceKey *string `bson:"sequence_key,omitempty"`

	IsArchived    bool   `bson:"is_archived"`
	ArchiveReason string `bson:"archive_reason,omitempty"`
	VoidReason    string `bson:"void_reason,omitempty"`

	CreatedBy   string     `bson:"created_by"`
	CreatedAt   time.Time  `bson:"created_at"`
	UpdatedAt   time.Time  `bson:"updated_at"`
	FinalizedAt *time.Time `bson:"finalized_at,omitempty"`
	VoidedAt    *time.Time `bson:"voided_at,omitempty"`
	PrintedAt   *time.Time `bson:"printed_at,omitempty"`
	ArchivedAt  *time.Time `bson:"archived_at,omitempty"`

	Items []itemModel `bson:"items"`
}

type itemModel struct {
	ID          int64     `bson:"id"`
	Position    int       `bson:"position"`
	Type        string    `bson:"type"`
	RefID       *string   `bson:"ref_id,omitempty"`
	Description string    `bson:"description"`
	Quantity    string    `bson:"quantity"`
	UnitPrice   string    `bson:"unit_price"`
	Discount    string    `bson:"discount"`
	Taxable     *bool     `bson:"taxable,omitempty"`
	Subtotal    string    `bson:"subtotal"`
	CreatedAt   time.Time `bson:"created_at"`
}

type paymentModel struct {
	ID        int64     `bson:"_id"`
	InvoiceID int64     `bson:"invoice_id"`
	Type      string    `bson:"type"`
	Amount    string    `bson:"amount"`
	Currency  string    `bson:"currency"`
	Method    string    `bson:"method"`
	PaidAt    time.Time `bson:"paid_at"`
	Note      *string   `bson:"note,omitempty"`
	CreatedBy string    `bson:"created_by"`
	CreatedAt time.Time `bson:"created_at"`
}

type settingsModel struct {
	ID        string    `bson:"_id"`
	Data      string    `bson:"data"`
	UpdatedBy string    `bson:"updated_by"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func toInvoiceModel(inv *invoicedomain.Invoice) *invoiceModel {
	return &invoiceModel{
		ID:                  int64(inv.ID),
		PatientID:           inv.PatientID,
		Currency:            inv.Currency,
		DocStatus:           string(inv.DocStatus),
		PaymentStatus:       string(inv.PaymentStatus),
		InvoiceDiscount:     inv.InvoiceDiscount.String(),
		TaxRate:             decimalString(inv.TaxRate),
		ServiceChargeRate:   decimalString(inv.ServiceChargeRate),
		CalculationOrder:    string(inv.CalculationOrder),
		LineSum:             inv.LineSum.String(),
		TaxableSum:          inv.TaxableSum.String(),
		ServiceChargeAmount: inv.ServiceChargeAmount.String(),
		TaxAmount:           inv.TaxAmount.String(),
		TotalAmount:         inv.TotalAmount.String(),
		PaidAmount:          inv.PaidAmount.String(),
		RefundedAmount:      inv.RefundedAmount.String(),
		AmountDue:           inv.AmountDue.String(),
		InvoiceNo:           inv.InvoiceNo,
		SequenceKey:         inv.SequenceKey,
		IsArchived:          inv.IsArchived,
		ArchiveReason:       inv.ArchiveReason,
		VoidReason:          inv.VoidReason,
		CreatedBy:           inv.CreatedBy,
		CreatedAt:           inv.CreatedAt,
		UpdatedAt:           inv.UpdatedAt,
		FinalizedAt:         inv.FinalizedAt,
		VoidedAt:            inv.VoidedAt,
		PrintedAt:           inv.PrintedAt,
		ArchivedAt:          inv.ArchivedAt,
		Items:               []itemModel{},
	}
}

func fromInvoiceModel(m *invoiceModel) (*invoicedomain.Invoice, error) {
	var p parser
	inv := &invoicedomain.Invoice{
		ID:                  snowflake.ID(m.ID),
		PatientID:           m.PatientID,
		Currency:            m.Currency,
		DocStatus:           invoicedomain.DocStatus(m.DocStatus),
		PaymentStatus:       ledger.Status(m.PaymentStatus),
		InvoiceDiscount:     p.decimal(m.InvoiceDiscount),
		TaxRate:             p.optionalDecimal(m.TaxRate),
		ServiceChargeRate:   p.optionalDecimal(m.ServiceChargeRate),
		CalculationOrder:    totals.Order(m.CalculationOrder),
		LineSum:             p.decimal(m.LineSum),
		TaxableSum:          p.decimal(m.TaxableSum),
		ServiceChargeAmount: p.decimal(m.ServiceChargeAmount),
		TaxAmount:           p.decimal(m.TaxAmount),
		TotalAmount:         p.decimal(m.TotalAmount),
		PaidAmount:          p.decimal(m.PaidAmount),
		RefundedAmount:      p.decimal(m.RefundedAmount),
		AmountDue:           p.decimal(m.AmountDue),
		InvoiceNo:           m.InvoiceNo,
		SequenceKey:         m.SequenceKey,
		IsArchived:          m.IsArchived,
		ArchiveReason:       m.ArchiveReason,
		VoidReason:          m.VoidReason,
		CreatedBy:           m.CreatedBy,
		CreatedAt:           m.CreatedAt.UTC(),
		UpdatedAt:           m.UpdatedAt.UTC(),
		FinalizedAt:         m.FinalizedAt,
		VoidedAt:            m.VoidedAt,
		PrintedAt:           m.PrintedAt,
		ArchivedAt:          m.ArchivedAt,
	}
	return inv, p.err
}

func toItemModel(item *invoicedomain.InvoiceItem) itemModel {
	return itemModel{
		ID:          int64(item.ID),
		Position:    item.Position,
		Type:        string(item.Type),
		RefID:       item.RefID,
		Description: item.Description,
		Quantity:    item.Quantity.String(),
		UnitPrice:   item.UnitPrice.String(),
		Discount:    item.Discount.String(),
		Taxable:     item.Taxable,
		Subtotal:    item.Subtotal.String(),
		CreatedAt:   item.CreatedAt,
	}
}

func fromItemModel(invoiceID int64, m itemModel) (invoicedomain.InvoiceItem, error) {
	var p parser
	item := invoicedomain.InvoiceItem{
		ID:          snowflake.ID(m.ID),
		InvoiceID:   snowflake.ID(invoiceID),
		Position:    m.Position,
		Type:        totals.ItemType(m.Type),
		RefID:       m.RefID,
		Description: m.Description,
		Quantity:    p.decimal(m.Quantity),
		UnitPrice:   p.decimal(m.UnitPrice),
		Discount:    p.decimal(m.Discount),
		Taxable:     m.Taxable,
		Subtotal:    p.decimal(m.Subtotal),
		CreatedAt:   m.CreatedAt.UTC(),
	}
	return item, p.err
}

func toPaymentModel(payment *paymentdomain.InvoicePayment) *paymentModel {
	return &paymentModel{
		ID:        int64(payment.ID),
		InvoiceID: int64(payment.InvoiceID),
		Type:      string(payment.Type),
		Amount:    payment.Amount.String(),
		Currency:  payment.Currency,
		Method:    payment.Method,
		PaidAt:    payment.PaidAt,
		Note:      payment.Note,
		CreatedBy: payment.CreatedBy,
		CreatedAt: payment.CreatedAt,
	}
}

func fromPaymentModel(m *paymentModel) (paymentdomain.InvoicePayment, error) {
	var p parser
	payment := paymentdomain.InvoicePayment{
		ID:        snowflake.ID(m.ID),
		InvoiceID: snowflake.ID(m.InvoiceID),
		Type:      ledger.EntryType(m.Type),
		Amount:    p.decimal(m.Amount),
		Currency:  m.Currency,
		Method:    m.Method,
		PaidAt:    m.PaidAt.UTC(),
		Note:      m.Note,
		CreatedBy: m.CreatedBy,
		CreatedAt: m.CreatedAt.UTC(),
	}
	return payment, p.err
}

// parser keeps the first decimal parse error.
type parser struct {
	err error
}

func (p *parser) decimal(raw string) decimal.Decimal {
	if raw == "" {
		return decimal.Zero
	}
	v, err := decimal.NewFromString(raw)
	if err != nil && p.err == nil {
		p.err = err
	}
	return v
}

func (p *parser) optionalDecimal(raw *string) *decimal.Decimal {
	if raw == nil {
		return nil
	}
	v := p.decimal(*raw)
	return &v
}

func decimalString(v *decimal.Decimal) *string {
	if v == nil {
		return nil
	}
	s := v.String()
	return &s
}

// bsonValue converts patch values that bson cannot store as-is.
func bsonValue(v any) any {
	if d, ok := v.(decimal.Decimal); ok {
		return d.String()
	}
	return v
}
