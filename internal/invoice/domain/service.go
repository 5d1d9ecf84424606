package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/clinicbill/internal/payment/ledger"
	paymentdomain "github.com/smallbiznis/clinicbill/internal/payment/domain"
	sequencedomain "github.com/smallbiznis/clinicbill/internal/sequence/domain"
	settingsdomain "github.com/smallbiznis/clinicbill/internal/settings/domain"
	"github.com/smallbiznis/clinicbill/internal/totals"
	"github.com/smallbiznis/clinicbill/pkg/db/pagination"
)

type CreateDraftRequest struct {
	PatientID         string           `json:"patientId"`
	Currency          string           `json:"currency"`
	InvoiceDiscount   decimal.Decimal  `json:"invoiceDiscount"`
	TaxRate           *decimal.Decimal `json:"taxRate"`
	ServiceChargeRate *decimal.Decimal `json:"serviceChargeRate"`
	ActorID           string           `json:"userId"`
}

type AddItemRequest struct {
	Type        totals.ItemType `json:"type"`
	RefID       *string         `json:"refId"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"unit"`
	UnitPrice   decimal.Decimal `json:"price"`
	Discount    decimal.Decimal `json:"discount"`
	Taxable     *bool           `json:"taxable"`
	ActorID     string          `json:"userId"`
}

type PaymentRequest struct {
	Type     ledger.EntryType `json:"type"`
	Amount   decimal.Decimal  `json:"amount"`
	Method   string           `json:"method"`
	PaidAt   *time.Time       `json:"paidAt"`
	Note     *string          `json:"note"`
	Currency string           `json:"currency"`
	ActorID  string           `json:"userId"`
}

type ListRequest struct {
	pagination.Pagination
	PatientID     string
	DocStatus     DocStatus
	PaymentStatus ledger.Status
	Archived      *bool
}

type ListResponse struct {
	pagination.PageInfo
	Invoices []Invoice `json:"invoices"`
}

type FinalizeResult struct {
	Invoice       Invoice       `json:"invoice"`
	InvoiceNo     string        `json:"invoiceNo"`
	Totals        totals.Result `json:"totals"`
	PaymentStatus ledger.Status `json:"paymentStatus"`
	// Refinalized is true when the invoice was already final and only the
	// totals were recomputed.
	Refinalized bool `json:"refinalized"`
}

type PaymentResult struct {
	Payment paymentdomain.InvoicePayment `json:"payment"`
	Invoice Invoice                      `json:"invoice"`
	Summary ledger.Summary               `json:"summary"`
}

type RecomputeResult struct {
	Invoice Invoice        `json:"invoice"`
	Summary ledger.Summary `json:"summary"`
}

// ListFilter is an equality filter over invoices. Results are newest first;
// BeforeID continues a previous page.
type ListFilter struct {
	PatientID     string
	DocStatus     DocStatus
	PaymentStatus ledger.Status
	Archived      *bool
	BeforeID      snowflake.ID
	Limit         int
}

type Repository interface {
	Create(ctx context.Context, invoice *Invoice) error
	// FindByID returns (nil, nil) when the invoice does not exist.
	FindByID(ctx context.Context, id snowflake.ID) (*Invoice, error)
	// List returns up to filter.Limit+1 invoices.
	List(ctx context.Context, filter ListFilter) ([]*Invoice, error)
	// Update applies patch only while the invoice is still in expected status.
	// It returns ErrInvoiceStateChanged when the condition does not hold.
	Update(ctx context.Context, id snowflake.ID, expected DocStatus, patch Patch) error
	// AddItem inserts item and applies patch to its invoice, both only while
	// the invoice is a draft.
	AddItem(ctx context.Context, item *InvoiceItem, patch Patch) error
	// ListItems returns the invoice's items ordered by position.
	ListItems(ctx context.Context, invoiceID snowflake.ID) ([]InvoiceItem, error)
}

type Service interface {
	CreateDraft(ctx context.Context, req CreateDraftRequest) (Invoice, error)
	AddItem(ctx context.Context, invoiceID string, req AddItemRequest) (InvoiceItem, error)
	GetByID(ctx context.Context, invoiceID string) (Invoice, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	ListItems(ctx context.Context, invoiceID string) ([]InvoiceItem, error)
	ListPayments(ctx context.Context, invoiceID string) ([]paymentdomain.InvoicePayment, error)
	Preview(ctx context.Context, invoiceID string) (totals.Result, error)
	Finalize(ctx context.Context, invoiceID, actorID string) (FinalizeResult, error)
	RecordPayment(ctx context.Context, invoiceID string, req PaymentRequest) (PaymentResult, error)
	RecomputePaymentStatus(ctx context.Context, invoiceID, actorID string) (RecomputeResult, error)
	Void(ctx context.Context, invoiceID, actorID, reason string) (Invoice, error)
	SetArchived(ctx context.Context, invoiceID, actorID string, archived bool, reason string) (Invoice, error)
	MarkPrinted(ctx context.Context, invoiceID, actorID string) (Invoice, error)
}

var (
	ErrInvalidInvoiceID   = errors.New("invalid_invoice_id")
	ErrInvalidPatient     = errors.New("invalid_patient")
	ErrInvalidCurrency    = errors.New("invalid_currency")
	ErrInvalidDiscount    = errors.New("invalid_discount")
	ErrInvalidRate        = errors.New("invalid_rate")
	ErrInvalidItemType    = errors.New("invalid_item_type")
	ErrInvalidQuantity    = errors.New("invalid_quantity")
	ErrInvalidPrice       = errors.New("invalid_price")
	ErrInvalidPaymentType = errors.New("invalid_payment_type")
	ErrInvalidAmount      = errors.New("invalid_amount")
	ErrCurrencyMismatch   = errors.New("currency_mismatch")
	ErrActorRequired      = errors.New("actor_required")
	ErrReasonRequired     = errors.New("void_reason_required")
	ErrInvalidPageToken   = errors.New("invalid_page_token")
	ErrInvalidFilter      = errors.New("invalid_filter")

	ErrInvoiceNotDraft     = errors.New("invoice_not_draft")
	ErrInvoiceNotFinal     = errors.New("invoice_not_final")
	ErrInvoiceVoided       = errors.New("invoice_voided")
	ErrInvoiceAlreadyVoid  = errors.New("invoice_already_void")
	ErrNumberingDisabled   = errors.New("numbering_disabled")
	ErrInvoiceNotPrintable = errors.New("invoice_not_printable")

	ErrInvoiceStateChanged = errors.New("invoice_state_changed")
	ErrPaymentInProgress   = errors.New("payment_in_progress")

	ErrInvoiceNotFound = errors.New("invoice_not_found")

	// ErrDuplicateInvoiceNo is returned by stores that enforce invoice number
	// uniqueness themselves.
	ErrDuplicateInvoiceNo = errors.New("duplicate_invoice_no")
)

// ErrorCategory is the machine-readable class of a lifecycle error.
type ErrorCategory string

const (
	CategoryValidation ErrorCategory = "validation"
	CategoryState      ErrorCategory = "state"
	CategoryConflict   ErrorCategory = "conflict"
	CategoryNotFound   ErrorCategory = "not_found"
	CategoryCollision  ErrorCategory = "collision"
	CategoryInternal   ErrorCategory = "internal"
)

var categories = map[error]ErrorCategory{
	ErrInvalidInvoiceID:   CategoryValidation,
	ErrInvalidPatient:     CategoryValidation,
	ErrInvalidCurrency:    CategoryValidation,
	ErrInvalidDiscount:    CategoryValidation,
	ErrInvalidRate:        CategoryValidation,
	ErrInvalidItemType:    CategoryValidation,
	ErrInvalidQuantity:    CategoryValidation,
	ErrInvalidPrice:       CategoryValidation,
	ErrInvalidPaymentType: CategoryValidation,
	ErrInvalidAmount:      CategoryValidation,
	ErrCurrencyMismatch:   CategoryValidation,
	ErrActorRequired:      CategoryValidation,
	ErrReasonRequired:     CategoryValidation,
	ErrInvalidPageToken:   CategoryValidation,
	ErrInvalidFilter:      CategoryValidation,

	sequencedomain.ErrInvalidRequest:  CategoryValidation,
	settingsdomain.ErrInvalidSettings: CategoryInternal,

	ErrInvoiceNotDraft:     CategoryState,
	ErrInvoiceNotFinal:     CategoryState,
	ErrInvoiceVoided:       CategoryState,
	ErrInvoiceAlreadyVoid:  CategoryState,
	ErrNumberingDisabled:   CategoryState,
	ErrInvoiceNotPrintable: CategoryState,

	ErrInvoiceStateChanged: CategoryConflict,
	ErrPaymentInProgress:   CategoryConflict,

	ErrInvoiceNotFound: CategoryNotFound,

	ErrDuplicateInvoiceNo:               CategoryCollision,
	sequencedomain.ErrSequenceCollision: CategoryCollision,
}

// Category classifies err. Unknown errors are internal.
func Category(err error) ErrorCategory {
	if err == nil {
		return ""
	}
	for sentinel, category := range categories {
		if errors.Is(err, sentinel) {
			return category
		}
	}
	return CategoryInternal
}

// Code returns the sentinel text err wraps, or "internal_error".
func Code(err error) string {
	for sentinel := range categories {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return "internal_error"
}
