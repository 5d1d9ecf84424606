// Package memory is an in-process document store. It backs tests and
// single-node demos; every write is serialized by one mutex so conditional
// updates behave like a store with per-document atomicity.
package memory

import (
	"sync"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/clinicbill/internal/audit/domain"
	invoicedomain "github.com/smallbiznis/clinicbill/internal/invoice/domain"
	paymentdomain "github.com/smallbiznis/clinicbill/internal/payment/domain"
	sequencedomain "github.com/smallbiznis/clinicbill/internal/sequence/domain"
	settingsdomain "github.com/smallbiznis/clinicbill/internal/settings/domain"
)

type Store struct {
	mu sync.RWMutex

	invoices  map[snowflake.ID]invoicedomain.Invoice
	items     map[snowflake.ID][]invoicedomain.InvoiceItem
	payments  map[snowflake.ID][]paymentdomain.InvoicePayment
	paymentID map[snowflake.ID]struct{}
	sequences map[string]sequencedomain.Sequence
	auditLogs []auditdomain.AuditLog
	settings  map[string]settingsdomain.Document
}

func New() *Store {
	return &Store{
		invoices:  make(map[snowflake.ID]invoicedomain.Invoice),
		items:     make(map[snowflake.ID][]invoicedomain.InvoiceItem),
		payments:  make(map[snowflake.ID][]paymentdomain.InvoicePayment),
		paymentID: make(map[snowflake.ID]struct{}),
		sequences: make(map[string]sequencedomain.Sequence),
		settings:  make(map[string]settingsdomain.Document),
	}
}

func (s *Store) Invoices() invoicedomain.Repository   { return &invoiceStore{s} }
func (s *Store) Payments() paymentdomain.Repository   { return &paymentStore{s} }
func (s *Store) Sequences() sequencedomain.Repository { return &sequenceStore{s} }
func (s *Store) AuditLogs() auditdomain.Repository    { return &auditStore{s} }
func (s *Store) Settings() settingsdomain.Repository  { return &settingsStore{s} }
