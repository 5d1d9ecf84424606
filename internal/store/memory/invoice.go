package memory

import (
	"context"
	"sort"

	"github.com/bwmarrin/snowflake"
	invoicedomain "github.com/smallbiznis/clinicbill/internal/invoice/domain"
)

type invoiceStore struct{ *Store }

func (s *invoiceStore) Create(_ context.Context, invoice *invoicedomain.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.invoices[invoice.ID]; exists {
		return invoicedomain.ErrInvoiceStateChanged
	}
	s.invoices[invoice.ID] = *invoice
	return nil
}

func (s *invoiceStore) FindByID(_ context.Context, id snowflake.ID) (*invoicedomain.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inv, ok := s.invoices[id]
	if !ok {
		return nil, nil
	}
	return &inv, nil
}

func (s *invoiceStore) List(_ context.Context, filter invoicedomain.ListFilter) ([]*invoicedomain.Invoice, error) {
	s.mu.RLock()
	var out []*invoicedomain.Invoice
	for _, inv := range s.invoices {
		if !matchesInvoice(inv, filter) {
			continue
		}
		out = append(out, &inv)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if filter.Limit > 0 && len(out) > filter.Limit+1 {
		out = out[:filter.Limit+1]
	}
	return out, nil
}

func (s *invoiceStore) Update(_ context.Context, id snowflake.ID, expected invoicedomain.DocStatus, patch invoicedomain.Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateLocked(id, expected, patch)
}

func (s *invoiceStore) AddItem(_ context.Context, item *invoicedomain.InvoiceItem, patch invoicedomain.Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.updateLocked(item.InvoiceID, invoicedomain.DocStatusDraft, patch); err != nil {
		return err
	}
	s.items[item.InvoiceID] = append(s.items[item.InvoiceID], *item)
	return nil
}

func (s *invoiceStore) ListItems(_ context.Context, invoiceID snowflake.ID) ([]invoicedomain.InvoiceItem, error) {
	s.mu.RLock()
	out := append([]invoicedomain.InvoiceItem(nil), s.items[invoiceID]...)
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Position == out[j].Position {
			return out[i].ID < out[j].ID
		}
		return out[i].Position < out[j].Position
	})
	return out, nil
}

func (s *invoiceStore) updateLocked(id snowflake.ID, expected invoicedomain.DocStatus, patch invoicedomain.Patch) error {
	inv, ok := s.invoices[id]
	if !ok || inv.DocStatus != expected {
		return invoicedomain.ErrInvoiceStateChanged
	}
	if patch.InvoiceNo != nil {
		for otherID, other := range s.invoices {
			if otherID != id && other.InvoiceNo != nil && *other.InvoiceNo == *patch.InvoiceNo {
				return invoicedomain.ErrDuplicateInvoiceNo
			}
		}
	}
	patch.Apply(&inv)
	s.invoices[id] = inv
	return nil
}

func matchesInvoice(inv invoicedomain.Invoice, filter invoicedomain.ListFilter) bool {
	if filter.PatientID != "" && inv.PatientID != filter.PatientID {
		return false
	}
	if filter.DocStatus != "" && inv.DocStatus != filter.DocStatus {
		return false
	}
	if filter.PaymentStatus != "" && inv.PaymentStatus != filter.PaymentStatus {
		return false
	}
	if filter.Archived != nil && inv.IsArchived != *filter.Archived {
		return false
	}
	if filter.BeforeID != 0 && inv.ID >= filter.BeforeID {
		return false
	}
	return true
}
