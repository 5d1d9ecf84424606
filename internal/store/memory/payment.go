package memory

import (
	"context"
	"sort"

	"github.com/bwmarrin/snowflake"
	paymentdomain "github.com/smallbiznis/clinicbill/internal/payment/domain"
)

type paymentStore struct{ *Store }

func (s *paymentStore) Insert(_ context.Context, payment *paymentdomain.InvoicePayment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.paymentID[payment.ID]; exists {
		return paymentdomain.ErrDuplicatePayment
	}
	s.paymentID[payment.ID] = struct{}{}
	s.payments[payment.InvoiceID] = append(s.payments[payment.InvoiceID], *payment)
	return nil
}

func (s *paymentStore) ListByInvoice(_ context.Context, invoiceID snowflake.ID) ([]paymentdomain.InvoicePayment, error) {
	s.mu.RLock()
	out := append([]paymentdomain.InvoicePayment(nil), s.payments[invoiceID]...)
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].PaidAt.Equal(out[j].PaidAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].PaidAt.Before(out[j].PaidAt)
	})
	return out, nil
}
