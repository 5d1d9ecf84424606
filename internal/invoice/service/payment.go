package service

import (
	"context"
	"errors"
	"strings"

	"github.com/smallbiznis/clinicbill/internal/cache"
	invoicedomain "github.com/smallbiznis/clinicbill/internal/invoice/domain"
	obsmetrics "github.com/smallbiznis/clinicbill/internal/observability/metrics"
	"github.com/smallbiznis/clinicbill/internal/observability/tracing"
	"github.com/smallbiznis/clinicbill/internal/payment/ledger"
	paymentdomain "github.com/smallbiznis/clinicbill/internal/payment/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const defaultPaymentMethod = "cash"

// RecordPayment appends a payment or refund, reloads the whole ledger and
// persists the derived status. When redis is configured the invoice is
// leased for the duration so concurrent payments serialize.
func (s *Service) RecordPayment(ctx context.Context, invoiceID string, req invoicedomain.PaymentRequest) (result invoicedomain.PaymentResult, err error) {
	ctx, span := tracing.Start(ctx, "invoice.record_payment",
		attribute.String("invoice.id", invoiceID),
		attribute.String("payment.type", string(req.Type)),
	)
	defer func() { s.finish(span, obsmetrics.OperationPayment, err) }()

	id, err := parseID(invoiceID)
	if err != nil {
		return invoicedomain.PaymentResult{}, err
	}
	actorID, err := requireActor(req.ActorID)
	if err != nil {
		return invoicedomain.PaymentResult{}, err
	}
	if !req.Type.Valid() {
		return invoicedomain.PaymentResult{}, invoicedomain.ErrInvalidPaymentType
	}
	if !req.Amount.IsPositive() {
		return invoicedomain.PaymentResult{}, invoicedomain.ErrInvalidAmount
	}
	method := strings.ToLower(strings.TrimSpace(req.Method))
	if method == "" {
		method = defaultPaymentMethod
	}

	release, err := s.locker.Acquire(ctx, "clinicbill:invoice:payment:"+id.String())
	if err != nil {
		if errors.Is(err, cache.ErrLockNotAcquired) {
			return invoicedomain.PaymentResult{}, invoicedomain.ErrPaymentInProgress
		}
		return invoicedomain.PaymentResult{}, err
	}
	defer release()

	inv, err := s.load(ctx, id)
	if err != nil {
		return invoicedomain.PaymentResult{}, err
	}
	switch inv.DocStatus {
	case invoicedomain.DocStatusDraft:
		return invoicedomain.PaymentResult{}, invoicedomain.ErrInvoiceNotFinal
	case invoicedomain.DocStatusVoid:
		return invoicedomain.PaymentResult{}, invoicedomain.ErrInvoiceVoided
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = inv.Currency
	}
	if currency != inv.Currency {
		return invoicedomain.PaymentResult{}, invoicedomain.ErrCurrencyMismatch
	}

	now := s.clock.Now()
	paidAt := now
	if req.PaidAt != nil && !req.PaidAt.IsZero() {
		paidAt = req.PaidAt.UTC()
	}
	payment := paymentdomain.InvoicePayment{
		ID:        s.genID.Generate(),
		InvoiceID: id,
		Type:      req.Type,
		Amount:    req.Amount,
		Currency:  currency,
		Method:    method,
		PaidAt:    paidAt,
		Note:      optional(req.Note),
		CreatedBy: actorID,
		CreatedAt: now,
	}
	if err := s.payments.Insert(ctx, &payment); err != nil {
		return invoicedomain.PaymentResult{}, err
	}

	summary, err := s.applyLedger(ctx, inv)
	if err != nil {
		s.log.Error("payment stored but invoice status not updated; recompute required",
			zap.String("invoice_id", id.String()),
			zap.String("payment_id", payment.ID.String()),
			zap.Error(err),
		)
		return invoicedomain.PaymentResult{Payment: payment}, err
	}

	action := "invoice.payment_recorded"
	if payment.Type == ledger.EntryTypeRefund {
		action = "invoice.refund_recorded"
	}
	s.emitAudit(ctx, actorID, action, *inv, map[string]any{
		"payment_id": payment.ID.String(),
		"amount":     payment.Amount.String(),
		"method":     payment.Method,
	})
	s.metrics.RecordPayment(ctx, string(payment.Type), payment.Method)

	return invoicedomain.PaymentResult{Payment: payment, Invoice: *inv, Summary: summary}, nil
}

// RecomputePaymentStatus re-derives the payment fields from the ledger. It is
// the recovery path when a payment was stored but the status write failed.
func (s *Service) RecomputePaymentStatus(ctx context.Context, invoiceID, actorID string) (result invoicedomain.RecomputeResult, err error) {
	ctx, span := tracing.Start(ctx, "invoice.recompute_payment_status", attribute.String("invoice.id", invoiceID))
	defer func() { s.finish(span, obsmetrics.OperationRecompute, err) }()

	id, err := parseID(invoiceID)
	if err != nil {
		return invoicedomain.RecomputeResult{}, err
	}
	inv, err := s.load(ctx, id)
	if err != nil {
		return invoicedomain.RecomputeResult{}, err
	}
	switch inv.DocStatus {
	case invoicedomain.DocStatusDraft:
		return invoicedomain.RecomputeResult{}, invoicedomain.ErrInvoiceNotFinal
	case invoicedomain.DocStatusVoid:
		return invoicedomain.RecomputeResult{}, invoicedomain.ErrInvoiceVoided
	}

	previous := inv.PaymentStatus
	summary, err := s.applyLedger(ctx, inv)
	if err != nil {
		return invoicedomain.RecomputeResult{}, err
	}

	s.emitAudit(ctx, actorID, "invoice.payment_status_recomputed", *inv, map[string]any{
		"previous_payment_status": string(previous),
	})
	return invoicedomain.RecomputeResult{Invoice: *inv, Summary: summary}, nil
}

// applyLedger reloads every payment for inv, derives the summary and writes
// it while the invoice is still final. inv is updated in place.
func (s *Service) applyLedger(ctx context.Context, inv *invoicedomain.Invoice) (ledger.Summary, error) {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return ledger.Summary{}, err
	}
	payments, err := s.payments.ListByInvoice(ctx, inv.ID)
	if err != nil {
		return ledger.Summary{}, err
	}

	summary := ledger.Summarize(paymentdomain.Records(payments), inv.TotalAmount, settings.RefundPolicy)
	patch := invoicedomain.Patch{UpdatedAt: s.clock.Now()}
	patch.SetSummary(summary)
	if err := s.repo.Update(ctx, inv.ID, invoicedomain.DocStatusFinal, patch); err != nil {
		return ledger.Summary{}, err
	}
	patch.Apply(inv)
	return summary, nil
}
