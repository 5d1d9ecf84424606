package service

import (
	"context"
	"errors"
	"strings"

	invoicedomain "github.com/smallbiznis/clinicbill/internal/invoice/domain"
	obsmetrics "github.com/smallbiznis/clinicbill/internal/observability/metrics"
	"github.com/smallbiznis/clinicbill/internal/observability/tracing"
	"github.com/smallbiznis/clinicbill/internal/payment/ledger"
	paymentdomain "github.com/smallbiznis/clinicbill/internal/payment/domain"
	"github.com/smallbiznis/clinicbill/internal/totals"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Finalize moves a draft to final: totals are computed, a number is minted
// and both are written in one conditional update. Calling it on a final
// invoice only recomputes totals; the number is never re-minted.
func (s *Service) Finalize(ctx context.Context, invoiceID, actorID string) (result invoicedomain.FinalizeResult, err error) {
	ctx, span := tracing.Start(ctx, "invoice.finalize", attribute.String("invoice.id", invoiceID))
	defer func() { s.finish(span, obsmetrics.OperationFinalize, err) }()

	id, err := parseID(invoiceID)
	if err != nil {
		return invoicedomain.FinalizeResult{}, err
	}
	inv, err := s.load(ctx, id)
	if err != nil {
		return invoicedomain.FinalizeResult{}, err
	}

	switch inv.DocStatus {
	case invoicedomain.DocStatusFinal:
		return s.refinalize(ctx, *inv, actorID)
	case invoicedomain.DocStatusVoid:
		return invoicedomain.FinalizeResult{}, invoicedomain.ErrInvoiceVoided
	}

	settings, err := s.settings.Get(ctx)
	if err != nil {
		return invoicedomain.FinalizeResult{}, err
	}
	if !settings.Numbering.AssignOnFinalize {
		return invoicedomain.FinalizeResult{}, invoicedomain.ErrNumberingDisabled
	}
	items, err := s.repo.ListItems(ctx, id)
	if err != nil {
		return invoicedomain.FinalizeResult{}, err
	}

	input := totalsInput(*inv, items, settings)
	computed := totals.Compute(input)
	summary := ledger.Summarize(nil, computed.TotalAmount, settings.RefundPolicy)

	now := s.clock.Now()
	alloc, err := s.sequences.Allocate(ctx, settings.Numbering.Request(now))
	if err != nil {
		return invoicedomain.FinalizeResult{}, err
	}

	patch := invoicedomain.Patch{
		DocStatus:         ptr(invoicedomain.DocStatusFinal),
		InvoiceNo:         ptr(alloc.Number),
		SequenceKey:       ptr(alloc.Key),
		TaxRate:           ptr(input.TaxRate),
		ServiceChargeRate: ptr(input.ServiceChargeRate),
		CalculationOrder:  ptr(computed.Order),
		FinalizedAt:       ptr(now),
		UpdatedAt:         now,
	}
	patch.SetTotals(computed)
	patch.SetSummary(summary)

	if err := s.repo.Update(ctx, id, invoicedomain.DocStatusDraft, patch); err != nil {
		s.log.Warn("invoice number burned",
			zap.String("invoice_id", id.String()),
			zap.String("invoice_no", alloc.Number),
			zap.String("sequence_key", alloc.Key),
			zap.Error(err),
		)
		s.billing.IncSequenceBurned(settings.Numbering.Stream)

		if errors.Is(err, invoicedomain.ErrInvoiceStateChanged) {
			current, loadErr := s.load(ctx, id)
			if loadErr == nil && current.DocStatus == invoicedomain.DocStatusFinal {
				return s.refinalize(ctx, *current, actorID)
			}
		}
		return invoicedomain.FinalizeResult{}, err
	}
	patch.Apply(inv)

	s.emitAudit(ctx, actorID, "invoice.finalized", *inv, map[string]any{
		"calculation_order": string(computed.Order),
		"tax_amount":        computed.TaxAmount.String(),
		"service_charge":    computed.ServiceChargeAmount.String(),
		"sequence_key":      alloc.Key,
		"sequence_attempts": alloc.Attempts,
	})
	s.metrics.RecordInvoiceFinalized(ctx, inv.Currency, false)
	s.billing.IncTransition(string(invoicedomain.DocStatusDraft), string(invoicedomain.DocStatusFinal))
	s.log.Info("invoice finalized",
		zap.String("invoice_id", id.String()),
		zap.String("invoice_no", alloc.Number),
		zap.String("total_amount", computed.TotalAmount.String()),
	)

	return invoicedomain.FinalizeResult{
		Invoice:       *inv,
		InvoiceNo:     alloc.Number,
		Totals:        computed,
		PaymentStatus: inv.PaymentStatus,
	}, nil
}

func (s *Service) refinalize(ctx context.Context, inv invoicedomain.Invoice, actorID string) (invoicedomain.FinalizeResult, error) {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return invoicedomain.FinalizeResult{}, err
	}
	items, err := s.repo.ListItems(ctx, inv.ID)
	if err != nil {
		return invoicedomain.FinalizeResult{}, err
	}
	payments, err := s.payments.ListByInvoice(ctx, inv.ID)
	if err != nil {
		return invoicedomain.FinalizeResult{}, err
	}

	computed := totals.Compute(totalsInput(inv, items, settings))
	summary := ledger.Summarize(paymentdomain.Records(payments), computed.TotalAmount, settings.RefundPolicy)

	patch := invoicedomain.Patch{UpdatedAt: s.clock.Now()}
	patch.SetTotals(computed)
	patch.SetSummary(summary)
	if err := s.repo.Update(ctx, inv.ID, invoicedomain.DocStatusFinal, patch); err != nil {
		return invoicedomain.FinalizeResult{}, err
	}
	patch.Apply(&inv)

	s.emitAudit(ctx, actorID, "invoice.refinalized", inv, nil)
	s.metrics.RecordInvoiceFinalized(ctx, inv.Currency, true)

	return invoicedomain.FinalizeResult{
		Invoice:       inv,
		InvoiceNo:     inv.Number(),
		Totals:        computed,
		PaymentStatus: inv.PaymentStatus,
		Refinalized:   true,
	}, nil
}

// Void is final -> void. Totals are left as they were.
func (s *Service) Void(ctx context.Context, invoiceID, actorID, reason string) (inv invoicedomain.Invoice, err error) {
	ctx, span := tracing.Start(ctx, "invoice.void", attribute.String("invoice.id", invoiceID))
	defer func() { s.finish(span, obsmetrics.OperationVoid, err) }()

	id, err := parseID(invoiceID)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	actorID, err = requireActor(actorID)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return invoicedomain.Invoice{}, invoicedomain.ErrReasonRequired
	}

	current, err := s.load(ctx, id)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	switch current.DocStatus {
	case invoicedomain.DocStatusDraft:
		return invoicedomain.Invoice{}, invoicedomain.ErrInvoiceNotFinal
	case invoicedomain.DocStatusVoid:
		return invoicedomain.Invoice{}, invoicedomain.ErrInvoiceAlreadyVoid
	}

	now := s.clock.Now()
	patch := invoicedomain.Patch{
		DocStatus:  ptr(invoicedomain.DocStatusVoid),
		VoidReason: ptr(reason),
		VoidedAt:   ptr(now),
		UpdatedAt:  now,
	}
	if err := s.repo.Update(ctx, id, invoicedomain.DocStatusFinal, patch); err != nil {
		return invoicedomain.Invoice{}, err
	}
	patch.Apply(current)

	s.emitAudit(ctx, actorID, "invoice.voided", *current, map[string]any{
		"previous_status": string(invoicedomain.DocStatusFinal),
		"reason":          reason,
	})
	s.metrics.RecordInvoiceVoided(ctx, string(invoicedomain.DocStatusFinal))
	s.billing.IncTransition(string(invoicedomain.DocStatusFinal), string(invoicedomain.DocStatusVoid))
	return *current, nil
}

// SetArchived toggles the archive flag. It is allowed in every status.
func (s *Service) SetArchived(ctx context.Context, invoiceID, actorID string, archived bool, reason string) (inv invoicedomain.Invoice, err error) {
	ctx, span := tracing.Start(ctx, "invoice.archive", attribute.String("invoice.id", invoiceID), attribute.Bool("invoice.archived", archived))
	defer func() { s.finish(span, obsmetrics.OperationArchive, err) }()

	id, err := parseID(invoiceID)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	actorID, err = requireActor(actorID)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	current, err := s.load(ctx, id)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	now := s.clock.Now()
	reason = strings.TrimSpace(reason)
	patch := invoicedomain.Patch{
		IsArchived:    ptr(archived),
		ArchiveReason: ptr(reason),
		UpdatedAt:     now,
	}
	if archived {
		patch.ArchivedAt = ptr(now)
	}
	if err := s.repo.Update(ctx, id, current.DocStatus, patch); err != nil {
		return invoicedomain.Invoice{}, err
	}
	patch.Apply(current)

	action := "invoice.unarchived"
	if archived {
		action = "invoice.archived"
	}
	var extra map[string]any
	if reason != "" {
		extra = map[string]any{"reason": reason}
	}
	s.emitAudit(ctx, actorID, action, *current, extra)
	return *current, nil
}

// MarkPrinted stamps the print time on a final or void invoice.
func (s *Service) MarkPrinted(ctx context.Context, invoiceID, actorID string) (inv invoicedomain.Invoice, err error) {
	ctx, span := tracing.Start(ctx, "invoice.print", attribute.String("invoice.id", invoiceID))
	defer func() { s.finish(span, obsmetrics.OperationPrint, err) }()

	id, err := parseID(invoiceID)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	current, err := s.load(ctx, id)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	if current.DocStatus == invoicedomain.DocStatusDraft {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvoiceNotPrintable
	}

	now := s.clock.Now()
	patch := invoicedomain.Patch{PrintedAt: ptr(now), UpdatedAt: now}
	if err := s.repo.Update(ctx, id, current.DocStatus, patch); err != nil {
		return invoicedomain.Invoice{}, err
	}
	patch.Apply(current)

	s.emitAudit(ctx, actorID, "invoice.printed", *current, nil)
	return *current, nil
}
