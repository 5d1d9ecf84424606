package service

import (
	"context"
	"regexp"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/clinicbill/internal/audit/domain"
	"github.com/smallbiznis/clinicbill/internal/cache"
	"github.com/smallbiznis/clinicbill/internal/clock"
	invoicedomain "github.com/smallbiznis/clinicbill/internal/invoice/domain"
	obsmetrics "github.com/smallbiznis/clinicbill/internal/observability/metrics"
	"github.com/smallbiznis/clinicbill/internal/observability/tracing"
	"github.com/smallbiznis/clinicbill/internal/payment/ledger"
	paymentdomain "github.com/smallbiznis/clinicbill/internal/payment/domain"
	sequencedomain "github.com/smallbiznis/clinicbill/internal/sequence/domain"
	settingsdomain "github.com/smallbiznis/clinicbill/internal/settings/domain"
	"github.com/smallbiznis/clinicbill/internal/totals"
	"github.com/smallbiznis/clinicbill/pkg/db/pagination"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

type ServiceParam struct {
	fx.In

	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Repo      invoicedomain.Repository
	Payments  paymentdomain.Repository
	Sequences sequencedomain.Service
	Settings  settingsdomain.Service
	AuditSvc  auditdomain.Service        `optional:"true"`
	Locker    *cache.Locker              `optional:"true"`
	Metrics   *obsmetrics.Metrics        `optional:"true"`
	Billing   *obsmetrics.BillingMetrics `optional:"true"`
}

type Service struct {
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock

	repo      invoicedomain.Repository
	payments  paymentdomain.Repository
	sequences sequencedomain.Service
	settings  settingsdomain.Service
	auditSvc  auditdomain.Service
	locker    *cache.Locker

	metrics *obsmetrics.Metrics
	billing *obsmetrics.BillingMetrics
}

func NewService(p ServiceParam) invoicedomain.Service {
	return &Service{
		log:   p.Log.Named("invoice.service"),
		genID: p.GenID,
		clock: p.Clock,

		repo:      p.Repo,
		payments:  p.Payments,
		sequences: p.Sequences,
		settings:  p.Settings,
		auditSvc:  p.AuditSvc,
		locker:    p.Locker,

		metrics: p.Metrics,
		billing: p.Billing,
	}
}

func (s *Service) CreateDraft(ctx context.Context, req invoicedomain.CreateDraftRequest) (inv invoicedomain.Invoice, err error) {
	ctx, span := tracing.Start(ctx, "invoice.create")
	defer func() { s.finish(span, obsmetrics.OperationCreateInvoice, err) }()

	patientID := strings.TrimSpace(req.PatientID)
	if patientID == "" {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvalidPatient
	}
	if req.InvoiceDiscount.IsNegative() {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvalidDiscount
	}
	if isNegative(req.TaxRate) || isNegative(req.ServiceChargeRate) {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvalidRate
	}

	settings, err := s.settings.Get(ctx)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = settings.BaseCurrency
	}
	if !currencyPattern.MatchString(currency) {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvalidCurrency
	}

	now := s.clock.Now()
	inv = invoicedomain.Invoice{
		ID:                s.genID.Generate(),
		PatientID:         patientID,
		Currency:          currency,
		DocStatus:         invoicedomain.DocStatusDraft,
		PaymentStatus:     ledger.StatusUnpaid,
		InvoiceDiscount:   req.InvoiceDiscount,
		TaxRate:           req.TaxRate,
		ServiceChargeRate: req.ServiceChargeRate,
		CreatedBy:         strings.TrimSpace(req.ActorID),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.repo.Create(ctx, &inv); err != nil {
		return invoicedomain.Invoice{}, err
	}

	s.emitAudit(ctx, req.ActorID, "invoice.created", inv, nil)
	return inv, nil
}

func (s *Service) AddItem(ctx context.Context, invoiceID string, req invoicedomain.AddItemRequest) (item invoicedomain.InvoiceItem, err error) {
	ctx, span := tracing.Start(ctx, "invoice.add_item", attribute.String("invoice.id", invoiceID))
	defer func() { s.finish(span, obsmetrics.OperationAddItem, err) }()

	id, err := parseID(invoiceID)
	if err != nil {
		return invoicedomain.InvoiceItem{}, err
	}
	if !req.Type.Valid() {
		return invoicedomain.InvoiceItem{}, invoicedomain.ErrInvalidItemType
	}
	if !req.Quantity.IsPositive() {
		return invoicedomain.InvoiceItem{}, invoicedomain.ErrInvalidQuantity
	}
	if req.UnitPrice.IsNegative() {
		return invoicedomain.InvoiceItem{}, invoicedomain.ErrInvalidPrice
	}
	if req.Discount.IsNegative() {
		return invoicedomain.InvoiceItem{}, invoicedomain.ErrInvalidDiscount
	}

	inv, err := s.load(ctx, id)
	if err != nil {
		return invoicedomain.InvoiceItem{}, err
	}
	if inv.DocStatus != invoicedomain.DocStatusDraft {
		return invoicedomain.InvoiceItem{}, invoicedomain.ErrInvoiceNotDraft
	}

	settings, err := s.settings.Get(ctx)
	if err != nil {
		return invoicedomain.InvoiceItem{}, err
	}
	items, err := s.repo.ListItems(ctx, id)
	if err != nil {
		return invoicedomain.InvoiceItem{}, err
	}

	now := s.clock.Now()
	item = invoicedomain.InvoiceItem{
		ID:          s.genID.Generate(),
		InvoiceID:   id,
		Position:    len(items) + 1,
		Type:        req.Type,
		RefID:       optional(req.RefID),
		Description: strings.TrimSpace(req.Description),
		Quantity:    req.Quantity,
		UnitPrice:   req.UnitPrice,
		Discount:    req.Discount,
		Taxable:     req.Taxable,
		Subtotal:    totals.LineSubtotal(req.Quantity, req.UnitPrice, req.Discount),
		CreatedAt:   now,
	}

	preview := totals.Compute(totalsInput(*inv, append(items, item), settings))
	patch := invoicedomain.Patch{UpdatedAt: now, AmountDue: &preview.TotalAmount}
	patch.SetTotals(preview)
	if err := s.repo.AddItem(ctx, &item, patch); err != nil {
		return invoicedomain.InvoiceItem{}, err
	}
	patch.Apply(inv)

	s.emitAudit(ctx, req.ActorID, "invoice.item_added", *inv, map[string]any{
		"item_id":   item.ID.String(),
		"item_type": string(item.Type),
		"subtotal":  item.Subtotal.String(),
	})
	return item, nil
}

func (s *Service) GetByID(ctx context.Context, invoiceID string) (invoicedomain.Invoice, error) {
	id, err := parseID(invoiceID)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	inv, err := s.load(ctx, id)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	return *inv, nil
}

func (s *Service) List(ctx context.Context, req invoicedomain.ListRequest) (invoicedomain.ListResponse, error) {
	filter := invoicedomain.ListFilter{
		PatientID: strings.TrimSpace(req.PatientID),
		Archived:  req.Archived,
		Limit:     req.Size(),
	}
	if req.DocStatus != "" {
		status, ok := invoicedomain.ParseDocStatus(string(req.DocStatus))
		if !ok {
			return invoicedomain.ListResponse{}, invoicedomain.ErrInvalidFilter
		}
		filter.DocStatus = status
	}
	if req.PaymentStatus != "" {
		if !req.PaymentStatus.Valid() {
			return invoicedomain.ListResponse{}, invoicedomain.ErrInvalidFilter
		}
		filter.PaymentStatus = req.PaymentStatus
	}
	if token := strings.TrimSpace(req.PageToken); token != "" {
		cursor, err := pagination.DecodeCursor(token)
		if err != nil {
			return invoicedomain.ListResponse{}, invoicedomain.ErrInvalidPageToken
		}
		before, err := snowflake.ParseString(strings.TrimSpace(cursor.ID))
		if err != nil || before == 0 {
			return invoicedomain.ListResponse{}, invoicedomain.ErrInvalidPageToken
		}
		filter.BeforeID = before
	}

	items, err := s.repo.List(ctx, filter)
	if err != nil {
		return invoicedomain.ListResponse{}, err
	}
	items, pageInfo := pagination.Page(items, filter.Limit, func(inv *invoicedomain.Invoice) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{ID: inv.ID.String()})
		if err != nil {
			return ""
		}
		return token
	})

	invoices := make([]invoicedomain.Invoice, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		invoices = append(invoices, *item)
	}
	return invoicedomain.ListResponse{PageInfo: pageInfo, Invoices: invoices}, nil
}

func (s *Service) ListItems(ctx context.Context, invoiceID string) ([]invoicedomain.InvoiceItem, error) {
	id, err := parseID(invoiceID)
	if err != nil {
		return nil, err
	}
	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.ListItems(ctx, id)
}

func (s *Service) ListPayments(ctx context.Context, invoiceID string) ([]paymentdomain.InvoicePayment, error) {
	id, err := parseID(invoiceID)
	if err != nil {
		return nil, err
	}
	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}
	return s.payments.ListByInvoice(ctx, id)
}

// Preview runs the totals calculator without writing anything. Final and
// void invoices use their frozen rates and order.
func (s *Service) Preview(ctx context.Context, invoiceID string) (result totals.Result, err error) {
	ctx, span := tracing.Start(ctx, "invoice.preview", attribute.String("invoice.id", invoiceID))
	defer func() { s.finish(span, obsmetrics.OperationPreview, err) }()

	id, err := parseID(invoiceID)
	if err != nil {
		return totals.Result{}, err
	}
	inv, err := s.load(ctx, id)
	if err != nil {
		return totals.Result{}, err
	}
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return totals.Result{}, err
	}
	items, err := s.repo.ListItems(ctx, id)
	if err != nil {
		return totals.Result{}, err
	}
	return totals.Compute(totalsInput(*inv, items, settings)), nil
}

func (s *Service) load(ctx context.Context, id snowflake.ID) (*invoicedomain.Invoice, error) {
	inv, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, invoicedomain.ErrInvoiceNotFound
	}
	return inv, nil
}

func (s *Service) finish(span trace.Span, operation string, err error) {
	tracing.End(span, err)
	if err != nil && invoicedomain.Category(err) != invoicedomain.CategoryValidation {
		s.billing.IncError(operation, err)
	}
}

func (s *Service) emitAudit(ctx context.Context, actorID, action string, inv invoicedomain.Invoice, extra map[string]any) {
	if s.auditSvc == nil {
		return
	}
	metadata := map[string]any{
		"doc_status":     string(inv.DocStatus),
		"payment_status": string(inv.PaymentStatus),
		"currency":       inv.Currency,
		"total_amount":   inv.TotalAmount.String(),
	}
	if inv.InvoiceNo != nil {
		metadata["invoice_no"] = *inv.InvoiceNo
	}
	for key, value := range extra {
		if key == "" {
			continue
		}
		metadata[key] = value
	}

	if err := s.auditSvc.AuditLog(ctx, auditdomain.Entry{
		ActorID:    actorID,
		Action:     action,
		TargetType: "invoice",
		TargetID:   inv.ID.String(),
		Metadata:   metadata,
	}); err != nil {
		s.log.Warn("audit write failed", zap.String("action", action), zap.String("invoice_id", inv.ID.String()), zap.Error(err))
	}
}

// totalsInput resolves the effective calculation inputs. Rates and order set
// on the invoice win over settings; finalize freezes them there.
func totalsInput(inv invoicedomain.Invoice, items []invoicedomain.InvoiceItem, settings settingsdomain.Settings) totals.Input {
	taxRate := settings.TaxRate
	if inv.TaxRate != nil {
		taxRate = *inv.TaxRate
	}
	serviceRate := settings.ServiceChargeRate
	if inv.ServiceChargeRate != nil {
		serviceRate = *inv.ServiceChargeRate
	}
	order := settings.CalculationOrder
	if inv.CalculationOrder != "" {
		order = inv.CalculationOrder
	}
	return totals.Input{
		Items:             invoicedomain.TotalsItems(items),
		InvoiceDiscount:   inv.InvoiceDiscount,
		TaxRate:           taxRate,
		ServiceChargeRate: serviceRate,
		Order:             order,
		Currency:          inv.Currency,
		Rounding:          settings.Rounding,
		TaxableDefaults:   settings.TaxableDefaults,
	}
}

func parseID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id == 0 {
		return 0, invoicedomain.ErrInvalidInvoiceID
	}
	return id, nil
}

func requireActor(actorID string) (string, error) {
	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		return "", invoicedomain.ErrActorRequired
	}
	return actorID, nil
}

func isNegative(v *decimal.Decimal) bool {
	return v != nil && v.IsNegative()
}

func optional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func ptr[T any](v T) *T { return &v }
