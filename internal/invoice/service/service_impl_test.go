package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/clinicbill/internal/audit/domain"
	auditservice "github.com/smallbiznis/clinicbill/internal/audit/service"
	"github.com/smallbiznis/clinicbill/internal/clock"
	"github.com/smallbiznis/clinicbill/internal/config"
	invoicedomain "github.com/smallbiznis/clinicbill/internal/invoice/domain"
	"github.com/smallbiznis/clinicbill/internal/payment/ledger"
	paymentdomain "github.com/smallbiznis/clinicbill/internal/payment/domain"
	sequencedomain "github.com/smallbiznis/clinicbill/internal/sequence/domain"
	sequenceservice "github.com/smallbiznis/clinicbill/internal/sequence/service"
	settingsdomain "github.com/smallbiznis/clinicbill/internal/settings/domain"
	settingsservice "github.com/smallbiznis/clinicbill/internal/settings/service"
	"github.com/smallbiznis/clinicbill/internal/store/memory"
	"github.com/smallbiznis/clinicbill/internal/totals"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	svc       invoicedomain.Service
	store     *memory.Store
	clock     *clock.FakeClock
	settings  settingsdomain.Service
	sequences sequencedomain.Service
	audit     auditdomain.Service
	node      *snowflake.Node
}

func newFixture(t *testing.T, mutate func(*config.InvoiceSettingsFile)) *fixture {
	t.Helper()

	file := config.DefaultInvoiceSettings()
	if mutate != nil {
		mutate(&file)
	}

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	log := zap.NewNop()
	store := memory.New()
	clk := clock.NewFakeClock(time.Date(2025, 8, 1, 9, 0, 0, 0, time.UTC))

	audit := auditservice.NewService(auditservice.Params{Log: log, GenID: node, Repo: store.AuditLogs(), Clock: clk})
	settings := settingsservice.NewService(settingsservice.Params{
		Log:    log,
		Repo:   store.Settings(),
		Holder: config.NewStaticInvoiceSettingsHolder(file),
		Clock:  clk,
		Audit:  audit,
	})
	sequences := sequenceservice.NewService(sequenceservice.Params{Log: log, Repo: store.Sequences(), Clock: clk})

	svc := NewService(ServiceParam{
		Log:       log,
		GenID:     node,
		Clock:     clk,
		Repo:      store.Invoices(),
		Payments:  store.Payments(),
		Sequences: sequences,
		Settings:  settings,
		AuditSvc:  audit,
	})
	return &fixture{svc: svc, store: store, clock: clk, settings: settings, sequences: sequences, audit: audit, node: node}
}

func d(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msg string) {
	t.Helper()
	assert.Truef(t, d(want).Equal(got), "%s: want %s got %s", msg, want, got)
}

func boolPtr(v bool) *bool { return &v }

// newScenarioInvoice builds the two-item draft: one taxable service line and
// one non-taxable pharmacy line with a line discount.
func (f *fixture) newScenarioInvoice(t *testing.T, currency string) invoicedomain.Invoice {
	t.Helper()
	ctx := context.Background()

	inv, err := f.svc.CreateDraft(ctx, invoicedomain.CreateDraftRequest{
		PatientID:       "patient-1",
		Currency:        currency,
		InvoiceDiscount: d("10"),
		ActorID:         "cashier-1",
	})
	require.NoError(t, err)

	_, err = f.svc.AddItem(ctx, inv.ID.String(), invoicedomain.AddItemRequest{
		Type: totals.ItemTypeService, Quantity: d("1"), UnitPrice: d("50"), Taxable: boolPtr(true),
	})
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, inv.ID.String(), invoicedomain.AddItemRequest{
		Type: totals.ItemTypePharmacy, Quantity: d("2"), UnitPrice: d("25"), Discount: d("5"), Taxable: boolPtr(false),
	})
	require.NoError(t, err)
	return inv
}

// newFinalInvoice finalizes a single 100.00 USD service line.
func (f *fixture) newFinalInvoice(t *testing.T) invoicedomain.Invoice {
	t.Helper()
	ctx := context.Background()

	inv, err := f.svc.CreateDraft(ctx, invoicedomain.CreateDraftRequest{PatientID: "patient-2", Currency: "USD"})
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, inv.ID.String(), invoicedomain.AddItemRequest{
		Type: totals.ItemTypeService, Quantity: d("1"), UnitPrice: d("100"),
	})
	require.NoError(t, err)
	res, err := f.svc.Finalize(ctx, inv.ID.String(), "cashier-1")
	require.NoError(t, err)
	assertDecimal(t, "100", res.Totals.TotalAmount, "total")
	return res.Invoice
}

func scenarioSettings(file *config.InvoiceSettingsFile) {
	file.TaxRate = "10"
	file.ServiceChargeRate = "5"
	file.CalculationOrder = "A"
}

func TestFinalize_KHRScenario(t *testing.T) {
	f := newFixture(t, scenarioSettings)
	inv := f.newScenarioInvoice(t, "KHR")

	preview, err := f.svc.Preview(context.Background(), inv.ID.String())
	require.NoError(t, err)

	res, err := f.svc.Finalize(context.Background(), inv.ID.String(), "cashier-1")
	require.NoError(t, err)

	assert.Equal(t, "INV-202508-0001", res.InvoiceNo)
	assert.False(t, res.Refinalized)
	assert.Equal(t, ledger.StatusUnpaid, res.PaymentStatus)
	assertDecimal(t, "95", res.Totals.LineSum, "lineSum")
	assertDecimal(t, "85", res.Totals.AfterInvoiceDiscount, "afterInvoiceDiscount")
	assertDecimal(t, "4.25", res.Totals.ServiceChargeAmount, "serviceCharge")
	assertDecimal(t, "4.6974", res.Totals.TaxAmount, "tax")
	assertDecimal(t, "100", res.Totals.TotalAmount, "total")
	assert.True(t, preview.TotalAmount.Equal(res.Totals.TotalAmount), "preview and finalize share the calculator")

	stored, err := f.svc.GetByID(context.Background(), inv.ID.String())
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.DocStatusFinal, stored.DocStatus)
	assert.Equal(t, "INV-202508-0001", stored.Number())
	assertDecimal(t, "100", stored.TotalAmount, "stored total")
	assertDecimal(t, "100", stored.AmountDue, "amount due")
	require.NotNil(t, stored.TaxRate)
	assertDecimal(t, "10", *stored.TaxRate, "frozen tax rate")
	assert.Equal(t, totals.OrderA, stored.CalculationOrder)
	require.NotNil(t, stored.FinalizedAt)
}

func TestFinalize_IsIdempotent(t *testing.T) {
	f := newFixture(t, scenarioSettings)
	inv := f.newScenarioInvoice(t, "KHR")
	ctx := context.Background()

	first, err := f.svc.Finalize(ctx, inv.ID.String(), "cashier-1")
	require.NoError(t, err)
	second, err := f.svc.Finalize(ctx, inv.ID.String(), "cashier-1")
	require.NoError(t, err)

	assert.Equal(t, first.InvoiceNo, second.InvoiceNo)
	assert.True(t, second.Refinalized)
	assert.True(t, first.Totals.TotalAmount.Equal(second.Totals.TotalAmount))

	settings, err := f.settings.Get(ctx)
	require.NoError(t, err)
	next, err := f.sequences.Peek(ctx, settings.Numbering.Request(f.clock.Now()))
	require.NoError(t, err)
	assert.Equal(t, "INV-202508-0002", next.Number, "re-finalize must not consume a number")

	logs, err := f.audit.List(ctx, auditdomain.ListAuditLogRequest{TargetType: "invoice", TargetID: inv.ID.String(), Action: "invoice.refinalized"})
	require.NoError(t, err)
	assert.Len(t, logs.AuditLogs, 1)
}

func TestFinalize_FrozenRatesSurviveSettingsChange(t *testing.T) {
	f := newFixture(t, scenarioSettings)
	inv := f.newScenarioInvoice(t, "USD")
	ctx := context.Background()

	first, err := f.svc.Finalize(ctx, inv.ID.String(), "cashier-1")
	require.NoError(t, err)

	tax := d("20")
	orderB := totals.OrderB
	_, err = f.settings.SaveOverrides(ctx, settingsdomain.Overrides{TaxRate: &tax, CalculationOrder: &orderB}, "admin-1")
	require.NoError(t, err)

	second, err := f.svc.Finalize(ctx, inv.ID.String(), "cashier-1")
	require.NoError(t, err)
	assert.True(t, first.Totals.TaxAmount.Equal(second.Totals.TaxAmount))
	assert.Equal(t, totals.OrderA, second.Totals.Order)
}

func TestFinalize_PreconditionFailures(t *testing.T) {
	t.Run("unknown invoice", func(t *testing.T) {
		f := newFixture(t, nil)
		_, err := f.svc.Finalize(context.Background(), f.node.Generate().String(), "u")
		assert.ErrorIs(t, err, invoicedomain.ErrInvoiceNotFound)
		assert.Equal(t, invoicedomain.CategoryNotFound, invoicedomain.Category(err))
	})

	t.Run("malformed id", func(t *testing.T) {
		f := newFixture(t, nil)
		_, err := f.svc.Finalize(context.Background(), "abc", "u")
		assert.ErrorIs(t, err, invoicedomain.ErrInvalidInvoiceID)
	})

	t.Run("numbering disabled", func(t *testing.T) {
		f := newFixture(t, func(file *config.InvoiceSettingsFile) { file.Numbering.AssignOnFinalize = false })
		inv := f.newScenarioInvoice(t, "USD")

		_, err := f.svc.Finalize(context.Background(), inv.ID.String(), "u")
		assert.ErrorIs(t, err, invoicedomain.ErrNumberingDisabled)

		stored, err := f.svc.GetByID(context.Background(), inv.ID.String())
		require.NoError(t, err)
		assert.Equal(t, invoicedomain.DocStatusDraft, stored.DocStatus)
		assert.Nil(t, stored.InvoiceNo)
	})

	t.Run("void invoice", func(t *testing.T) {
		f := newFixture(t, nil)
		inv := f.newFinalInvoice(t)
		_, err := f.svc.Void(context.Background(), inv.ID.String(), "u", "duplicate")
		require.NoError(t, err)

		_, err = f.svc.Finalize(context.Background(), inv.ID.String(), "u")
		assert.ErrorIs(t, err, invoicedomain.ErrInvoiceVoided)
		assert.Equal(t, invoicedomain.CategoryState, invoicedomain.Category(err))
	})
}

func TestFinalize_ConcurrentInvoicesGetDistinctNumbers(t *testing.T) {
	f := newFixture(t, func(file *config.InvoiceSettingsFile) {
		file.Numbering.MaxAttempts = 50
		file.Numbering.BackoffMillis = 1
	})
	ctx := context.Background()

	const n = 10
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		inv := f.newScenarioInvoice(t, "USD")
		ids = append(ids, inv.ID.String())
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		numbers = make(map[string]struct{})
	)
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			res, err := f.svc.Finalize(ctx, id, "cashier-1")
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			numbers[res.InvoiceNo] = struct{}{}
			mu.Unlock()
		}(id)
	}
	wg.Wait()

	assert.Len(t, numbers, n)
	for i := 1; i <= n; i++ {
		want := sequencedomain.Format("INV-202508", "-", 4, int64(i))
		assert.Contains(t, numbers, want)
	}
}

func TestFinalize_ConcurrentSameInvoiceAssignsOneNumber(t *testing.T) {
	f := newFixture(t, nil)
	inv := f.newScenarioInvoice(t, "USD")
	ctx := context.Background()

	results := make([]invoicedomain.FinalizeResult, 2)
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.svc.Finalize(ctx, inv.ID.String(), "cashier-1")
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, results[0].InvoiceNo, results[1].InvoiceNo)

	stored, err := f.svc.GetByID(ctx, inv.ID.String())
	require.NoError(t, err)
	assert.Equal(t, results[0].InvoiceNo, stored.Number())
}

func TestRecordPayment_StatusProgression(t *testing.T) {
	f := newFixture(t, nil)
	inv := f.newFinalInvoice(t)
	ctx := context.Background()

	res, err := f.svc.RecordPayment(ctx, inv.ID.String(), invoicedomain.PaymentRequest{
		Type: ledger.EntryTypePayment, Amount: d("60"), ActorID: "cashier-1",
	})
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusPartial, res.Invoice.PaymentStatus)
	assertDecimal(t, "40", res.Invoice.AmountDue, "amount due")
	assert.Equal(t, "cash", res.Payment.Method)
	assert.NotZero(t, res.Payment.ID)

	res, err = f.svc.RecordPayment(ctx, inv.ID.String(), invoicedomain.PaymentRequest{
		Type: ledger.EntryTypePayment, Amount: d("40"), Method: "Card", ActorID: "cashier-1",
	})
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusPaid, res.Invoice.PaymentStatus)
	assertDecimal(t, "0", res.Invoice.AmountDue, "amount due")

	res, err = f.svc.RecordPayment(ctx, inv.ID.String(), invoicedomain.PaymentRequest{
		Type: ledger.EntryTypeRefund, Amount: d("20"), ActorID: "cashier-1",
	})
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusRefunded, res.Invoice.PaymentStatus)
	assertDecimal(t, "20", res.Invoice.RefundedAmount, "refunded")
	assertDecimal(t, "80", res.Invoice.PaidAmount, "net paid")
	assertDecimal(t, "20", res.Summary.Outstanding, "outstanding")

	payments, err := f.svc.ListPayments(ctx, inv.ID.String())
	require.NoError(t, err)
	assert.Len(t, payments, 3)

	logs, err := f.audit.List(ctx, auditdomain.ListAuditLogRequest{TargetID: inv.ID.String(), Action: "invoice.refund_recorded"})
	require.NoError(t, err)
	assert.Len(t, logs.AuditLogs, 1)
}

func TestRecordPayment_NetNegativePolicy(t *testing.T) {
	f := newFixture(t, func(file *config.InvoiceSettingsFile) { file.RefundPolicy = "netNegative" })
	inv := f.newFinalInvoice(t)
	ctx := context.Background()

	_, err := f.svc.RecordPayment(ctx, inv.ID.String(), invoicedomain.PaymentRequest{Type: ledger.EntryTypePayment, Amount: d("100"), ActorID: "u"})
	require.NoError(t, err)
	res, err := f.svc.RecordPayment(ctx, inv.ID.String(), invoicedomain.PaymentRequest{Type: ledger.EntryTypeRefund, Amount: d("20"), ActorID: "u"})
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusPartial, res.Invoice.PaymentStatus)
}

func TestRecordPayment_Rejections(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	final := f.newFinalInvoice(t)

	draft, err := f.svc.CreateDraft(ctx, invoicedomain.CreateDraftRequest{PatientID: "p"})
	require.NoError(t, err)

	cases := []struct {
		name      string
		invoiceID string
		req       invoicedomain.PaymentRequest
		want      error
	}{
		{"draft invoice", draft.ID.String(), invoicedomain.PaymentRequest{Type: ledger.EntryTypePayment, Amount: d("1"), ActorID: "u"}, invoicedomain.ErrInvoiceNotFinal},
		{"zero amount", final.ID.String(), invoicedomain.PaymentRequest{Type: ledger.EntryTypePayment, Amount: d("0"), ActorID: "u"}, invoicedomain.ErrInvalidAmount},
		{"negative amount", final.ID.String(), invoicedomain.PaymentRequest{Type: ledger.EntryTypeRefund, Amount: d("-5"), ActorID: "u"}, invoicedomain.ErrInvalidAmount},
		{"missing actor", final.ID.String(), invoicedomain.PaymentRequest{Type: ledger.EntryTypePayment, Amount: d("1")}, invoicedomain.ErrActorRequired},
		{"unknown type", final.ID.String(), invoicedomain.PaymentRequest{Type: "chargeback", Amount: d("1"), ActorID: "u"}, invoicedomain.ErrInvalidPaymentType},
		{"currency mismatch", final.ID.String(), invoicedomain.PaymentRequest{Type: ledger.EntryTypePayment, Amount: d("1"), Currency: "KHR", ActorID: "u"}, invoicedomain.ErrCurrencyMismatch},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.RecordPayment(ctx, tc.invoiceID, tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	payments, err := f.svc.ListPayments(ctx, final.ID.String())
	require.NoError(t, err)
	assert.Empty(t, payments, "rejected payments must not be stored")

	_, err = f.svc.Void(ctx, final.ID.String(), "u", "entered twice")
	require.NoError(t, err)
	_, err = f.svc.RecordPayment(ctx, final.ID.String(), invoicedomain.PaymentRequest{Type: ledger.EntryTypePayment, Amount: d("1"), ActorID: "u"})
	assert.ErrorIs(t, err, invoicedomain.ErrInvoiceVoided)
}

func TestRecomputePaymentStatus(t *testing.T) {
	f := newFixture(t, nil)
	inv := f.newFinalInvoice(t)
	ctx := context.Background()

	require.NoError(t, f.store.Payments().Insert(ctx, &paymentdomain.InvoicePayment{
		ID:        f.node.Generate(),
		InvoiceID: inv.ID,
		Type:      ledger.EntryTypePayment,
		Amount:    d("100"),
		Currency:  "USD",
		Method:    "cash",
		PaidAt:    f.clock.Now(),
		CreatedBy: "u",
		CreatedAt: f.clock.Now(),
	}))

	stored, err := f.svc.GetByID(ctx, inv.ID.String())
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusUnpaid, stored.PaymentStatus)

	res, err := f.svc.RecomputePaymentStatus(ctx, inv.ID.String(), "admin")
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusPaid, res.Invoice.PaymentStatus)
	assertDecimal(t, "0", res.Summary.Outstanding, "outstanding")

	again, err := f.svc.RecomputePaymentStatus(ctx, inv.ID.String(), "admin")
	require.NoError(t, err)
	assert.Equal(t, res.Invoice.PaymentStatus, again.Invoice.PaymentStatus)
}

func TestVoid(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	inv := f.newFinalInvoice(t)

	_, err := f.svc.Void(ctx, inv.ID.String(), "u", "  ")
	assert.ErrorIs(t, err, invoicedomain.ErrReasonRequired)
	_, err = f.svc.Void(ctx, inv.ID.String(), "", "duplicate")
	assert.ErrorIs(t, err, invoicedomain.ErrActorRequired)

	voided, err := f.svc.Void(ctx, inv.ID.String(), "manager-1", "duplicate")
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.DocStatusVoid, voided.DocStatus)
	assert.Equal(t, "duplicate", voided.VoidReason)
	assert.Equal(t, inv.Number(), voided.Number())
	assert.True(t, inv.TotalAmount.Equal(voided.TotalAmount))
	require.NotNil(t, voided.VoidedAt)

	_, err = f.svc.Void(ctx, inv.ID.String(), "manager-1", "again")
	assert.ErrorIs(t, err, invoicedomain.ErrInvoiceAlreadyVoid)

	draft, err := f.svc.CreateDraft(ctx, invoicedomain.CreateDraftRequest{PatientID: "p"})
	require.NoError(t, err)
	_, err = f.svc.Void(ctx, draft.ID.String(), "manager-1", "typo")
	assert.ErrorIs(t, err, invoicedomain.ErrInvoiceNotFinal)

	logs, err := f.audit.List(ctx, auditdomain.ListAuditLogRequest{TargetID: inv.ID.String(), Action: "invoice.voided"})
	require.NoError(t, err)
	require.Len(t, logs.AuditLogs, 1)
	assert.Equal(t, "duplicate", logs.AuditLogs[0].Metadata["reason"])
}

func TestSetArchivedAndMarkPrinted(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	draft, err := f.svc.CreateDraft(ctx, invoicedomain.CreateDraftRequest{PatientID: "p"})
	require.NoError(t, err)

	archived, err := f.svc.SetArchived(ctx, draft.ID.String(), "u", true, "test data")
	require.NoError(t, err)
	assert.True(t, archived.IsArchived)
	assert.Equal(t, "test data", archived.ArchiveReason)
	assert.Equal(t, invoicedomain.DocStatusDraft, archived.DocStatus)

	restored, err := f.svc.SetArchived(ctx, draft.ID.String(), "u", false, "")
	require.NoError(t, err)
	assert.False(t, restored.IsArchived)

	_, err = f.svc.MarkPrinted(ctx, draft.ID.String(), "u")
	assert.ErrorIs(t, err, invoicedomain.ErrInvoiceNotPrintable)

	final := f.newFinalInvoice(t)
	f.clock.Advance(time.Hour)
	printed, err := f.svc.MarkPrinted(ctx, final.ID.String(), "u")
	require.NoError(t, err)
	require.NotNil(t, printed.PrintedAt)
	assert.True(t, printed.PrintedAt.Equal(f.clock.Now()))
}

func TestAddItem(t *testing.T) {
	f := newFixture(t, func(file *config.InvoiceSettingsFile) { file.TaxRate = "10" })
	ctx := context.Background()

	inv, err := f.svc.CreateDraft(ctx, invoicedomain.CreateDraftRequest{PatientID: "p", Currency: "usd"})
	require.NoError(t, err)
	assert.Equal(t, "USD", inv.Currency)

	item, err := f.svc.AddItem(ctx, inv.ID.String(), invoicedomain.AddItemRequest{
		Type: totals.ItemTypeLab, Quantity: d("1"), UnitPrice: d("30"), Discount: d("50"),
	})
	require.NoError(t, err)
	assertDecimal(t, "0", item.Subtotal, "subtotal clamps at zero")
	assert.Equal(t, 1, item.Position)

	_, err = f.svc.AddItem(ctx, inv.ID.String(), invoicedomain.AddItemRequest{
		Type: totals.ItemTypeService, Quantity: d("2"), UnitPrice: d("10"),
	})
	require.NoError(t, err)

	stored, err := f.svc.GetByID(ctx, inv.ID.String())
	require.NoError(t, err)
	assertDecimal(t, "20", stored.LineSum, "preview line sum")
	assertDecimal(t, "22", stored.TotalAmount, "preview total")

	_, err = f.svc.AddItem(ctx, inv.ID.String(), invoicedomain.AddItemRequest{Type: "xray", Quantity: d("1"), UnitPrice: d("1")})
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidItemType)
	_, err = f.svc.AddItem(ctx, inv.ID.String(), invoicedomain.AddItemRequest{Type: totals.ItemTypeManual, Quantity: d("0"), UnitPrice: d("1")})
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidQuantity)

	_, err = f.svc.Finalize(ctx, inv.ID.String(), "u")
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, inv.ID.String(), invoicedomain.AddItemRequest{Type: totals.ItemTypeManual, Quantity: d("1"), UnitPrice: d("1")})
	assert.ErrorIs(t, err, invoicedomain.ErrInvoiceNotDraft)
}

func TestCreateDraftValidation(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.CreateDraft(ctx, invoicedomain.CreateDraftRequest{})
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidPatient)

	_, err = f.svc.CreateDraft(ctx, invoicedomain.CreateDraftRequest{PatientID: "p", InvoiceDiscount: d("-1")})
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidDiscount)

	rate := d("-1")
	_, err = f.svc.CreateDraft(ctx, invoicedomain.CreateDraftRequest{PatientID: "p", TaxRate: &rate})
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidRate)

	_, err = f.svc.CreateDraft(ctx, invoicedomain.CreateDraftRequest{PatientID: "p", Currency: "dollars"})
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidCurrency)
	assert.Equal(t, invoicedomain.CategoryValidation, invoicedomain.Category(err))
}

func TestListPagination(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := f.svc.CreateDraft(ctx, invoicedomain.CreateDraftRequest{PatientID: "p-list"})
		require.NoError(t, err)
	}
	_, err := f.svc.CreateDraft(ctx, invoicedomain.CreateDraftRequest{PatientID: "someone-else"})
	require.NoError(t, err)

	req := invoicedomain.ListRequest{PatientID: "p-list"}
	req.PageSize = 2
	page, err := f.svc.List(ctx, req)
	require.NoError(t, err)
	require.Len(t, page.Invoices, 2)
	assert.True(t, page.HasMore)
	assert.Greater(t, page.Invoices[0].ID, page.Invoices[1].ID)

	req.PageToken = page.NextPageToken
	page, err = f.svc.List(ctx, req)
	require.NoError(t, err)
	require.Len(t, page.Invoices, 1)
	assert.False(t, page.HasMore)

	_, err = f.svc.List(ctx, invoicedomain.ListRequest{DocStatus: "open"})
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidFilter)
}
