package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/clinicbill/internal/clock"
	"github.com/smallbiznis/clinicbill/internal/config"
	"github.com/smallbiznis/clinicbill/internal/payment/ledger"
	"github.com/smallbiznis/clinicbill/internal/rounding"
	seqdomain "github.com/smallbiznis/clinicbill/internal/sequence/domain"
	"github.com/smallbiznis/clinicbill/internal/settings/domain"
	settingsrepo "github.com/smallbiznis/clinicbill/internal/settings/repository"
	"github.com/smallbiznis/clinicbill/internal/totals"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func newTestService(t *testing.T, file config.InvoiceSettingsFile, ttl time.Duration) (domain.Service, domain.Repository) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Document{}))

	repo := settingsrepo.Provide(db)
	svc := NewService(Params{
		Log:    zap.NewNop(),
		Cfg:    config.Config{SettingsCacheTTL: ttl},
		Repo:   repo,
		Holder: config.NewStaticInvoiceSettingsHolder(file),
		Clock:  clock.NewFakeClock(time.Date(2025, 8, 1, 9, 0, 0, 0, time.UTC)),
	})
	return svc, repo
}

func TestGetReturnsFileDefaults(t *testing.T) {
	svc, _ := newTestService(t, config.DefaultInvoiceSettings(), 0)

	got, err := svc.Get(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "USD", got.BaseCurrency)
	assert.True(t, got.TaxRate.IsZero())
	assert.Equal(t, totals.OrderA, got.CalculationOrder)
	assert.Equal(t, ledger.PolicyAnyRefund, got.RefundPolicy)
	assert.Equal(t, rounding.KHRNearest100, got.Rounding.KHRMode)
	assert.Equal(t, seqdomain.ResetMonthly, got.Numbering.Reset)
	assert.Equal(t, "INV", got.Numbering.Prefix)
	assert.Equal(t, 25*time.Millisecond, got.Numbering.Backoff)
	assert.True(t, got.Numbering.AssignOnFinalize)
}

func TestSaveOverridesLayersOnFile(t *testing.T) {
	file := config.DefaultInvoiceSettings()
	file.TaxRate = "10"
	svc, _ := newTestService(t, file, time.Minute)
	ctx := context.Background()

	before, err := svc.Get(ctx)
	require.NoError(t, err)
	assert.True(t, before.TaxRate.Equal(decimal.NewFromInt(10)))

	orderB := totals.OrderB
	service := decimal.NewFromInt(5)
	currency := "khr"
	saved, err := svc.SaveOverrides(ctx, domain.Overrides{
		CalculationOrder:  &orderB,
		ServiceChargeRate: &service,
		BaseCurrency:      &currency,
	}, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, "KHR", saved.BaseCurrency)

	after, err := svc.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, totals.OrderB, after.CalculationOrder)
	assert.True(t, after.ServiceChargeRate.Equal(decimal.NewFromInt(5)))
	assert.True(t, after.TaxRate.Equal(decimal.NewFromInt(10)))
}

func TestSaveOverridesRejectsInvalid(t *testing.T) {
	svc, repo := newTestService(t, config.DefaultInvoiceSettings(), 0)

	negative := decimal.NewFromInt(-1)
	_, err := svc.SaveOverrides(context.Background(), domain.Overrides{TaxRate: &negative}, "admin-1")
	require.ErrorIs(t, err, domain.ErrInvalidSettings)

	doc, err := repo.Get(context.Background(), domain.GlobalID)
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestOverridesAreCached(t *testing.T) {
	svc, repo := newTestService(t, config.DefaultInvoiceSettings(), time.Hour)
	ctx := context.Background()

	_, err := svc.Get(ctx)
	require.NoError(t, err)

	orderB := totals.OrderB
	raw, err := json.Marshal(domain.Overrides{CalculationOrder: &orderB})
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, &domain.Document{ID: domain.GlobalID, Data: datatypes.JSON(raw), UpdatedAt: time.Now()}))

	got, err := svc.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, totals.OrderA, got.CalculationOrder, "cached overrides served until ttl or invalidation")
}

func TestFromFileTaxableByType(t *testing.T) {
	file := config.DefaultInvoiceSettings()
	no := false
	file.Taxable = config.TaxableFile{Default: &no, ByType: map[string]bool{"Pharmacy": true}}

	got := FromFile(file)
	assert.False(t, got.TaxableDefaults.Resolve(totals.ItemTypeLab, nil))
	assert.True(t, got.TaxableDefaults.Resolve(totals.ItemTypePharmacy, nil))
}
