package service

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/clinicbill/internal/config"
	"github.com/smallbiznis/clinicbill/internal/payment/ledger"
	"github.com/smallbiznis/clinicbill/internal/rounding"
	seqdomain "github.com/smallbiznis/clinicbill/internal/sequence/domain"
	"github.com/smallbiznis/clinicbill/internal/settings/domain"
	"github.com/smallbiznis/clinicbill/internal/totals"
)

// FromFile converts the invoice.yml section into domain settings. The holder
// has already validated the file, so parse failures degrade to defaults.
func FromFile(f config.InvoiceSettingsFile) domain.Settings {
	taxRate, err := decimal.NewFromString(strings.TrimSpace(f.TaxRate))
	if err != nil {
		taxRate = decimal.Zero
	}
	serviceRate, err := decimal.NewFromString(strings.TrimSpace(f.ServiceChargeRate))
	if err != nil {
		serviceRate = decimal.Zero
	}
	order, ok := totals.ParseOrder(f.CalculationOrder)
	if !ok {
		order = totals.OrderA
	}
	policy, ok := ledger.ParseRefundPolicy(f.RefundPolicy)
	if !ok {
		policy = ledger.PolicyAnyRefund
	}
	reset, ok := seqdomain.ParseResetScope(f.Numbering.Reset)
	if !ok {
		reset = seqdomain.ResetMonthly
	}

	var byType map[totals.ItemType]bool
	if len(f.Taxable.ByType) > 0 {
		byType = make(map[totals.ItemType]bool, len(f.Taxable.ByType))
		for k, v := range f.Taxable.ByType {
			byType[totals.ItemType(strings.ToLower(strings.TrimSpace(k)))] = v
		}
	}

	return domain.Settings{
		BaseCurrency:      strings.ToUpper(strings.TrimSpace(f.BaseCurrency)),
		TaxRate:           taxRate,
		ServiceChargeRate: serviceRate,
		Rounding: rounding.Config{
			Mode:        rounding.Mode(f.Rounding.Mode),
			KHRMode:     rounding.KHRMode(f.Rounding.KHRMode),
			USDDecimals: f.Rounding.USDDecimals,
		}.Normalize(),
		CalculationOrder: order,
		TaxableDefaults: totals.TaxableDefaults{
			Default: f.Taxable.Default,
			ByType:  byType,
		},
		Numbering: domain.Numbering{
			Stream:           strings.TrimSpace(f.Numbering.Stream),
			Prefix:           strings.TrimSpace(f.Numbering.Prefix),
			Separator:        f.Numbering.Separator,
			Reset:            reset,
			Padding:          f.Numbering.Padding,
			AssignOnFinalize: f.Numbering.AssignOnFinalize,
			FailFast:         f.Numbering.FailFast,
			MaxAttempts:      f.Numbering.MaxAttempts,
			Backoff:          time.Duration(f.Numbering.BackoffMillis) * time.Millisecond,
		},
		RefundPolicy: policy,
	}
}
