package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/clinicbill/internal/payment/ledger"
	"github.com/smallbiznis/clinicbill/internal/rounding"
	seqdomain "github.com/smallbiznis/clinicbill/internal/sequence/domain"
	"github.com/smallbiznis/clinicbill/internal/totals"
	"gorm.io/datatypes"
)

// GlobalID is the id of the single settings document.
const GlobalID = "global"

// Numbering configures how invoice numbers are minted.
type Numbering struct {
	Stream           string               `json:"stream"`
	Prefix           string               `json:"prefix"`
	Separator        string               `json:"separator"`
	Reset            seqdomain.ResetScope `json:"reset"`
	Padding          int                  `json:"padding"`
	AssignOnFinalize bool                 `json:"assignOnFinalize"`
	FailFast         bool                 `json:"failFast"`
	MaxAttempts      int                  `json:"maxAttempts"`
	Backoff          time.Duration        `json:"backoff"`
}

// Request builds the allocator request for a number minted at at.
func (n Numbering) Request(at time.Time) seqdomain.Request {
	return seqdomain.Request{
		Stream:      n.Stream,
		Prefix:      n.Prefix,
		Separator:   n.Separator,
		Reset:       n.Reset,
		Padding:     n.Padding,
		At:          at,
		FailFast:    n.FailFast,
		MaxAttempts: n.MaxAttempts,
		Backoff:     n.Backoff,
	}
}

// Settings is the resolved configuration handed to the invoice engine. It is
// a value: callers receive a copy and nothing in the engine mutates it.
type Settings struct {
	BaseCurrency      string                 `json:"baseCurrency"`
	TaxRate           decimal.Decimal        `json:"taxRate"`
	ServiceChargeRate decimal.Decimal        `json:"serviceChargeRate"`
	Rounding          rounding.Config        `json:"rounding"`
	CalculationOrder  totals.Order           `json:"calculationOrder"`
	TaxableDefaults   totals.TaxableDefaults `json:"taxableDefaults"`
	Numbering         Numbering              `json:"numbering"`
	RefundPolicy      ledger.RefundPolicy    `json:"refundPolicy"`
}

func (s Settings) Validate() error {
	if len(strings.TrimSpace(s.BaseCurrency)) != 3 {
		return fmt.Errorf("%w: baseCurrency must be a 3-letter code", ErrInvalidSettings)
	}
	if s.TaxRate.IsNegative() || s.ServiceChargeRate.IsNegative() {
		return fmt.Errorf("%w: rates cannot be negative", ErrInvalidSettings)
	}
	if _, ok := totals.ParseOrder(string(s.CalculationOrder)); !ok {
		return fmt.Errorf("%w: calculationOrder %q", ErrInvalidSettings, s.CalculationOrder)
	}
	if _, ok := ledger.ParseRefundPolicy(string(s.RefundPolicy)); !ok {
		return fmt.Errorf("%w: refundPolicy %q", ErrInvalidSettings, s.RefundPolicy)
	}
	for itemType := range s.TaxableDefaults.ByType {
		if !itemType.Valid() {
			return fmt.Errorf("%w: unknown item type %q", ErrInvalidSettings, itemType)
		}
	}
	if err := s.Numbering.Request(time.Time{}).WithDefaults().Validate(); err != nil {
		return fmt.Errorf("%w: numbering: %v", ErrInvalidSettings, err)
	}
	return nil
}

// Overrides is the stored global settings document. Nil fields fall back to
// the file defaults.
type Overrides struct {
	BaseCurrency      *string                 `json:"baseCurrency,omitempty"`
	TaxRate           *decimal.Decimal        `json:"taxRate,omitempty"`
	ServiceChargeRate *decimal.Decimal        `json:"serviceChargeRate,omitempty"`
	Rounding          *RoundingOverride       `json:"rounding,omitempty"`
	CalculationOrder  *totals.Order           `json:"calculationOrder,omitempty"`
	TaxableDefaults   *totals.TaxableDefaults `json:"taxableDefaults,omitempty"`
	NumberingPrefix   *string                 `json:"numberingPrefix,omitempty"`
	NumberingReset    *seqdomain.ResetScope   `json:"numberingReset,omitempty"`
	NumberingPadding  *int                    `json:"numberingPadding,omitempty"`
	NumberingFailFast *bool                   `json:"numberingFailFast,omitempty"`
	RefundPolicy      *ledger.RefundPolicy    `json:"refundPolicy,omitempty"`
}

// RoundingOverride changes individual rounding fields; unset fields keep the
// base value.
type RoundingOverride struct {
	Mode        *rounding.Mode    `json:"mode,omitempty"`
	KHRMode     *rounding.KHRMode `json:"khrMode,omitempty"`
	USDDecimals *int              `json:"usdDecimals,omitempty"`
}

func (o RoundingOverride) apply(base rounding.Config) rounding.Config {
	out := base.Normalize()
	if o.Mode != nil {
		out.Mode = *o.Mode
	}
	if o.KHRMode != nil {
		out.KHRMode = *o.KHRMode
	}
	if o.USDDecimals != nil {
		out.USDDecimals = *o.USDDecimals
	}
	return out.Normalize()
}

// Apply layers the overrides on top of base.
func (o Overrides) Apply(base Settings) Settings {
	out := base
	if o.BaseCurrency != nil {
		out.BaseCurrency = strings.ToUpper(strings.TrimSpace(*o.BaseCurrency))
	}
	if o.TaxRate != nil {
		out.TaxRate = *o.TaxRate
	}
	if o.ServiceChargeRate != nil {
		out.ServiceChargeRate = *o.ServiceChargeRate
	}
	if o.Rounding != nil {
		out.Rounding = o.Rounding.apply(base.Rounding)
	}
	if o.CalculationOrder != nil {
		out.CalculationOrder = *o.CalculationOrder
		if order, ok := totals.ParseOrder(string(*o.CalculationOrder)); ok {
			out.CalculationOrder = order
		}
	}
	if o.TaxableDefaults != nil {
		out.TaxableDefaults = *o.TaxableDefaults
	}
	if o.NumberingPrefix != nil {
		out.Numbering.Prefix = strings.TrimSpace(*o.NumberingPrefix)
	}
	if o.NumberingReset != nil {
		out.Numbering.Reset = *o.NumberingReset
	}
	if o.NumberingPadding != nil {
		out.Numbering.Padding = *o.NumberingPadding
	}
	if o.NumberingFailFast != nil {
		out.Numbering.FailFast = *o.NumberingFailFast
	}
	if o.RefundPolicy != nil {
		out.RefundPolicy = *o.RefundPolicy
		if policy, ok := ledger.ParseRefundPolicy(string(*o.RefundPolicy)); ok {
			out.RefundPolicy = policy
		}
	}
	return out
}

// Document is the persisted form of Overrides.
type Document struct {
	ID        string         `json:"id" gorm:"primaryKey;type:varchar(64)"`
	Data      datatypes.JSON `json:"data"`
	UpdatedBy string         `json:"updatedBy" gorm:"type:text"`
	UpdatedAt time.Time      `json:"updatedAt" gorm:"not null"`
}

func (Document) TableName() string { return "settings" }
