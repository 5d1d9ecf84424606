// Package totals computes invoice line subtotals and invoice-level amounts.
//
// Compute is pure: previews and finalization call it with the same inputs and
// must get the same figures back.
package totals

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/clinicbill/internal/rounding"
)

// Order selects the sequence in which discount, service charge and tax apply.
type Order string

const (
	// OrderA applies the invoice discount, then service charge, then tax on the
	// taxable share of the discounted amount.
	OrderA Order = "A"
	// OrderB taxes the taxable subtotal first, then applies the invoice discount
	// and the service charge.
	OrderB Order = "B"
)

// ParseOrder accepts "A"/"B" in any case.
func ParseOrder(raw string) (Order, bool) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case string(OrderA):
		return OrderA, true
	case string(OrderB):
		return OrderB, true
	default:
		return "", false
	}
}

// ItemType tags the origin of a billable line.
type ItemType string

const (
	ItemTypeLab      ItemType = "lab"
	ItemTypeService  ItemType = "service"
	ItemTypePharmacy ItemType = "pharmacy"
	ItemTypeManual   ItemType = "manual"
)

// Valid reports whether t is one of the known item types.
func (t ItemType) Valid() bool {
	switch t {
	case ItemTypeLab, ItemTypeService, ItemTypePharmacy, ItemTypeManual:
		return true
	default:
		return false
	}
}

// lineScale is the precision intermediate amounts are kept at before the
// final currency rounding.
const lineScale = 4

var hundred = decimal.NewFromInt(100)

// TaxableDefaults resolves the taxable flag for items that do not override it.
type TaxableDefaults struct {
	Default *bool             `json:"default,omitempty"`
	ByType  map[ItemType]bool `json:"byType,omitempty"`
}

// Resolve applies item override, then per-type setting, then the global
// default, then the built-in type default (lab is not taxable).
func (d TaxableDefaults) Resolve(itemType ItemType, override *bool) bool {
	if override != nil {
		return *override
	}
	if v, ok := d.ByType[itemType]; ok {
		return v
	}
	if d.Default != nil {
		return *d.Default
	}
	return itemType != ItemTypeLab
}

// Item is the calculator's view of an invoice line.
type Item struct {
	Type      ItemType
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
	Discount  decimal.Decimal
	Taxable   *bool
}

// Input carries everything Compute needs. Rates are percentages.
type Input struct {
	Items             []Item
	InvoiceDiscount   decimal.Decimal
	TaxRate           decimal.Decimal
	ServiceChargeRate decimal.Decimal
	Order             Order
	Currency          string
	Rounding          rounding.Config
	TaxableDefaults   TaxableDefaults
}

// Line is the computed view of one item.
type Line struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Taxable  bool            `json:"taxable"`
}

// Result holds the invoice-level figures. AfterInvoiceDiscount is the
// service charge base; in order B it already includes tax.
type Result struct {
	LineSum              decimal.Decimal `json:"lineSum"`
	TaxableSum           decimal.Decimal `json:"taxableSum"`
	InvoiceDiscount      decimal.Decimal `json:"invoiceDiscount"`
	AfterInvoiceDiscount decimal.Decimal `json:"afterInvoiceDiscount"`
	ServiceChargeAmount  decimal.Decimal `json:"serviceChargeAmount"`
	TaxAmount            decimal.Decimal `json:"taxAmount"`
	TotalAmount          decimal.Decimal `json:"totalAmount"`
	Order                Order           `json:"order"`
	Lines                []Line          `json:"lines,omitempty"`
}

// LineSubtotal returns max(0, quantity*price - discount).
func LineSubtotal(quantity, price, discount decimal.Decimal) decimal.Decimal {
	return clampZero(quantity.Mul(price).Sub(clampZero(discount)))
}

// Compute runs the totals algorithm. Negative discounts and rates are treated as zero.
func Compute(in Input) Result {
	order := in.Order
	if _, ok := ParseOrder(string(order)); !ok {
		order = OrderA
	}
	res := Result{
		LineSum:              decimal.Zero,
		TaxableSum:           decimal.Zero,
		InvoiceDiscount:      decimal.Zero,
		AfterInvoiceDiscount: decimal.Zero,
		ServiceChargeAmount:  decimal.Zero,
		TaxAmount:            decimal.Zero,
		TotalAmount:          decimal.Zero,
		Order:                order,
	}
	if len(in.Items) == 0 {
		return res
	}

	res.Lines = make([]Line, 0, len(in.Items))
	for _, item := range in.Items {
		subtotal := LineSubtotal(item.Quantity, item.UnitPrice, item.Discount)
		taxable := in.TaxableDefaults.Resolve(item.Type, item.Taxable)
		res.Lines = append(res.Lines, Line{Subtotal: subtotal, Taxable: taxable})

		res.LineSum = res.LineSum.Add(subtotal)
		if taxable {
			res.TaxableSum = res.TaxableSum.Add(subtotal)
		}
	}

	discount := clampZero(in.InvoiceDiscount)
	res.InvoiceDiscount = discount

	taxRate := percent(in.TaxRate)
	serviceRate := percent(in.ServiceChargeRate)

	var serviceCharge, tax decimal.Decimal
	switch order {
	case OrderB:
		tax = lineRound(res.TaxableSum.Mul(taxRate))
		afterTax := res.LineSum.Add(tax)
		res.AfterInvoiceDiscount = clampZero(afterTax.Sub(discount))
		serviceCharge = lineRound(res.AfterInvoiceDiscount.Mul(serviceRate))
	default:
		res.AfterInvoiceDiscount = clampZero(res.LineSum.Sub(discount))
		serviceCharge = lineRound(res.AfterInvoiceDiscount.Mul(serviceRate))
		taxBase := decimal.Zero
		if res.LineSum.IsPositive() {
			taxBase = res.AfterInvoiceDiscount.Add(serviceCharge).Mul(res.TaxableSum).Div(res.LineSum)
		}
		tax = lineRound(taxBase.Mul(taxRate))
	}

	serviceCharge = componentRound(serviceCharge, in.Currency, in.Rounding)
	tax = componentRound(tax, in.Currency, in.Rounding)

	res.ServiceChargeAmount = serviceCharge
	res.TaxAmount = tax
	total := clampZero(res.LineSum.Sub(discount).Add(serviceCharge).Add(tax))
	res.TotalAmount = rounding.Apply(total, in.Currency, in.Rounding)
	return res
}

// componentRound rounds service charge and tax to the currency precision so the
// stored components add up to the total. Whole-unit currencies keep line
// precision; only the payable total is rounded to the cash increment.
func componentRound(v decimal.Decimal, currency string, cfg rounding.Config) decimal.Decimal {
	if rounding.IsWholeUnit(currency) {
		return v
	}
	return rounding.Apply(v, currency, cfg)
}

func percent(rate decimal.Decimal) decimal.Decimal {
	return clampZero(rate).Div(hundred)
}

func lineRound(v decimal.Decimal) decimal.Decimal {
	return v.Round(lineScale)
}

func clampZero(v decimal.Decimal) decimal.Decimal {
	if v.IsNegative() {
		return decimal.Zero
	}
	return v
}
