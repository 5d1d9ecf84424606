// Package ledger derives an invoice's payment status from its append-only
// payment and refund history.
package ledger

import (
	"strings"

	"github.com/shopspring/decimal"
)

// EntryType distinguishes money received from money returned.
type EntryType string

const (
	EntryTypePayment EntryType = "payment"
	EntryTypeRefund  EntryType = "refund"
)

// Valid reports whether t is payment or refund.
func (t EntryType) Valid() bool {
	return t == EntryTypePayment || t == EntryTypeRefund
}

// Status is the payment status derived from the ledger.
type Status string

const (
	StatusUnpaid   Status = "unpaid"
	StatusPartial  Status = "partial"
	StatusPaid     Status = "paid"
	StatusRefunded Status = "refunded"
)

// Valid reports whether s is one of the derived statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusUnpaid, StatusPartial, StatusPaid, StatusRefunded:
		return true
	default:
		return false
	}
}

// RefundPolicy decides when refunds flip an invoice to refunded.
type RefundPolicy string

const (
	// PolicyAnyRefund marks the invoice refunded as soon as any refund exists.
	PolicyAnyRefund RefundPolicy = "anyRefund"
	// PolicyNetNegative marks it refunded only once refunds exceed payments.
	PolicyNetNegative RefundPolicy = "netNegative"
	// PolicyNone never derives refunded from refunds.
	PolicyNone RefundPolicy = "none"
)

// ParseRefundPolicy accepts the configured spelling case-insensitively.
func ParseRefundPolicy(value string) (RefundPolicy, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "anyrefund", "any_refund", "":
		return PolicyAnyRefund, true
	case "netnegative", "net_negative":
		return PolicyNetNegative, true
	case "none":
		return PolicyNone, true
	default:
		return PolicyAnyRefund, false
	}
}

// Record is one ledger entry as Summarize sees it.
type Record struct {
	Type   EntryType
	Amount decimal.Decimal
}

// Summary is the aggregate of an invoice's ledger. NetAmount is payments
// minus refunds.
type Summary struct {
	PaidSum     decimal.Decimal `json:"paidSum"`
	RefundedSum decimal.Decimal `json:"refundedSum"`
	NetAmount   decimal.Decimal `json:"netAmount"`
	Outstanding decimal.Decimal `json:"outstanding"`
	Status      Status          `json:"paymentStatus"`
}

// Summarize aggregates records against total. Non-positive amounts and
// unknown entry types are ignored.
func Summarize(records []Record, total decimal.Decimal, policy RefundPolicy) Summary {
	paid := decimal.Zero
	refunded := decimal.Zero
	for _, r := range records {
		if !r.Amount.IsPositive() {
			continue
		}
		switch r.Type {
		case EntryTypePayment:
			paid = paid.Add(r.Amount)
		case EntryTypeRefund:
			refunded = refunded.Add(r.Amount)
		}
	}

	net := paid.Sub(refunded)
	outstanding := total.Sub(net)
	if outstanding.IsNegative() {
		outstanding = decimal.Zero
	}

	return Summary{
		PaidSum:     paid,
		RefundedSum: refunded,
		NetAmount:   net,
		Outstanding: outstanding,
		Status:      deriveStatus(net, refunded, total, normalizePolicy(policy)),
	}
}

// normalizePolicy maps alternate spellings onto the policy constants. Unknown
// values fall back to PolicyAnyRefund.
func normalizePolicy(policy RefundPolicy) RefundPolicy {
	normalized, _ := ParseRefundPolicy(string(policy))
	return normalized
}

func deriveStatus(net, refunded, total decimal.Decimal, policy RefundPolicy) Status {
	switch policy {
	case PolicyNetNegative:
		if net.IsNegative() {
			return StatusRefunded
		}
	case PolicyNone:
	default:
		if refunded.IsPositive() {
			return StatusRefunded
		}
	}

	switch {
	case !net.IsPositive():
		return StatusUnpaid
	case net.LessThan(total):
		return StatusPartial
	default:
		return StatusPaid
	}
}
