package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func pay(v string) Record    { return Record{Type: EntryTypePayment, Amount: d(v)} }
func refund(v string) Record { return Record{Type: EntryTypeRefund, Amount: d(v)} }

func TestSummarize(t *testing.T) {
	cases := []struct {
		name        string
		records     []Record
		total       string
		policy      RefundPolicy
		status      Status
		outstanding string
		net         string
	}{
		{name: "partial", records: []Record{pay("60")}, total: "100", policy: PolicyAnyRefund, status: StatusPartial, outstanding: "40", net: "60"},
		{name: "paid", records: []Record{pay("100")}, total: "100", policy: PolicyAnyRefund, status: StatusPaid, outstanding: "0", net: "100"},
		{name: "overpaid", records: []Record{pay("70"), pay("50")}, total: "100", policy: PolicyAnyRefund, status: StatusPaid, outstanding: "0", net: "120"},
		{name: "unpaid", records: nil, total: "100", policy: PolicyAnyRefund, status: StatusUnpaid, outstanding: "100", net: "0"},
		{name: "any_refund_flips", records: []Record{pay("100"), refund("20")}, total: "100", policy: PolicyAnyRefund, status: StatusRefunded, outstanding: "20", net: "80"},
		{name: "net_negative_keeps_partial", records: []Record{pay("100"), refund("20")}, total: "100", policy: PolicyNetNegative, status: StatusPartial, outstanding: "20", net: "80"},
		{name: "net_negative_flips", records: []Record{pay("10"), refund("30")}, total: "100", policy: PolicyNetNegative, status: StatusRefunded, outstanding: "100", net: "-20"},
		{name: "full_refund_net_negative_is_unpaid", records: []Record{pay("50"), refund("50")}, total: "100", policy: PolicyNetNegative, status: StatusUnpaid, outstanding: "100", net: "0"},
		{name: "policy_none", records: []Record{pay("100"), refund("20")}, total: "100", policy: PolicyNone, status: StatusPartial, outstanding: "20", net: "80"},
		{name: "zero_total_no_payments", records: nil, total: "0", policy: PolicyAnyRefund, status: StatusUnpaid, outstanding: "0", net: "0"},
		{name: "ignores_non_positive", records: []Record{pay("-5"), pay("0"), pay("40")}, total: "100", policy: PolicyAnyRefund, status: StatusPartial, outstanding: "60", net: "40"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Summarize(tc.records, d(tc.total), tc.policy)
			assert.Equal(t, tc.status, got.Status)
			assert.True(t, d(tc.outstanding).Equal(got.Outstanding), "outstanding %s", got.Outstanding)
			assert.True(t, d(tc.net).Equal(got.NetAmount), "net %s", got.NetAmount)
		})
	}
}

func TestUnknownPolicyBehavesAsAnyRefund(t *testing.T) {
	got := Summarize([]Record{pay("100"), refund("1")}, d("100"), RefundPolicy("bogus"))
	assert.Equal(t, StatusRefunded, got.Status)
}

func TestSummarizeAcceptsPolicySpellings(t *testing.T) {
	for _, spelling := range []string{"net_negative", "NetNegative", " netnegative "} {
		got := Summarize([]Record{pay("100"), refund("20")}, d("100"), RefundPolicy(spelling))
		assert.Equal(t, StatusPartial, got.Status, spelling)
	}
	got := Summarize([]Record{pay("100"), refund("20")}, d("100"), RefundPolicy("NONE"))
	assert.Equal(t, StatusPartial, got.Status)
}

func TestParseRefundPolicy(t *testing.T) {
	p, ok := ParseRefundPolicy("NetNegative")
	assert.True(t, ok)
	assert.Equal(t, PolicyNetNegative, p)

	p, ok = ParseRefundPolicy("")
	assert.True(t, ok)
	assert.Equal(t, PolicyAnyRefund, p)

	_, ok = ParseRefundPolicy("sometimes")
	assert.False(t, ok)
}
