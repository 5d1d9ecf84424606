package rounding

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func TestApply_WholeUnitIncrements(t *testing.T) {
	cases := []struct {
		name   string
		amount string
		mode   KHRMode
		want   string
	}{
		{name: "below half of 100", amount: "149", mode: KHRNearest100, want: "100"},
		{name: "half of 100 rounds up", amount: "150", mode: KHRNearest100, want: "200"},
		{name: "nearest 50", amount: "124.99", mode: KHRNearest50, want: "100"},
		{name: "nearest 50 boundary", amount: "125", mode: KHRNearest50, want: "150"},
		{name: "nearest 10", amount: "94.1", mode: KHRNearest10, want: "90"},
		{name: "nearest 1", amount: "93.5", mode: KHRNearest1, want: "94"},
		{name: "unknown mode uses 100", amount: "251", mode: KHRMode("weird"), want: "300"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for _, mode := range []Mode{ModeHalfUp, ModeHalfEven, ModeFloor} {
				got := Apply(d(tc.amount), "KHR", Config{Mode: mode, KHRMode: tc.mode, USDDecimals: 2})
				assert.True(t, got.Equal(d(tc.want)), "mode %s: expected %s, got %s", mode, tc.want, got)
			}
		})
	}
}

func TestApply_DecimalModes(t *testing.T) {
	cases := []struct {
		name   string
		amount string
		mode   Mode
		places int
		want   string
	}{
		{name: "half up", amount: "2.345", mode: ModeHalfUp, places: 2, want: "2.35"},
		{name: "half up negative away from zero", amount: "-2.345", mode: ModeHalfUp, places: 2, want: "-2.35"},
		{name: "half even down", amount: "2.345", mode: ModeHalfEven, places: 2, want: "2.34"},
		{name: "half even up", amount: "2.355", mode: ModeHalfEven, places: 2, want: "2.36"},
		{name: "floor", amount: "2.349", mode: ModeFloor, places: 2, want: "2.34"},
		{name: "floor negative", amount: "-2.341", mode: ModeFloor, places: 2, want: "-2.35"},
		{name: "zero decimals", amount: "10.5", mode: ModeHalfUp, places: 0, want: "11"},
		{name: "three decimals", amount: "1.0005", mode: ModeHalfUp, places: 3, want: "1.001"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Apply(d(tc.amount), "USD", Config{Mode: tc.mode, KHRMode: KHRNearest100, USDDecimals: tc.places})
			assert.True(t, got.Equal(d(tc.want)), "expected %s, got %s", tc.want, got)
		})
	}
}

func TestApply_FloatRepresentationError(t *testing.T) {
	// 1.005 is 1.00499999... as a float64; decimal input keeps it exact.
	amount := decimal.NewFromFloat(0.1).Add(decimal.NewFromFloat(0.2))
	got := Apply(amount, "USD", DefaultConfig())
	assert.True(t, got.Equal(d("0.3")), "got %s", got)

	got = Apply(d("1.005"), "USD", DefaultConfig())
	assert.True(t, got.Equal(d("1.01")), "got %s", got)
}

func TestApply_Idempotent(t *testing.T) {
	configs := []Config{
		{Mode: ModeHalfUp, KHRMode: KHRNearest100, USDDecimals: 2},
		{Mode: ModeHalfEven, KHRMode: KHRNearest50, USDDecimals: 3},
		{Mode: ModeFloor, KHRMode: KHRNearest10, USDDecimals: 0},
	}
	amounts := []string{"0", "1.005", "2.675", "-3.3333", "149", "150", "99999.995"}

	for _, cfg := range configs {
		for _, currency := range []string{"USD", "KHR"} {
			for _, raw := range amounts {
				once := Apply(d(raw), currency, cfg)
				twice := Apply(once, currency, cfg)
				assert.True(t, once.Equal(twice), "%s %s %+v: %s != %s", raw, currency, cfg, once, twice)
			}
		}
	}
}

func TestApply_ZeroConfigFallsBackToTwoDecimals(t *testing.T) {
	got := Apply(d("12.3456"), "XYZ", Config{})
	assert.True(t, got.Equal(d("12.35")), "got %s", got)
}

func TestParseMode(t *testing.T) {
	mode, ok := ParseMode("half-even")
	assert.True(t, ok)
	assert.Equal(t, ModeHalfEven, mode)

	_, ok = ParseMode("ceil")
	assert.False(t, ok)

	khr, ok := ParseKHRMode("nearest-50")
	assert.True(t, ok)
	assert.Equal(t, KHRNearest50, khr)
}
