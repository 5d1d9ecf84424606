// Package rounding implements currency-aware rounding of monetary amounts.
package rounding

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Mode selects how fractional currencies are rounded at the target decimal.
type Mode string

const (
	ModeHalfUp   Mode = "half_up"
	ModeHalfEven Mode = "half_even"
	ModeFloor    Mode = "floor"
)

// KHRMode selects the increment whole-unit currencies are rounded to.
type KHRMode string

const (
	KHRNearest1   KHRMode = "nearest_1"
	KHRNearest10  KHRMode = "nearest_10"
	KHRNearest50  KHRMode = "nearest_50"
	KHRNearest100 KHRMode = "nearest_100"
)

const (
	defaultDecimals = 2
	maxDecimals     = 8
)

// WholeUnitCurrencies are settled in whole units and rounded to the configured increment.
var WholeUnitCurrencies = map[string]struct{}{
	"KHR": {},
	"JPY": {},
	"KRW": {},
	"VND": {},
}

// Config is the rounding part of the invoice settings.
type Config struct {
	Mode        Mode    `json:"mode" mapstructure:"mode"`
	KHRMode     KHRMode `json:"khrMode" mapstructure:"khrMode"`
	USDDecimals int     `json:"usdDecimals" mapstructure:"usdDecimals"`
}

// DefaultConfig rounds half-up to cents and to the nearest 100 for whole-unit currencies.
func DefaultConfig() Config {
	return Config{
		Mode:        ModeHalfUp,
		KHRMode:     KHRNearest100,
		USDDecimals: defaultDecimals,
	}
}

// Normalize replaces unknown values with defaults.
func (c Config) Normalize() Config {
	if c == (Config{}) {
		return DefaultConfig()
	}
	if mode, ok := ParseMode(string(c.Mode)); ok {
		c.Mode = mode
	} else {
		c.Mode = ModeHalfUp
	}
	if khr, ok := ParseKHRMode(string(c.KHRMode)); ok {
		c.KHRMode = khr
	} else {
		c.KHRMode = KHRNearest100
	}
	if c.USDDecimals < 0 {
		c.USDDecimals = 0
	}
	if c.USDDecimals > maxDecimals {
		c.USDDecimals = maxDecimals
	}
	return c
}

// ParseMode accepts the canonical names plus the hyphenated spellings used in settings files.
func ParseMode(raw string) (Mode, bool) {
	switch normalizeToken(raw) {
	case "half_up", "halfup":
		return ModeHalfUp, true
	case "half_even", "halfeven", "bankers":
		return ModeHalfEven, true
	case "floor":
		return ModeFloor, true
	default:
		return "", false
	}
}

// ParseKHRMode accepts nearest_1, nearest_10, nearest_50 and nearest_100.
func ParseKHRMode(raw string) (KHRMode, bool) {
	switch normalizeToken(raw) {
	case "nearest_1", "1":
		return KHRNearest1, true
	case "nearest_10", "10":
		return KHRNearest10, true
	case "nearest_50", "50":
		return KHRNearest50, true
	case "nearest_100", "100":
		return KHRNearest100, true
	default:
		return "", false
	}
}

// Increment returns the rounding step for whole-unit currencies.
func (m KHRMode) Increment() decimal.Decimal {
	switch m {
	case KHRNearest1:
		return decimal.NewFromInt(1)
	case KHRNearest10:
		return decimal.NewFromInt(10)
	case KHRNearest50:
		return decimal.NewFromInt(50)
	default:
		return decimal.NewFromInt(100)
	}
}

// IsWholeUnit reports whether currency rounds to an increment instead of decimals.
func IsWholeUnit(currency string) bool {
	_, ok := WholeUnitCurrencies[strings.ToUpper(strings.TrimSpace(currency))]
	return ok
}

// Apply rounds amount for currency. It never fails: unknown settings fall back to defaults.
func Apply(amount decimal.Decimal, currency string, cfg Config) decimal.Decimal {
	cfg = cfg.Normalize()

	if IsWholeUnit(currency) {
		step := cfg.KHRMode.Increment()
		// Increment rounding is half-up at the boundary: 150 -> 200 for nearest_100.
		return amount.Div(step).Round(0).Mul(step)
	}

	places := int32(cfg.USDDecimals)
	switch cfg.Mode {
	case ModeHalfEven:
		return amount.RoundBank(places)
	case ModeFloor:
		return amount.RoundFloor(places)
	default:
		return amount.Round(places)
	}
}

// Places returns the number of decimals amounts in currency carry after Apply.
func Places(currency string, cfg Config) int32 {
	if IsWholeUnit(currency) {
		return 0
	}
	return int32(cfg.Normalize().USDDecimals)
}

func normalizeToken(raw string) string {
	value := strings.ToLower(strings.TrimSpace(raw))
	return strings.ReplaceAll(value, "-", "_")
}
