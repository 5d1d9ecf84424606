package domain

import (
	"fmt"
	"strings"
	"time"
)

type ResetScope string

const (
	ResetGlobal  ResetScope = "global"
	ResetMonthly ResetScope = "monthly"
	ResetYearly  ResetScope = "yearly"
)

func ParseResetScope(value string) (ResetScope, bool) {
	switch ResetScope(strings.ToLower(strings.TrimSpace(value))) {
	case ResetGlobal:
		return ResetGlobal, true
	case ResetMonthly, "":
		return ResetMonthly, true
	case ResetYearly:
		return ResetYearly, true
	default:
		return ResetMonthly, false
	}
}

// Sequence is a per-scope counter. Value is the last number issued.
type Sequence struct {
	Key       string    `json:"key" gorm:"column:seq_key;primaryKey;type:varchar(191)"`
	Stream    string    `json:"stream" gorm:"type:varchar(64);not null"`
	ScopeKey  string    `json:"scopeKey" gorm:"type:varchar(128);not null"`
	Value     int64     `json:"value" gorm:"not null;default:0"`
	CreatedAt time.Time `json:"createdAt" gorm:"not null"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"not null"`
}

func (Sequence) TableName() string { return "sequences" }

const (
	DefaultSeparator   = "-"
	DefaultPadding     = 4
	DefaultMaxAttempts = 5
	DefaultBackoff     = 25 * time.Millisecond
)

type Request struct {
	Stream    string
	Prefix    string
	Separator string
	Reset     ResetScope
	Padding   int
	// At selects the scope bucket. Zero means now.
	At time.Time
	// FailFast allows a single compare-and-swap attempt.
	FailFast    bool
	MaxAttempts int
	// Backoff is multiplied by the attempt number between retries.
	Backoff time.Duration
}

// WithDefaults fills unset fields.
func (r Request) WithDefaults() Request {
	r.Stream = strings.TrimSpace(r.Stream)
	if r.Stream == "" {
		r.Stream = "invoice"
	}
	r.Prefix = strings.TrimSpace(r.Prefix)
	if r.Separator == "" {
		r.Separator = DefaultSeparator
	}
	if scope, ok := ParseResetScope(string(r.Reset)); ok {
		r.Reset = scope
	}
	if r.Padding <= 0 {
		r.Padding = DefaultPadding
	}
	if r.MaxAttempts <= 0 {
		r.MaxAttempts = DefaultMaxAttempts
	}
	if r.Backoff < 0 {
		r.Backoff = 0
	} else if r.Backoff == 0 {
		r.Backoff = DefaultBackoff
	}
	return r
}

func (r Request) Validate() error {
	if r.Prefix == "" {
		return fmt.Errorf("%w: prefix is required", ErrInvalidRequest)
	}
	if _, ok := ParseResetScope(string(r.Reset)); !ok {
		return fmt.Errorf("%w: unknown reset scope %q", ErrInvalidRequest, r.Reset)
	}
	if r.Padding > 18 {
		return fmt.Errorf("%w: padding %d too wide", ErrInvalidRequest, r.Padding)
	}
	return nil
}

type Allocation struct {
	Number   string `json:"number"`
	ScopeKey string `json:"scopeKey"`
	Key      string `json:"key"`
	Value    int64  `json:"value"`
	// Attempts is the number of compare-and-swap rounds used.
	Attempts int `json:"attempts"`
}

// ScopeKey combines the prefix with the time token for the reset scope,
// e.g. INV-202508 for monthly numbering.
func ScopeKey(prefix, separator string, reset ResetScope, at time.Time) string {
	at = at.UTC()
	switch reset {
	case ResetMonthly:
		return prefix + separator + at.Format("200601")
	case ResetYearly:
		return prefix + separator + at.Format("2006")
	default:
		return prefix
	}
}

// DocumentKey identifies the counter document for a stream and scope.
func DocumentKey(stream, scopeKey string) string {
	return stream + ":" + scopeKey
}

// Format renders the human number, e.g. INV-202508-0007.
func Format(scopeKey, separator string, padding int, value int64) string {
	return fmt.Sprintf("%s%s%0*d", scopeKey, separator, padding, value)
}
