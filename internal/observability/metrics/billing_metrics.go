package metrics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

const (
	ReasonDeadlineExceeded     = "deadline_exceeded"
	ReasonDBLockTimeout        = "db_lock_timeout"
	ReasonSerializationFailure = "serialization_failure"
	ReasonUniqueViolation      = "unique_violation"
	ReasonDB                   = "db"
	ReasonBusinessRule         = "business_rule"
	ReasonUnknown              = "unknown"
)

const (
	OperationFinalize      = "finalize"
	OperationVoid          = "void"
	OperationPayment       = "payment"
	OperationRecompute     = "recompute"
	OperationAllocate      = "allocate"
	OperationArchive       = "archive"
	OperationPreview       = "preview"
	OperationCreateInvoice = "create"
	OperationAddItem       = "add_item"
	OperationPrint         = "print"
)

// BillingMetrics is scraped from /metrics and tracks numbering contention
// and lifecycle failures.
type BillingMetrics struct {
	sequenceAttempts  *prometheus.HistogramVec
	sequenceExhausted *prometheus.CounterVec
	sequenceBackoff   prometheus.Observer
	sequenceBurned    *prometheus.CounterVec
	lifecycleErrors   *prometheus.CounterVec
	transitions       *prometheus.CounterVec
}

var (
	billingMetricsOnce sync.Once
	billingMetrics     *BillingMetrics
)

// Billing returns the process-wide registry using cfg for const labels on
// first use.
func Billing(cfg Config) *BillingMetrics {
	billingMetricsOnce.Do(func() {
		billingMetrics = NewBillingMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return billingMetrics
}

func NewBillingMetrics(registerer prometheus.Registerer, cfg Config) *BillingMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	labels := constLabels(cfg)

	sequenceAttempts := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "clinicbill_sequence_allocation_attempts",
		Help:        "Compare-and-swap attempts needed per sequence allocation.",
		Buckets:     []float64{1, 2, 3, 4, 5, 10, 25, 50},
		ConstLabels: labels,
	}, []string{"stream"})
	sequenceExhausted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "clinicbill_sequence_exhausted_total",
		Help:        "Allocations that gave up after the retry budget.",
		ConstLabels: labels,
	}, []string{"stream"})
	sequenceBackoff := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        "clinicbill_sequence_backoff_seconds",
		Help:        "Time spent sleeping between sequence allocation retries.",
		Buckets:     []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5},
		ConstLabels: labels,
	})
	sequenceBurned := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "clinicbill_sequence_burned_total",
		Help:        "Numbers allocated for an invoice write that did not commit.",
		ConstLabels: labels,
	}, []string{"stream"})
	lifecycleErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "clinicbill_invoice_errors_total",
		Help:        "Invoice lifecycle errors by operation and low-cardinality reason.",
		ConstLabels: labels,
	}, []string{"operation", "reason"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "clinicbill_invoice_transitions_total",
		Help:        "Invoice document status transitions.",
		ConstLabels: labels,
	}, []string{"from", "to"})

	return &BillingMetrics{
		sequenceAttempts:  register(registerer, sequenceAttempts),
		sequenceExhausted: register(registerer, sequenceExhausted),
		sequenceBackoff:   register(registerer, sequenceBackoff),
		sequenceBurned:    register(registerer, sequenceBurned),
		lifecycleErrors:   register(registerer, lifecycleErrors),
		transitions:       register(registerer, transitions),
	}
}

func (m *BillingMetrics) ObserveSequenceAttempts(stream string, attempts int) {
	if m == nil || attempts <= 0 {
		return
	}
	m.sequenceAttempts.WithLabelValues(stream).Observe(float64(attempts))
}

func (m *BillingMetrics) IncSequenceExhausted(stream string) {
	if m == nil {
		return
	}
	m.sequenceExhausted.WithLabelValues(stream).Inc()
}

func (m *BillingMetrics) ObserveSequenceBackoff(d time.Duration) {
	if m == nil || d <= 0 {
		return
	}
	m.sequenceBackoff.Observe(d.Seconds())
}

func (m *BillingMetrics) IncSequenceBurned(stream string) {
	if m == nil {
		return
	}
	m.sequenceBurned.WithLabelValues(stream).Inc()
}

func (m *BillingMetrics) IncTransition(from, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(from, to).Inc()
}

// IncError classifies err and counts it against operation.
func (m *BillingMetrics) IncError(operation string, err error) {
	if m == nil || err == nil {
		return
	}
	m.lifecycleErrors.WithLabelValues(operation, ClassifyReason(err)).Inc()
}

// ClassifyReason maps storage and context errors to a metric label. Anything
// else is treated as a business rule rejection.
func ClassifyReason(err error) string {
	switch {
	case err == nil:
		return ReasonUnknown
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return ReasonDeadlineExceeded
	case hasPGCode(err, "55P03"):
		return ReasonDBLockTimeout
	case hasPGCode(err, "40001"):
		return ReasonSerializationFailure
	case errors.Is(err, gorm.ErrDuplicatedKey), hasPGCode(err, "23505"):
		return ReasonUniqueViolation
	case isDBError(err):
		return ReasonDB
	default:
		return ReasonBusinessRule
	}
}

func hasPGCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code
	}
	return false
}

func isDBError(err error) bool {
	if errors.Is(err, gorm.ErrInvalidDB) ||
		errors.Is(err, gorm.ErrInvalidTransaction) ||
		errors.Is(err, gorm.ErrInvalidData) ||
		errors.Is(err, gorm.ErrMissingWhereClause) ||
		errors.Is(err, gorm.ErrUnsupportedDriver) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr)
}

func constLabels(cfg Config) prometheus.Labels {
	service := strings.TrimSpace(cfg.ServiceName)
	if service == "" {
		service = "clinicbill"
	}
	env := strings.TrimSpace(cfg.Environment)
	if env == "" {
		env = "unknown"
	}
	return prometheus.Labels{"service": service, "env": env}
}

// register adds c to r, reusing an identical collector that is already
// registered.
func register[C prometheus.Collector](r prometheus.Registerer, c C) C {
	if err := r.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}
