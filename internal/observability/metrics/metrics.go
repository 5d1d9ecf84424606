package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes invoice lifecycle instruments pushed over OTLP.
type Metrics struct {
	invoicesFinalized   metric.Int64Counter
	invoicesVoided      metric.Int64Counter
	paymentsRecorded    metric.Int64Counter
	sequenceAllocations metric.Int64Counter
	sequenceConflicts   metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return provider.Shutdown(ctx)
			},
		})
	}
	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}
	return provider, nil
}

// New configures the domain instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "clinicbill"
	}
	meter := provider.Meter(name)

	var (
		m   Metrics
		err error
	)
	if m.invoicesFinalized, err = meter.Int64Counter("clinicbill_invoices_finalized_total"); err != nil {
		return nil, err
	}
	if m.invoicesVoided, err = meter.Int64Counter("clinicbill_invoices_voided_total"); err != nil {
		return nil, err
	}
	if m.paymentsRecorded, err = meter.Int64Counter("clinicbill_payments_recorded_total"); err != nil {
		return nil, err
	}
	if m.sequenceAllocations, err = meter.Int64Counter("clinicbill_sequence_allocations_total"); err != nil {
		return nil, err
	}
	if m.sequenceConflicts, err = meter.Int64Counter("clinicbill_sequence_conflicts_total"); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Metrics) RecordInvoiceFinalized(ctx context.Context, currency string, refinalized bool) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("currency", strings.ToUpper(strings.TrimSpace(currency))),
		attribute.Bool("refinalized", refinalized),
	)
	m.invoicesFinalized.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordInvoiceVoided(ctx context.Context, fromStatus string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("from_status", fromStatus))
	m.invoicesVoided.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordPayment(ctx context.Context, paymentType, method string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("payment_type", strings.TrimSpace(paymentType)),
		attribute.String("method", strings.ToLower(strings.TrimSpace(method))),
	)
	m.paymentsRecorded.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordSequenceAllocation counts a successful allocation and the CAS
// conflicts it had to retry through.
func (m *Metrics) RecordSequenceAllocation(ctx context.Context, stream string, conflicts int) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(FilterAttributes(attribute.String("stream", stream))...)
	m.sequenceAllocations.Add(ctx, 1, attrs)
	if conflicts > 0 {
		m.sequenceConflicts.Add(ctx, int64(conflicts), attrs)
	}
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(protocol)) {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"currency":     {},
	"refinalized":  {},
	"from_status":  {},
	"payment_type": {},
	"method":       {},
	"stream":       {},
	"route":        {},
	"status_code":  {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
