package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("currency", "KHR"),
		attribute.String("invoice_id", "123"),
		attribute.String("method", "cash"),
	)
	require.Len(t, attrs, 2)
	assert.Equal(t, attribute.Key("currency"), attrs[0].Key)
	assert.Equal(t, attribute.Key("method"), attrs[1].Key)
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordInvoiceFinalized(context.Background(), "usd", false)
		m.RecordPayment(context.Background(), "payment", "cash")
		m.RecordSequenceAllocation(context.Background(), "invoice", 2)
	})
}

func TestNewWithNoopProvider(t *testing.T) {
	m, err := New(Config{}, noop.NewMeterProvider())
	require.NoError(t, err)
	assert.NotPanics(t, func() {
		m.RecordSequenceAllocation(context.Background(), "invoice", 1)
		m.RecordInvoiceVoided(context.Background(), "final")
	})
}
