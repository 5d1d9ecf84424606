package tracing

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func TestSafeAttributesDropsPersonalData(t *testing.T) {
	attrs := SafeAttributes(
		attribute.String("invoice.id", "1"),
		attribute.String("patient.name", "x"),
		attribute.String("void.reason", "typo"),
	)
	assert.Len(t, attrs, 1)
	assert.Equal(t, attribute.Key("invoice.id"), attrs[0].Key)
}

func TestSafeErrorTruncatesWrappedDetail(t *testing.T) {
	err := fmt.Errorf("finalize failed: %w", errors.New("pq: duplicate key value"))
	assert.EqualError(t, SafeError(err), "finalize failed")
	assert.Nil(t, SafeError(nil))
}
