package tracing

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const instrumentation = "clinicbill"

// Start opens an internal span named after the operation.
func Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(instrumentation).Start(ctx, name, trace.WithAttributes(SafeAttributes(attrs...)...))
}

// End records err on the span, if any, and closes it.
func End(span trace.Span, err error) {
	if err != nil {
		if safe := SafeError(err); safe != nil {
			span.RecordError(safe)
		}
		span.SetStatus(codes.Error, "error")
	}
	span.End()
}

func ExtractContext(ctx context.Context, carrier propagation.TextMapCarrier) context.Context {
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}

var blockedKeys = []string{"patient", "name", "email", "phone", "note", "reason"}

// SafeAttributes drops attributes whose keys hint at personal data.
func SafeAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		key := strings.ToLower(string(attr.Key))
		blocked := false
		for _, b := range blockedKeys {
			if strings.Contains(key, b) {
				blocked = true
				break
			}
		}
		if !blocked {
			out = append(out, attr)
		}
	}
	return out
}

// SafeError keeps only the outermost message, dropping wrapped driver detail.
func SafeError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if idx := strings.Index(msg, ": "); idx > 0 {
		msg = msg[:idx]
	}
	return errors.New(msg)
}
