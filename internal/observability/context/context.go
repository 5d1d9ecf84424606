package context

import "context"

type ctxKey string

const (
	requestIDKey ctxKey = "obs.request_id"
	actorIDKey   ctxKey = "obs.actor_id"
	invoiceIDKey ctxKey = "obs.invoice_id"
)

func WithRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	return stringValue(ctx, requestIDKey)
}

func WithActorID(ctx context.Context, actorID string) context.Context {
	if actorID == "" {
		return ctx
	}
	return context.WithValue(ctx, actorIDKey, actorID)
}

func ActorIDFromContext(ctx context.Context) string {
	return stringValue(ctx, actorIDKey)
}

// WithInvoiceID tags the context with the invoice being worked on so that
// logs emitted deeper in the call stack carry it.
func WithInvoiceID(ctx context.Context, invoiceID string) context.Context {
	if invoiceID == "" {
		return ctx
	}
	return context.WithValue(ctx, invoiceIDKey, invoiceID)
}

func InvoiceIDFromContext(ctx context.Context) string {
	return stringValue(ctx, invoiceIDKey)
}

func stringValue(ctx context.Context, key ctxKey) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(key).(string)
	return value
}
