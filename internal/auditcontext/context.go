package auditcontext

import (
	"context"
	"strings"
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	ipAddressKey
	userAgentKey
	actorIDKey
)

// Metadata is the request provenance attached to audit entries.
type Metadata struct {
	RequestID string
	IPAddress string
	UserAgent string
	ActorID   string
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return withValue(ctx, requestIDKey, requestID)
}

func WithIPAddress(ctx context.Context, ip string) context.Context {
	return withValue(ctx, ipAddressKey, ip)
}

func WithUserAgent(ctx context.Context, userAgent string) context.Context {
	return withValue(ctx, userAgentKey, userAgent)
}

func WithActorID(ctx context.Context, actorID string) context.Context {
	return withValue(ctx, actorIDKey, actorID)
}

func FromContext(ctx context.Context) Metadata {
	if ctx == nil {
		return Metadata{}
	}
	return Metadata{
		RequestID: value(ctx, requestIDKey),
		IPAddress: value(ctx, ipAddressKey),
		UserAgent: value(ctx, userAgentKey),
		ActorID:   value(ctx, actorIDKey),
	}
}

func withValue(ctx context.Context, key ctxKey, v string) context.Context {
	v = strings.TrimSpace(v)
	if v == "" {
		return ctx
	}
	return context.WithValue(ctx, key, v)
}

func value(ctx context.Context, key ctxKey) string {
	v, _ := ctx.Value(key).(string)
	return v
}
