package auditcontext

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromContext(t *testing.T) {
	ctx := context.Background()
	ctx = WithRequestID(ctx, "req-1")
	ctx = WithIPAddress(ctx, " 10.0.0.1 ")
	ctx = WithUserAgent(ctx, "")
	ctx = WithActorID(ctx, "cashier-7")

	meta := FromContext(ctx)
	assert.Equal(t, "req-1", meta.RequestID)
	assert.Equal(t, "10.0.0.1", meta.IPAddress)
	assert.Empty(t, meta.UserAgent)
	assert.Equal(t, "cashier-7", meta.ActorID)
}

func TestFromContextNil(t *testing.T) {
	//nolint:staticcheck
	assert.Equal(t, Metadata{}, FromContext(nil))
}
