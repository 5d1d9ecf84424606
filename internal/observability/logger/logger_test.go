package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	obscontext "github.com/smallbiznis/clinicbill/internal/observability/context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func TestWithContextAddsCorrelationFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	base := zap.New(core)

	ctx := obscontext.WithRequestID(context.Background(), "req-42")
	ctx = obscontext.WithInvoiceID(ctx, "inv-1")
	WithContext(ctx, base).Info("hello")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "req-42", fields["request_id"])
	assert.Equal(t, "inv-1", fields["invoice_id"])
	assert.NotContains(t, fields, "actor_id")
}

func TestGormLoggerSkipsRecordNotFound(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewGormLogger(zap.New(core), DefaultGormLoggerConfig())

	l.Trace(context.Background(), time.Now(), func() (string, int64) {
		return "SELECT * FROM invoices", 0
	}, gormlogger.ErrRecordNotFound)
	assert.Equal(t, 0, logs.Len())

	l.Trace(context.Background(), time.Now(), func() (string, int64) {
		return "UPDATE invoices SET status = 'final'", 0
	}, errors.New("boom"))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "UPDATE", logs.All()[0].ContextMap()["operation"])
}

func TestOperationFromSQL(t *testing.T) {
	assert.Equal(t, "INSERT", operationFromSQL(`INSERT INTO "payments" ("id") VALUES ($1)`))
	assert.Equal(t, "SELECT", operationFromSQL("WITH x AS (SELECT 1) SELECT * FROM x"))
	assert.Equal(t, "UNKNOWN", operationFromSQL(""))
}
