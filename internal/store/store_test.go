package store

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/clinicbill/internal/config"
	invoicedomain "github.com/smallbiznis/clinicbill/internal/invoice/domain"
	"github.com/smallbiznis/clinicbill/internal/payment/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func TestOpenMemory(t *testing.T) {
	backend, err := Open(config.Config{StoreType: config.StoreMemory}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, config.StoreMemory, backend.Kind)

	ctx := context.Background()
	require.NoError(t, backend.Ping(ctx))
	require.NoError(t, backend.Migrate(ctx))
	require.NoError(t, backend.Close(ctx))
}

func TestOpenUnknownStore(t *testing.T) {
	_, err := Open(config.Config{StoreType: "cassandra"}, zap.NewNop())
	assert.Error(t, err)
}

func TestSQLBackendMigratesAndServes(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	backend := NewSQLBackend(conn)
	ctx := context.Background()
	require.NoError(t, backend.Migrate(ctx))
	require.NoError(t, backend.Ping(ctx))

	now := time.Date(2025, 8, 1, 9, 0, 0, 0, time.UTC)
	inv := &invoicedomain.Invoice{
		ID:            snowflake.ID(42),
		PatientID:     "p-1",
		Currency:      "USD",
		DocStatus:     invoicedomain.DocStatusDraft,
		PaymentStatus: ledger.StatusUnpaid,
		TotalAmount:   decimal.NewFromInt(100),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	require.NoError(t, backend.Invoices.Create(ctx, inv))

	got, err := backend.Invoices.FindByID(ctx, inv.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, decimal.NewFromInt(100).Equal(got.TotalAmount))

	doc, err := backend.Settings.Get(ctx, "global")
	require.NoError(t, err)
	assert.Nil(t, doc)
}
