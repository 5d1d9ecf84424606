package repository

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/clinicbill/internal/payment/domain"
	"github.com/smallbiznis/clinicbill/internal/payment/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestInsertAndListByInvoice(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&domain.InvoicePayment{}))

	repo := Provide(conn)
	ctx := context.Background()
	base := time.Date(2025, 8, 1, 10, 0, 0, 0, time.UTC)

	entries := []domain.InvoicePayment{
		{ID: 3, InvoiceID: 100, Type: ledger.EntryTypeRefund, Amount: decimal.RequireFromString("20"), PaidAt: base.Add(2 * time.Hour)},
		{ID: 1, InvoiceID: 100, Type: ledger.EntryTypePayment, Amount: decimal.RequireFromString("60.5"), PaidAt: base},
		{ID: 2, InvoiceID: 200, Type: ledger.EntryTypePayment, Amount: decimal.RequireFromString("10"), PaidAt: base},
	}
	for i := range entries {
		entries[i].Currency = "USD"
		entries[i].Method = "cash"
		entries[i].CreatedBy = "cashier"
		entries[i].CreatedAt = base
		require.NoError(t, repo.Insert(ctx, &entries[i]))
	}

	got, err := repo.ListByInvoice(ctx, snowflake.ID(100))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, snowflake.ID(1), got[0].ID)
	assert.True(t, decimal.RequireFromString("60.5").Equal(got[0].Amount))
	assert.Equal(t, ledger.EntryTypeRefund, got[1].Type)

	dup := entries[0]
	assert.ErrorIs(t, repo.Insert(ctx, &dup), domain.ErrDuplicatePayment)
}
