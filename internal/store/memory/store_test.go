package memory

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	invoicedomain "github.com/smallbiznis/clinicbill/internal/invoice/domain"
	settingsdomain "github.com/smallbiznis/clinicbill/internal/settings/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvoiceNumberIsUnique(t *testing.T) {
	store := New()
	repo := store.Invoices()
	ctx := context.Background()

	for _, id := range []int64{1, 2} {
		require.NoError(t, repo.Create(ctx, &invoicedomain.Invoice{ID: snowflake.ID(id), DocStatus: invoicedomain.DocStatusDraft}))
	}

	number := "INV-0001"
	final := invoicedomain.DocStatusFinal
	patch := invoicedomain.Patch{DocStatus: &final, InvoiceNo: &number, UpdatedAt: time.Now()}
	require.NoError(t, repo.Update(ctx, 1, invoicedomain.DocStatusDraft, patch))
	assert.ErrorIs(t, repo.Update(ctx, 2, invoicedomain.DocStatusDraft, patch), invoicedomain.ErrDuplicateInvoiceNo)
	assert.ErrorIs(t, repo.Update(ctx, 1, invoicedomain.DocStatusDraft, patch), invoicedomain.ErrInvoiceStateChanged)

	second, err := repo.FindByID(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.DocStatusDraft, second.DocStatus)
}

func TestSettingsDocumentsAreCopied(t *testing.T) {
	store := New()
	repo := store.Settings()
	ctx := context.Background()

	doc := &settingsdomain.Document{ID: settingsdomain.GlobalID, Data: []byte(`{"taxRate":"10"}`)}
	require.NoError(t, repo.Save(ctx, doc))
	doc.Data[2] = 'X'

	got, err := repo.Get(ctx, settingsdomain.GlobalID)
	require.NoError(t, err)
	assert.JSONEq(t, `{"taxRate":"10"}`, string(got.Data))

	missing, err := repo.Get(ctx, "other")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
