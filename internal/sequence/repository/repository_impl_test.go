package repository

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/clinicbill/internal/sequence/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&domain.Sequence{}))
	return conn
}

func TestCreateFindCompareAndSwap(t *testing.T) {
	repo := Provide(setupTestDB(t))
	ctx := context.Background()
	now := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	key := domain.DocumentKey("invoice", "INV-202508")

	missing, err := repo.Find(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, repo.Create(ctx, &domain.Sequence{Key: key, Stream: "invoice", ScopeKey: "INV-202508", CreatedAt: now, UpdatedAt: now}))
	err = repo.Create(ctx, &domain.Sequence{Key: key, Stream: "invoice", ScopeKey: "INV-202508", CreatedAt: now, UpdatedAt: now})
	assert.ErrorIs(t, err, domain.ErrSequenceExists)

	swapped, err := repo.CompareAndSwap(ctx, key, 0, 1, now)
	require.NoError(t, err)
	assert.True(t, swapped)

	// A stale expected value must lose.
	swapped, err = repo.CompareAndSwap(ctx, key, 0, 1, now)
	require.NoError(t, err)
	assert.False(t, swapped)

	seq, err := repo.Find(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, seq)
	assert.Equal(t, int64(1), seq.Value)
}
