package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestIsDuplicateKeyErr(t *testing.T) {
	assert.True(t, IsDuplicateKeyErr(gorm.ErrDuplicatedKey))
	assert.True(t, IsDuplicateKeyErr(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	assert.True(t, IsDuplicateKeyErr(errors.New("UNIQUE constraint failed: sequences.key")))
	assert.True(t, IsDuplicateKeyErr(errors.New("Error 1062: Duplicate entry")))
	assert.False(t, IsDuplicateKeyErr(&pgconn.PgError{Code: "40001"}))
	assert.False(t, IsDuplicateKeyErr(nil))
}
