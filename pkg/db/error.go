package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// IsDuplicateKeyErr reports whether err is a unique constraint violation on
// any of the supported dialects.
func IsDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}

	msg := err.Error()
	return strings.Contains(msg, "duplicate key value violates unique constraint") || // postgres via lib/pq style messages
		strings.Contains(msg, "Error 1062") || // mysql
		strings.Contains(msg, "UNIQUE constraint failed") // sqlite
}
