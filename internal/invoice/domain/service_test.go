package domain

import (
	"errors"
	"fmt"
	"testing"

	sequencedomain "github.com/smallbiznis/clinicbill/internal/sequence/domain"
	"github.com/stretchr/testify/assert"
)

func TestCategory(t *testing.T) {
	cases := []struct {
		err  error
		want ErrorCategory
	}{
		{ErrInvalidAmount, CategoryValidation},
		{fmt.Errorf("finalize: %w", ErrInvoiceVoided), CategoryState},
		{ErrInvoiceStateChanged, CategoryConflict},
		{ErrInvoiceNotFound, CategoryNotFound},
		{fmt.Errorf("key INV-202508: %w", sequencedomain.ErrSequenceCollision), CategoryCollision},
		{ErrDuplicateInvoiceNo, CategoryCollision},
		{errors.New("disk full"), CategoryInternal},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Category(tc.err), tc.err.Error())
	}
	assert.Equal(t, ErrorCategory(""), Category(nil))
}

func TestCode(t *testing.T) {
	assert.Equal(t, "void_reason_required", Code(fmt.Errorf("void: %w", ErrReasonRequired)))
	assert.Equal(t, "sequence_collision", Code(sequencedomain.ErrSequenceCollision))
	assert.Equal(t, "internal_error", Code(errors.New("boom")))
}
