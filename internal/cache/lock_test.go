package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilLockerGrantsEveryLease(t *testing.T) {
	locker := NewLocker(nil)
	assert.Nil(t, locker)

	release, err := locker.Acquire(context.Background(), "clinicbill:invoice:payment:1")
	require.NoError(t, err)
	require.NotNil(t, release)
	release()

	again, err := locker.Acquire(context.Background(), "clinicbill:invoice:payment:1")
	require.NoError(t, err)
	again()
}
