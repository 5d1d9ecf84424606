package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTTLCache_Expiry(t *testing.T) {
	now := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	c := newTTLCache[string, int](func() time.Time { return now })

	c.Set("a", 1, time.Minute)
	c.Set("b", 2, 0)

	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	now = now.Add(time.Minute)
	_, ok = c.Get("a")
	assert.False(t, ok)

	v, ok = c.Get("b")
	assert.True(t, ok)
	assert.Equal(t, 2, v)

	c.Delete("b")
	_, ok = c.Get("b")
	assert.False(t, ok)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "settings|global", Key(" Settings ", "", "GLOBAL"))
}
