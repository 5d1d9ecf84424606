package masking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "", MaskSecret("  "))
	assert.Equal(t, "****", MaskSecret("abc"))
	assert.Equal(t, "****4242", MaskSecret("4242424242424242"))
}

func TestMaskMetadata(t *testing.T) {
	out := MaskMetadata(map[string]any{
		"amount": "60",
		"note":   "paid by brother, phone 012345678",
		"nested": map[string]any{"phone": "012345678"},
		" ":      "dropped",
	})
	assert.Equal(t, "60", out["amount"])
	assert.Equal(t, "****5678", out["note"])
	assert.Equal(t, map[string]any{"phone": "****5678"}, out["nested"])
	assert.NotContains(t, out, "")
	assert.Len(t, out, 3)
	assert.Nil(t, MaskMetadata(nil))
}
