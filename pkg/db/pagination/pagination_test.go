package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	token, err := EncodeCursor(Cursor{ID: "42", CreatedAt: "2025-08-01T00:00:00Z"})
	require.NoError(t, err)

	cursor, err := DecodeCursor(token)
	require.NoError(t, err)
	assert.Equal(t, "42", cursor.ID)

	_, err = DecodeCursor("%%%")
	assert.Error(t, err)
}

func TestPage(t *testing.T) {
	one, two, three := 1, 2, 3
	items, info := Page([]*int{&one, &two, &three}, 2, func(v *int) string {
		if *v == 2 {
			return "two"
		}
		return "other"
	})
	assert.Len(t, items, 2)
	assert.True(t, info.HasMore)
	assert.Equal(t, "two", info.NextPageToken)

	items, info = Page([]*int{&one}, 2, func(*int) string { return "x" })
	assert.Len(t, items, 1)
	assert.False(t, info.HasMore)
}

func TestSize(t *testing.T) {
	assert.Equal(t, DefaultPageSize, Pagination{}.Size())
	assert.Equal(t, MaxPageSize, Pagination{PageSize: 1000}.Size())
	assert.Equal(t, 10, Pagination{PageSize: 10}.Size())
}
