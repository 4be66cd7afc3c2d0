package pagination

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimit(t *testing.T) {
	assert.Equal(t, DefaultPageSize, Pagination{}.Limit())
	assert.Equal(t, 5, Pagination{PageSize: 5}.Limit())
	assert.Equal(t, MaxPageSize, Pagination{PageSize: 10_000}.Limit())
}

func TestCursorRoundTrip(t *testing.T) {
	token, err := EncodeCursor(Cursor{ID: "42"})
	require.NoError(t, err)

	c, err := DecodeCursor(token)
	require.NoError(t, err)
	assert.Equal(t, "42", c.ID)

	empty, err := DecodeCursor("")
	require.NoError(t, err)
	assert.Nil(t, empty)

	_, err = DecodeCursor("%%%")
	assert.ErrorIs(t, err, ErrInvalidPageToken)
}

func TestPage(t *testing.T) {
	rows := []int{9, 8, 7}
	id := func(v int) string { return strconv.Itoa(v) }

	got, info, err := Page(rows, 5, id)
	require.NoError(t, err)
	assert.Equal(t, rows, got)
	assert.False(t, info.HasMore)

	got, info, err = Page(rows, 2, id)
	require.NoError(t, err)
	assert.Equal(t, []int{9, 8}, got)
	assert.True(t, info.HasMore)

	c, err := DecodeCursor(info.NextPageToken)
	require.NoError(t, err)
	assert.Equal(t, "8", c.ID)
}
