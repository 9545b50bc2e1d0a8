package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/crosshatch/internal/values"
)

func testCursor() *Cursor {
	return NewCursor(
		[]string{"id", "kind", "is_primary"},
		[][]values.Value{
			{values.Int(1), values.String("name"), values.Int(1)},
			{values.Int(2), values.String("phone"), values.Int(0)},
		},
	)
}

func TestCursorIteration(t *testing.T) {
	cur := testCursor()
	defer cur.Close()

	assert.Equal(t, 2, cur.Count())

	require.True(t, cur.Next())
	id, err := cur.Int64("id")
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	kind, err := cur.String("kind")
	require.NoError(t, err)
	assert.Equal(t, "name", kind)

	primary, err := cur.Bool("is_primary")
	require.NoError(t, err)
	assert.True(t, primary)

	require.True(t, cur.Next())
	id, err = cur.Int64("id")
	require.NoError(t, err)
	assert.Equal(t, int64(2), id)

	assert.False(t, cur.Next())
}

func TestCursorBeforeFirstRow(t *testing.T) {
	cur := testCursor()
	defer cur.Close()

	_, err := cur.Int64("id")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not positioned")
}

func TestCursorUnknownColumn(t *testing.T) {
	cur := testCursor()
	defer cur.Close()

	require.True(t, cur.Next())
	_, err := cur.Int64("nope")
	require.Error(t, err)
}

func TestCursorTypeMismatch(t *testing.T) {
	cur := testCursor()
	defer cur.Close()

	require.True(t, cur.Next())
	_, err := cur.String("id")
	require.Error(t, err)
	_, err = cur.Int64("kind")
	require.Error(t, err)
}

func TestCursorClose(t *testing.T) {
	cur := testCursor()
	require.NoError(t, cur.Close())
	assert.True(t, cur.Closed())

	assert.False(t, cur.Next())
	_, err := cur.Value("id")
	require.Error(t, err)
	assert.Equal(t, 2, cur.Count(), "count survives Close")

	err = cur.Close()
	require.Error(t, err)
}

func TestEmptyCursor(t *testing.T) {
	cur := NewCursor([]string{"id"}, nil)
	defer cur.Close()

	assert.Equal(t, 0, cur.Count())
	assert.False(t, cur.Next())
}
