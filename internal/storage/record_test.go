package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_TypedAccessors(t *testing.T) {
	rec := Record{
		Keys:   []string{"s", "n", "f", "b", "l", "j", "m", "t", "null"},
		Values: []any{"x", int64(3), float64(4), int64(1), []any{"a", "b"}, `["c"]`, `{"k":1}`, "2024-05-01T12:00:00Z", nil},
	}

	s, err := rec.String("s")
	require.NoError(t, err)
	assert.Equal(t, "x", s)

	n, err := rec.Int("n")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	n, err = rec.Int("f")
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	b, err := rec.Bool("b")
	require.NoError(t, err)
	assert.True(t, b)

	l, err := rec.Strings("l")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, l)

	l, err = rec.Strings("j")
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, l)

	m, err := rec.Map("m")
	require.NoError(t, err)
	assert.Equal(t, float64(1), m["k"])

	ts, err := rec.Time("t")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), ts)

	s, err = rec.String("null")
	require.NoError(t, err)
	assert.Empty(t, s)

	_, err = rec.String("absent")
	assert.ErrorIs(t, err, ErrMissingColumn)

	_, err = rec.Int("s")
	assert.ErrorIs(t, err, ErrUnexpectedType)
}

func TestResult_Single(t *testing.T) {
	_, err := (&Result{}).Single()
	assert.ErrorIs(t, err, ErrNoRecords)

	_, err = (&Result{Records: make([]Record, 2)}).Single()
	assert.Error(t, err)
}
