package store

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	in := FeedCursor{Date: time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC), ID: 42}

	out, err := DecodeCursor(EncodeCursor(in))
	require.NoError(t, err)
	assert.True(t, in.Date.Equal(out.Date))
	assert.Equal(t, in.ID, out.ID)
}

func TestEmptyCursorStartsAtNewest(t *testing.T) {
	c, err := DecodeCursor("")
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), c.ID)
	assert.True(t, c.Date.After(time.Now()))
}

func TestDecodeCursorRejectsGarbage(t *testing.T) {
	_, err := DecodeCursor("%%%")
	assert.Error(t, err)
}

func TestNewOffsetPage(t *testing.T) {
	p := newOffsetPage([]int{1, 2}, 41, 3, 20)
	assert.Equal(t, 3, p.TotalPages)
	assert.Equal(t, int64(41), p.Total)

	p = newOffsetPage([]int{}, 0, 1, 20)
	assert.Equal(t, 0, p.TotalPages)
}
