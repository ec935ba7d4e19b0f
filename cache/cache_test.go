package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"globe/tile"
)

func TestNewRejectsBadSize(t *testing.T) {
	_, err := New(0)
	assert.Error(t, err)
}

func TestAddGet(t *testing.T) {
	c, err := New(4)
	require.NoError(t, err)

	id := tile.New(2, 1, 3)
	assert.False(t, c.Contains(id))
	_, ok := c.Get(id)
	assert.False(t, ok)

	want := &Tile{ID: id}
	c.Add(want)
	got, ok := c.Get(id)
	require.True(t, ok)
	assert.Same(t, want, got)
	assert.Equal(t, 1, c.Len())

	c.Purge()
	assert.Equal(t, 0, c.Len())
}

func TestEvictsLeastRecentlyUsed(t *testing.T) {
	c, err := New(2)
	require.NoError(t, err)

	a, b, d := tile.New(1, 0, 0), tile.New(1, 1, 0), tile.New(1, 0, 1)
	c.Add(&Tile{ID: a})
	c.Add(&Tile{ID: b})

	// reading a keeps it; b becomes the eviction candidate
	_, ok := c.Get(a)
	require.True(t, ok)
	assert.True(t, c.Add(&Tile{ID: d}))

	assert.True(t, c.Contains(a))
	assert.False(t, c.Contains(b))
	assert.True(t, c.Contains(d))
}
