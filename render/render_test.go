package render

import (
	"fmt"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"globe/cache"
	"globe/tile"
	"globe/vt"
)

type mapLookup map[tile.ID]*cache.Tile

func (m mapLookup) Get(id tile.ID) (*cache.Tile, bool) {
	t, ok := m[id]
	return t, ok
}

func lookupOf(ids ...tile.ID) mapLookup {
	m := mapLookup{}
	for _, id := range ids {
		m[id] = &cache.Tile{ID: id}
	}
	return m
}

func idsOf(tiles []*cache.Tile) tile.IDs {
	var out tile.IDs
	for _, t := range tiles {
		out = append(out, t.ID)
	}
	return out
}

func TestResolveCachedTileDrawsItself(t *testing.T) {
	id := tile.New(10, 163, 395)
	got := Resolve(tile.IDs{id}, lookupOf(tile.Root, id))
	assert.Equal(t, tile.IDs{id}, idsOf(got))
}

func TestResolveFallsBackToAncestor(t *testing.T) {
	// 10/163/395 walks up to 8/40/98
	anc := tile.New(8, 40, 98)
	got := Resolve(tile.IDs{tile.New(10, 163, 395)}, lookupOf(tile.Root, anc))
	assert.Equal(t, tile.IDs{anc}, idsOf(got))
}

func TestResolveRootBaseCase(t *testing.T) {
	visible := tile.IDs{tile.New(5, 3, 9), tile.New(5, 4, 9), tile.New(12, 700, 1500)}
	got := Resolve(visible, lookupOf(tile.Root))
	assert.Equal(t, tile.IDs{tile.Root}, idsOf(got), "root drawn once for every branch")
}

func TestResolveNothingCached(t *testing.T) {
	got := Resolve(tile.IDs{tile.New(3, 1, 1)}, mapLookup{})
	assert.Empty(t, got)
}

func TestResolveMixedOrder(t *testing.T) {
	a, b := tile.New(2, 0, 0), tile.New(2, 1, 0)
	c, d := tile.New(2, 0, 1), tile.New(2, 1, 1)
	parentOfE := tile.New(1, 1, 1)
	e := tile.New(2, 2, 2)

	got := Resolve(tile.IDs{a, b, c, d, e}, lookupOf(b, tile.Root, parentOfE))
	want := tile.IDs{tile.Root, b, parentOfE}
	if diff := cmp.Diff(want, idsOf(got)); diff != "" {
		t.Errorf("resolve mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveWithCache(t *testing.T) {
	c, err := cache.New(8)
	require.NoError(t, err)
	c.Add(&cache.Tile{ID: tile.Root})
	got := Resolve(tile.IDs{tile.New(4, 2, 2)}, c)
	require.Len(t, got, 1)
	assert.Equal(t, tile.Root, got[0].ID)
}

func TestIsFatal(t *testing.T) {
	assert.True(t, IsFatal(ErrDeviceLost))
	assert.True(t, IsFatal(fmt.Errorf("draw 3/1/1: %w", ErrAdapterUnavailable)))
	assert.False(t, IsFatal(fmt.Errorf("draw 3/1/1: shader compile")))
}

func TestRecorder(t *testing.T) {
	r := &Recorder{}
	require.NoError(t, r.UploadCameraMatrix(mgl64.Ident4()))
	require.NoError(t, r.DrawTile(&cache.Tile{
		ID:     tile.Root,
		Layers: vt.Layers{"water": {Name: "water", Features: make([]vt.Feature, 3)}},
	}))
	assert.Equal(t, tile.IDs{tile.Root}, r.Drawn())
	assert.Equal(t, 3, r.Features())
	assert.Equal(t, mgl64.Ident4(), r.Matrix())

	require.NoError(t, r.UploadCameraMatrix(mgl64.Ident4()))
	assert.Empty(t, r.Drawn(), "new frame starts empty")
	assert.Equal(t, 2, r.Frames())

	r.Fail(ErrDeviceLost)
	assert.ErrorIs(t, r.UploadCameraMatrix(mgl64.Ident4()), ErrDeviceLost)
	assert.ErrorIs(t, r.DrawTile(&cache.Tile{ID: tile.Root}), ErrDeviceLost)
}
