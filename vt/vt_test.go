package vt

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/mvt"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"globe/tile"
)

// a single layer "t" with one point feature whose geometry is [9, 0, 0]:
// MoveTo with a repeat count of 1 and zig-zag parameters 0, 0.
var moveToOrigin = []byte{
	0x1a, 0x11, // layer, 17 bytes
	0x0a, 0x01, 't', // name
	0x12, 0x07, // feature, 7 bytes
	0x18, 0x01, // type point
	0x22, 0x03, 0x09, 0x00, 0x00, // geometry
	0x28, 0x80, 0x20, // extent 4096
	0x78, 0x02, // version 2
}

func TestDecodeMoveToOrigin(t *testing.T) {
	id := tile.New(3, 2, 5)
	layers, err := Decode(id, moveToOrigin)
	require.NoError(t, err)
	require.Contains(t, layers, "t")

	l := layers["t"]
	assert.Equal(t, uint32(4096), l.Extent)
	assert.Equal(t, uint32(2), l.Version)
	require.Len(t, l.Features, 1)

	f := l.Features[0]
	assert.Equal(t, Point, f.Type)
	want := []orb.LineString{{{2.0 / 8, 5.0 / 8}}}
	if diff := cmp.Diff(want, f.Geometry); diff != "" {
		t.Errorf("geometry mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeProjectsToMercator(t *testing.T) {
	road := geojson.NewFeature(orb.LineString{{0, 0}, {4096, 4096}})
	road.Properties["class"] = "street"
	water := geojson.NewFeature(orb.Polygon{
		{{0, 0}, {2048, 0}, {2048, 2048}, {0, 2048}, {0, 0}},
	})
	layers := mvt.Layers{
		{Name: "road", Version: 2, Extent: 4096, Features: []*geojson.Feature{road}},
		{Name: "water", Version: 2, Extent: 4096, Features: []*geojson.Feature{water}},
	}
	data, err := mvt.MarshalGzipped(layers)
	require.NoError(t, err)

	got, err := Decode(tile.New(1, 1, 0), data)
	require.NoError(t, err)
	require.Len(t, got, 2)

	r := got["road"].Features
	require.Len(t, r, 1)
	assert.Equal(t, LineString, r[0].Type)
	assert.Equal(t, "street", r[0].Properties["class"])
	if diff := cmp.Diff([]orb.LineString{{{0.5, 0}, {1, 0.5}}}, r[0].Geometry); diff != "" {
		t.Errorf("road mismatch (-want +got):\n%s", diff)
	}

	w := got["water"].Features
	require.Len(t, w, 1)
	assert.Equal(t, Polygon, w[0].Type)
	require.NotEmpty(t, w[0].Geometry)
	for _, p := range w[0].Geometry[0] {
		assert.True(t, p[0] >= 0.5 && p[0] <= 0.75, "x %v", p[0])
		assert.True(t, p[1] >= 0 && p[1] <= 0.25, "y %v", p[1])
	}
}

func TestDecodeEmpty(t *testing.T) {
	got, err := Decode(tile.Root, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDecodeMalformed(t *testing.T) {
	id := tile.New(2, 1, 1)
	_, err := Decode(id, []byte{0x1f, 0x8b, 0x00, 0x01, 0x02})
	require.Error(t, err)

	var de *DecodeError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, id, de.Tile)
	assert.Contains(t, err.Error(), "2/1/1")
}
