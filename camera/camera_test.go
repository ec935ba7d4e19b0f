package camera

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"globe/tile"
)

var viewport = Viewport{Width: 800, Height: 600, PixelRatio: 1}

func TestDistance(t *testing.T) {
	assert.InDelta(t, DistanceScale, New(tile.LngLat{}, 0).Distance(), 1e-12)
	assert.InDelta(t, DistanceScale/1024, New(tile.LngLat{}, 10).Distance(), 1e-12)

	pos := New(tile.LngLat{}, 0).Position()
	assert.InDelta(t, 1+DistanceScale, pos[2], 1e-12)
}

func TestZoomClamp(t *testing.T) {
	s := New(tile.LngLat{}, 3)
	assert.Equal(t, 0.0, s.ZoomBy(-10).Zoom)
	assert.Equal(t, float64(tile.ZoomMax), s.ZoomBy(100).Zoom)
	assert.Equal(t, 4.5, s.ZoomBy(1.5).Zoom)
	assert.Equal(t, 3.0, s.Zoom, "ZoomBy must not mutate the receiver")
}

func TestPan(t *testing.T) {
	s := New(tile.LngLat{}, 0)
	moved := s.Pan(512, 0)
	assert.InDelta(t, 0, moved.Center.Lng, 1e-9)

	moved = s.Pan(128, -64)
	assert.InDelta(t, -90, moved.Center.Lng, 1e-9)
	assert.InDelta(t, -45, moved.Center.Lat, 1e-9)

	// far past the pole clamps, far past the antimeridian wraps
	moved = New(tile.LngLat{Lng: 160}, 0).Pan(-64, 1e4)
	assert.InDelta(t, -155, moved.Center.Lng, 1e-9)
	assert.InDelta(t, tile.MaxLatitude, moved.Center.Lat, 1e-9)

	assert.Equal(t, tile.LngLat{}, s.Center)
}

func TestProjectCenter(t *testing.T) {
	for _, ll := range []tile.LngLat{{}, {Lng: -122.4, Lat: 37.8}, {Lng: 100, Lat: -60}} {
		s := New(ll, 5)
		m := s.ViewProjection(viewport)
		ndc, ok := Project(m, ll.World())
		require.True(t, ok)
		assert.InDelta(t, 0, ndc[0], 1e-9)
		assert.InDelta(t, 0, ndc[1], 1e-9)
		assert.True(t, ndc[2] > -1 && ndc[2] < 1)

		// the antipode is behind the globe but still in front of the camera plane
		back, ok := Project(m, ll.World().Mul(-1))
		require.True(t, ok)
		assert.True(t, back[2] > ndc[2])
	}
}

func TestProjectBehindCamera(t *testing.T) {
	s := New(tile.LngLat{}, 0)
	_, ok := Project(s.ViewProjection(viewport), mgl64.Vec3{0, 0, 10})
	assert.False(t, ok)
}

func TestFrustum(t *testing.T) {
	s := New(tile.LngLat{}, 0)
	f := NewFrustum(s.ViewProjection(viewport))

	for _, p := range f {
		assert.InDelta(t, 1, p.Normal.Len(), 1e-9)
	}

	assert.True(t, f.IntersectsSphere(mgl64.Vec3{}, 1))
	assert.True(t, f.IntersectsSphere(mgl64.Vec3{0, 0, 1}, 0.01))
	// behind the camera
	assert.False(t, f.IntersectsSphere(mgl64.Vec3{0, 0, 20}, 1))
	// far off to the side
	assert.False(t, f.IntersectsSphere(mgl64.Vec3{50, 0, 0}, 1))

	// zoomed in, the far side of the globe is outside the side planes
	near := NewFrustum(New(tile.LngLat{}, 10).ViewProjection(viewport))
	assert.False(t, near.IntersectsSphere(tile.LngLat{Lng: 90}.World(), 0.01))
	assert.True(t, near.IntersectsSphere(tile.LngLat{}.World(), 0.001))
}

func TestViewportAspect(t *testing.T) {
	assert.True(t, viewport.Valid())
	assert.False(t, Viewport{Width: 0, Height: 1, PixelRatio: 1}.Valid())
	assert.InDelta(t, 4.0/3, viewport.Aspect(), 1e-12)
	hi := Viewport{Width: 800, Height: 600, PixelRatio: 2}
	assert.Equal(t, 1600.0, hi.DeviceWidth())
	assert.Equal(t, 1200.0, hi.DeviceHeight())
	assert.False(t, math.IsNaN(New(tile.LngLat{}, 0).Projection(viewport).Det()))
}
