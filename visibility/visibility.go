// Package visibility computes which quadtree tiles must be drawn for a camera
// pose: a non-overlapping cut of the tree, dense under the camera and sparse
// towards the horizon.
package visibility

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"

	"globe/camera"
	"globe/tile"
)

const (
	// lattice edge used to sample a tile; low zooms are badly distorted
	// by the equirectangular layout so they get a denser grid.
	coarseLattice = 9
	fineLattice   = 3
	denseMaxZoom  = 4
	// horizon culling is unreliable for the two top levels, whose tiles
	// wrap around a large part of the sphere.
	horizonMinZoom = 2
	// angular width of a zoom 0 tile used as the footprint reference
	referenceAngle = math.Pi
	// slack on bounding sphere radii for edge points between lattice samples
	radiusSlack = 1.01
)

var up = mgl64.Vec3{0, 1, 0}

type item struct {
	id        tile.ID
	inFrustum bool
}

type frustumResult int

const (
	outside frustumResult = iota
	partial
	inside
)

// engine is the per-call derived state; nothing survives between calls.
type engine struct {
	cam        camera.State
	vp         camera.Viewport
	m          mgl64.Mat4
	frustum    camera.Frustum
	camDir     mgl64.Vec3
	cosHorizon float64
	maxPx      float64
}

func newEngine(s camera.State, vp camera.Viewport) *engine {
	m := s.ViewProjection(vp)
	return &engine{
		cam:        s,
		vp:         vp,
		m:          m,
		frustum:    camera.NewFrustum(m),
		camDir:     s.Position().Normalize(),
		cosHorizon: 1 / (1 + s.Distance()),
		maxPx:      tile.Size * vp.PixelRatio,
	}
}

//Compute returns the visible tile cut for camera s drawn into vp, sorted by
//zoom, x, y. It is pure: equal inputs give equal outputs.
func Compute(s camera.State, vp camera.Viewport) tile.IDs {
	if !vp.Valid() {
		return nil
	}
	e := newEngine(s, vp)

	var out tile.IDs
	stack := []item{{id: tile.Root}}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		id := it.id
		lattice := e.lattice(id)
		closest := closestPoint(id, s.Center)

		if id.Zoom() >= horizonMinZoom && e.beyondHorizon(closest, lattice) {
			continue
		}

		inFrustum := it.inFrustum
		if !inFrustum {
			switch e.frustumTest(id, lattice) {
			case outside:
				continue
			case inside:
				inFrustum = true
			}
		}

		if id.Zoom() >= tile.ZoomMax || e.footprint(id, closest) <= e.maxPx {
			out = append(out, id)
			continue
		}
		for _, c := range id.Children() {
			stack = append(stack, item{id: c, inFrustum: inFrustum})
		}
	}
	sort.Sort(out)
	return out
}

//Footprint projected size of id in device pixels for camera s.
func Footprint(s camera.State, vp camera.Viewport, id tile.ID) float64 {
	if !vp.Valid() {
		return 0
	}
	e := newEngine(s, vp)
	return e.footprint(id, closestPoint(id, s.Center))
}

type sample struct {
	ll    tile.LngLat
	world mgl64.Vec3
}

func (e *engine) lattice(id tile.ID) []sample {
	n := fineLattice
	if id.Zoom() <= denseMaxZoom {
		n = coarseLattice
	}
	out := make([]sample, 0, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			ll := id.At(float64(i)/float64(n-1), float64(j)/float64(n-1))
			out = append(out, sample{ll: ll, world: ll.World()})
		}
	}
	return out
}

func (e *engine) aboveHorizon(p mgl64.Vec3) bool {
	return e.camDir.Dot(p.Normalize()) >= e.cosHorizon
}

// beyondHorizon is true when no sampled point of the tile can be seen over
// the curvature of the globe.
func (e *engine) beyondHorizon(closest tile.LngLat, lattice []sample) bool {
	if e.aboveHorizon(closest.World()) {
		return false
	}
	for _, s := range lattice {
		if e.aboveHorizon(s.world) {
			return false
		}
	}
	return true
}

func (e *engine) frustumTest(id tile.ID, lattice []sample) frustumResult {
	all := true
	for _, s := range lattice {
		ndc, ok := camera.Project(e.m, s.world)
		if !ok || math.Abs(ndc[0]) > 1 || math.Abs(ndc[1]) > 1 {
			all = false
			break
		}
	}
	if all {
		return inside
	}

	// the tile under the camera is always a candidate
	if id.ContainsLngLat(e.cam.Center) {
		return partial
	}

	center := id.Center().World()
	radius := 0.0
	for _, s := range lattice {
		radius = math.Max(radius, s.world.Sub(center).Len())
	}
	if e.frustum.IntersectsSphere(center, radius*radiusSlack) {
		return partial
	}
	return outside
}

// footprint is the largest projected tile size over the sample points that
// are above the horizon. A tile with no such point cannot be measured and
// reports +Inf so it is split; its children then face the horizon test.
func (e *engine) footprint(id tile.ID, closest tile.LngLat) float64 {
	size, seen := 0.0, false
	for _, ll := range [...]tile.LngLat{closest, id.Center()} {
		p := ll.World()
		if !e.aboveHorizon(p) {
			continue
		}
		seen = true
		size = math.Max(size, e.pointFootprint(id, ll, p))
	}
	if !seen {
		return math.Inf(1)
	}
	return size
}

// pointFootprint projects two tangent offsets (west and north) of half the
// tile's angular size at p, shrunk by the mercator latitude distortion, and
// measures the screen extent they span.
func (e *engine) pointFootprint(id tile.ID, ll tile.LngLat, p mgl64.Vec3) float64 {
	a := (2*mgl64.DegToRad(ll.Lat) + math.Pi) / 4
	latFactor := 2 * math.Sin(a) * math.Cos(a)
	half := referenceAngle / 2 * math.Exp2(-float64(id.Zoom())) * latFactor

	west := p.Cross(up)
	if west.Len() == 0 {
		return 0
	}
	west = west.Normalize().Mul(half)
	north := west.Cross(p).Normalize().Mul(half)

	c, ok1 := camera.Project(e.m, p)
	w, ok2 := camera.Project(e.m, p.Add(west))
	n, ok3 := camera.Project(e.m, p.Add(north))
	if !ok1 || !ok2 || !ok3 {
		return math.Inf(1)
	}
	width := math.Abs(c[0]-w[0]) * e.vp.DeviceWidth()
	height := math.Abs(n[1]-c[1]) * e.vp.DeviceHeight()
	return math.Max(width, height)
}
