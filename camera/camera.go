// Package camera holds the immutable globe camera and derives the matrices
// used for culling and drawing.
package camera

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"globe/tile"
)

const (
	//FovX horizontal field of view in degrees
	FovX = 75.0
	//DistanceScale camera height above the surface at zoom 0, in globe radii.
	//At zoom z the height is DistanceScale / 2^z.
	DistanceScale = 4.0
	// near plane as a fraction of the camera height
	nearFactor = 0.05
)

//Viewport drawable size in css pixels
type Viewport struct {
	Width      float64
	Height     float64
	PixelRatio float64
}

//Valid reports whether the viewport can produce a projection.
func (vp Viewport) Valid() bool {
	return vp.Width > 0 && vp.Height > 0 && vp.PixelRatio > 0
}

//Aspect width over height
func (vp Viewport) Aspect() float64 {
	return vp.Width / vp.Height
}

//DeviceWidth width in device pixels
func (vp Viewport) DeviceWidth() float64 {
	return vp.Width * vp.PixelRatio
}

//DeviceHeight height in device pixels
func (vp Viewport) DeviceHeight() float64 {
	return vp.Height * vp.PixelRatio
}

//State camera pose: where it looks and how close it is. Values are never
//mutated; input handlers return a new State.
type State struct {
	Center tile.LngLat
	Zoom   float64
}

//New builds a clamped camera state.
func New(center tile.LngLat, zoom float64) State {
	return State{Center: center.Clamp(), Zoom: clampZoom(zoom)}
}

func clampZoom(z float64) float64 {
	return math.Max(tile.ZoomMin, math.Min(tile.ZoomMax, z))
}

//Distance camera height above the surface
func (s State) Distance() float64 {
	return DistanceScale / math.Exp2(s.Zoom)
}

//Position camera location in world space
func (s State) Position() mgl64.Vec3 {
	return s.Center.World().Mul(1 + s.Distance())
}

//View look-at matrix from the camera position towards the globe center.
func (s State) View() mgl64.Mat4 {
	return mgl64.LookAtV(s.Position(), mgl64.Vec3{}, mgl64.Vec3{0, 1, 0})
}

//Projection perspective matrix for the viewport. The far plane always
//contains the whole globe.
func (s State) Projection(vp Viewport) mgl64.Mat4 {
	d := s.Distance()
	aspect := vp.Aspect()
	fovY := 2 * math.Atan(math.Tan(mgl64.DegToRad(FovX)/2)/aspect)
	return mgl64.Perspective(fovY, aspect, d*nearFactor, d+2)
}

//ViewProjection projection ∘ view
func (s State) ViewProjection(vp Viewport) mgl64.Mat4 {
	return s.Projection(vp).Mul4(s.View())
}

//DegreesPerPixel map degrees covered by one css pixel at the current zoom.
func (s State) DegreesPerPixel() float64 {
	return 360.0 / tile.Size / math.Exp2(s.Zoom)
}

//Pan drags the globe by a pointer delta in css pixels.
func (s State) Pan(dxPx, dyPx float64) State {
	dpp := s.DegreesPerPixel()
	return New(tile.LngLat{
		Lng: s.Center.Lng - dxPx*dpp,
		Lat: s.Center.Lat + dyPx*dpp,
	}, s.Zoom)
}

//ZoomBy changes zoom by delta, clamped to the supported range.
func (s State) ZoomBy(delta float64) State {
	return New(s.Center, s.Zoom+delta)
}

//Project maps a world point through m into normalized device coordinates.
//ok is false for points at or behind the camera plane.
func Project(m mgl64.Mat4, v mgl64.Vec3) (ndc mgl64.Vec3, ok bool) {
	clip := m.Mul4x1(v.Vec4(1))
	if clip[3] <= 0 {
		return mgl64.Vec3{}, false
	}
	return clip.Vec3().Mul(1 / clip[3]), true
}
