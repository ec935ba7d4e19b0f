package camera

import "github.com/go-gl/mathgl/mgl64"

//Plane n·p + D = 0 with a unit normal pointing into the frustum.
type Plane struct {
	Normal mgl64.Vec3
	D      float64
}

//Distance signed distance from the plane to p
func (p Plane) Distance(v mgl64.Vec3) float64 {
	return p.Normal.Dot(v) + p.D
}

func planeFrom(v mgl64.Vec4) Plane {
	n := v.Vec3()
	l := n.Len()
	if l == 0 {
		return Plane{}
	}
	return Plane{Normal: n.Mul(1 / l), D: v[3] / l}
}

//Frustum the six clip planes: left, right, bottom, top, near, far.
type Frustum [6]Plane

//NewFrustum extracts the planes of a view-projection matrix.
func NewFrustum(m mgl64.Mat4) Frustum {
	r0, r1, r2, r3 := m.Row(0), m.Row(1), m.Row(2), m.Row(3)
	return Frustum{
		planeFrom(r3.Add(r0)),
		planeFrom(r3.Sub(r0)),
		planeFrom(r3.Add(r1)),
		planeFrom(r3.Sub(r1)),
		planeFrom(r3.Add(r2)),
		planeFrom(r3.Sub(r2)),
	}
}

//IntersectsSphere false when the sphere lies entirely outside one plane.
func (f Frustum) IntersectsSphere(center mgl64.Vec3, radius float64) bool {
	for _, p := range f {
		if p.Distance(center) < -radius {
			return false
		}
	}
	return true
}
