package tile

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

//MaxLatitude web mercator latitude bound
const MaxLatitude = 85.0511287798066

// circumference of the mercator plane in meters, used to normalize
// orb's projected coordinates into [0,1].
var circumference = 2 * math.Pi * orb.EarthRadius

//LngLat geographic position in degrees
type LngLat struct {
	Lng float64
	Lat float64
}

//Clamp wraps longitude into [-180,180] and clamps latitude to the mercator bound.
func (ll LngLat) Clamp() LngLat {
	lng := math.Mod(ll.Lng+180, 360)
	if lng < 0 {
		lng += 360
	}
	lng -= 180
	if ll.Lng == 180 {
		lng = 180
	}
	lat := math.Max(-MaxLatitude, math.Min(MaxLatitude, ll.Lat))
	return LngLat{Lng: lng, Lat: lat}
}

//Point orb point in lon/lat order
func (ll LngLat) Point() orb.Point {
	return orb.Point{ll.Lng, ll.Lat}
}

//Mercator linear [0,1]² reprojection; y grows southwards.
func (ll LngLat) Mercator() Mercator {
	ll = ll.Clamp()
	p := project.WGS84.ToMercator(ll.Point())
	return Mercator{X: p[0]/circumference + 0.5, Y: 0.5 - p[1]/circumference}
}

//World unit sphere position. The y axis points to the north pole and
//(lng 0, lat 0) sits on +z.
func (ll LngLat) World() mgl64.Vec3 {
	p := s2.PointFromLatLng(s2.LatLngFromDegrees(ll.Lat, ll.Lng))
	return mgl64.Vec3{p.Y, p.Z, p.X}
}

func (ll LngLat) latLng() s2.LatLng {
	return s2.LatLngFromDegrees(ll.Lat, ll.Lng)
}

//Distance great circle angle between two positions.
func (ll LngLat) Distance(other LngLat) s1.Angle {
	return ll.latLng().Distance(other.latLng())
}

//WorldToLngLat inverse of LngLat.World; v need not be normalized.
func WorldToLngLat(v mgl64.Vec3) LngLat {
	ll := s2.LatLngFromPoint(s2.Point{Vector: r3.Vector{X: v[2], Y: v[0], Z: v[1]}})
	return LngLat{Lng: ll.Lng.Degrees(), Lat: ll.Lat.Degrees()}
}

//Mercator normalized web mercator coordinate
type Mercator struct {
	X float64
	Y float64
}

//LngLat inverse of LngLat.Mercator
func (m Mercator) LngLat() LngLat {
	p := project.Mercator.ToWGS84(orb.Point{(m.X - 0.5) * circumference, (0.5 - m.Y) * circumference})
	return LngLat{Lng: p[0], Lat: p[1]}
}

//World unit sphere position of a mercator coordinate
func (m Mercator) World() mgl64.Vec3 {
	return m.LngLat().World()
}

//Point orb point in x/y order
func (m Mercator) Point() orb.Point {
	return orb.Point{m.X, m.Y}
}

//TileLngLat position of fractional tile coordinates at zoom z,
//(x, y) = (0, 0) being the north-west corner of the plane.
func TileLngLat(z uint32, x, y float64) LngLat {
	n := float64(uint64(1) << z)
	lng := x/n*360 - 180
	lat := math.Atan(math.Sinh(math.Pi-2*math.Pi*y/n)) * 180 / math.Pi
	return LngLat{Lng: lng, Lat: lat}
}
