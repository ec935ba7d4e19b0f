package visibility

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"globe/tile"
)

// closestPoint returns the point of the tile's lon/lat rectangle with the
// smallest great circle distance to c.
func closestPoint(id tile.ID, c tile.LngLat) tile.LngLat {
	nw, se := id.NorthWest(), id.SouthEast()
	west, east := nw.Lng, se.Lng
	south, north := se.Lat, nw.Lat

	if c.Lng >= west && c.Lng <= east {
		return tile.LngLat{Lng: c.Lng, Lat: clamp(c.Lat, south, north)}
	}

	best := tile.LngLat{}
	bestDist := math.Inf(1)
	for _, lng := range [...]float64{west, east} {
		p := closestOnMeridian(lng, c, south, north)
		if d := float64(c.Distance(p)); d < bestDist {
			best, bestDist = p, d
		}
	}
	return best
}

// closestOnMeridian picks the point of the meridian segment [south, north]
// at lng nearest to c. Along a meridian the distance to c has a single
// stationary point at tan(lat) = tan(c.lat)/cos(Δlng); the segment ends are
// the only other candidates.
func closestOnMeridian(lng float64, c tile.LngLat, south, north float64) tile.LngLat {
	candidates := []float64{south, north}
	if cosDl := math.Cos(mgl64.DegToRad(c.Lng - lng)); cosDl > 0 {
		lat := mgl64.RadToDeg(math.Atan(math.Tan(mgl64.DegToRad(c.Lat)) / cosDl))
		candidates = append(candidates, clamp(lat, south, north))
	}

	best := tile.LngLat{Lng: lng, Lat: south}
	bestDist := math.Inf(1)
	for _, lat := range candidates {
		p := tile.LngLat{Lng: lng, Lat: lat}
		if d := float64(c.Distance(p)); d < bestDist {
			best, bestDist = p, d
		}
	}
	return best
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
