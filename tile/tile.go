package tile

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
)

//Size reference tile edge in css pixels
const Size = 512

//ZoomMin shallowest level
const ZoomMin = 0

//ZoomMax deepest level the globe ever refines to
const ZoomMax = 18

//ID quadtree address of a tile over the mercator plane
type ID maptile.Tile

//Root the zoom 0 tile covering the whole plane
var Root = ID{}

//New builds an ID from zoom, column and row
func New(z, x, y uint32) ID {
	return ID{X: x, Y: y, Z: maptile.Zoom(z)}
}

//ParseID parses the canonical "zoom/x/y" key
func ParseID(s string) (ID, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return ID{}, fmt.Errorf("invalid tile id %q: want zoom/x/y", s)
	}
	var v [3]uint32
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 10, 32)
		if err != nil {
			return ID{}, fmt.Errorf("invalid tile id %q: %w", s, err)
		}
		v[i] = uint32(n)
	}
	id := New(v[0], v[1], v[2])
	if !id.Valid() {
		return ID{}, fmt.Errorf("invalid tile id %q: out of bounds", s)
	}
	return id, nil
}

//String canonical "zoom/x/y" key
func (id ID) String() string {
	return fmt.Sprintf("%d/%d/%d", id.Z, id.X, id.Y)
}

//Zoom level as a plain integer
func (id ID) Zoom() uint32 {
	return uint32(id.Z)
}

//Valid reports whether x and y are inside the quadtree at this zoom.
func (id ID) Valid() bool {
	if id.Z >= 32 {
		return false
	}
	n := uint64(1) << uint32(id.Z)
	return uint64(id.X) < n && uint64(id.Y) < n
}

//Tile the orb maptile form of the id
func (id ID) Tile() maptile.Tile {
	return maptile.Tile(id)
}

//Parent returns the enclosing tile one level up; false at the root.
func (id ID) Parent() (ID, bool) {
	if id.Z == 0 {
		return id, false
	}
	return ID{X: id.X >> 1, Y: id.Y >> 1, Z: id.Z - 1}, true
}

//Children the four tiles one level down, in x-major order.
func (id ID) Children() [4]ID {
	z := id.Z + 1
	x, y := id.X*2, id.Y*2
	return [4]ID{
		{X: x, Y: y, Z: z},
		{X: x, Y: y + 1, Z: z},
		{X: x + 1, Y: y, Z: z},
		{X: x + 1, Y: y + 1, Z: z},
	}
}

//Contains reports whether other is this tile or one of its descendants.
func (id ID) Contains(other ID) bool {
	if other.Z < id.Z {
		return false
	}
	shift := uint32(other.Z - id.Z)
	return other.X>>shift == id.X && other.Y>>shift == id.Y
}

//Bound lon/lat bound of the tile
func (id ID) Bound() orb.Bound {
	return id.Tile().Bound()
}

//NorthWest lon/lat of the top left corner
func (id ID) NorthWest() LngLat {
	return TileLngLat(id.Zoom(), float64(id.X), float64(id.Y))
}

//SouthEast lon/lat of the bottom right corner
func (id ID) SouthEast() LngLat {
	return TileLngLat(id.Zoom(), float64(id.X+1), float64(id.Y+1))
}

//Center lon/lat of the tile's mercator center
func (id ID) Center() LngLat {
	return TileLngLat(id.Zoom(), float64(id.X)+0.5, float64(id.Y)+0.5)
}

//At lon/lat of the point at fractions (u, v) across the tile, (0, 0) being
//the north-west corner.
func (id ID) At(u, v float64) LngLat {
	return TileLngLat(id.Zoom(), float64(id.X)+u, float64(id.Y)+v)
}

//ContainsLngLat reports whether ll falls within the tile's mercator square.
func (id ID) ContainsLngLat(ll LngLat) bool {
	m := ll.Mercator()
	n := float64(uint64(1) << id.Zoom())
	x, y := m.X*n, m.Y*n
	return x >= float64(id.X) && x <= float64(id.X+1) &&
		y >= float64(id.Y) && y <= float64(id.Y+1)
}

//IDs sortable tile list, ordered by zoom, then x, then y.
type IDs []ID

func (s IDs) Len() int      { return len(s) }
func (s IDs) Swap(i, j int) { s[i], s[j] = s[j], s[i] }
func (s IDs) Less(i, j int) bool {
	if s[i].Z != s[j].Z {
		return s[i].Z < s[j].Z
	}
	if s[i].X != s[j].X {
		return s[i].X < s[j].X
	}
	return s[i].Y < s[j].Y
}
