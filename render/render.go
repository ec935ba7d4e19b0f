// Package render picks what to draw for a set of visible tiles and defines
// the drawing collaborator the frame loop talks to.
package render

import (
	"errors"

	"github.com/go-gl/mathgl/mgl64"

	"globe/cache"
	"globe/tile"
)

//Fatal GPU failures. A Renderer returns them (possibly wrapped) and the
//frame loop hands them to its caller untouched.
var (
	ErrDeviceLost         = errors.New("render: device lost")
	ErrAdapterUnavailable = errors.New("render: adapter unavailable")
)

//IsFatal reports whether err means the drawing context is gone.
func IsFatal(err error) bool {
	return errors.Is(err, ErrDeviceLost) || errors.Is(err, ErrAdapterUnavailable)
}

//Renderer draws cached tiles with the frame's camera matrix.
type Renderer interface {
	UploadCameraMatrix(m mgl64.Mat4) error
	DrawTile(t *cache.Tile) error
}

//Lookup read side of the tile cache
type Lookup interface {
	Get(id tile.ID) (*cache.Tile, bool)
}

//Resolve maps every visible tile to the closest cached tile at or above it.
//A tile with nothing cached along its ancestor chain draws nothing. Each
//cached tile appears once, in first-seen order, so an ancestor standing in
//for several loading children is drawn a single time.
func Resolve(visible tile.IDs, lookup Lookup) []*cache.Tile {
	out := make([]*cache.Tile, 0, len(visible))
	seen := make(map[tile.ID]struct{}, len(visible))
	for _, id := range visible {
		t, ok := nearest(id, lookup)
		if !ok {
			continue
		}
		if _, dup := seen[t.ID]; dup {
			continue
		}
		seen[t.ID] = struct{}{}
		out = append(out, t)
	}
	return out
}

func nearest(id tile.ID, lookup Lookup) (*cache.Tile, bool) {
	for {
		if t, ok := lookup.Get(id); ok {
			return t, true
		}
		parent, ok := id.Parent()
		if !ok {
			return nil, false
		}
		id = parent
	}
}
