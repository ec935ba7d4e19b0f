package render

import (
	"sync"

	"github.com/go-gl/mathgl/mgl64"

	"globe/cache"
	"globe/tile"
)

//Recorder headless Renderer that keeps what the last frame drew.
type Recorder struct {
	mu       sync.Mutex
	err      error
	matrix   mgl64.Mat4
	drawn    tile.IDs
	features int
	frames   int
}

//Fail makes every later call return err, e.g. ErrDeviceLost.
func (r *Recorder) Fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

//UploadCameraMatrix starts a new frame.
func (r *Recorder) UploadCameraMatrix(m mgl64.Mat4) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.matrix = m
	r.drawn = r.drawn[:0]
	r.features = 0
	r.frames++
	return nil
}

//DrawTile records t.
func (r *Recorder) DrawTile(t *cache.Tile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.drawn = append(r.drawn, t.ID)
	for _, l := range t.Layers {
		r.features += len(l.Features)
	}
	return nil
}

//Drawn tiles of the current frame in draw order
func (r *Recorder) Drawn() tile.IDs {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append(tile.IDs(nil), r.drawn...)
}

//Features drawn in the current frame
func (r *Recorder) Features() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.features
}

//Matrix last uploaded camera matrix
func (r *Recorder) Matrix() mgl64.Mat4 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.matrix
}

//Frames number of frames started
func (r *Recorder) Frames() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}
