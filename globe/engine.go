// Package globe ties camera, visibility, fetching and drawing into one
// engine value driven a frame at a time.
package globe

import (
	"errors"
	"fmt"
	"io"
	"sync"

	log "github.com/sirupsen/logrus"
	"github.com/teris-io/shortid"

	"globe/cache"
	"globe/camera"
	"globe/fetch"
	"globe/render"
	"globe/tile"
	"globe/visibility"
)

//ErrClosed returned by Frame after Close
var ErrClosed = errors.New("globe: engine closed")

//FrameStats what one frame saw and did
type FrameStats struct {
	Visible  int
	Drawn    int
	MaxZoom  uint32
	InFlight int
	Cached   int
}

//Engine one globe: camera state, tile cache and fetch pipeline. Input
//handlers may be called from any goroutine; Frame is meant for one loop.
type Engine struct {
	ID       string
	log      *log.Entry
	renderer render.Renderer
	source   fetch.Source
	owned    io.Closer
	cache    *cache.Cache
	fetcher  *fetch.Coordinator

	mu       sync.Mutex
	state    camera.State
	viewport camera.Viewport
	closed   bool
}

//New builds an engine. A nil src is opened from cfg: the MBTiles file when
//set, the HTTP tile service otherwise.
func New(cfg Config, r render.Renderer, src fetch.Source) (*Engine, error) {
	if r == nil {
		return nil, errors.New("globe: nil renderer")
	}
	if err := cfg.validate(src == nil); err != nil {
		return nil, fmt.Errorf("globe: invalid config: %w", err)
	}
	id, err := shortid.Generate()
	if err != nil {
		return nil, err
	}
	entry := log.WithField("engine", id)

	var owned io.Closer
	if src == nil {
		src, owned, err = OpenSource(cfg)
		if err != nil {
			return nil, err
		}
	}
	c, err := cache.New(cfg.CacheSize)
	if err != nil {
		if owned != nil {
			owned.Close()
		}
		return nil, err
	}

	opts := cfg.fetchOptions()
	opts.Logger = entry
	e := &Engine{
		ID:       id,
		log:      entry,
		renderer: r,
		source:   src,
		owned:    owned,
		cache:    c,
		fetcher:  fetch.NewCoordinator(src, c, opts),
		state:    camera.New(cfg.Center, cfg.Zoom),
		viewport: cfg.Viewport,
	}
	e.log.Infof("globe engine ready, center %v zoom %.2f, %d workers ~", e.state.Center, e.state.Zoom, cfg.Workers)
	return e, nil
}

//OpenSource builds the tile source cfg names. The closer is nil for sources
//holding no resources.
func OpenSource(cfg Config) (fetch.Source, io.Closer, error) {
	if cfg.MBTiles != "" {
		s, err := fetch.OpenMBTiles(cfg.MBTiles)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	}
	s, err := fetch.NewHTTPSource(cfg.TileURL, cfg.Token, nil)
	if err != nil {
		return nil, nil, err
	}
	return s, nil, nil
}

//Frame runs one tick: upload the camera matrix, compute the visible tiles,
//hand them to the fetcher and draw whatever the cache can stand in for.
//Renderer errors end the frame and are returned wrapped.
func (e *Engine) Frame() (FrameStats, error) {
	e.mu.Lock()
	s, vp, closed := e.state, e.viewport, e.closed
	e.mu.Unlock()

	var stats FrameStats
	if closed {
		return stats, ErrClosed
	}
	if !vp.Valid() {
		return stats, nil
	}

	if err := e.renderer.UploadCameraMatrix(s.ViewProjection(vp)); err != nil {
		return stats, fmt.Errorf("upload camera matrix: %w", err)
	}
	visible := visibility.Compute(s, vp)
	e.fetcher.SetDesiredTiles(visible)

	draws := render.Resolve(visible, e.cache)
	for _, t := range draws {
		if err := e.renderer.DrawTile(t); err != nil {
			return stats, fmt.Errorf("draw %v tile: %w", t.ID, err)
		}
	}

	stats.Visible = len(visible)
	stats.Drawn = len(draws)
	for _, id := range visible {
		if id.Zoom() > stats.MaxZoom {
			stats.MaxZoom = id.Zoom()
		}
	}
	stats.InFlight = e.fetcher.InFlight()
	stats.Cached = e.cache.Len()
	return stats, nil
}

//OnPan drags the globe by a pointer delta in css pixels.
func (e *Engine) OnPan(dxPx, dyPx float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = e.state.Pan(dxPx, dyPx)
}

//OnZoom changes zoom by delta, clamped to the supported range.
func (e *Engine) OnZoom(delta float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = e.state.ZoomBy(delta)
}

//OnResize sets the viewport size in css pixels, keeping the pixel ratio.
func (e *Engine) OnResize(width, height float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.viewport.Width = width
	e.viewport.Height = height
}

//Camera current camera state
func (e *Engine) Camera() camera.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

//Viewport current viewport
func (e *Engine) Viewport() camera.Viewport {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.viewport
}

//Cached reports whether a tile has been loaded.
func (e *Engine) Cached(id tile.ID) bool {
	return e.cache.Contains(id)
}

//Wait blocks until the fetches started so far have settled.
func (e *Engine) Wait() {
	e.fetcher.Wait()
}

//Close cancels outstanding fetches and releases the tile source if New
//opened it. Frame fails with ErrClosed afterwards.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()

	e.fetcher.Close()
	if e.owned != nil {
		return e.owned.Close()
	}
	return nil
}
