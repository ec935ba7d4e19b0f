package fetch

import (
	"context"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"globe/cache"
	"globe/tile"
	"globe/vt"
)

//Default coordinator settings
const (
	DefaultWorkers    = 20
	DefaultThrottle   = 100 * time.Millisecond
	DefaultRetryDelay = 5 * time.Second
)

//ErrorSink receives every fetch or decode failure except cancellations.
type ErrorSink func(id tile.ID, err error)

//Options coordinator tuning; zero values fall back to the defaults above,
//except Throttle and RetryDelay where a negative value disables them.
type Options struct {
	Workers    int
	Throttle   time.Duration
	RetryDelay time.Duration
	Timeout    time.Duration
	OnError    ErrorSink
	Logger     *log.Entry
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = DefaultWorkers
	}
	if o.Throttle == 0 {
		o.Throttle = DefaultThrottle
	}
	if o.RetryDelay == 0 {
		o.RetryDelay = DefaultRetryDelay
	}
	if o.Logger == nil {
		o.Logger = log.NewEntry(log.StandardLogger())
	}
	return o
}

type request struct {
	id     tile.ID
	ctx    context.Context
	cancel context.CancelFunc
}

//Coordinator keeps the set of in-flight requests equal to the desired tiles
//that are neither cached nor held off after a failure. Completed tiles are
//decoded and added to the cache.
type Coordinator struct {
	source Source
	cache  *cache.Cache
	opts   Options
	log    *log.Entry
	sem    *semaphore.Weighted
	ctx    context.Context
	stop   context.CancelFunc
	wg     sync.WaitGroup
	now    func() time.Time

	mu        sync.Mutex
	inflight  map[tile.ID]*request
	queue     []*request
	failed    *ttlcache.Cache[tile.ID, error]
	pending   tile.IDs
	queued    bool
	timer     *time.Timer
	lastApply time.Time
	closed    bool
}

//NewCoordinator wires a source to a cache.
func NewCoordinator(src Source, c *cache.Cache, opts Options) *Coordinator {
	opts = opts.withDefaults()
	ctx, stop := context.WithCancel(context.Background())
	return &Coordinator{
		source:   src,
		cache:    c,
		opts:     opts,
		log:      opts.Logger,
		sem:      semaphore.NewWeighted(int64(opts.Workers)),
		ctx:      ctx,
		stop:     stop,
		now:      time.Now,
		inflight: make(map[tile.ID]*request),
		failed: ttlcache.New[tile.ID, error](
			ttlcache.WithTTL[tile.ID, error](opts.RetryDelay),
		),
	}
}

//SetDesiredTiles replaces the desired set. Calls closer together than the
//throttle interval coalesce: the latest set is applied when the interval ends.
func (c *Coordinator) SetDesiredTiles(ids tile.IDs) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	now := c.now()
	since := now.Sub(c.lastApply)
	if c.opts.Throttle < 0 || c.lastApply.IsZero() || since >= c.opts.Throttle {
		c.apply(ids, now)
		return
	}
	c.pending = append(c.pending[:0], ids...)
	c.queued = true
	if c.timer == nil {
		c.timer = time.AfterFunc(c.opts.Throttle-since, c.Flush)
	}
}

//Flush applies a set held back by the throttle right away.
func (c *Coordinator) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || !c.queued {
		return
	}
	c.apply(c.pending, c.now())
}

// apply must be called with mu held.
func (c *Coordinator) apply(ids tile.IDs, now time.Time) {
	c.lastApply = now
	c.queued = false
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}

	want := make(map[tile.ID]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	for id, r := range c.inflight {
		if _, ok := want[id]; !ok {
			r.cancel()
			delete(c.inflight, id)
			c.log.Debugf("cancel %v tile ~", id)
		}
	}
	live := c.queue[:0]
	for _, r := range c.queue {
		if c.inflight[r.id] == r {
			live = append(live, r)
		}
	}
	for i := len(live); i < len(c.queue); i++ {
		c.queue[i] = nil
	}
	c.queue = live

	c.failed.DeleteExpired()
	for _, id := range ids {
		if !id.Valid() {
			continue
		}
		if _, ok := c.inflight[id]; ok {
			continue
		}
		if c.cache.Contains(id) || c.failed.Has(id) {
			continue
		}
		c.enqueue(id)
	}
	c.pending = c.pending[:0]
	c.dispatch()
}

// enqueue must be called with mu held.
func (c *Coordinator) enqueue(id tile.ID) {
	ctx, cancel := context.WithCancel(c.ctx)
	r := &request{id: id, ctx: ctx, cancel: cancel}
	c.inflight[id] = r
	c.queue = append(c.queue, r)
}

// dispatch starts queued requests in arrival order while transfer slots are
// free, dropping the ones cancelled while they waited. mu must be held.
func (c *Coordinator) dispatch() {
	for len(c.queue) > 0 {
		r := c.queue[0]
		if c.inflight[r.id] == r && !c.sem.TryAcquire(1) {
			return
		}
		c.queue[0] = nil
		c.queue = c.queue[1:]
		if c.inflight[r.id] != r {
			continue
		}
		c.wg.Add(1)
		go c.run(r)
	}
}

func (c *Coordinator) run(r *request) {
	defer c.wg.Done()
	ctx := r.ctx
	start := time.Now()
	data, err := c.fetch(ctx, r.id)
	c.sem.Release(1)

	var layers vt.Layers
	if err == nil {
		layers, err = vt.Decode(r.id, data)
	}
	if ctx.Err() != nil {
		err = ctx.Err()
	}
	if err == nil {
		c.log.Debugf("tile %v, %.3fs, %.2f kb ~", r.id, time.Since(start).Seconds(), float32(len(data))/1024.0)
	}
	c.finish(r, layers, err)
}

func (c *Coordinator) fetch(ctx context.Context, id tile.ID) ([]byte, error) {
	if c.opts.Timeout <= 0 {
		return c.source.Fetch(ctx, id)
	}
	tctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()
	return c.source.Fetch(tctx, id)
}

// finish commits a result only while r is still the live request for its
// tile; anything else was cancelled and is dropped silently. The freed slot
// goes to the next queued request.
func (c *Coordinator) finish(r *request, layers vt.Layers, err error) {
	c.mu.Lock()
	current := c.inflight[r.id] == r
	if current {
		delete(c.inflight, r.id)
	}
	r.cancel()
	failed := current && err != nil && !IsCancelled(err)
	switch {
	case current && err == nil:
		c.cache.Add(&cache.Tile{ID: r.id, Layers: layers})
	case failed && c.opts.RetryDelay > 0:
		c.failed.Set(r.id, err, ttlcache.DefaultTTL)
	}
	if !c.closed {
		c.dispatch()
	}
	c.mu.Unlock()

	if failed {
		c.report(r.id, err)
	}
}

func (c *Coordinator) report(id tile.ID, err error) {
	if c.opts.OnError != nil {
		c.opts.OnError(id, err)
		return
	}
	c.log.Warnf("fetch %v tile error ~ %s", id, err)
}

//InFlight number of outstanding requests, queued or transferring. At most
//Workers of them transfer at once; the rest wait in desired-set order.
func (c *Coordinator) InFlight() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.inflight)
}

//Fetching reports whether id has an outstanding request.
func (c *Coordinator) Fetching(id tile.ID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.inflight[id]
	return ok
}

//Wait blocks until every started request has finished or been abandoned.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

//Close cancels all outstanding requests and waits for them to wind down.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	for id, r := range c.inflight {
		r.cancel()
		delete(c.inflight, id)
	}
	c.queue = nil
	c.mu.Unlock()

	c.stop()
	c.wg.Wait()
	c.log.Infof("fetch coordinator closed ~")
}
