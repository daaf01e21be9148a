// Package display drives one visible preview instance.
//
// Each Controller owns a small state machine:
//
//	Idle → Loading → {Displaying | Error}
//
// with Error → Loading via manual Retry and Displaying/Error → Loading via
// key change or manual Reload. Asynchronous outcomes carry the generation of
// the request that started them; an outcome whose generation no longer
// matches the controller's current request is discarded without touching
// display state, so the visible content never regresses to a superseded
// result. Cancellation of the underlying fetch is advisory only — a stale
// outcome may still populate the shared cache, which is desirable.
package display

import (
	"context"
	"image"
	"sync"

	"github.com/rs/zerolog"

	"github.com/IvanBrykalov/previewcache/cache"
	"github.com/IvanBrykalov/previewcache/fetch"
	"github.com/IvanBrykalov/previewcache/internal/flight"
	"github.com/IvanBrykalov/previewcache/render"
)

// State is the per-instance display state.
type State int32

const (
	StateIdle State = iota
	StateLoading
	StateDisplaying
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateDisplaying:
		return "displaying"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Request describes what an instance should show. OnReady fires once the
// artifact is displayed (callers use it to kick off preloading); OnError
// fires when the load is exhausted. Both are invoked without internal locks
// held.
type Request struct {
	Locator  string
	Label    string
	Fallback string
	OnReady  func()
	OnError  func(error)
}

// Key returns the cache key the request resolves to.
func (r Request) Key() cache.Key {
	return cache.Key{Locator: r.Locator, Label: r.Label}
}

// Options wires a Controller into the shared pipeline. Store, Fetcher,
// Renderer, and Flight are required and shared by every controller and the
// preloader; the flight group is what attaches concurrent requests for one
// key to a single pipeline.
type Options struct {
	Store    cache.Cache[*render.Artifact]
	Fetcher  *fetch.Fetcher
	Renderer *render.Renderer
	Flight   *flight.Group[cache.Key, *render.Artifact]

	// Logger for state-transition diagnostics. Nil => no output.
	Logger *zerolog.Logger
}

// Controller is the state machine for one visible preview instance.
// Safe for concurrent use.
type Controller struct {
	store    cache.Cache[*render.Artifact]
	fetcher  *fetch.Fetcher
	renderer *render.Renderer
	flight   *flight.Group[cache.Key, *render.Artifact]
	log      zerolog.Logger

	mu      sync.Mutex
	state   State
	cur     Request
	key     cache.Key
	gen     uint64 // identity of the most recent outstanding request
	surface *image.RGBA
	lastErr error
}

// New constructs an idle Controller.
func New(opt Options) *Controller {
	if opt.Store == nil || opt.Fetcher == nil || opt.Renderer == nil || opt.Flight == nil {
		panic("display: Store, Fetcher, Renderer, and Flight are required")
	}
	logger := zerolog.Nop()
	if opt.Logger != nil {
		logger = *opt.Logger
	}
	return &Controller{
		store:    opt.Store,
		fetcher:  opt.Fetcher,
		renderer: opt.Renderer,
		flight:   opt.Flight,
		log:      logger,
		state:    StateIdle,
	}
}

// Request binds the instance to a new locator/label. A fresh cache hit skips
// straight to Displaying with no network round trip and fires OnReady before
// returning; otherwise the instance enters Loading and settles
// asynchronously. Any outcome still pending for a previous request is
// superseded.
func (c *Controller) Request(ctx context.Context, req Request) {
	key := req.Key()

	c.mu.Lock()
	c.cur = req
	c.key = key
	c.gen++
	gen := c.gen

	if art, ok := c.store.Get(key); ok {
		c.applyLocked(art)
		c.mu.Unlock()
		c.log.Debug().Stringer("key", key).Msg("cache hit, displaying")
		if req.OnReady != nil {
			req.OnReady()
		}
		return
	}

	c.state = StateLoading
	c.mu.Unlock()
	c.log.Debug().Stringer("key", key).Msg("loading")

	go c.settle(ctx, gen, key, req)
}

// Retry re-attempts the current request after a failure. Any cached failure
// artifact for the key is cleared first. No-op unless the instance is in
// Error.
func (c *Controller) Retry(ctx context.Context) {
	c.mu.Lock()
	if c.state != StateError {
		c.mu.Unlock()
		return
	}
	req := c.cur
	c.mu.Unlock()

	c.store.Invalidate(req.Key())
	c.Request(ctx, req)
}

// Reload forces one guaranteed fresh fetch+render cycle for the current
// request by invalidating its cache entry first; normal caching resumes
// afterwards. Valid from Displaying or Error.
func (c *Controller) Reload(ctx context.Context) {
	c.mu.Lock()
	if c.state == StateIdle {
		c.mu.Unlock()
		return
	}
	req := c.cur
	c.mu.Unlock()

	c.store.Invalidate(req.Key())
	c.Request(ctx, req)
}

// State returns the current display state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Surface returns the instance's own copy of the displayed artifact, or nil
// when nothing is displayed. The surface is owned by the instance; mutating
// it cannot corrupt the shared cache.
func (c *Controller) Surface() *image.RGBA {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.surface
}

// Err returns the terminal error of the last failed load, if any.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// settle runs the coalesced pipeline and applies its outcome unless the
// request has been superseded in the meantime.
func (c *Controller) settle(ctx context.Context, gen uint64, key cache.Key, req Request) {
	art, err := c.load(ctx, key, req)

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		// Stale result: a newer request owns the display now. The outcome
		// may still have populated the cache above.
		c.log.Debug().Stringer("key", key).Msg("stale outcome discarded")
		return
	}
	if err != nil {
		c.state = StateError
		c.lastErr = err
		c.surface = nil
		c.mu.Unlock()
		c.log.Debug().Stringer("key", key).Err(err).Msg("load failed")
		if req.OnError != nil {
			req.OnError(err)
		}
		return
	}
	c.applyLocked(art)
	c.mu.Unlock()
	c.log.Debug().Stringer("key", key).Msg("displaying")
	if req.OnReady != nil {
		req.OnReady()
	}
}

// applyLocked copies the artifact into the instance surface and enters
// Displaying. Caller holds c.mu.
func (c *Controller) applyLocked(art *render.Artifact) {
	c.surface = art.Clone()
	c.state = StateDisplaying
	c.lastErr = nil
}

// load runs one coalesced fetch→render→put pipeline for key. Concurrent
// callers for the same key attach to the same outcome instead of issuing a
// duplicate fetch.
func (c *Controller) load(ctx context.Context, key cache.Key, req Request) (*render.Artifact, error) {
	return c.flight.Do(ctx, key, func() (*render.Artifact, error) {
		// Double-check after flight join.
		if art, ok := c.store.Get(key); ok {
			return art, nil
		}
		res, err := c.fetcher.Load(ctx, req.Locator, req.Fallback)
		if err != nil {
			return nil, err
		}
		art, err := c.renderer.Render(res.Bitmap, req.Label)
		if err != nil {
			return nil, err
		}
		c.store.Put(key, art)
		return art, nil
	})
}
