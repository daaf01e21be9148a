// Package preload warms the artifact cache for sequential browsing.
//
// The preloader runs the same fetch→render pipeline the display path uses,
// but results only ever land in the cache store; nothing is pushed into a
// live display surface. Work is deduplicated against resident entries and
// the in-flight registry, and breadth is bounded so look-ahead never
// competes with the critical path for memory. Callers trigger preloading
// from the display ready hook, after the foreground artifact has finished
// rendering.
package preload

import (
	"context"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/IvanBrykalov/previewcache/cache"
	"github.com/IvanBrykalov/previewcache/fetch"
	"github.com/IvanBrykalov/previewcache/internal/flight"
	"github.com/IvanBrykalov/previewcache/render"
)

// Item is one upcoming key to warm.
type Item struct {
	Locator  string
	Label    string
	Fallback string
}

// Key returns the cache key the item resolves to.
func (it Item) Key() cache.Key {
	return cache.Key{Locator: it.Locator, Label: it.Label}
}

// Options wires the preloader into the shared pipeline.
type Options struct {
	Store    cache.Cache[*render.Artifact]
	Fetcher  *fetch.Fetcher
	Renderer *render.Renderer
	Flight   *flight.Group[cache.Key, *render.Artifact]

	// Breadth is how many items ahead one Preload call works. Reduced to 1
	// on constrained engines to bound peak concurrent memory.
	Breadth int

	// Logger for per-item diagnostics. Nil => no output.
	Logger *zerolog.Logger
}

// Preloader proactively populates the cache store for upcoming keys.
type Preloader struct {
	store    cache.Cache[*render.Artifact]
	fetcher  *fetch.Fetcher
	renderer *render.Renderer
	flight   *flight.Group[cache.Key, *render.Artifact]
	breadth  int
	log      zerolog.Logger
}

// New constructs a Preloader. Store, Fetcher, Renderer, and Flight are
// required.
func New(opt Options) *Preloader {
	if opt.Store == nil || opt.Fetcher == nil || opt.Renderer == nil || opt.Flight == nil {
		panic("preload: Store, Fetcher, Renderer, and Flight are required")
	}
	breadth := opt.Breadth
	if breadth <= 0 {
		breadth = 1
	}
	logger := zerolog.Nop()
	if opt.Logger != nil {
		logger = *opt.Logger
	}
	return &Preloader{
		store:    opt.Store,
		fetcher:  opt.Fetcher,
		renderer: opt.Renderer,
		flight:   opt.Flight,
		breadth:  breadth,
		log:      logger,
	}
}

// Preload starts fetch→render pipelines for the first Breadth items that are
// neither resident nor already in flight, then returns immediately.
// Outcomes are written only to the cache store; failures are logged and
// otherwise dropped — a key that fails here is simply fetched again when a
// display asks for it.
func (p *Preloader) Preload(ctx context.Context, items []Item) {
	if len(items) > p.breadth {
		items = items[:p.breadth]
	}

	g := &errgroup.Group{}
	g.SetLimit(p.breadth)
	started := 0
	for _, it := range items {
		it := it
		key := it.Key()
		if p.store.Contains(key) || p.flight.Leading(key) {
			continue
		}
		started++
		g.Go(func() error {
			if _, err := p.warm(ctx, key, it); err != nil {
				p.log.Debug().Stringer("key", key).Err(err).Msg("preload failed")
			}
			return nil
		})
	}
	if started > 0 {
		p.log.Debug().Int("started", started).Msg("preloading")
		go func() { _ = g.Wait() }()
	}
}

// warm runs one coalesced fetch→render→put pipeline for key.
func (p *Preloader) warm(ctx context.Context, key cache.Key, it Item) (*render.Artifact, error) {
	return p.flight.Do(ctx, key, func() (*render.Artifact, error) {
		// Double-check after flight join: a display may have landed it.
		if art, ok := p.store.Get(key); ok {
			return art, nil
		}
		res, err := p.fetcher.Load(ctx, it.Locator, it.Fallback)
		if err != nil {
			return nil, err
		}
		art, err := p.renderer.Render(res.Bitmap, it.Label)
		if err != nil {
			return nil, err
		}
		p.store.Put(key, art)
		return art, nil
	})
}
