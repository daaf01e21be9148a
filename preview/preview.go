// Package preview ties the pipeline together behind one explicit Service
// instance: the artifact cache, the fetcher, the watermark renderer, the
// in-flight registry, and the preloader. Nothing is reached through ambient
// globals; construct a Service per session and pass it around.
package preview

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/IvanBrykalov/previewcache/cache"
	"github.com/IvanBrykalov/previewcache/display"
	"github.com/IvanBrykalov/previewcache/fetch"
	"github.com/IvanBrykalov/previewcache/internal/flight"
	"github.com/IvanBrykalov/previewcache/platform"
	"github.com/IvanBrykalov/previewcache/preload"
	"github.com/IvanBrykalov/previewcache/render"
)

// Options configures a Service. Zero values are safe: the default profile is
// the unconstrained tier with every knob at its default.
type Options struct {
	// Profile is the capability classification. Nil => platform.Default(false).
	Profile *platform.Profile

	// Client performs the HTTP requests. Nil => http.DefaultClient.
	Client *http.Client

	// Metrics receives the cache observability signals. Nil => noop.
	Metrics cache.Metrics

	// Logger for pipeline diagnostics. Nil => no output.
	Logger *zerolog.Logger

	// Clock overrides the cache time source (tests). Nil => time.Now().
	Clock cache.Clock
}

// Stats is the diagnostics snapshot exposed to tests and operators.
type Stats struct {
	cache.Stats
	// InFlight is the number of fetch/render pipelines currently running.
	InFlight int
}

// Service owns the shared pipeline state for one session.
type Service struct {
	profile  platform.Profile
	store    *cache.Store[*render.Artifact]
	fetcher  *fetch.Fetcher
	renderer *render.Renderer
	flight   *flight.Group[cache.Key, *render.Artifact]
	pre      *preload.Preloader
	log      zerolog.Logger
}

// New constructs a Service. Call Close when the session ends.
func New(opt Options) *Service {
	profile := platform.Default(false)
	if opt.Profile != nil {
		profile = *opt.Profile
	}
	logger := zerolog.Nop()
	if opt.Logger != nil {
		logger = *opt.Logger
	}

	store := cache.New[*render.Artifact](cache.Options[*render.Artifact]{
		Capacity:    profile.CacheCapacity,
		Constrained: profile.Constrained,
		Metrics:     opt.Metrics,
		Clock:       opt.Clock,
	})
	fetcher := fetch.New(fetch.Options{
		Client:         opt.Client,
		Timeout:        profile.FetchTimeout,
		PollCompletion: profile.PollCompletion,
		Logger:         opt.Logger,
	})
	renderer := render.New(render.DefaultConfig(profile))
	fl := &flight.Group[cache.Key, *render.Artifact]{}

	s := &Service{
		profile:  profile,
		store:    store,
		fetcher:  fetcher,
		renderer: renderer,
		flight:   fl,
		log:      logger,
	}
	s.pre = preload.New(preload.Options{
		Store:    store,
		Fetcher:  fetcher,
		Renderer: renderer,
		Flight:   fl,
		Breadth:  profile.PreloadBreadth,
		Logger:   opt.Logger,
	})
	return s
}

// NewDisplay returns a fresh idle display instance bound to the shared
// pipeline.
func (s *Service) NewDisplay() *display.Controller {
	return display.New(display.Options{
		Store:    s.store,
		Fetcher:  s.fetcher,
		Renderer: s.renderer,
		Flight:   s.flight,
		Logger:   &s.log,
	})
}

// RequestDisplay asks c to show locator under label, with an optional
// fallback locator. OnReady/OnError behave as on display.Request; when
// lookAhead keys are given, preloading for them is kicked off from the
// ready hook, after the foreground artifact has finished rendering.
func (s *Service) RequestDisplay(ctx context.Context, c *display.Controller, locator, label, fallback string, onReady func(), onError func(error), lookAhead ...preload.Item) {
	ready := onReady
	if len(lookAhead) > 0 {
		items := append([]preload.Item(nil), lookAhead...)
		ready = func() {
			if onReady != nil {
				onReady()
			}
			s.pre.Preload(ctx, items)
		}
	}
	c.Request(ctx, display.Request{
		Locator:  locator,
		Label:    label,
		Fallback: fallback,
		OnReady:  ready,
		OnError:  onError,
	})
}

// Preload warms the cache for the ordered upcoming keys, bounded by the
// profile's breadth.
func (s *Service) Preload(ctx context.Context, items []preload.Item) {
	s.pre.Preload(ctx, items)
}

// Invalidate drops the cache entry for key, if any.
func (s *Service) Invalidate(key cache.Key) bool {
	return s.store.Invalidate(key)
}

// Reload forces a fresh fetch+render cycle on c; see display.Reload.
func (s *Service) Reload(ctx context.Context, c *display.Controller) {
	c.Reload(ctx)
}

// Profile returns the capability profile the service was built with.
func (s *Service) Profile() platform.Profile { return s.profile }

// Stats returns the diagnostics snapshot: cache counters plus the live
// in-flight pipeline count.
func (s *Service) Stats() Stats {
	return Stats{
		Stats:    s.store.Stats(),
		InFlight: s.flight.Count(),
	}
}

// Close tears the session down: the pressure monitor stops and the cache is
// marked closed. In-flight pipelines finish but their results are dropped.
func (s *Service) Close() error {
	return s.store.Close()
}
